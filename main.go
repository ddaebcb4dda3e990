// ./main.go
package main

import (
	"linkpilot/cmd"
)

func main() {
	cmd.Execute()
}

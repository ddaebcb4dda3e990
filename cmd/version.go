// File: cmd/version.go
package cmd

// Version is set at build time via ldflags:
//
//	go build -ldflags "-X linkpilot/cmd.Version=1.2.3"
var Version = "0.1.0-dev"

// File: cmd/run.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"linkpilot/internal/browser"
	"linkpilot/internal/content"
	"linkpilot/internal/executor"
	"linkpilot/internal/llmclient"
	"linkpilot/internal/observability"
	"linkpilot/internal/quota"
	"linkpilot/internal/scheduler"
	"linkpilot/internal/store"
)

var runOnceTrigger string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Arm the automation triggers and run until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := observability.GetLogger()

		// Configuration validation is the only fatal startup path.
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		repo, err := store.New(cfg.Database, logger)
		if err != nil {
			return err
		}
		defer repo.Close()

		llm, err := llmclient.NewClient(ctx, cfg.LLM, logger)
		if err != nil {
			return err
		}

		generator := content.New(llm, cfg.Content, logger)
		session := browser.NewSession(cfg.Browser, cfg.LinkedIn, logger)
		runner := executor.New(session, logger)
		tracker := quota.NewTracker(cfg.Quota, repo, logger)

		sched := scheduler.New(cfg, repo, runner, generator, tracker, session, logger)
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer sched.StopAll()

		if runOnceTrigger != "" {
			return sched.RunTriggerOnce(runOnceTrigger)
		}

		logger.Info("linkpilot is running; press Ctrl-C to stop.")
		<-ctx.Done()
		logger.Info("Shutdown signal received.", zap.String("reason", ctx.Err().Error()))
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runOnceTrigger, "once", "",
		"fire a single trigger and exit (post_scheduling, post_publishing, interactions, connection_batch, comment_watch)")
	rootCmd.AddCommand(runCmd)
}

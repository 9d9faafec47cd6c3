package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/harunnryd/shukan/internal/config"
	"github.com/harunnryd/shukan/internal/daemon"
	"github.com/harunnryd/shukan/internal/daemon/components"

	"github.com/spf13/cobra"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Serve the HTTP API and send reminders",
	Long:  `Starts Shukan as a long-running service: the engine, the reminder scheduler, chat notifiers and the HTTP API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		forceClean, _ := cmd.Flags().GetBool("force-clean-locks")

		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}
		workspaceID := cfg.Store.WorkspaceID
		if workspaceID == "" {
			workspaceID = config.DefaultWorkspaceID
			cfg.Store.WorkspaceID = workspaceID
		}

		daemonMgr, err := daemon.NewDaemon(workspaceID, cfg)
		if err != nil {
			return fmt.Errorf("failed to create daemon manager: %w", err)
		}
		daemonMgr.SetForceCleanup(forceClean)

		notifierComp := components.NewNotifierComponent(&cfg.Notify)
		engineComp := components.NewEngineComponent(cfg, notifierComp)
		reminderComp := components.NewReminderComponent(&cfg.Reminder, engineComp, notifierComp)
		httpComp := components.NewHTTPServerComponent(daemonMgr, &cfg.Server, engineComp)

		daemonMgr.AddComponent(notifierComp)
		daemonMgr.AddComponent(engineComp)
		daemonMgr.AddComponent(reminderComp)
		daemonMgr.AddComponent(httpComp)

		slog.Info("Shukan daemon starting up...", "port", cfg.Server.Port, "workspace", workspaceID)
		err = daemonMgr.Start(commandContext(cmd))
		if err != nil {
			// Cancellation via signal/context is a graceful shutdown for the CLI.
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				slog.Info("Shukan daemon stopped gracefully", "workspace", workspaceID)
				return nil
			}
			return fmt.Errorf("daemon failed: %w", err)
		}

		slog.Info("Shukan daemon stopped gracefully", "workspace", workspaceID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.Flags().Bool("force-clean-locks", false, "Force cleanup of stale lock files (default: warn-only)")
}

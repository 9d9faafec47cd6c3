package main

import (
	"fmt"
	"os"

	"github.com/harunnryd/shukan/internal/config"
	"github.com/harunnryd/shukan/internal/logger"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "shukan",
	Short: "Shukan habit tracker",
	Long:  `Shukan tracks daily routines, focus sessions and streaks, and rewards consistency with XP, quests and achievements.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cmd)
		if err != nil {
			return err
		}
		if workspaceID := resolveWorkspaceID(cmd); workspaceID != "" {
			cfg.Store.WorkspaceID = workspaceID
		}

		logger.Setup(logLevelFor(cmd, cfg))
		return nil
	},
}

// logLevelFor keeps one-shot commands quiet unless a level was asked for.
func logLevelFor(cmd *cobra.Command, c *config.Config) string {
	if cmd.Name() == "daemon" || cmd.Flags().Changed("server.log_level") || os.Getenv(config.EnvPrefix+"SERVER_LOG_LEVEL") != "" {
		return c.Server.LogLevel
	}
	return "warn"
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SilenceUsage = true
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.shukan/config.yaml)")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before SHUKAN_ variables")
	rootCmd.PersistentFlags().String("server.log_level", config.DefaultServerLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Int("server.port", config.DefaultServerPort, "server port")
	rootCmd.PersistentFlags().StringP("workspace", "w", "", "Target workspace ID")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "output format (table, json, yaml)")
}

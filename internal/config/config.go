package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

const EnvPrefix = "SHUKAN_"

type Config struct {
	Server   ServerConfig   `koanf:"server" yaml:"server"`
	Store    StoreConfig    `koanf:"store" yaml:"store"`
	Engine   EngineConfig   `koanf:"engine" yaml:"engine"`
	Reminder ReminderConfig `koanf:"reminder" yaml:"reminder"`
	Notify   NotifyConfig   `koanf:"notify" yaml:"notify"`
	Daemon   DaemonConfig   `koanf:"daemon" yaml:"daemon"`
}

type ServerConfig struct {
	Port            int    `koanf:"port" yaml:"port"`
	LogLevel        string `koanf:"log_level" yaml:"log_level"`
	ReadTimeout     string `koanf:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    string `koanf:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     string `koanf:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout string `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// StoreConfig selects where the routines, stats and settings blobs live.
// Backend "file" keeps one JSON file per key under the workspace; "sqlite"
// and "postgres" use DSN. An empty backend is inferred from DSN.
type StoreConfig struct {
	Backend       string `koanf:"backend" yaml:"backend"`
	DSN           string `koanf:"dsn" yaml:"dsn"`
	WorkspaceID   string `koanf:"workspace_id" yaml:"workspace_id"`
	WorkspacePath string `koanf:"workspace_path" yaml:"workspace_path"`
	LockTimeout   string `koanf:"lock_timeout" yaml:"lock_timeout"`
	LockRetry     string `koanf:"lock_retry" yaml:"lock_retry"`
	LockMaxRetry  int    `koanf:"lock_max_retry" yaml:"lock_max_retry"`
	InboxSize     int    `koanf:"inbox_size" yaml:"inbox_size"`
}

type EngineConfig struct {
	TickInterval string  `koanf:"tick_interval" yaml:"tick_interval"`
	ComboWindow  string  `koanf:"combo_window" yaml:"combo_window"`
	RewardChance float64 `koanf:"reward_chance" yaml:"reward_chance"`
	Seed         uint64  `koanf:"seed" yaml:"seed"`
	InboxSize    int     `koanf:"inbox_size" yaml:"inbox_size"`
	SeedExamples bool    `koanf:"seed_examples" yaml:"seed_examples"`
}

type ReminderConfig struct {
	Enabled         bool   `koanf:"enabled" yaml:"enabled"`
	TickInterval    string `koanf:"tick_interval" yaml:"tick_interval"`
	Inactivity      string `koanf:"inactivity" yaml:"inactivity"`
	DueMargin       string `koanf:"due_margin" yaml:"due_margin"`
	ShutdownTimeout string `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type NotifyConfig struct {
	BufferSize int            `koanf:"buffer_size" yaml:"buffer_size"`
	Telegram   TelegramConfig `koanf:"telegram" yaml:"telegram"`
	Slack      SlackConfig    `koanf:"slack" yaml:"slack"`
}

type TelegramConfig struct {
	Enabled  bool   `koanf:"enabled" yaml:"enabled"`
	BotToken string `koanf:"bot_token" yaml:"bot_token"`
	ChatID   int64  `koanf:"chat_id" yaml:"chat_id"`
}

type SlackConfig struct {
	Enabled   bool   `koanf:"enabled" yaml:"enabled"`
	BotToken  string `koanf:"bot_token" yaml:"bot_token"`
	ChannelID string `koanf:"channel_id" yaml:"channel_id"`
}

type DaemonConfig struct {
	ShutdownTimeout        string `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
	HealthCheckInterval    string `koanf:"health_check_interval" yaml:"health_check_interval"`
	StartupShutdownTimeout string `koanf:"startup_shutdown_timeout" yaml:"startup_shutdown_timeout"`
	PreflightTimeout       string `koanf:"preflight_timeout" yaml:"preflight_timeout"`
	StaleLockTTL           string `koanf:"stale_lock_ttl" yaml:"stale_lock_ttl"`
}

const (
	DefaultWorkspaceID                  = "default"
	DefaultServerPort                   = 8080
	DefaultServerLogLevel               = "info"
	DefaultServerReadTimeout            = "10s"
	DefaultServerWriteTimeout           = "10s"
	DefaultServerIdleTimeout            = "60s"
	DefaultServerShutdownTimeout        = "5s"
	DefaultStoreBackend                 = "file"
	DefaultStoreWorkspacePath           = "~/.shukan/workspaces"
	DefaultStoreLockTimeout             = "30s"
	DefaultStoreLockRetry               = "100ms"
	DefaultStoreLockMaxRetry            = 300
	DefaultStoreInboxSize               = 100
	DefaultEngineTickInterval           = "250ms"
	DefaultEngineComboWindow            = "90m"
	DefaultEngineRewardChance           = 0.35
	DefaultEngineInboxSize              = 64
	DefaultEngineSeedExamples           = true
	DefaultReminderEnabled              = true
	DefaultReminderTickInterval         = "1m"
	DefaultReminderInactivity           = "4h"
	DefaultReminderDueMargin            = "10m"
	DefaultReminderShutdownTimeout      = "10s"
	DefaultNotifyBufferSize             = 64
	DefaultDaemonShutdownTimeout        = "30s"
	DefaultDaemonHealthCheckInterval    = "30s"
	DefaultDaemonStartupShutdownTimeout = "10s"
	DefaultDaemonPreflightTimeout       = "10s"
	DefaultDaemonStaleLockTTL           = "15m"
)

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"server.port":                     DefaultServerPort,
		"server.log_level":                DefaultServerLogLevel,
		"server.read_timeout":             DefaultServerReadTimeout,
		"server.write_timeout":            DefaultServerWriteTimeout,
		"server.idle_timeout":             DefaultServerIdleTimeout,
		"server.shutdown_timeout":         DefaultServerShutdownTimeout,
		"store.backend":                   DefaultStoreBackend,
		"store.dsn":                       "",
		"store.workspace_id":              DefaultWorkspaceID,
		"store.workspace_path":            DefaultStoreWorkspacePath,
		"store.lock_timeout":              DefaultStoreLockTimeout,
		"store.lock_retry":                DefaultStoreLockRetry,
		"store.lock_max_retry":            DefaultStoreLockMaxRetry,
		"store.inbox_size":                DefaultStoreInboxSize,
		"engine.tick_interval":            DefaultEngineTickInterval,
		"engine.combo_window":             DefaultEngineComboWindow,
		"engine.reward_chance":            DefaultEngineRewardChance,
		"engine.seed":                     0,
		"engine.inbox_size":               DefaultEngineInboxSize,
		"engine.seed_examples":            DefaultEngineSeedExamples,
		"reminder.enabled":                DefaultReminderEnabled,
		"reminder.tick_interval":          DefaultReminderTickInterval,
		"reminder.inactivity":             DefaultReminderInactivity,
		"reminder.due_margin":             DefaultReminderDueMargin,
		"reminder.shutdown_timeout":       DefaultReminderShutdownTimeout,
		"notify.buffer_size":              DefaultNotifyBufferSize,
		"notify.telegram.enabled":         false,
		"notify.telegram.bot_token":       "",
		"notify.telegram.chat_id":         0,
		"notify.slack.enabled":            false,
		"notify.slack.bot_token":          "",
		"notify.slack.channel_id":         "",
		"daemon.shutdown_timeout":         DefaultDaemonShutdownTimeout,
		"daemon.health_check_interval":    DefaultDaemonHealthCheckInterval,
		"daemon.startup_shutdown_timeout": DefaultDaemonStartupShutdownTimeout,
		"daemon.preflight_timeout":        DefaultDaemonPreflightTimeout,
		"daemon.stale_lock_ttl":           DefaultDaemonStaleLockTTL,
	}
}

// Load layers defaults, the YAML file, .env, SHUKAN_ environment variables
// and finally command-line flags.
func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	defs := defaults()
	for key, value := range defs {
		k.Set(key, value)
	}

	configPath := ""
	envFile := ".env"
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
		if flag := cmd.Flags().Lookup("env-file"); flag != nil {
			envFile = strings.TrimSpace(flag.Value.String())
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, err
		}
	} else if globalPath, err := DefaultConfigPath(); err == nil {
		if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
			slog.Debug("Global config not found or invalid", "path", globalPath, "error", err)
		}
	}

	// .env never overrides variables already set in the process environment.
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("Failed to read env file", "path", envFile, "error", err)
		}
	}

	envKeys := envKeyIndex(defs)
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return envKeys[strings.ToLower(strings.TrimPrefix(s, EnvPrefix))]
	}), nil); err != nil {
		return nil, err
	}

	if cmd != nil {
		if err := k.Load(posflag.Provider(cmd.Flags(), ".", k), nil); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	workspacePath, err := ExpandPath(cfg.Store.WorkspacePath)
	if err != nil {
		return nil, err
	}
	cfg.Store.WorkspacePath = workspacePath

	return &cfg, nil
}

// envKeyIndex maps "server_log_level" style names onto the dotted keys they
// stand for, so underscores inside a key survive the environment layer.
func envKeyIndex(defs map[string]interface{}) map[string]string {
	index := make(map[string]string, len(defs))
	for key := range defs {
		index[strings.ReplaceAll(key, ".", "_")] = key
	}
	return index
}

// DefaultConfigPath is ~/.shukan/config.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".shukan", "config.yaml"), nil
}

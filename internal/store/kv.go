// Package store persists the engine's JSON blobs and serializes writes
// through a single worker goroutine.
package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/harunnryd/shukan/internal/config"
	shukanErrors "github.com/harunnryd/shukan/internal/errors"
)

// Blob keys. Each holds one JSON document.
const (
	KeyRoutines = "routines"
	KeyStats    = "stats"
	KeySettings = "settings"
)

// KV is a durable key-value store of opaque blobs. Get returns an error
// wrapping errors.ErrNotFound when the key has never been written.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// DetectDSNType returns the database/sql driver name for a DSN.
func DetectDSNType(dsn string) string {
	d := strings.TrimSpace(dsn)
	if strings.HasPrefix(d, "postgres://") || strings.HasPrefix(d, "postgresql://") || strings.Contains(d, "host=") {
		return "postgres"
	}
	return "sqlite3"
}

// ResolveBackend picks the backend named in cfg, inferring it from the DSN
// when unset.
func ResolveBackend(cfg config.StoreConfig) string {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend != "" {
		if backend == "sqlite3" {
			return BackendSQLite
		}
		return backend
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return BackendFile
	}
	if DetectDSNType(cfg.DSN) == "postgres" {
		return BackendPostgres
	}
	return BackendSQLite
}

// Open builds the KV configured for the workspace.
func Open(ctx context.Context, cfg config.StoreConfig) (KV, error) {
	workspaceID := cfg.WorkspaceID
	if workspaceID == "" {
		workspaceID = config.DefaultWorkspaceID
	}

	switch backend := ResolveBackend(cfg); backend {
	case BackendFile:
		lockCfg, err := lockConfigFrom(cfg)
		if err != nil {
			return nil, err
		}
		return OpenFileKV(workspaceID, cfg.WorkspacePath, lockCfg)
	case BackendSQLite:
		dsn := strings.TrimSpace(cfg.DSN)
		if dsn == "" {
			base, err := GetWorkspacePath(workspaceID, cfg.WorkspacePath)
			if err != nil {
				return nil, err
			}
			dsn = filepath.Join(base, "shukan.db")
		}
		return OpenSQLKV(ctx, "sqlite3", dsn, workspaceID)
	case BackendPostgres:
		if strings.TrimSpace(cfg.DSN) == "" {
			return nil, shukanErrors.InvalidInput("store.dsn is required for the postgres backend")
		}
		return OpenSQLKV(ctx, "postgres", cfg.DSN, workspaceID)
	case BackendMemory:
		return NewMemoryKV(), nil
	default:
		return nil, shukanErrors.InvalidInput(fmt.Sprintf("unknown store backend %q", backend))
	}
}

func lockConfigFrom(cfg config.StoreConfig) (*FileLockConfig, error) {
	timeout, err := config.DurationOrDefault(cfg.LockTimeout, config.DefaultStoreLockTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse store lock timeout: %w", err)
	}
	retry, err := config.DurationOrDefault(cfg.LockRetry, config.DefaultStoreLockRetry)
	if err != nil {
		return nil, fmt.Errorf("parse store lock retry: %w", err)
	}
	maxRetry := cfg.LockMaxRetry
	if maxRetry <= 0 {
		maxRetry = config.DefaultStoreLockMaxRetry
	}
	return &FileLockConfig{LockTimeout: timeout, LockRetry: retry, LockMaxRetry: maxRetry}, nil
}

func validateKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return shukanErrors.InvalidInput(fmt.Sprintf("invalid store key %q", key))
	}
	return nil
}

func notFound(key string) error {
	return shukanErrors.NotFound(fmt.Sprintf("store key %s", key))
}

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/harunnryd/shukan/internal/config"
	shukanErrors "github.com/harunnryd/shukan/internal/errors"

	"github.com/gofrs/flock"
)

const lockFileName = "workspace.lock"

// FileLock keeps a second engine from opening the same workspace.
type FileLock struct {
	fileLock    *flock.Flock
	lockPath    string
	workspaceID string
	acquiredAt  time.Time
	mu          sync.RWMutex
}

type FileLockConfig struct {
	LockTimeout  time.Duration
	LockRetry    time.Duration
	LockMaxRetry int
}

func DefaultFileLockConfig() *FileLockConfig {
	lockTimeout, _ := config.DurationOrDefault(config.DefaultStoreLockTimeout, config.DefaultStoreLockTimeout)
	lockRetry, _ := config.DurationOrDefault(config.DefaultStoreLockRetry, config.DefaultStoreLockRetry)

	return &FileLockConfig{
		LockTimeout:  lockTimeout,
		LockRetry:    lockRetry,
		LockMaxRetry: config.DefaultStoreLockMaxRetry,
	}
}

// budget is the total time spent retrying: the timeout, capped by the
// retry count when one is set.
func (c *FileLockConfig) budget() time.Duration {
	if c.LockMaxRetry > 0 && c.LockRetry > 0 {
		if capped := c.LockRetry * time.Duration(c.LockMaxRetry); capped < c.LockTimeout {
			return capped
		}
	}
	return c.LockTimeout
}

// NewFileLock takes the workspace lock under basePath, retrying until the
// configured budget runs out.
func NewFileLock(workspaceID, basePath string, cfg *FileLockConfig) (*FileLock, error) {
	if cfg == nil {
		cfg = DefaultFileLockConfig()
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("create workspace dir: %w", err)
	}

	fl := &FileLock{
		fileLock:    flock.New(filepath.Join(basePath, lockFileName)),
		lockPath:    filepath.Join(basePath, lockFileName),
		workspaceID: workspaceID,
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.budget())
	defer cancel()

	retry := cfg.LockRetry
	if retry <= 0 {
		retry = 100 * time.Millisecond
	}
	locked, err := fl.fileLock.TryLockContext(ctx, retry)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("failed to attempt lock: %w", err)
	}
	if !locked {
		return nil, shukanErrors.Conflict(fmt.Sprintf("workspace %s is locked by another instance (gave up after %v)", workspaceID, cfg.budget()))
	}

	fl.acquiredAt = time.Now()
	slog.Info("File lock acquired", "workspace", workspaceID, "path", fl.lockPath)
	return fl, nil
}

func (fl *FileLock) Unlock() {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.fileLock == nil {
		slog.Warn("FileLock already unlocked", "workspace", fl.workspaceID)
		return
	}

	held := time.Since(fl.acquiredAt)
	if err := fl.fileLock.Unlock(); err != nil {
		slog.Error("Failed to release file lock", "workspace", fl.workspaceID, "path", fl.lockPath, "error", err)
	} else {
		slog.Info("File lock released", "workspace", fl.workspaceID, "held_duration_ms", held.Milliseconds())
	}
	fl.fileLock = nil
}

func (fl *FileLock) IsLocked() bool {
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	return fl.fileLock != nil
}

func (fl *FileLock) HeldDuration() time.Duration {
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	if fl.fileLock == nil || fl.acquiredAt.IsZero() {
		return 0
	}
	return time.Since(fl.acquiredAt)
}

// CleanupStaleLocks reports a lock file older than maxAge and removes it
// when forceCleanup is set.
func CleanupStaleLocks(basePath string, maxAge time.Duration, forceCleanup bool) error {
	lockPath := filepath.Join(basePath, lockFileName)
	info, err := os.Stat(lockPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	age := time.Since(info.ModTime())
	if age <= maxAge {
		return nil
	}

	slog.Warn("Found stale lock file", "path", lockPath, "age", age, "max_age", maxAge)
	if !forceCleanup {
		slog.Info("Stale lock detected but not cleaning (use --force-clean-locks to remove)", "path", lockPath)
		return nil
	}

	if err := os.Remove(lockPath); err != nil {
		return fmt.Errorf("remove stale lock: %w", err)
	}
	slog.Info("Stale lock file removed", "path", lockPath)
	return nil
}

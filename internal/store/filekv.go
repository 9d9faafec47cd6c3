package store

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// FileKV keeps one JSON file per key under <workspace>/state. Writes
// replace the file atomically; the workspace lock is held until Close.
type FileKV struct {
	dir  string
	lock *FileLock
}

func OpenFileKV(workspaceID, workspaceRootPath string, lockCfg *FileLockConfig) (*FileKV, error) {
	basePath, err := GetWorkspacePath(workspaceID, workspaceRootPath)
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(basePath, "state")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create dir %s: %w", dir, err)
	}

	lock, err := NewFileLock(workspaceID, basePath, lockCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}

	slog.Debug("File store opened", "workspace", workspaceID, "dir", dir)
	return &FileKV{dir: dir, lock: lock}, nil
}

func (f *FileKV) path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

func (f *FileKV) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path(key))
	if os.IsNotExist(err) {
		return nil, notFound(key)
	}
	return data, err
}

func (f *FileKV) Put(ctx context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return atomic.WriteFile(f.path(key), bytes.NewReader(value))
}

func (f *FileKV) Close() error {
	if f.lock.IsLocked() {
		f.lock.Unlock()
	}
	return nil
}

// Dir is where the blobs live.
func (f *FileKV) Dir() string {
	return f.dir
}

// Package local implements a local filesystem artifact store.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/JakeFAU/novel-crawler/internal/crawler"
	"github.com/JakeFAU/novel-crawler/internal/storage"
)

// Config captures the parameters for the local filesystem blob store.
type Config struct {
	// BaseDir is the root directory; each novel gets one subdirectory.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// BlobStore writes artifacts to <BaseDir>/<novel id>/<logical name>.
type BlobStore struct {
	baseDir string
	// dirs records novel directories already created during this process.
	dirs  sync.Map
	locks sync.Map
}

// New creates a new local filesystem-backed blob store.
func New(cfg Config) (*BlobStore, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}

	info, err := os.Stat(cfg.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
				return nil, fmt.Errorf("failed to create base directory: %w", mkErr)
			}
		} else {
			return nil, fmt.Errorf("failed to stat base directory: %w", err)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	// Check for write permissions.
	testFile := filepath.Join(cfg.BaseDir, ".writable_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	if err := os.Remove(testFile); err != nil {
		return nil, fmt.Errorf("failed to clean up test file: %w", err)
	}

	return &BlobStore{
		baseDir: cfg.BaseDir,
	}, nil
}

// Persist writes data under the novel's directory, creating the directory on
// first use, and returns a file:// URI. Rewriting a name replaces its content.
func (s *BlobStore) Persist(ctx context.Context, novelID, name string, data []byte) (string, error) {
	if _, err := storage.Key(novelID, name); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context canceled: %w", err)
	}

	dir, err := s.novelDir(novelID)
	if err != nil {
		return "", err
	}
	fullPath := filepath.Join(dir, name)

	// Clean the path and verify it's within baseDir to prevent path traversal.
	cleanBaseDir := filepath.Clean(s.baseDir)
	if !strings.HasPrefix(filepath.Clean(fullPath), cleanBaseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected")
	}

	unlock := s.lock(fullPath)
	defer unlock()
	if err := os.WriteFile(fullPath, data, 0o600); err != nil {
		return "", &crawler.IOError{Op: "write", Path: fullPath, Err: err}
	}
	return fmt.Sprintf("file://%s", fullPath), nil
}

func (s *BlobStore) novelDir(novelID string) (string, error) {
	dir := filepath.Join(s.baseDir, novelID)
	if _, ok := s.dirs.Load(novelID); ok {
		return dir, nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", &crawler.IOError{Op: "mkdir", Path: dir, Err: err}
	}
	s.dirs.Store(novelID, struct{}{})
	return dir, nil
}

// lock serializes writers of one path.
func (s *BlobStore) lock(path string) func() {
	mu, _ := s.locks.LoadOrStore(path, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

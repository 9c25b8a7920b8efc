package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Layr-Labs/merkle-distributor-go/pkg/persistence"
	"go.uber.org/zap"
)

// FilePersistence stores documents as files below a root directory, using the
// document name as the relative path (claims/claims-0.json, mapping.json, ...).
// Saves go through a temporary file and a rename so a failed write never
// leaves a truncated document behind.
type FilePersistence struct {
	root   string
	logger *zap.Logger
	mu     sync.RWMutex
	closed bool
}

var _ persistence.IDocumentStore = (*FilePersistence)(nil)

// NewFilePersistence creates the root directory if needed.
func NewFilePersistence(root string, logger *zap.Logger) (*FilePersistence, error) {
	absPath, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", absPath, err)
	}

	logger.Sugar().Infow("File persistence initialized", "path", absPath)
	return &FilePersistence{root: absPath, logger: logger}, nil
}

func (f *FilePersistence) path(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == "." || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid document name %q", name)
	}
	return filepath.Join(f.root, clean), nil
}

// SaveDocument writes data to name atomically
func (f *FilePersistence) SaveDocument(name string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return persistence.ErrClosed
	}

	target, err := f.path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to move %s into place: %w", name, err)
	}

	f.logger.Sugar().Debugw("Saved document", "name", name, "bytes", len(data))
	return nil
}

// LoadDocument reads name. Returns nil if it doesn't exist.
func (f *FilePersistence) LoadDocument(name string) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, persistence.ErrClosed
	}

	target, err := f.path(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(target)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// ListDocuments returns the sorted names of all .json documents under prefix
func (f *FilePersistence) ListDocuments(prefix string) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, persistence.ErrClosed
	}

	names := make([]string, 0)
	err := filepath.WalkDir(f.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(p) != ".json" {
			return nil
		}
		rel, err := filepath.Rel(f.root, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	sort.Strings(names)
	return names, nil
}

// DeleteDocument removes name. Idempotent.
func (f *FilePersistence) DeleteDocument(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return persistence.ErrClosed
	}

	target, err := f.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}

// Close marks the store closed. Idempotent.
func (f *FilePersistence) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	return nil
}

// HealthCheck verifies the root directory is still present.
func (f *FilePersistence) HealthCheck() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return persistence.ErrClosed
	}

	info, err := os.Stat(f.root)
	if err != nil {
		return fmt.Errorf("output directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", f.root)
	}
	return nil
}

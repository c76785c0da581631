package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStorage implements the Storage interface using local disk.
// Each session gets a subdirectory of the root directory. Publishing is
// not supported unless wrapped by S3Storage or MinIOStorage.
type LocalStorage struct {
	root string
}

// NewLocalStorage creates a new LocalStorage instance.
// If root is empty, a "voiceover" directory under os.TempDir() is used.
// The directory is created if it doesn't exist.
func NewLocalStorage(root string) (*LocalStorage, error) {
	if root == "" {
		root = filepath.Join(os.TempDir(), "voiceover")
	}

	if err := os.MkdirAll(root, 0750); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	return &LocalStorage{root: root}, nil
}

// Root returns the directory holding all session directories.
func (s *LocalStorage) Root() string {
	return s.root
}

// SessionDir returns the directory of a session, creating it if needed.
func (s *LocalStorage) SessionDir(ctx context.Context, sessionID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context cancelled: %w", err)
	}
	if !validElement(sessionID) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSessionID, sessionID)
	}

	dir := filepath.Join(s.root, sessionID)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("create session directory: %w", err)
	}
	return dir, nil
}

// Save writes data to a temporary file in the session directory and renames
// it to name once fully written, so readers never see a partial file.
func (s *LocalStorage) Save(ctx context.Context, sessionID, name string, data io.Reader) (string, error) {
	if !validElement(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	dir, err := s.SessionDir(ctx, sessionID)
	if err != nil {
		return "", err
	}

	f, err := os.CreateTemp(dir, "."+name+"_*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	tmpName := f.Name()
	_, err = io.Copy(f, &ctxReader{ctx: ctx, r: data})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		_ = f.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("write file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("close file: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("rename file: %w", err)
	}

	return path, nil
}

// Open returns a reader for a stored file.
// The caller is responsible for closing the returned ReadCloser.
func (s *LocalStorage) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	f, err := os.Open(path) // #nosec G304 - path is built by the session service
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	return f, nil
}

// Cleanup removes the session directory. A missing directory is not an error.
func (s *LocalStorage) Cleanup(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	if !validElement(sessionID) {
		return fmt.Errorf("%w: %q", ErrInvalidSessionID, sessionID)
	}

	if err := os.RemoveAll(filepath.Join(s.root, sessionID)); err != nil {
		return fmt.Errorf("remove session directory: %w", err)
	}
	return nil
}

// Publish is not supported by LocalStorage and returns ErrPublishNotConfigured.
func (s *LocalStorage) Publish(_ context.Context, _ string, _ io.Reader) (string, error) {
	return "", ErrPublishNotConfigured
}

// ctxReader stops reading once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

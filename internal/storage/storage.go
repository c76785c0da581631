// Package storage provides per-session working directories and optional
// publication of finished files to object storage.
// It defines the Storage interface (port) and implementations for local
// disk, S3 and MinIO.
package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Static errors for storage operations.
var (
	// ErrPublishNotConfigured is returned when publishing is attempted
	// without an object store.
	ErrPublishNotConfigured = errors.New("storage: object storage is not configured")
	// ErrInvalidSessionID is returned for empty IDs or IDs containing path elements.
	ErrInvalidSessionID = errors.New("storage: invalid session ID")
	// ErrInvalidName is returned for file names containing path elements.
	ErrInvalidName = errors.New("storage: invalid file name")
)

// Storage defines the interface for session file storage.
// Every session owns a directory; file names inside it are fixed by the caller.
type Storage interface {
	// SessionDir returns the working directory of a session, creating it if needed.
	SessionDir(ctx context.Context, sessionID string) (string, error)

	// Save writes data verbatim to name inside the session directory,
	// replacing any existing file, and returns its path.
	Save(ctx context.Context, sessionID, name string, data io.Reader) (path string, err error)

	// Open returns a reader for a stored file.
	// The caller is responsible for closing the returned ReadCloser.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Cleanup removes the session directory and everything in it.
	Cleanup(ctx context.Context, sessionID string) error

	// Publish uploads data to object storage under key and returns its URL.
	// Returns ErrPublishNotConfigured when no object store is configured.
	Publish(ctx context.Context, key string, data io.Reader) (url string, err error)
}

// validElement rejects names that would escape their parent directory.
func validElement(s string) bool {
	return s != "" && s != "." && s != ".." &&
		!strings.ContainsAny(s, `/\`) && filepath.Base(s) == s
}

// contentType maps the extensions this service publishes to MIME types.
func contentType(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".mp4":
		return "video/mp4"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	default:
		return "application/octet-stream"
	}
}

// readerSize returns the remaining length of r, or -1 when unknown.
func readerSize(r io.Reader) int64 {
	switch v := r.(type) {
	case interface{ Len() int }:
		return int64(v.Len())
	case *os.File:
		info, err := v.Stat()
		if err != nil {
			return -1
		}
		pos, err := v.Seek(0, io.SeekCurrent)
		if err != nil {
			return -1
		}
		return info.Size() - pos
	default:
		return -1
	}
}

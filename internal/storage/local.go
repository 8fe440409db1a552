package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStore keeps blobs as files in a single content directory.
type LocalStore struct {
	dir     string
	now     func() time.Time
	newName func(now time.Time, original string) string
}

// NewLocalStore returns a store rooted at dir, creating it if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStore{dir: abs, now: time.Now, newName: BlobName}, nil
}

// Dir returns the absolute content directory.
func (s *LocalStore) Dir() string { return s.dir }

// publishAttempts bounds retries when a generated name is already taken.
const publishAttempts = 5

// Put streams the upload into a hidden temporary file and links it into place
// once fully written. An existing blob is never replaced.
func (s *LocalStore) Put(ctx context.Context, up Upload) (Blob, error) {
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return Blob{}, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: up.Body})
	if err != nil {
		tmp.Close()
		return Blob{}, fmt.Errorf("failed to write blob: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return Blob{}, fmt.Errorf("failed to sync blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Blob{}, fmt.Errorf("failed to close blob: %w", err)
	}

	for attempt := 0; attempt < publishAttempts; attempt++ {
		name := s.newName(s.now(), up.OriginalName)
		final := filepath.Join(s.dir, name)
		err = os.Link(tmp.Name(), final)
		if err == nil {
			return Blob{Name: name, Path: final, Size: n}, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return Blob{}, fmt.Errorf("failed to publish blob: %w", err)
		}
	}
	return Blob{}, fmt.Errorf("failed to publish blob: %w", err)
}

// Open opens a stored blob for reading.
func (s *LocalStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	p, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrBlobNotFound
	}
	return f, err
}

// Remove deletes a stored blob.
func (s *LocalStore) Remove(ctx context.Context, name string) error {
	p, err := s.resolve(name)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrBlobNotFound
	}
	return err
}

// List returns every complete blob in the content directory. In-flight
// temporary files are skipped.
func (s *LocalStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

func (s *LocalStore) resolve(name string) (string, error) {
	if !ValidName(name) {
		return "", ErrInvalidName
	}
	return filepath.Join(s.dir, name), nil
}

// ctxReader stops a copy once its context is done.
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

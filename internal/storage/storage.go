// Package storage holds the blob stores that keep uploaded manuscript files.
package storage

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrBlobNotFound is returned when a named blob does not exist.
	ErrBlobNotFound = errors.New("blob not found")

	// ErrInvalidName is returned for names that could not have been produced by BlobName.
	ErrInvalidName = errors.New("invalid blob name")
)

// Upload describes a file handed to Store.Put.
type Upload struct {
	OriginalName string
	ContentType  string
	Size         int64 // -1 when unknown
	Body         io.Reader
}

// Blob is the result of a successful Put.
type Blob struct {
	Name string // generated stored name
	Path string // backend location, a filesystem path or an s3:// URL
	Size int64
}

// Store persists blobs under generated names.
type Store interface {
	// Put writes the upload under a fresh name. A blob is visible under its
	// final name only once it is complete.
	Put(ctx context.Context, up Upload) (Blob, error)
	// Open returns the blob's content. The caller must close it.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Remove deletes the blob. Missing blobs yield ErrBlobNotFound.
	Remove(ctx context.Context, name string) error
	// List returns the names of all complete blobs.
	List(ctx context.Context) ([]string, error)
}

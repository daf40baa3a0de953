// Package blobstore hides the byte storage backend behind a small
// interface. The registry and the verification engine never touch a
// filesystem path or an S3 key directly. They see only opaque
// handles.
package blobstore

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrNotFound means no blob exists under the given handle.
	ErrNotFound = errors.New("blob does not exist")

	// ErrSizeLimit means the reader yielded more bytes than the
	// caller allowed. Nothing is stored when this is returned.
	ErrSizeLimit = errors.New("blob exceeds maximum size")
)

// Store is implemented by the filesystem and S3 backends. Save
// computes the SHA-256 digest of the bytes as they stream in, so
// the returned digest always describes what the backend actually
// stored, not what the caller intended to send.
type Store interface {
	// Save streams r into storage under handle and returns the
	// digest and byte count of the stored blob. If r yields more
	// than maxBytes bytes, Save stores nothing and returns
	// ErrSizeLimit. A maxBytes of zero or less means no limit.
	Save(ctx context.Context, handle string, r io.Reader, maxBytes int64) (string, int64, error)

	// Open returns a reader over the stored blob, or ErrNotFound
	// if no blob exists under handle.
	Open(ctx context.Context, handle string) (io.ReadCloser, error)

	// Delete removes the blob under handle. Deleting a blob that
	// does not exist is not an error.
	Delete(ctx context.Context, handle string) error
}

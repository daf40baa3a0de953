package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fileguard/integrity-services/digest"
)

// FSStore keeps blobs as ordinary files under a base directory,
// sharded by the first two characters of the handle. Writes land in
// a temp file first and move to the final path only after a
// successful sync, so a crashed upload never leaves a readable
// blob under any handle.
type FSStore struct {
	baseDir string
}

func NewFSStore(baseDir string) (*FSStore, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("blob storage dir is required")
	}
	err := os.MkdirAll(baseDir, 0755)
	if err != nil {
		return nil, err
	}
	return &FSStore{baseDir: baseDir}, nil
}

func (store *FSStore) blobPath(handle string) (string, error) {
	if len(handle) < 3 {
		return "", fmt.Errorf("blob handle '%s' is too short", handle)
	}
	return filepath.Join(store.baseDir, handle[0:2], handle), nil
}

func (store *FSStore) Save(ctx context.Context, handle string, r io.Reader, maxBytes int64) (string, int64, error) {
	finalPath, err := store.blobPath(handle)
	if err != nil {
		return "", 0, err
	}
	err = os.MkdirAll(filepath.Dir(finalPath), 0755)
	if err != nil {
		return "", 0, err
	}
	tempFile, err := os.CreateTemp(store.baseDir, "partial-*")
	if err != nil {
		return "", 0, err
	}
	tempPath := tempFile.Name()
	discard := func() {
		tempFile.Close()
		os.Remove(tempPath)
	}
	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}
	hasher := digest.NewHasher()
	byteCount, err := io.Copy(io.MultiWriter(tempFile, hasher), src)
	if err != nil {
		discard()
		return "", byteCount, err
	}
	if maxBytes > 0 && byteCount > maxBytes {
		discard()
		return "", byteCount, ErrSizeLimit
	}
	err = tempFile.Sync()
	if err != nil {
		discard()
		return "", byteCount, err
	}
	err = tempFile.Close()
	if err != nil {
		os.Remove(tempPath)
		return "", byteCount, err
	}
	err = os.Rename(tempPath, finalPath)
	if err != nil {
		os.Remove(tempPath)
		return "", byteCount, err
	}
	return hasher.Sum(), byteCount, nil
}

func (store *FSStore) Open(ctx context.Context, handle string) (io.ReadCloser, error) {
	finalPath, err := store.blobPath(handle)
	if err != nil {
		return nil, err
	}
	blobFile, err := os.Open(finalPath)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return blobFile, nil
}

func (store *FSStore) Delete(ctx context.Context, handle string) error {
	finalPath, err := store.blobPath(handle)
	if err != nil {
		return err
	}
	err = os.Remove(finalPath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

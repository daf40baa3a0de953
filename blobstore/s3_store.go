package blobstore

import (
	"context"
	"io"

	"github.com/fileguard/integrity-services/digest"
	"github.com/minio/minio-go/v7"
)

// Part size for puts of unknown length. Uploads are capped well
// below this, so every put goes up in a single part.
const s3PartSize = 16 * 1024 * 1024

// S3Store keeps blobs in a single bucket on an S3-compatible
// server. The handle is the object key.
type S3Store struct {
	bucket string
	client *minio.Client
}

func NewS3Store(client *minio.Client, bucket string) *S3Store {
	return &S3Store{
		bucket: bucket,
		client: client,
	}
}

func (store *S3Store) Save(ctx context.Context, handle string, r io.Reader, maxBytes int64) (string, int64, error) {
	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}
	hasher := digest.NewHasher()
	uploadInfo, err := store.client.PutObject(
		ctx,
		store.bucket,
		handle,
		io.TeeReader(src, hasher),
		-1,
		minio.PutObjectOptions{
			ContentType: "application/octet-stream",
			PartSize:    s3PartSize,
		})
	if err != nil {
		store.Delete(ctx, handle)
		return "", 0, err
	}
	if maxBytes > 0 && uploadInfo.Size > maxBytes {
		err = store.Delete(ctx, handle)
		if err != nil {
			return "", uploadInfo.Size, err
		}
		return "", uploadInfo.Size, ErrSizeLimit
	}
	return hasher.Sum(), uploadInfo.Size, nil
}

func (store *S3Store) Open(ctx context.Context, handle string) (io.ReadCloser, error) {
	// Stat first, so a missing blob surfaces here instead of on
	// the first read of the returned object.
	_, err := store.client.StatObject(ctx, store.bucket, handle, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, err
	}
	object, err := store.client.GetObject(ctx, store.bucket, handle, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	return object, nil
}

func (store *S3Store) Delete(ctx context.Context, handle string) error {
	return store.client.RemoveObject(ctx, store.bucket, handle, minio.RemoveObjectOptions{})
}

package gcs

import (
	"context"
	"errors"
	"io"

	"cloud.google.com/go/storage"

	"github.com/oksasatya/go-ddd-fixture-users/pkg/helpers"
)

var ErrNotConfigured = errors.New("gcs not configured")

// BlobStore keeps attachment blobs in a single bucket.
type BlobStore struct {
	client *storage.Client
	bucket string
}

func NewBlobStore(client *storage.Client, bucket string) *BlobStore {
	return &BlobStore{client: client, bucket: bucket}
}

func (s *BlobStore) configured() bool {
	return s != nil && s.client != nil && s.bucket != ""
}

func (s *BlobStore) Put(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	if !s.configured() {
		return "", ErrNotConfigured
	}
	return helpers.UploadObject(ctx, s.client, s.bucket, key, contentType, r)
}

func (s *BlobStore) Delete(ctx context.Context, key string) error {
	if !s.configured() {
		return ErrNotConfigured
	}
	return helpers.DeleteObject(ctx, s.client, s.bucket, key)
}

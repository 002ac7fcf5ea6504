package gcsuploader

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// ObjectStore stores and fetches whole objects by name.
type ObjectStore interface {
	Upload(ctx context.Context, objectName string, data []byte) (string, error)
	Download(ctx context.Context, objectName string) ([]byte, error)
}

// GCSStore is the ObjectStore backed by one Google Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore creates a store for bucket. It uses Application Default
// Credentials unless credentialsFile is set.
func NewGCSStore(ctx context.Context, bucket, credentialsFile string) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("NewGCSStore: bucket is required")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewGCSStore: create storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

// Bucket returns the bucket name.
func (s *GCSStore) Bucket() string { return s.bucket }

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

var _ ObjectStore = (*GCSStore)(nil)

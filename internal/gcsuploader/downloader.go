package gcsuploader

import (
	"context"
	"fmt"
	"io"
)

// Download reads a whole object from the store's bucket.
func (s *GCSStore) Download(ctx context.Context, objectName string) ([]byte, error) {
	return s.download(ctx, s.bucket, objectName)
}

// FetchFromGCS downloads the object named by a gs:// URI, which may point
// to any bucket the client can read.
func (s *GCSStore) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	bucket, objectName, err := ParseGCSURI(gcsURI)
	if err != nil {
		return nil, fmt.Errorf("FetchFromGCS: %w", err)
	}
	return s.download(ctx, bucket, objectName)
}

func (s *GCSStore) download(ctx context.Context, bucket, objectName string) ([]byte, error) {
	r, err := s.client.Bucket(bucket).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open GCS object reader %s/%s: %w", bucket, objectName, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read GCS object: %w", err)
	}
	return data, nil
}

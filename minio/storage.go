// Package minio provides a limpet Storage backend for MinIO buckets.
package minio

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/zoobzio/limpet"
)

// Storage implements limpet.Storage against a MinIO bucket. Destination
// paths are object keys; directories exist only as key prefixes.
type Storage struct {
	client *minio.Client
	bucket string
}

var _ limpet.Storage = (*Storage)(nil)

// New creates a MinIO storage with the given client and bucket name.
func New(client *minio.Client, bucket string) *Storage {
	return &Storage{
		client: client,
		bucket: bucket,
	}
}

// Join composes key segments with forward slashes.
func (s *Storage) Join(dir, name string) string {
	return path.Join(dir, name)
}

// EnsureDir is a no-op. Key prefixes need no creation.
func (s *Storage) EnsureDir(_ context.Context, _ string) error {
	return nil
}

// Writable verifies the bucket exists and is reachable.
func (s *Storage) Writable(ctx context.Context, _ string) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket %q does not exist", s.bucket)
	}
	return nil
}

// Exists checks whether an object exists at key.
func (s *Storage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Move uploads the local file at src to key and deletes the local file.
func (s *Storage) Move(ctx context.Context, src, key string) error {
	if _, err := s.client.FPutObject(ctx, s.bucket, key, src, minio.PutObjectOptions{}); err != nil {
		return err
	}
	return os.Remove(src)
}

// Copy uploads the local file at src to key, leaving src in place.
func (s *Storage) Copy(ctx context.Context, src, key string) error {
	_, err := s.client.FPutObject(ctx, s.bucket, key, src, minio.PutObjectOptions{})
	return err
}

// Remove deletes the object at key. Removing a missing object is not an
// error.
func (s *Storage) Remove(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

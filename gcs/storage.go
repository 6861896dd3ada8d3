// Package gcs provides a limpet Storage backend for Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"io"
	"os"
	"path"

	"cloud.google.com/go/storage"
	"github.com/zoobzio/limpet"
)

// Storage implements limpet.Storage against a GCS bucket. Destination
// paths are object names; directories exist only as name prefixes.
type Storage struct {
	client *storage.Client
	bucket string
}

var _ limpet.Storage = (*Storage)(nil)

// New creates a GCS storage with the given client and bucket name.
func New(client *storage.Client, bucket string) *Storage {
	return &Storage{
		client: client,
		bucket: bucket,
	}
}

// Join composes name segments with forward slashes.
func (s *Storage) Join(dir, name string) string {
	return path.Join(dir, name)
}

// EnsureDir is a no-op. Name prefixes need no creation.
func (s *Storage) EnsureDir(_ context.Context, _ string) error {
	return nil
}

// Writable verifies the bucket exists and is reachable.
func (s *Storage) Writable(ctx context.Context, _ string) error {
	_, err := s.client.Bucket(s.bucket).Attrs(ctx)
	return err
}

// Exists checks whether an object exists at key.
func (s *Storage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.Bucket(s.bucket).Object(key).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Move uploads the local file at src to key and deletes the local file.
func (s *Storage) Move(ctx context.Context, src, key string) error {
	if err := s.put(ctx, src, key); err != nil {
		return err
	}
	return os.Remove(src)
}

// Copy uploads the local file at src to key, leaving src in place.
func (s *Storage) Copy(ctx context.Context, src, key string) error {
	return s.put(ctx, src, key)
}

func (s *Storage) put(ctx context.Context, src, key string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	writer := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if _, err := io.Copy(writer, f); err != nil {
		_ = writer.Close()
		return err
	}
	return writer.Close()
}

// Remove deletes the object at key. Removing a missing object is not an
// error.
func (s *Storage) Remove(ctx context.Context, key string) error {
	err := s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}

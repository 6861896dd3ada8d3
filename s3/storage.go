// Package s3 provides a limpet Storage backend for AWS S3 buckets.
package s3

import (
	"context"
	"errors"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/zoobzio/limpet"
)

// Storage implements limpet.Storage against an S3 bucket. Destination
// paths are object keys; directories exist only as key prefixes.
type Storage struct {
	client *s3.Client
	bucket string
}

var _ limpet.Storage = (*Storage)(nil)

// New creates an S3 storage with the given client and bucket name.
func New(client *s3.Client, bucket string) *Storage {
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
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	return err
}

// Exists checks whether an object exists at key.
func (s *Storage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
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

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	return err
}

// Remove deletes the object at key. S3 DeleteObject does not report
// missing keys, which matches the removal contract.
func (s *Storage) Remove(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

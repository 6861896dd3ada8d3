// Package azure provides a limpet Storage backend for Azure Blob Storage.
package azure

import (
	"context"
	"errors"
	"os"
	"path"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/zoobzio/limpet"
)

// Storage implements limpet.Storage against an Azure blob container.
// Destination paths are blob names; directories exist only as name
// prefixes.
type Storage struct {
	client        *azblob.Client
	containerName string
}

var _ limpet.Storage = (*Storage)(nil)

// New creates an Azure Blob storage with the given client and container
// name.
func New(client *azblob.Client, containerName string) *Storage {
	return &Storage{
		client:        client,
		containerName: containerName,
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

// Writable verifies the container exists and is reachable.
func (s *Storage) Writable(ctx context.Context, _ string) error {
	_, err := s.client.ServiceClient().NewContainerClient(s.containerName).GetProperties(ctx, nil)
	return err
}

// Exists checks whether a blob exists at key.
func (s *Storage) Exists(ctx context.Context, key string) (bool, error) {
	blobClient := s.client.ServiceClient().NewContainerClient(s.containerName).NewBlobClient(key)
	_, err := blobClient.GetProperties(ctx, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == 404 {
			return false, nil
		}
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
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

	_, err = s.client.UploadFile(ctx, s.containerName, key, f, nil)
	return err
}

// Remove deletes the blob at key. Removing a missing blob is not an
// error.
func (s *Storage) Remove(ctx context.Context, key string) error {
	_, err := s.client.DeleteBlob(ctx, s.containerName, key, nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return nil
	}
	return err
}

package azure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var testStorage *Storage
var testClient *azblob.Client

const testContainer = "test-container"

func TestMain(m *testing.M) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mcr.microsoft.com/azure-storage/azurite:latest",
		ExposedPorts: []string{"10000/tcp"},
		Cmd:          []string{"azurite-blob", "--blobHost", "0.0.0.0"},
		WaitingFor:   wait.ForListeningPort("10000/tcp"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start azurite container: %v\n", err)
		os.Exit(1)
	}

	host, _ := container.Host(ctx)
	port, _ := container.MappedPort(ctx, "10000")

	// Azurite default credentials
	accountName := "devstoreaccount1"
	accountKey := "Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw=="
	connStr := fmt.Sprintf(
		"DefaultEndpointsProtocol=http;AccountName=%s;AccountKey=%s;BlobEndpoint=http://%s:%s/%s;",
		accountName, accountKey, host, port.Port(), accountName,
	)

	testClient, err = azblob.NewClientFromConnectionString(connStr, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create azure client: %v\n", err)
		_ = container.Terminate(ctx)
		os.Exit(1)
	}

	_, err = testClient.CreateContainer(ctx, testContainer, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create container: %v\n", err)
		_ = container.Terminate(ctx)
		os.Exit(1)
	}

	testStorage = New(testClient, testContainer)

	code := m.Run()

	_ = container.Terminate(ctx)

	os.Exit(code)
}

func clearContainer(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	pager := testClient.NewListBlobsFlatPager(testContainer, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			t.Fatalf("failed to list blobs: %v", err)
		}
		for _, b := range page.Segment.BlobItems {
			_, _ = testClient.DeleteBlob(ctx, testContainer, *b.Name, nil)
		}
	}
}

func localFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "upload.tmp")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write local file: %v", err)
	}
	return path
}

func blobContent(t *testing.T, key string) string {
	t.Helper()
	ctx := context.Background()

	resp, err := testClient.DownloadStream(ctx, testContainer, key, nil)
	if err != nil {
		t.Fatalf("failed to download blob: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read blob: %v", err)
	}
	return string(data)
}

func TestNew(t *testing.T) {
	if testStorage == nil {
		t.Fatal("New returned nil")
	}
	if testStorage.client == nil {
		t.Error("client not set correctly")
	}
	if testStorage.containerName != testContainer {
		t.Error("container not set correctly")
	}
}

func TestStorage_Join(t *testing.T) {
	if got := testStorage.Join("photos", "cat.jpg"); got != "photos/cat.jpg" {
		t.Errorf("unexpected key: %q", got)
	}
	if got := testStorage.Join("", "cat.jpg"); got != "cat.jpg" {
		t.Errorf("unexpected key: %q", got)
	}
}

func TestStorage_EnsureDir(t *testing.T) {
	if err := testStorage.EnsureDir(context.Background(), "any/prefix"); err != nil {
		t.Errorf("EnsureDir failed: %v", err)
	}
}

func TestStorage_Writable(t *testing.T) {
	ctx := context.Background()

	t.Run("existing container", func(t *testing.T) {
		if err := testStorage.Writable(ctx, "photos"); err != nil {
			t.Errorf("Writable failed: %v", err)
		}
	})

	t.Run("missing container", func(t *testing.T) {
		missing := New(testClient, "no-such-container")
		if err := missing.Writable(ctx, "photos"); err == nil {
			t.Error("expected error for missing container")
		}
	})
}

func TestStorage_Exists(t *testing.T) {
	clearContainer(t)
	ctx := context.Background()

	src := localFile(t, "data")
	if err := testStorage.Copy(ctx, src, "exists-key"); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	t.Run("existing key", func(t *testing.T) {
		exists, err := testStorage.Exists(ctx, "exists-key")
		if err != nil {
			t.Fatalf("Exists failed: %v", err)
		}
		if !exists {
			t.Error("expected key to exist")
		}
	})

	t.Run("missing key", func(t *testing.T) {
		exists, err := testStorage.Exists(ctx, "missing-key")
		if err != nil {
			t.Fatalf("Exists failed: %v", err)
		}
		if exists {
			t.Error("expected key to not exist")
		}
	})
}

func TestStorage_Move(t *testing.T) {
	clearContainer(t)
	ctx := context.Background()

	src := localFile(t, "image data")
	if err := testStorage.Move(ctx, src, "photos/cat.jpg"); err != nil {
		t.Fatalf("Move failed: %v", err)
	}

	if got := blobContent(t, "photos/cat.jpg"); got != "image data" {
		t.Errorf("unexpected content: %q", got)
	}
	if _, err := os.Stat(src); !errors.Is(err, os.ErrNotExist) {
		t.Error("expected local file to be consumed")
	}
}

func TestStorage_Copy(t *testing.T) {
	clearContainer(t)
	ctx := context.Background()

	src := localFile(t, "report body")
	if err := testStorage.Copy(ctx, src, "docs/report.pdf"); err != nil {
		t.Fatalf("Copy failed: %v", err)
	}

	if got := blobContent(t, "docs/report.pdf"); got != "report body" {
		t.Errorf("unexpected content: %q", got)
	}
	if _, err := os.Stat(src); err != nil {
		t.Errorf("expected local file to remain: %v", err)
	}
}

func TestStorage_Remove(t *testing.T) {
	clearContainer(t)
	ctx := context.Background()

	src := localFile(t, "data")
	if err := testStorage.Copy(ctx, src, "remove-me"); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	if err := testStorage.Remove(ctx, "remove-me"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	exists, err := testStorage.Exists(ctx, "remove-me")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("expected key to be removed")
	}

	t.Run("missing key", func(t *testing.T) {
		if err := testStorage.Remove(ctx, "never-existed"); err != nil {
			t.Errorf("Remove of missing key failed: %v", err)
		}
	})
}

package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var testStorage *Storage
var testS3Client *s3.Client

const testBucket = "test-bucket"

func TestMain(m *testing.M) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "localstack/localstack:latest",
		ExposedPorts: []string{"4566/tcp"},
		Env: map[string]string{
			"SERVICES": "s3",
		},
		WaitingFor: wait.ForLog("Ready."),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start localstack container: %v\n", err)
		os.Exit(1)
	}

	host, _ := container.Host(ctx)
	port, _ := container.MappedPort(ctx, "4566")

	endpoint := fmt.Sprintf("http://%s:%s", host, port.Port())

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load aws config: %v\n", err)
		_ = container.Terminate(ctx)
		os.Exit(1)
	}

	testS3Client = s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	_, err = testS3Client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(testBucket),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create bucket: %v\n", err)
		_ = container.Terminate(ctx)
		os.Exit(1)
	}

	testStorage = New(testS3Client, testBucket)

	code := m.Run()

	_ = container.Terminate(ctx)

	os.Exit(code)
}

func clearBucket(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	output, err := testS3Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(testBucket),
	})
	if err != nil {
		t.Fatalf("failed to list objects: %v", err)
	}

	for _, obj := range output.Contents {
		_, _ = testS3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(testBucket),
			Key:    obj.Key,
		})
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

func objectContent(t *testing.T, key string) string {
	t.Helper()
	ctx := context.Background()

	output, err := testS3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(testBucket),
		Key:    aws.String(key),
	})
	if err != nil {
		t.Fatalf("failed to get object: %v", err)
	}
	defer func() { _ = output.Body.Close() }()

	data, err := io.ReadAll(output.Body)
	if err != nil {
		t.Fatalf("failed to read object: %v", err)
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
	if testStorage.bucket != testBucket {
		t.Error("bucket not set correctly")
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

	t.Run("existing bucket", func(t *testing.T) {
		if err := testStorage.Writable(ctx, "photos"); err != nil {
			t.Errorf("Writable failed: %v", err)
		}
	})

	t.Run("missing bucket", func(t *testing.T) {
		missing := New(testS3Client, "no-such-bucket")
		if err := missing.Writable(ctx, "photos"); err == nil {
			t.Error("expected error for missing bucket")
		}
	})
}

func TestStorage_Exists(t *testing.T) {
	clearBucket(t)
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
	clearBucket(t)
	ctx := context.Background()

	src := localFile(t, "image data")
	if err := testStorage.Move(ctx, src, "photos/cat.jpg"); err != nil {
		t.Fatalf("Move failed: %v", err)
	}

	if got := objectContent(t, "photos/cat.jpg"); got != "image data" {
		t.Errorf("unexpected content: %q", got)
	}
	if _, err := os.Stat(src); !errors.Is(err, os.ErrNotExist) {
		t.Error("expected local file to be consumed")
	}
}

func TestStorage_Copy(t *testing.T) {
	clearBucket(t)
	ctx := context.Background()

	src := localFile(t, "report body")
	if err := testStorage.Copy(ctx, src, "docs/report.pdf"); err != nil {
		t.Fatalf("Copy failed: %v", err)
	}

	if got := objectContent(t, "docs/report.pdf"); got != "report body" {
		t.Errorf("unexpected content: %q", got)
	}
	if _, err := os.Stat(src); err != nil {
		t.Errorf("expected local file to remain: %v", err)
	}
}

func TestStorage_Remove(t *testing.T) {
	clearBucket(t)
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

package minio

import (
	"context"
	"os"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	minioc "github.com/testcontainers/testcontainers-go/modules/minio"
	limpetminio "github.com/zoobzio/limpet/minio"
	"github.com/zoobzio/limpet/testing/integration/lifecycle"
)

var tc *lifecycle.TestContext

const testBucket = "test-bucket"

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := minioc.Run(ctx, "minio/minio:latest")
	if err != nil {
		panic("failed to start minio container: " + err.Error())
	}

	endpoint, err := container.ConnectionString(ctx)
	if err != nil {
		panic("failed to get minio endpoint: " + err.Error())
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(container.Username, container.Password, ""),
		Secure: false,
	})
	if err != nil {
		panic("failed to create minio client: " + err.Error())
	}

	err = client.MakeBucket(ctx, testBucket, minio.MakeBucketOptions{})
	if err != nil {
		panic("failed to create test bucket: " + err.Error())
	}

	tc = &lifecycle.TestContext{
		Storage: limpetminio.New(client, testBucket),
		Dir:     "uploads",
		Cleanup: func() {
			for obj := range client.ListObjects(ctx, testBucket, minio.ListObjectsOptions{Recursive: true}) {
				if obj.Err == nil {
					_ = client.RemoveObject(ctx, testBucket, obj.Key, minio.RemoveObjectOptions{})
				}
			}
			_ = client.RemoveBucket(ctx, testBucket)
			_ = container.Terminate(ctx)
		},
	}

	code := m.Run()

	tc.Cleanup()

	os.Exit(code)
}

func TestMinio_Lifecycle(t *testing.T) {
	lifecycle.RunLifecycleTests(t, tc)
}

func TestMinio_Collisions(t *testing.T) {
	lifecycle.RunCollisionTests(t, tc)
}

func TestMinio_Validation(t *testing.T) {
	lifecycle.RunValidationTests(t, tc)
}

package minio

import (
	"bytes"
	"context"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/msamogh/nonechucks/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMinioStore_Integration requires a running MinIO instance.
// Skip if not available.
func TestMinioStore_Integration(t *testing.T) {
	endpoint := "localhost:9000"
	accessKey := "minioadmin"
	secretKey := "minioadmin"
	bucket := "test-nonechucks"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()

	// Check if MinIO is reachable
	_, err = client.ListBuckets(ctx)
	if err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	// Ensure bucket exists
	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		err = client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
		require.NoError(t, err)
	}

	s := NewStore(client, bucket, "samples/")

	payload := []byte(`{"id":7,"label":"minio"}`)
	_, err = client.PutObject(ctx, bucket, "samples/0007.json",
		bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{})
	require.NoError(t, err)

	got, err := s.Get(ctx, "0007.json")
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	_, err = s.Get(ctx, "does-not-exist.json")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Clean up
	err = client.RemoveObject(ctx, bucket, "samples/0007.json", minio.RemoveObjectOptions{})
	require.NoError(t, err)
}

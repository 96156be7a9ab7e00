//go:build integration

package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baatasaari/agenthub-knowledge/internal/testutil"
)

func TestS3Client_ObjectRoundTrip(t *testing.T) {
	ctx := context.Background()
	rc := testutil.NewRustFSContainer(ctx, t)
	defer rc.Terminate(ctx)

	client, err := NewS3Client(ctx, S3ClientConfig{
		Endpoint:        rc.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "agenthub-documents",
		UsePathStyle:    true,
	})
	require.NoError(t, err)

	require.NoError(t, client.EnsureBucket(ctx))
	// Second call is a no-op when the bucket exists.
	require.NoError(t, client.EnsureBucket(ctx))

	const key = "tenants/acme/faq.txt"
	const content = "Clinic hours are 9am to 5pm, Monday to Friday."

	require.NoError(t, client.PutObject(ctx, key, content))

	got, err := client.FetchObject(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	require.NoError(t, client.DeleteObject(ctx, key))

	_, err = client.FetchObject(ctx, key)
	assert.Error(t, err)
}

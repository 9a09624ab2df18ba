package s3client

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
)

// FakeS3 is an in-memory S3-compatible endpoint for tests. It is shut down
// when the test completes.
type FakeS3 struct {
	URL string
}

// NewFakeS3 starts a gofakes3 endpoint with buckets already created.
func NewFakeS3(t testing.TB, buckets ...string) *FakeS3 {
	t.Helper()

	backend := s3mem.New()
	for _, bucket := range buckets {
		if err := backend.CreateBucket(bucket); err != nil {
			t.Fatalf("failed to create bucket %q: %v", bucket, err)
		}
	}

	ts := httptest.NewServer(gofakes3.New(backend).Server())
	t.Cleanup(ts.Close)
	return &FakeS3{URL: ts.URL}
}

// Config returns the client configuration for bucket on the fake, the same
// shape the suite builds from AWS_ENDPOINT_URL_S3.
func (f *FakeS3) Config(bucket string) Config {
	return Config{
		Endpoint:        f.URL,
		Region:          "us-east-1",
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
		BucketName:      bucket,
		UsePathStyle:    true,
	}
}

// TestClient returns a client for bucket on a fresh fake endpoint.
func TestClient(t testing.TB, bucket string) *Client {
	t.Helper()

	fake := NewFakeS3(t, bucket)
	client, err := New(context.Background(), fake.Config(bucket))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

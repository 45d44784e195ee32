package s3ds

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// fakeS3 serves path-style GetObject requests from a map of "bucket/key".
type fakeS3 struct{ objects map[string]string }

func (f fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	path := strings.TrimPrefix(req.URL.Path, "/")
	body, ok := f.objects[path]
	if req.Method != http.MethodGet || !ok {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Header:     http.Header{"Content-Type": {"application/xml"}},
			Body: io.NopCloser(strings.NewReader(
				`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)),
			Request: req,
		}, nil
	}
	return &http.Response{
		StatusCode:    http.StatusOK,
		Header:        http.Header{"Content-Type": {"text/csv"}},
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}, nil
}

func newFakeSource(t *testing.T, key string) *Source {
	t.Helper()
	src, err := New(context.Background(), Config{
		Bucket:       "datasets",
		Key:          key,
		Endpoint:     "https://s3.test.local",
		UsePathStyle: true,
		HTTPClient: &http.Client{Transport: fakeS3{objects: map[string]string{
			"datasets/ecommerce/customer_details.csv": "Customer ID,Customer Name\nC1,Alice\n",
		}}},
	}, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return src
}

func TestSource_Open(t *testing.T) {
	src := newFakeSource(t, "ecommerce/customer_details.csv")
	if src.Name() != "s3://datasets/ecommerce/customer_details.csv" {
		t.Fatalf("Name() = %q", src.Name())
	}
	rc, err := src.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "Customer ID,Customer Name\nC1,Alice\n" {
		t.Fatalf("body = %q", b)
	}
}

func TestSource_OpenMissing(t *testing.T) {
	_, err := newFakeSource(t, "ecommerce/nope.csv").Open(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestNew_RequiresBucketAndKey(t *testing.T) {
	if _, err := New(context.Background(), Config{Bucket: "b"}); err == nil {
		t.Fatalf("expected error without key")
	}
}

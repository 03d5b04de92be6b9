package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
)

type s3Request struct {
	method string
	path   string
	body   string
}

func mockS3(t *testing.T, status int) (*httptest.Server, func() []s3Request) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []s3Request
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("failed to read body: %v", err)
		}
		mu.Lock()
		reqs = append(reqs, s3Request{method: r.Method, path: r.URL.Path, body: string(body)})
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)

	return server, func() []s3Request {
		mu.Lock()
		defer mu.Unlock()
		return append([]s3Request(nil), reqs...)
	}
}

func newTestS3Storage(t *testing.T, endpoint, prefix string) *S3Storage {
	t.Helper()
	cfg := S3Config{
		Bucket:          "test-bucket",
		Region:          "us-east-1",
		Endpoint:        endpoint,
		Prefix:          prefix,
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
	}

	storage, err := NewS3Storage(t.TempDir(), ".wav", cfg)
	if err != nil {
		t.Fatalf("NewS3Storage() error = %v", err)
	}
	return storage
}

func TestNewS3Storage(t *testing.T) {
	storage := newTestS3Storage(t, "http://localhost:4566", "archive")

	if storage.bucket != "test-bucket" {
		t.Errorf("bucket = %v, want test-bucket", storage.bucket)
	}
	if storage.region != "us-east-1" {
		t.Errorf("region = %v, want us-east-1", storage.region)
	}
	if got := storage.Key("a.wav"); got != "archive/a.wav" {
		t.Errorf("Key() = %v, want archive/a.wav", got)
	}
}

func TestS3Storage_Publish_MockServer(t *testing.T) {
	server, requests := mockS3(t, http.StatusOK)
	storage := newTestS3Storage(t, server.URL, "wcfm")

	if err := os.WriteFile(storage.Path("seg.wav"), []byte("test content"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	url, err := storage.Publish(context.Background(), "seg.wav")
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	expectedURL := "https://test-bucket.s3.us-east-1.amazonaws.com/wcfm/seg.wav"
	if url != expectedURL {
		t.Errorf("url = %v, want %v", url, expectedURL)
	}

	reqs := requests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
	if reqs[0].method != http.MethodPut {
		t.Errorf("expected PUT method, got %s", reqs[0].method)
	}
	if !strings.HasSuffix(reqs[0].path, "/test-bucket/wcfm/seg.wav") {
		t.Errorf("unexpected path: %s", reqs[0].path)
	}
	if !strings.Contains(reqs[0].body, "test content") {
		t.Errorf("unexpected body: %s", reqs[0].body)
	}
}

func TestS3Storage_Publish_MissingFile(t *testing.T) {
	server, requests := mockS3(t, http.StatusOK)
	storage := newTestS3Storage(t, server.URL, "")

	if _, err := storage.Publish(context.Background(), "missing.wav"); err == nil {
		t.Fatal("expected error for missing local file")
	}
	if n := len(requests()); n != 0 {
		t.Errorf("expected no upload, got %d requests", n)
	}
}

func TestS3Storage_Remove_MockServer(t *testing.T) {
	server, requests := mockS3(t, http.StatusNoContent)
	storage := newTestS3Storage(t, server.URL, "")

	if err := os.WriteFile(storage.Path("old.wav"), []byte("x"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := storage.Remove(context.Background(), "old.wav"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if storage.Exists("old.wav") {
		t.Error("local file still exists")
	}

	reqs := requests()
	if len(reqs) != 1 || reqs[0].method != http.MethodDelete {
		t.Fatalf("expected one DELETE request, got %+v", reqs)
	}
	if !strings.HasSuffix(reqs[0].path, "/test-bucket/old.wav") {
		t.Errorf("unexpected path: %s", reqs[0].path)
	}
}

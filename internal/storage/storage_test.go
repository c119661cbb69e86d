package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"billsplit/internal/config"
)

func TestNop(t *testing.T) {
	url, err := Nop{}.Put(context.Background(), "receipts/1/a.jpg", []byte("x"), "image/jpeg")
	if err != nil || url != "" {
		t.Fatalf("expected empty url and no error, got %q %v", url, err)
	}
}

func TestR2Client_Put(t *testing.T) {
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")

	var (
		mu          sync.Mutex
		gotPath     string
		gotType     string
		gotBodySize int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		gotBodySize = len(body)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := NewR2Client(context.Background(), config.R2Config{
		Endpoint:      srv.URL,
		AccessKey:     "key",
		SecretKey:     "secret",
		Bucket:        "receipts-bucket",
		PublicBaseURL: "https://cdn.example.com",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	url, err := client.Put(context.Background(), "receipts/42/photo.jpg", []byte("jpeg-bytes"), "image/jpeg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://cdn.example.com/receipts/42/photo.jpg" {
		t.Errorf("unexpected url %q", url)
	}

	mu.Lock()
	defer mu.Unlock()
	if gotPath != "/receipts-bucket/receipts/42/photo.jpg" {
		t.Errorf("unexpected object path %q", gotPath)
	}
	if gotType != "image/jpeg" {
		t.Errorf("unexpected content type %q", gotType)
	}
	if gotBodySize == 0 {
		t.Error("expected object body to be uploaded")
	}
}

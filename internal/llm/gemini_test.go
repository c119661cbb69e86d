package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const receiptJSON = `{"items":[{"name":"burger","quantity":1,"price":10},{"name":"fries","quantity":1,"price":3},{"name":"soda","quantity":1,"price":2}],"subtotal":15,"tax":0,"tip":0,"service_charge":0,"discount":0,"total":15,"currency":"usd"}`

func geminiBody(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]any{{"text": text}}}},
		},
	})
	return string(b)
}

func newTestClient(url string) *GeminiClient {
	return NewGeminiClient("test-key", "gemini-test",
		WithBaseURL(url),
		WithRetryInterval(time.Millisecond),
		WithMaxAttempts(3),
	)
}

func TestExtractReceipt_SendsImageAndParses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-test:generateContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}

		var req struct {
			Contents []struct {
				Parts []struct {
					Text       string `json:"text"`
					InlineData *struct {
						MimeType string `json:"mime_type"`
						Data     string `json:"data"`
					} `json:"inline_data"`
				} `json:"parts"`
			} `json:"contents"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
			return
		}
		parts := req.Contents[0].Parts
		if len(parts) != 2 || parts[1].InlineData == nil {
			t.Errorf("expected text + inline image parts, got %+v", parts)
			return
		}
		if parts[1].InlineData.MimeType != "image/png" {
			t.Errorf("expected image/png, got %s", parts[1].InlineData.MimeType)
		}
		if !strings.Contains(parts[0].Text, "- burger") {
			t.Errorf("expected hints in prompt")
		}

		w.Write([]byte(geminiBody(receiptJSON)))
	}))
	defer srv.Close()

	receipt, err := newTestClient(srv.URL).ExtractReceipt(
		context.Background(),
		[]byte{0x89, 'P', 'N', 'G'},
		"image/png",
		[]string{"burger"},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(receipt.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(receipt.Items))
	}
	if receipt.Currency != "USD" {
		t.Errorf("expected USD, got %q", receipt.Currency)
	}
}

func TestExtractReceipt_RetriesTemporaryErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(geminiBody(receiptJSON)))
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL).ExtractReceipt(context.Background(), []byte("img"), "", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestExtractReceipt_ClientErrorIsPermanent(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad image"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).ExtractReceipt(context.Background(), []byte("img"), "", nil)
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 StatusError, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestExtractReceipt_Blocked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).ExtractReceipt(context.Background(), []byte("img"), "", nil)
	var blocked *BlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("expected BlockedError, got %v", err)
	}
}

func TestExtractReceipt_MissingConfig(t *testing.T) {
	if _, err := NewGeminiClient("", "m").ExtractReceipt(context.Background(), []byte("x"), "", nil); err == nil {
		t.Error("expected error for missing api key")
	}
	if _, err := NewGeminiClient("k", "").ExtractReceipt(context.Background(), []byte("x"), "", nil); err == nil {
		t.Error("expected error for missing model")
	}
	if _, err := NewGeminiClient("k", "m").ExtractReceipt(context.Background(), nil, "", nil); err == nil {
		t.Error("expected error for empty image")
	}
}

package history

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestInMemoryRepository_ListByChat(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for i, chat := range []int64{1, 2, 1, 1} {
		rec := &Record{ChatID: chat, MessageID: int64(i), Split: json.RawMessage(`{}`), CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := repo.Save(ctx, rec); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.ID == "" {
			t.Fatal("expected ID to be set")
		}
	}

	got, err := repo.ListByChat(ctx, 1, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].MessageID != 3 || got[1].MessageID != 2 {
		t.Errorf("expected newest first, got %d, %d", got[0].MessageID, got[1].MessageID)
	}
}

func setupHistoryRouter(repo Repository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin/receipts", NewHandler(repo).List)
	return r
}

func TestHandler_List(t *testing.T) {
	repo := NewInMemoryRepository()
	_ = repo.Save(context.Background(), &Record{ChatID: 42, Split: json.RawMessage(`{"total":"15"}`)})

	r := setupHistoryRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/admin/receipts?chat_id=42", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp struct {
		Receipts []Record `json:"receipts"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if len(resp.Receipts) != 1 {
		t.Fatalf("expected 1 receipt, got %d", len(resp.Receipts))
	}
}

func TestHandler_List_BadParams(t *testing.T) {
	r := setupHistoryRouter(NewInMemoryRepository())

	for _, q := range []string{"", "?chat_id=abc", "?chat_id=1&limit=0"} {
		req := httptest.NewRequest(http.MethodGet, "/admin/receipts"+q, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("%q: expected status 400, got %d", q, w.Code)
		}
	}
}

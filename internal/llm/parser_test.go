package llm

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseReceipt_MarkdownFence(t *testing.T) {
	raw := "Here you go:\n```json\n{\"items\":[{\"name\":\" Pasta \",\"quantity\":2,\"price\":\"24.50\"}],\"tax\":2.1,\"discount\":-3,\"total\":23.6,\"currency\":\"eur\"}\n```"

	r, err := ParseReceipt(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(r.Items) != 1 || r.Items[0].Name != "Pasta" || r.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items: %+v", r.Items)
	}
	if !r.Items[0].Price.Equal(decimal.RequireFromString("24.50")) {
		t.Errorf("unexpected price %s", r.Items[0].Price)
	}
	if !r.Discount.Equal(decimal.NewFromInt(3)) {
		t.Errorf("expected discount normalised to 3, got %s", r.Discount)
	}
	if r.Currency != "EUR" {
		t.Errorf("expected EUR, got %s", r.Currency)
	}
}

func TestParseReceipt_DefaultsAndSkips(t *testing.T) {
	r, err := ParseReceipt(`{"items":[{"name":"","price":1},{"name":"tea","price":2.5}]}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.Items) != 1 || r.Items[0].Quantity != 1 {
		t.Fatalf("expected one item with quantity 1, got %+v", r.Items)
	}
}

func TestParseReceipt_Errors(t *testing.T) {
	if _, err := ParseReceipt("I could not read that"); err == nil {
		t.Error("expected error for non-JSON output")
	}
	if _, err := ParseReceipt(`{"items":[`); err == nil {
		t.Error("expected error for broken JSON")
	}
	if _, err := ParseReceipt(`{"items":[{"name":"x","price":-1}]}`); err == nil {
		t.Error("expected error for negative price")
	}
	if _, err := ParseReceipt(`{"items":[],"total":0}`); !errors.Is(err, ErrUnreadableReceipt) {
		t.Errorf("expected ErrUnreadableReceipt, got %v", err)
	}
}

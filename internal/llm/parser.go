package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"billsplit/internal/bill"

	"github.com/shopspring/decimal"
)

var ErrUnreadableReceipt = errors.New("no line items could be read from the receipt")

type parsedItem struct {
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type parsedReceipt struct {
	Items         []parsedItem    `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	Tip           decimal.Decimal `json:"tip"`
	ServiceCharge decimal.Decimal `json:"service_charge"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
	Currency      string          `json:"currency"`
}

// ParseReceipt turns raw model output into a Receipt.
// Tolerates markdown fences and chatter around the JSON object.
func ParseReceipt(raw string) (*bill.Receipt, error) {
	jsonText := extractJSON(raw)
	if jsonText == "" {
		return nil, errors.New("model did not return a JSON object")
	}

	var parsed parsedReceipt
	if err := json.Unmarshal([]byte(jsonText), &parsed); err != nil {
		return nil, fmt.Errorf("invalid model JSON output: %w", err)
	}

	receipt := &bill.Receipt{
		Subtotal:      parsed.Subtotal,
		Tax:           parsed.Tax.Abs(),
		Tip:           parsed.Tip.Abs(),
		ServiceCharge: parsed.ServiceCharge.Abs(),
		// some receipts print discounts as negative amounts
		Discount: parsed.Discount.Abs(),
		Total:    parsed.Total,
		Currency: strings.ToUpper(strings.TrimSpace(parsed.Currency)),
	}

	for i, it := range parsed.Items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			continue
		}
		if it.Price.IsNegative() {
			return nil, fmt.Errorf("item %d (%s) has negative price %s", i, name, it.Price)
		}

		qty := int(it.Quantity.IntPart())
		if qty < 1 {
			qty = 1
		}
		receipt.Items = append(receipt.Items, bill.LineItem{
			Name:     name,
			Quantity: qty,
			Price:    it.Price,
		})
	}

	if len(receipt.Items) == 0 {
		return nil, ErrUnreadableReceipt
	}

	return receipt, nil
}

func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")

	if start == -1 || end == -1 || end <= start {
		return ""
	}

	return text[start : end+1]
}

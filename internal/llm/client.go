package llm

import (
	"context"

	"billsplit/internal/bill"
)

// VisionClient reads a receipt photo into priced line items.
// hints are item names the participants used, so the model can reuse them.
type VisionClient interface {
	ExtractReceipt(ctx context.Context, image []byte, mimeType string, hints []string) (*bill.Receipt, error)
}

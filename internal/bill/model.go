package bill

import "github.com/shopspring/decimal"

// Claim is one item a participant says they ordered
type Claim struct {
	Label    string `json:"label"`
	Quantity int    `json:"quantity"`
}

type Participant struct {
	Name  string  `json:"name"`
	Items []Claim `json:"items"`
}

// Order is one inbound receipt request.
// Created per message, never reused.
type Order struct {
	ChatID       int64         `json:"chat_id"`
	MessageID    int64         `json:"message_id"`
	PhotoFileID  string        `json:"photo_file_id"`
	Caption      string        `json:"caption"`
	Participants []Participant `json:"participants"`
}

// LineItem is a single priced entry read from the receipt.
// Price is the LINE total (quantity already applied).
type LineItem struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// Receipt is what the vision model extracted from the photo
type Receipt struct {
	Items         []LineItem      `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	Tip           decimal.Decimal `json:"tip"`
	ServiceCharge decimal.Decimal `json:"service_charge"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
	Currency      string          `json:"currency"`
}

// ItemsTotal sums every line price
func (r *Receipt) ItemsTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range r.Items {
		sum = sum.Add(it.Price)
	}
	return sum
}

// Extras is tax + tip + service charge - discount
func (r *Receipt) Extras() decimal.Decimal {
	return r.Tax.Add(r.Tip).Add(r.ServiceCharge).Sub(r.Discount)
}

type ShareItem struct {
	Label      string          `json:"label"`
	Amount     decimal.Decimal `json:"amount"`
	SharedWith int             `json:"shared_with"`
}

// Share is one participant's part of the bill
type Share struct {
	Name     string          `json:"name"`
	Items    []ShareItem     `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Extras   decimal.Decimal `json:"extras"`
	Total    decimal.Decimal `json:"total"`
}

// UnmatchedClaim is a caption item that no receipt line matched
type UnmatchedClaim struct {
	Participant string `json:"participant"`
	Label       string `json:"label"`
}

// Split is the final per-participant allocation
type Split struct {
	Shares    []Share          `json:"shares"`
	Unmatched []UnmatchedClaim `json:"unmatched,omitempty"`
	Unclaimed []LineItem       `json:"unclaimed,omitempty"`

	Subtotal decimal.Decimal `json:"subtotal"`
	Extras   decimal.Decimal `json:"extras"`
	Total    decimal.Decimal `json:"total"`

	// UnclaimedTotal includes the extras that belong to unclaimed lines
	UnclaimedTotal decimal.Decimal `json:"unclaimed_total"`
	ReceiptTotal   decimal.Decimal `json:"receipt_total"`
	Currency       string          `json:"currency"`
}

// Reconciles reports whether claimed + unclaimed amounts add up to the
// printed receipt total. A receipt without a printed total always reconciles.
func (s *Split) Reconciles(tolerance decimal.Decimal) bool {
	if s.ReceiptTotal.IsZero() {
		return true
	}
	diff := s.Total.Add(s.UnclaimedTotal).Sub(s.ReceiptTotal).Abs()
	return diff.LessThanOrEqual(tolerance)
}

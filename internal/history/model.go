package history

import (
	"encoding/json"
	"time"
)

// Record is one processed receipt, kept for the admin history view
type Record struct {
	ID         string          `json:"id"`
	ChatID     int64           `json:"chat_id"`
	MessageID  int64           `json:"message_id"`
	Caption    string          `json:"caption"`
	ImageURL   string          `json:"image_url,omitempty"`
	Currency   string          `json:"currency"`
	TotalCents int64           `json:"total_cents"`
	Split      json.RawMessage `json:"split"`
	CreatedAt  time.Time       `json:"created_at"`
}

package history

import "context"

// Repository defines the data-access contract.
// Service depends ONLY on this interface.
type Repository interface {
	Save(ctx context.Context, rec *Record) error
	ListByChat(ctx context.Context, chatID int64, limit int) ([]Record, error)
}

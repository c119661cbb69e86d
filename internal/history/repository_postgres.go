package history

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Save(ctx context.Context, rec *Record) error {
	// Generate UUID if not already set
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO receipt_splits (
			id,
			chat_id,
			message_id,
			caption,
			image_url,
			currency,
			total_cents,
			split,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		rec.ID,
		rec.ChatID,
		rec.MessageID,
		rec.Caption,
		rec.ImageURL,
		rec.Currency,
		rec.TotalCents,
		[]byte(rec.Split),
		rec.CreatedAt,
	)
	return err
}

func (r *PostgresRepository) ListByChat(
	ctx context.Context,
	chatID int64,
	limit int,
) ([]Record, error) {

	rows, err := r.db.Query(ctx, `
		SELECT
			id,
			chat_id,
			message_id,
			caption,
			image_url,
			currency,
			total_cents,
			split,
			created_at
		FROM receipt_splits
		WHERE chat_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, chatID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var split []byte
		if err := rows.Scan(
			&rec.ID,
			&rec.ChatID,
			&rec.MessageID,
			&rec.Caption,
			&rec.ImageURL,
			&rec.Currency,
			&rec.TotalCents,
			&split,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.Split = split
		records = append(records, rec)
	}

	return records, rows.Err()
}

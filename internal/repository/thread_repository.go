package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/entities"
)

type ThreadRepository struct {
	db *pgxpool.Pool
}

func NewThreadRepository(db *pgxpool.Pool) *ThreadRepository {
	return &ThreadRepository{db: db}
}

// Upsert writes a rebuilt thread keyed by (sender_id, bot_id, platform).
// Re-running the rebuild overwrites the existing row instead of creating a
// duplicate.
func (r *ThreadRepository) Upsert(ctx context.Context, t *entities.Thread) error {
	orders, err := json.Marshal(t.Orders)
	if err != nil {
		return fmt.Errorf("marshal orders: %w", err)
	}
	return r.db.QueryRow(ctx, `
		INSERT INTO threads (sender_id, bot_id, platform, message_count, first_message_at, last_message_at, orders, outcome, rebuilt_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (sender_id, bot_id, platform) DO UPDATE SET
			message_count = EXCLUDED.message_count,
			first_message_at = EXCLUDED.first_message_at,
			last_message_at = EXCLUDED.last_message_at,
			orders = EXCLUDED.orders,
			outcome = EXCLUDED.outcome,
			rebuilt_at = NOW()
		RETURNING id
	`, t.SenderID, t.BotID, t.Platform, t.MessageCount,
		t.FirstMessageAt, t.LastMessageAt, orders, t.Outcome).Scan(&t.ID)
}

func (r *ThreadRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM threads").Scan(&n)
	return n, err
}

func (r *ThreadRepository) List(ctx context.Context) ([]entities.Thread, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, sender_id, bot_id, platform, message_count,
			first_message_at, last_message_at, orders, outcome, rebuilt_at
		FROM threads ORDER BY last_message_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	threads := []entities.Thread{}
	for rows.Next() {
		var t entities.Thread
		var orders []byte
		if err := rows.Scan(&t.ID, &t.SenderID, &t.BotID, &t.Platform, &t.MessageCount,
			&t.FirstMessageAt, &t.LastMessageAt, &orders, &t.Outcome, &t.RebuiltAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(orders, &t.Orders); err != nil {
			return nil, fmt.Errorf("decode orders: %w", err)
		}
		threads = append(threads, t)
	}
	return threads, rows.Err()
}

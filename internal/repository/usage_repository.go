package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type UsageRepository struct {
	db *pgxpool.Pool
}

type DailyUsage struct {
	Date             time.Time `json:"date"`
	Platform         string    `json:"platform"`
	MessagesReceived int       `json:"messages_received"`
	AIReplies        int       `json:"ai_replies"`
	AgentReplies     int       `json:"agent_replies"`
}

func NewUsageRepository(db *pgxpool.Pool) *UsageRepository {
	return &UsageRepository{db: db}
}

// IncrementReceived bumps today's inbound counter for a platform.
func (r *UsageRepository) IncrementReceived(platform string) error {
	_, err := r.db.Exec(context.Background(), `
		INSERT INTO message_usage (date, platform, messages_received)
		VALUES (CURRENT_DATE, $1, 1)
		ON CONFLICT (date, platform)
		DO UPDATE SET messages_received = message_usage.messages_received + 1
	`, platform)
	return err
}

// IncrementAIReply bumps today's automated-reply counter for a platform.
func (r *UsageRepository) IncrementAIReply(platform string) error {
	_, err := r.db.Exec(context.Background(), `
		INSERT INTO message_usage (date, platform, ai_replies)
		VALUES (CURRENT_DATE, $1, 1)
		ON CONFLICT (date, platform)
		DO UPDATE SET ai_replies = message_usage.ai_replies + 1
	`, platform)
	return err
}

// IncrementAgentReply bumps today's human-reply counter for a platform.
func (r *UsageRepository) IncrementAgentReply(platform string) error {
	_, err := r.db.Exec(context.Background(), `
		INSERT INTO message_usage (date, platform, agent_replies)
		VALUES (CURRENT_DATE, $1, 1)
		ON CONFLICT (date, platform)
		DO UPDATE SET agent_replies = message_usage.agent_replies + 1
	`, platform)
	return err
}

// Today returns today's aggregated counters across all platforms.
func (r *UsageRepository) Today() (received, aiReplies, agentReplies int, err error) {
	err = r.db.QueryRow(context.Background(), `
		SELECT COALESCE(SUM(messages_received), 0), COALESCE(SUM(ai_replies), 0), COALESCE(SUM(agent_replies), 0)
		FROM message_usage WHERE date = CURRENT_DATE
	`).Scan(&received, &aiReplies, &agentReplies)
	return received, aiReplies, agentReplies, err
}

// TodayByPlatform returns today's per-platform rows.
func (r *UsageRepository) TodayByPlatform() ([]DailyUsage, error) {
	rows, err := r.db.Query(context.Background(), `
		SELECT date, platform, messages_received, ai_replies, agent_replies
		FROM message_usage WHERE date = CURRENT_DATE ORDER BY platform
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	usage := []DailyUsage{}
	for rows.Next() {
		var u DailyUsage
		if err := rows.Scan(&u.Date, &u.Platform, &u.MessagesReceived, &u.AIReplies, &u.AgentReplies); err != nil {
			return nil, err
		}
		usage = append(usage, u)
	}
	return usage, rows.Err()
}

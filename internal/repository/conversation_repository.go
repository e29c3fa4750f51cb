package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/entities"
)

type ConversationRepository struct {
	db *pgxpool.Pool
}

func NewConversationRepository(db *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// ConversationFilter narrows List results. Zero values mean "no filter".
type ConversationFilter struct {
	Status        string
	Platform      string
	AssignedAgent int
}

const conversationColumns = `id, customer_id, customer_name, platform, status, priority,
	assigned_agent, ai_responses, human_responses, messages,
	jsonb_array_length(messages), created_at, last_activity_at`

// AppendCustomerMessage finds or creates the open conversation for
// (customerID, platform) and atomically pushes one customer message onto its
// embedded array. The partial unique index on open conversations makes two
// concurrent webhooks for the same pair land in a single row: the loser of
// the insert race falls through to the DO UPDATE append. Returns the updated
// conversation and whether it was newly created.
func (r *ConversationRepository) AppendCustomerMessage(ctx context.Context, customerID, customerName, platform string, msg entities.Message) (*entities.Conversation, bool, error) {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	msg.Sender = entities.SenderCustomer

	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, false, fmt.Errorf("marshal message: %w", err)
	}

	row := r.db.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO conversations (customer_id, customer_name, platform, status, messages, created_at, last_activity_at)
		VALUES ($1, $2, $3, 'active', jsonb_build_array($4::jsonb), NOW(), NOW())
		ON CONFLICT (customer_id, platform) WHERE status IN ('active', 'pending')
		DO UPDATE SET
			messages = conversations.messages || $4::jsonb,
			customer_name = CASE WHEN EXCLUDED.customer_name <> '' THEN EXCLUDED.customer_name
				ELSE conversations.customer_name END,
			last_activity_at = GREATEST(conversations.last_activity_at, NOW())
		RETURNING %s, (xmax = 0)
	`, conversationColumns), customerID, customerName, platform, payload)

	var conv entities.Conversation
	var created bool
	if err := scanConversation(row, &conv, &created); err != nil {
		return nil, false, fmt.Errorf("append customer message: %w", err)
	}
	return &conv, created, nil
}

// AppendReply pushes an agent or AI message onto an existing conversation and
// bumps the matching response counter. Append-only: the array is never
// rewritten, only extended.
func (r *ConversationRepository) AppendReply(ctx context.Context, conversationID int, msg entities.Message) (*entities.Conversation, error) {
	if msg.Sender != entities.SenderAgent && msg.Sender != entities.SenderAI {
		return nil, fmt.Errorf("invalid reply sender %q", msg.Sender)
	}
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}

	aiInc, humanInc := 0, 1
	if msg.Sender == entities.SenderAI {
		aiInc, humanInc = 1, 0
	}

	row := r.db.QueryRow(ctx, fmt.Sprintf(`
		UPDATE conversations SET
			messages = messages || $2::jsonb,
			ai_responses = ai_responses + $3,
			human_responses = human_responses + $4,
			last_activity_at = GREATEST(last_activity_at, NOW())
		WHERE id = $1
		RETURNING %s, FALSE
	`, conversationColumns), conversationID, payload, aiInc, humanInc)

	var conv entities.Conversation
	var created bool
	if err := scanConversation(row, &conv, &created); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("append reply: %w", err)
	}
	return &conv, nil
}

func (r *ConversationRepository) GetByID(ctx context.Context, id int) (*entities.Conversation, error) {
	row := r.db.QueryRow(ctx, fmt.Sprintf(
		"SELECT %s, FALSE FROM conversations WHERE id = $1", conversationColumns), id)

	var conv entities.Conversation
	var created bool
	err := scanConversation(row, &conv, &created)
	if err == pgx.ErrNoRows {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// List returns conversation summaries (no message bodies) matching the
// filter, newest activity first.
func (r *ConversationRepository) List(ctx context.Context, f ConversationFilter) ([]entities.Conversation, error) {
	query := `
		SELECT id, customer_id, customer_name, platform, status, priority,
			assigned_agent, ai_responses, human_responses,
			jsonb_array_length(messages), created_at, last_activity_at
		FROM conversations WHERE 1=1`
	args := []interface{}{}
	if f.Status != "" {
		args = append(args, f.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.Platform != "" {
		args = append(args, f.Platform)
		query += fmt.Sprintf(" AND platform = $%d", len(args))
	}
	if f.AssignedAgent != 0 {
		args = append(args, f.AssignedAgent)
		query += fmt.Sprintf(" AND assigned_agent = $%d", len(args))
	}
	query += " ORDER BY last_activity_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	convs := []entities.Conversation{}
	for rows.Next() {
		var c entities.Conversation
		if err := rows.Scan(&c.ID, &c.CustomerID, &c.CustomerName, &c.Platform, &c.Status,
			&c.Priority, &c.AssignedAgent, &c.AIResponses, &c.HumanResponses,
			&c.MessageCount, &c.CreatedAt, &c.LastActivityAt); err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

// UpdateStatus moves a conversation to a new status. Conversations are never
// hard-deleted; closing is the terminal operation.
func (r *ConversationRepository) UpdateStatus(ctx context.Context, id int, status string) (*entities.Conversation, error) {
	row := r.db.QueryRow(ctx, fmt.Sprintf(`
		UPDATE conversations SET status = $2, last_activity_at = GREATEST(last_activity_at, NOW())
		WHERE id = $1
		RETURNING %s, FALSE
	`, conversationColumns), id, status)

	var conv entities.Conversation
	var created bool
	err := scanConversation(row, &conv, &created)
	if err == pgx.ErrNoRows {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// Assign sets or clears (agentID == 0) the assigned agent.
func (r *ConversationRepository) Assign(ctx context.Context, id, agentID int) (*entities.Conversation, error) {
	var agent *int
	if agentID != 0 {
		agent = &agentID
	}
	row := r.db.QueryRow(ctx, fmt.Sprintf(`
		UPDATE conversations SET assigned_agent = $2
		WHERE id = $1
		RETURNING %s, FALSE
	`, conversationColumns), id, agent)

	var conv entities.Conversation
	var created bool
	err := scanConversation(row, &conv, &created)
	if err == pgx.ErrNoRows {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// All streams every conversation including message bodies, oldest first.
// Used by the thread-rebuild batch.
func (r *ConversationRepository) All(ctx context.Context) ([]entities.Conversation, error) {
	rows, err := r.db.Query(ctx, fmt.Sprintf(
		"SELECT %s, FALSE FROM conversations ORDER BY id", conversationColumns))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	convs := []entities.Conversation{}
	for rows.Next() {
		var c entities.Conversation
		var created bool
		if err := scanConversation(rows, &c, &created); err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

// CountByStatus returns conversation counts grouped by status.
func (r *ConversationRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.Query(ctx, "SELECT status, COUNT(*) FROM conversations GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// CountByPlatform returns conversation counts grouped by platform.
func (r *ConversationRepository) CountByPlatform(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.Query(ctx, "SELECT platform, COUNT(*) FROM conversations GROUP BY platform")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var platform string
		var n int
		if err := rows.Scan(&platform, &n); err != nil {
			return nil, err
		}
		counts[platform] = n
	}
	return counts, rows.Err()
}

func scanConversation(row pgx.Row, c *entities.Conversation, created *bool) error {
	var messages []byte
	if err := row.Scan(&c.ID, &c.CustomerID, &c.CustomerName, &c.Platform, &c.Status,
		&c.Priority, &c.AssignedAgent, &c.AIResponses, &c.HumanResponses,
		&messages, &c.MessageCount, &c.CreatedAt, &c.LastActivityAt, created); err != nil {
		return err
	}
	if err := json.Unmarshal(messages, &c.Messages); err != nil {
		return fmt.Errorf("decode messages array: %w", err)
	}
	return nil
}

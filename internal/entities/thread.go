package entities

import "time"

// Thread outcomes assigned by the rebuild batch.
const (
	OutcomeOrdered    = "ordered"
	OutcomeInterested = "interested"
	OutcomeNoResponse = "no_response"
	OutcomeGeneral    = "general"
)

// Order is an order record detected inside a thread's message history.
type Order struct {
	Reference  string    `json:"reference"`
	DetectedAt time.Time `json:"detected_at"`
	Excerpt    string    `json:"excerpt"`
}

// Thread is a batch-derived grouping of historical messages by
// (sender, bot, platform), enriched with order and outcome metadata.
// Rebuilding upserts by the group key, so re-runs never duplicate threads.
type Thread struct {
	ID             int       `json:"id"`
	SenderID       string    `json:"sender_id"`
	BotID          int       `json:"bot_id"` // credential set backing the channel
	Platform       string    `json:"platform"`
	MessageCount   int       `json:"message_count"`
	FirstMessageAt time.Time `json:"first_message_at"`
	LastMessageAt  time.Time `json:"last_message_at"`
	Orders         []Order   `json:"orders"`
	Outcome        string    `json:"outcome"`
	RebuiltAt      time.Time `json:"rebuilt_at"`
}

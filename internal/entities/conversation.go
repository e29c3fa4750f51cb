package entities

import "time"

// Conversation statuses. A conversation is "open" while active or pending.
const (
	StatusActive   = "active"
	StatusPending  = "pending"
	StatusResolved = "resolved"
	StatusClosed   = "closed"
)

// Message senders.
const (
	SenderCustomer = "customer"
	SenderAgent    = "agent"
	SenderAI       = "ai"
)

// Supported platforms.
const (
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"
	PlatformLine      = "line"
	PlatformTelegram  = "telegram"
	PlatformWeb       = "web"
)

// Message is one entry in a conversation's embedded message list.
// Messages are append-only: once stored they are never edited or deleted.
type Message struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"` // customer|agent|ai
	Content   string    `json:"content"`
	Type      string    `json:"type"` // text|image|sticker|location|file
	Timestamp time.Time `json:"timestamp"`
}

// Conversation aggregates all messages exchanged with one customer on one
// platform. At most one open conversation exists per (customer_id, platform).
type Conversation struct {
	ID             int       `json:"id"`
	CustomerID     string    `json:"customer_id"`
	CustomerName   string    `json:"customer_name"`
	Platform       string    `json:"platform"`
	Status         string    `json:"status"`
	Priority       string    `json:"priority"` // low|normal|high|urgent
	AssignedAgent  *int      `json:"assigned_agent"`
	AIResponses    int       `json:"ai_responses"`
	HumanResponses int       `json:"human_responses"`
	Messages       []Message `json:"messages,omitempty"`
	MessageCount   int       `json:"message_count"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// IsOpen reports whether new inbound messages should land in this conversation.
func (c *Conversation) IsOpen() bool {
	return c.Status == StatusActive || c.Status == StatusPending
}

// ValidStatus reports whether s is a known conversation status.
func ValidStatus(s string) bool {
	switch s {
	case StatusActive, StatusPending, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// ValidPriority reports whether p is a known priority level.
func ValidPriority(p string) bool {
	switch p {
	case "low", "normal", "high", "urgent":
		return true
	}
	return false
}

// ValidPlatform reports whether p is a supported messaging platform.
func ValidPlatform(p string) bool {
	switch p {
	case PlatformFacebook, PlatformInstagram, PlatformLine, PlatformTelegram, PlatformWeb:
		return true
	}
	return false
}

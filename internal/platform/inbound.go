package platform

import (
	"errors"
	"time"
)

// ErrNoMessage is returned by parse functions when a webhook payload is valid
// but carries no message events (delivery receipts, read markers, joins).
var ErrNoMessage = errors.New("payload contains no message events")

// InboundMessage is the normalized form every webhook payload is translated
// into. Downstream code never sees platform-specific shapes.
type InboundMessage struct {
	Platform   string
	SenderID   string
	SenderName string
	Content    string
	Type       string // text|image|sticker|location|file
	Timestamp  time.Time
	ReplyToken string // LINE only; empty elsewhere
}

func (m InboundMessage) Valid() bool {
	return m.Platform != "" && m.SenderID != "" && m.Content != ""
}

package platform

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/entities"
)

type webPayload struct {
	CustomerID string `json:"customer_id"`
	Name       string `json:"name"`
	Content    string `json:"content"`
	Type       string `json:"type"`
}

// ParseWeb translates a chat-widget POST body into a normalized message.
func ParseWeb(body []byte) ([]InboundMessage, error) {
	var p webPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode web payload: %w", err)
	}
	if p.CustomerID == "" || p.Content == "" {
		return nil, errors.New("customer_id and content are required")
	}
	if p.Type == "" {
		p.Type = "text"
	}
	return []InboundMessage{{
		Platform:   entities.PlatformWeb,
		SenderID:   p.CustomerID,
		SenderName: p.Name,
		Content:    p.Content,
		Type:       p.Type,
		Timestamp:  time.Now(),
	}}, nil
}

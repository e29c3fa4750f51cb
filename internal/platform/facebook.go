package platform

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/entities"
)

// Graph API webhook envelope, shared by Facebook Messenger and Instagram.
type graphEvent struct {
	Object string `json:"object"`
	Entry  []struct {
		ID        string `json:"id"`
		Time      int64  `json:"time"`
		Messaging []struct {
			Sender struct {
				ID string `json:"id"`
			} `json:"sender"`
			Timestamp int64 `json:"timestamp"`
			Message   struct {
				MID         string `json:"mid"`
				Text        string `json:"text"`
				IsEcho      bool   `json:"is_echo"`
				Attachments []struct {
					Type string `json:"type"`
					Payload struct {
						URL string `json:"url"`
					} `json:"payload"`
				} `json:"attachments"`
			} `json:"message"`
		} `json:"messaging"`
	} `json:"entry"`
}

// VerifyGraphSignature checks the X-Hub-Signature-256 header against an
// HMAC-SHA256 of the raw body keyed with the app secret.
func VerifyGraphSignature(body []byte, header, appSecret string) bool {
	const prefix = "sha256="
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.TrimPrefix(header, prefix)))
}

// ParseFacebook translates a Messenger webhook body into normalized messages.
// Echoes of our own outbound sends are skipped.
func ParseFacebook(body []byte) ([]InboundMessage, error) {
	return parseGraph(body, entities.PlatformFacebook)
}

// ParseInstagram translates an Instagram messaging webhook body. The payload
// shape is identical to Messenger's; only the platform tag differs.
func ParseInstagram(body []byte) ([]InboundMessage, error) {
	return parseGraph(body, entities.PlatformInstagram)
}

func parseGraph(body []byte, platform string) ([]InboundMessage, error) {
	var evt graphEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, fmt.Errorf("decode graph payload: %w", err)
	}

	var msgs []InboundMessage
	for _, entry := range evt.Entry {
		for _, m := range entry.Messaging {
			if m.Message.IsEcho || m.Sender.ID == "" {
				continue
			}
			in := InboundMessage{
				Platform:  platform,
				SenderID:  m.Sender.ID,
				Content:   m.Message.Text,
				Type:      "text",
				Timestamp: time.UnixMilli(m.Timestamp),
			}
			if in.Content == "" && len(m.Message.Attachments) > 0 {
				att := m.Message.Attachments[0]
				in.Type = att.Type
				in.Content = att.Payload.URL
			}
			if in.Content == "" {
				continue
			}
			msgs = append(msgs, in)
		}
	}
	if len(msgs) == 0 {
		return nil, ErrNoMessage
	}
	return msgs, nil
}

package platform

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/entities"
)

type lineWebhook struct {
	Events []struct {
		Type       string `json:"type"`
		ReplyToken string `json:"replyToken"`
		Timestamp  int64  `json:"timestamp"`
		Source     struct {
			Type   string `json:"type"`
			UserID string `json:"userId"`
		} `json:"source"`
		Message struct {
			ID        string  `json:"id"`
			Type      string  `json:"type"`
			Text      string  `json:"text"`
			StickerID string  `json:"stickerId"`
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"message"`
	} `json:"events"`
}

// VerifyLineSignature checks the X-Line-Signature header: base64 of an
// HMAC-SHA256 over the raw body keyed with the channel secret.
func VerifyLineSignature(body []byte, header, channelSecret string) bool {
	mac := hmac.New(sha256.New, []byte(channelSecret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}

// ParseLine translates a LINE webhook body into normalized messages.
// Only user-sourced message events are kept; group chats, follows and
// unfollows are ignored.
func ParseLine(body []byte) ([]InboundMessage, error) {
	var hook lineWebhook
	if err := json.Unmarshal(body, &hook); err != nil {
		return nil, fmt.Errorf("decode line payload: %w", err)
	}

	var msgs []InboundMessage
	for _, ev := range hook.Events {
		if ev.Type != "message" || ev.Source.Type != "user" || ev.Source.UserID == "" {
			continue
		}
		in := InboundMessage{
			Platform:   entities.PlatformLine,
			SenderID:   ev.Source.UserID,
			Type:       ev.Message.Type,
			Timestamp:  time.UnixMilli(ev.Timestamp),
			ReplyToken: ev.ReplyToken,
		}
		switch ev.Message.Type {
		case "text":
			in.Content = ev.Message.Text
		case "sticker":
			in.Content = "[sticker:" + ev.Message.StickerID + "]"
		case "location":
			in.Content = fmt.Sprintf("[location:%f,%f]", ev.Message.Latitude, ev.Message.Longitude)
		case "image", "video", "audio", "file":
			in.Content = "[" + ev.Message.Type + ":" + ev.Message.ID + "]"
		default:
			continue
		}
		msgs = append(msgs, in)
	}
	if len(msgs) == 0 {
		return nil, ErrNoMessage
	}
	return msgs, nil
}

package platform

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/entities"
)

// VerifyTelegramToken compares the X-Telegram-Bot-Api-Secret-Token header
// against the secret configured when the webhook was registered.
func VerifyTelegramToken(header, secret string) bool {
	if secret == "" {
		// No secret registered: accept, matching Bot API behaviour.
		return true
	}
	return subtle.ConstantTimeCompare([]byte(header), []byte(secret)) == 1
}

// ParseTelegram decodes a Bot API webhook body (a single Update) into a
// normalized message. Group chats and non-message updates are skipped.
func ParseTelegram(body []byte) ([]InboundMessage, error) {
	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		return nil, fmt.Errorf("decode telegram update: %w", err)
	}
	if update.Message == nil || update.Message.Chat == nil {
		return nil, ErrNoMessage
	}
	msg := update.Message
	if !msg.Chat.IsPrivate() {
		return nil, ErrNoMessage
	}

	in := InboundMessage{
		Platform:  entities.PlatformTelegram,
		SenderID:  strconv.FormatInt(msg.Chat.ID, 10),
		Type:      "text",
		Content:   msg.Text,
		Timestamp: time.Unix(int64(msg.Date), 0),
	}
	if msg.From != nil {
		in.SenderName = strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
	}
	switch {
	case len(msg.Photo) > 0:
		in.Type = "image"
		in.Content = "[photo:" + msg.Photo[len(msg.Photo)-1].FileID + "]"
	case msg.Sticker != nil:
		in.Type = "sticker"
		in.Content = "[sticker:" + msg.Sticker.FileID + "]"
	case msg.Location != nil:
		in.Type = "location"
		in.Content = fmt.Sprintf("[location:%f,%f]", msg.Location.Latitude, msg.Location.Longitude)
	case msg.Document != nil:
		in.Type = "file"
		in.Content = "[file:" + msg.Document.FileID + "]"
	}
	if in.Content == "" {
		return nil, ErrNoMessage
	}
	return []InboundMessage{in}, nil
}

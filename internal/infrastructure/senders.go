package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/interfaces"
)

var outboundClient = &http.Client{Timeout: 15 * time.Second}

// GraphSender sends messages through the Facebook Graph API. Messenger and
// Instagram DMs share the same endpoint; only the access token differs.
type GraphSender struct {
	accessToken string
}

func NewGraphSender(accessToken string) interfaces.Sender {
	return &GraphSender{accessToken: accessToken}
}

func (g *GraphSender) SendMessage(ctx context.Context, to, content string) error {
	url := "https://graph.facebook.com/v18.0/me/messages?access_token=" + g.accessToken
	payload := map[string]interface{}{
		"recipient": map[string]string{"id": to},
		"message":   map[string]string{"text": content},
	}
	return postJSON(ctx, url, payload, nil)
}

// LineSender pushes messages through the LINE Messaging API.
type LineSender struct {
	accessToken string
}

func NewLineSender(accessToken string) interfaces.Sender {
	return &LineSender{accessToken: accessToken}
}

func (l *LineSender) SendMessage(ctx context.Context, to, content string) error {
	payload := map[string]interface{}{
		"to": to,
		"messages": []map[string]string{
			{"type": "text", "text": content},
		},
	}
	headers := map[string]string{"Authorization": "Bearer " + l.accessToken}
	return postJSON(ctx, "https://api.line.me/v2/bot/message/push", payload, headers)
}

// TelegramSender sends messages through the Bot API.
type TelegramSender struct {
	bot *tgbotapi.BotAPI
}

func NewTelegramSender(token string) (interfaces.Sender, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &TelegramSender{bot: bot}, nil
}

func (t *TelegramSender) SendMessage(ctx context.Context, to, content string) error {
	chatID, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", to, err)
	}
	_, err = t.bot.Send(tgbotapi.NewMessage(chatID, content))
	return err
}

func postJSON(ctx context.Context, url string, payload interface{}, headers map[string]string) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := outboundClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("outbound send failed: status %d", resp.StatusCode)
	}
	return nil
}

package infrastructure

import (
	"fmt"
	"log"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/repository"
)

// TelemetryReporter periodically pushes the day's usage counters to an ops
// Telegram chat. Best-effort only: every failure is logged and swallowed,
// and the whole feature sits behind a single enable flag.
type TelemetryReporter struct {
	bot      *tgbotapi.BotAPI
	chatID   int64
	usage    *repository.UsageRepository
	interval time.Duration
	done     chan struct{}
}

func NewTelemetryReporter(token string, chatID int64, usage *repository.UsageRepository, interval time.Duration) (*TelemetryReporter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telemetry bot init: %w", err)
	}
	return &TelemetryReporter{
		bot:      bot,
		chatID:   chatID,
		usage:    usage,
		interval: interval,
		done:     make(chan struct{}),
	}, nil
}

// Start runs the reporting loop until Stop is called.
func (t *TelemetryReporter) Start() {
	go func() {
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.report()
			case <-t.done:
				return
			}
		}
	}()
}

func (t *TelemetryReporter) Stop() {
	close(t.done)
}

func (t *TelemetryReporter) report() {
	received, aiReplies, agentReplies, err := t.usage.Today()
	if err != nil {
		log.Printf("[Telemetry] usage read failed: %v", err)
		return
	}
	text := fmt.Sprintf("Usage today: %d received, %d AI replies, %d agent replies",
		received, aiReplies, agentReplies)
	if _, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, text)); err != nil {
		log.Printf("[Telemetry] send failed: %v", err)
	}
}

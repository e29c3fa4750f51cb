package usecases

import (
	"context"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/entities"
	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/interfaces"
)

// historyWindow is how many recent messages are sent to the completion
// service per turn.
const historyWindow = 10

// InstructionSource supplies the active prompt fragments for a platform,
// highest priority first.
type InstructionSource interface {
	ActiveForPlatform(ctx context.Context, platform string) ([]entities.Instruction, error)
}

// Responder builds the auto-reply prompt and requests a completion. It is a
// constructed, injected component: configuration and backends arrive through
// the constructor, never from package state.
type Responder struct {
	completions  interfaces.CompletionClient
	instructions InstructionSource
	maxReplyLen  int
}

func NewResponder(completions interfaces.CompletionClient, instructions InstructionSource, maxReplyLen int) *Responder {
	return &Responder{
		completions:  completions,
		instructions: instructions,
		maxReplyLen:  maxReplyLen,
	}
}

// Generate returns the automated reply for the given history, or "" when
// generation fails or produces nothing. Callers treat "" as "append no
// reply"; errors never cross this boundary and no retry is performed.
func (r *Responder) Generate(ctx context.Context, platform string, history []entities.Message) string {
	if r.completions == nil {
		return ""
	}

	system := r.systemPrompt(ctx, platform)

	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	reply, err := r.completions.Complete(ctx, system, history)
	if err != nil {
		log.Printf("[Responder] completion failed (%s): %v", platform, err)
		return ""
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return ""
	}
	if r.maxReplyLen > 0 && len(reply) > r.maxReplyLen {
		reply = truncateRunes(reply, r.maxReplyLen)
	}
	return reply
}

// truncateRunes cuts s to at most max bytes without splitting a multi-byte
// rune: the cut backs up to the nearest rune start.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// systemPrompt concatenates active instructions for the platform in priority
// order. A missing instruction set degrades to an empty prompt, not an error.
func (r *Responder) systemPrompt(ctx context.Context, platform string) string {
	if r.instructions == nil {
		return ""
	}
	list, err := r.instructions.ActiveForPlatform(ctx, platform)
	if err != nil {
		log.Printf("[Responder] instruction lookup failed: %v", err)
		return ""
	}
	parts := make([]string, 0, len(list))
	for _, ins := range list {
		if content := strings.TrimSpace(ins.Content); content != "" {
			parts = append(parts, content)
		}
	}
	return strings.Join(parts, "\n\n")
}

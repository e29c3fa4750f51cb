package usecases

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/entities"
)

// ConversationSource supplies the full history scan for the rebuild batch.
type ConversationSource interface {
	All(ctx context.Context) ([]entities.Conversation, error)
}

// ThreadSink persists rebuilt threads keyed by (sender, bot, platform).
type ThreadSink interface {
	Upsert(ctx context.Context, t *entities.Thread) error
}

// CredentialLookup resolves which credential set (bot) backs a platform.
type CredentialLookup interface {
	ActiveForPlatform(ctx context.Context, platform string) (*entities.Credential, error)
}

// ProgressFunc receives (processed, total) pairs so a caller can render a
// percentage.
type ProgressFunc func(processed, total int)

var orderPattern = regexp.MustCompile(`(?i)\border\b|#\d{4,}`)

// ThreadRebuilder is the offline batch that regroups historical messages
// into threads. Safe to re-run: the sink upserts by group key, so an
// unchanged message set yields the same thread count and no duplicates.
type ThreadRebuilder struct {
	conversations ConversationSource
	threads       ThreadSink
	credentials   CredentialLookup
}

func NewThreadRebuilder(conversations ConversationSource, threads ThreadSink, credentials CredentialLookup) *ThreadRebuilder {
	return &ThreadRebuilder{
		conversations: conversations,
		threads:       threads,
		credentials:   credentials,
	}
}

// Rebuild scans every conversation, groups messages by (sender, bot,
// platform), attaches detected order records, assigns an outcome tag and
// upserts the result. Returns the number of threads written.
func (r *ThreadRebuilder) Rebuild(ctx context.Context, progress ProgressFunc) (int, error) {
	convs, err := r.conversations.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("load conversations: %w", err)
	}

	botIDs := map[string]int{}
	groups := map[string]*entities.Thread{}
	replies := map[string]int{}
	total := len(convs)

	for i, conv := range convs {
		botID, err := r.botFor(ctx, conv.Platform, botIDs)
		if err != nil {
			return 0, err
		}

		key := fmt.Sprintf("%s|%d|%s", conv.CustomerID, botID, conv.Platform)
		t, ok := groups[key]
		if !ok {
			t = &entities.Thread{
				SenderID: conv.CustomerID,
				BotID:    botID,
				Platform: conv.Platform,
				Orders:   []entities.Order{},
			}
			groups[key] = t
		}

		for _, msg := range conv.Messages {
			t.MessageCount++
			if msg.Sender != entities.SenderCustomer {
				replies[key]++
			}
			if t.FirstMessageAt.IsZero() || msg.Timestamp.Before(t.FirstMessageAt) {
				t.FirstMessageAt = msg.Timestamp
			}
			if msg.Timestamp.After(t.LastMessageAt) {
				t.LastMessageAt = msg.Timestamp
			}
			if msg.Sender == entities.SenderCustomer && orderPattern.MatchString(msg.Content) {
				t.Orders = append(t.Orders, entities.Order{
					Reference:  orderPattern.FindString(msg.Content),
					DetectedAt: msg.Timestamp,
					Excerpt:    excerpt(msg.Content),
				})
			}
		}
		t.Outcome = classify(t, replies[key])

		if progress != nil {
			progress(i+1, total)
		}
	}

	for _, t := range groups {
		if err := r.threads.Upsert(ctx, t); err != nil {
			return 0, fmt.Errorf("upsert thread %s/%s: %w", t.Platform, t.SenderID, err)
		}
	}
	return len(groups), nil
}

func (r *ThreadRebuilder) botFor(ctx context.Context, platform string, cache map[string]int) (int, error) {
	if id, ok := cache[platform]; ok {
		return id, nil
	}
	id := 0
	if r.credentials != nil {
		cred, err := r.credentials.ActiveForPlatform(ctx, platform)
		if err != nil {
			return 0, fmt.Errorf("credential lookup for %s: %w", platform, err)
		}
		if cred != nil {
			id = cred.ID
		}
	}
	cache[platform] = id
	return id, nil
}

// classify assigns the coarse outcome tag for a thread.
func classify(t *entities.Thread, replies int) string {
	switch {
	case len(t.Orders) > 0:
		return entities.OutcomeOrdered
	case replies == 0:
		return entities.OutcomeNoResponse
	case t.MessageCount >= 5:
		return entities.OutcomeInterested
	default:
		return entities.OutcomeGeneral
	}
}

func excerpt(s string) string {
	return truncateRunes(strings.TrimSpace(s), 120)
}

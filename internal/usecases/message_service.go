package usecases

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/entities"
	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/infrastructure"
	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/interfaces"
	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/platform"
)

// ErrConversationNotFound is returned when a reply targets a conversation
// that does not exist.
var ErrConversationNotFound = errors.New("conversation not found")

// ConversationStore is the slice of the conversation repository the message
// pipeline needs. Satisfied by repository.ConversationRepository.
type ConversationStore interface {
	AppendCustomerMessage(ctx context.Context, customerID, customerName, platform string, msg entities.Message) (*entities.Conversation, bool, error)
	AppendReply(ctx context.Context, conversationID int, msg entities.Message) (*entities.Conversation, error)
	GetByID(ctx context.Context, id int) (*entities.Conversation, error)
	UpdateStatus(ctx context.Context, id int, status string) (*entities.Conversation, error)
	Assign(ctx context.Context, id, agentID int) (*entities.Conversation, error)
}

// UsageRecorder bumps daily counters. Failures here never fail the pipeline.
type UsageRecorder interface {
	IncrementReceived(platform string) error
	IncrementAIReply(platform string) error
	IncrementAgentReply(platform string) error
}

// ReplyGenerator produces the automated reply, or "" for "no reply".
type ReplyGenerator interface {
	Generate(ctx context.Context, platform string, history []entities.Message) string
}

// MessageService runs the ingestion pipeline: normalize → append customer
// message → generate reply → append reply → send outbound → broadcast.
// Every broadcast happens strictly after its mutation is persisted.
type MessageService struct {
	store       ConversationStore
	responder   ReplyGenerator
	senders     map[string]interfaces.Sender
	broadcaster interfaces.Broadcaster
	usage       UsageRecorder
	history     *infrastructure.HistoryCache
	limiter     *infrastructure.ReplyLimiter
}

func NewMessageService(store ConversationStore, responder ReplyGenerator, senders map[string]interfaces.Sender,
	broadcaster interfaces.Broadcaster, usage UsageRecorder,
	history *infrastructure.HistoryCache, limiter *infrastructure.ReplyLimiter) *MessageService {
	return &MessageService{
		store:       store,
		responder:   responder,
		senders:     senders,
		broadcaster: broadcaster,
		usage:       usage,
		history:     history,
		limiter:     limiter,
	}
}

// HandleInbound processes one normalized webhook event. Webhook handlers run
// this after acking: errors are logged by the caller and never reach the
// platform.
func (s *MessageService) HandleInbound(ctx context.Context, in platform.InboundMessage) error {
	if !in.Valid() {
		return fmt.Errorf("invalid inbound message from %s", in.Platform)
	}

	msg := entities.Message{
		ID:        uuid.New().String(),
		Sender:    entities.SenderCustomer,
		Content:   in.Content,
		Type:      in.Type,
		Timestamp: in.Timestamp,
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	conv, created, err := s.store.AppendCustomerMessage(ctx, in.SenderID, in.SenderName, in.Platform, msg)
	if err != nil {
		return fmt.Errorf("append customer message: %w", err)
	}
	if created {
		log.Printf("[Ingest] new conversation %d (%s/%s)", conv.ID, conv.Platform, conv.CustomerID)
	}

	if s.usage != nil {
		if err := s.usage.IncrementReceived(in.Platform); err != nil {
			log.Printf("[Ingest] usage counter failed: %v", err)
		}
	}

	key := historyKey(in.Platform, in.SenderID)
	if s.history != nil {
		if _, ok := s.history.Window(key, 1); !ok {
			s.history.Prime(key, conv.Messages)
		} else {
			s.history.Append(key, msg)
		}
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastNewMessage(conv, msg)
	}

	s.maybeAutoReply(ctx, conv, key)
	return nil
}

// maybeAutoReply runs one responder turn for the conversation. A "" reply
// means no automated message is appended this turn.
func (s *MessageService) maybeAutoReply(ctx context.Context, conv *entities.Conversation, key string) {
	if s.responder == nil {
		return
	}
	if s.limiter != nil && !s.limiter.Allow(key) {
		log.Printf("[Ingest] auto-reply suppressed for %s (rate)", key)
		return
	}

	history := conv.Messages
	if s.history != nil {
		if cached, ok := s.history.Window(key, historyWindow); ok {
			history = cached
		}
	}

	reply := s.responder.Generate(ctx, conv.Platform, history)
	if reply == "" {
		return
	}

	aiMsg := entities.Message{
		ID:        uuid.New().String(),
		Sender:    entities.SenderAI,
		Content:   reply,
		Type:      "text",
		Timestamp: time.Now(),
	}
	updated, err := s.store.AppendReply(ctx, conv.ID, aiMsg)
	if err != nil || updated == nil {
		log.Printf("[Ingest] append AI reply failed for conversation %d: %v", conv.ID, err)
		return
	}

	if s.usage != nil {
		if err := s.usage.IncrementAIReply(conv.Platform); err != nil {
			log.Printf("[Ingest] usage counter failed: %v", err)
		}
	}
	if s.history != nil {
		s.history.Append(key, aiMsg)
	}

	s.sendOutbound(ctx, updated, reply)

	if s.broadcaster != nil {
		s.broadcaster.BroadcastNewMessage(updated, aiMsg)
	}
}

// AgentReply appends a human reply, pushes it to the customer's platform and
// broadcasts the mutation. Returns the updated conversation and the appended
// message.
func (s *MessageService) AgentReply(ctx context.Context, conversationID int, content string) (*entities.Conversation, entities.Message, error) {
	msg := entities.Message{
		ID:        uuid.New().String(),
		Sender:    entities.SenderAgent,
		Content:   content,
		Type:      "text",
		Timestamp: time.Now(),
	}
	conv, err := s.store.AppendReply(ctx, conversationID, msg)
	if err != nil {
		return nil, entities.Message{}, err
	}
	if conv == nil {
		return nil, entities.Message{}, ErrConversationNotFound
	}

	if s.usage != nil {
		if err := s.usage.IncrementAgentReply(conv.Platform); err != nil {
			log.Printf("[Agent] usage counter failed: %v", err)
		}
	}
	if s.history != nil {
		s.history.Append(historyKey(conv.Platform, conv.CustomerID), msg)
	}

	s.sendOutbound(ctx, conv, content)

	if s.broadcaster != nil {
		s.broadcaster.BroadcastNewMessage(conv, msg)
	}
	return conv, msg, nil
}

// UpdateStatus persists a status change and broadcasts it.
func (s *MessageService) UpdateStatus(ctx context.Context, conversationID int, status string) (*entities.Conversation, error) {
	conv, err := s.store.UpdateStatus(ctx, conversationID, status)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastStatus(conv)
	}
	return conv, nil
}

// AssignAgent persists an assignment change and broadcasts it.
func (s *MessageService) AssignAgent(ctx context.Context, conversationID, agentID int) (*entities.Conversation, error) {
	conv, err := s.store.Assign(ctx, conversationID, agentID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastAssignment(conv)
	}
	return conv, nil
}

// sendOutbound pushes a reply to the customer's platform. The web widget has
// no push channel; its customers receive replies over the realtime layer.
// Send failures are logged, never surfaced to the customer.
func (s *MessageService) sendOutbound(ctx context.Context, conv *entities.Conversation, content string) {
	if conv.Platform == entities.PlatformWeb {
		return
	}
	sender, ok := s.senders[conv.Platform]
	if !ok || sender == nil {
		log.Printf("[Outbound] no sender configured for %s", conv.Platform)
		return
	}
	if err := sender.SendMessage(ctx, conv.CustomerID, content); err != nil {
		log.Printf("[Outbound] send to %s/%s failed: %v", conv.Platform, conv.CustomerID, err)
	}
}

func historyKey(platform, customerID string) string {
	return platform + ":" + customerID
}

package usecases

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/entities"
	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/interfaces"
	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/platform"
)

// fakeStore keeps conversations in memory, mirroring the repository's
// open-conversation upsert semantics.
type fakeStore struct {
	nextID          int
	convs           map[int]*entities.Conversation
	failAppendReply bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextID: 1, convs: map[int]*entities.Conversation{}}
}

func (s *fakeStore) AppendCustomerMessage(_ context.Context, customerID, customerName, platformName string, msg entities.Message) (*entities.Conversation, bool, error) {
	for _, c := range s.convs {
		if c.CustomerID == customerID && c.Platform == platformName && c.IsOpen() {
			c.Messages = append(c.Messages, msg)
			c.MessageCount = len(c.Messages)
			c.LastActivityAt = msg.Timestamp
			return c, false, nil
		}
	}
	c := &entities.Conversation{
		ID:             s.nextID,
		CustomerID:     customerID,
		CustomerName:   customerName,
		Platform:       platformName,
		Status:         entities.StatusActive,
		Priority:       "normal",
		Messages:       []entities.Message{msg},
		MessageCount:   1,
		CreatedAt:      msg.Timestamp,
		LastActivityAt: msg.Timestamp,
	}
	s.nextID++
	s.convs[c.ID] = c
	return c, true, nil
}

func (s *fakeStore) AppendReply(_ context.Context, conversationID int, msg entities.Message) (*entities.Conversation, error) {
	if s.failAppendReply {
		return nil, errors.New("store unavailable")
	}
	c, ok := s.convs[conversationID]
	if !ok {
		return nil, nil
	}
	c.Messages = append(c.Messages, msg)
	c.MessageCount = len(c.Messages)
	c.LastActivityAt = msg.Timestamp
	switch msg.Sender {
	case entities.SenderAI:
		c.AIResponses++
	case entities.SenderAgent:
		c.HumanResponses++
	default:
		return nil, fmt.Errorf("unexpected sender %q", msg.Sender)
	}
	return c, nil
}

func (s *fakeStore) GetByID(_ context.Context, id int) (*entities.Conversation, error) {
	return s.convs[id], nil
}

func (s *fakeStore) UpdateStatus(_ context.Context, id int, status string) (*entities.Conversation, error) {
	c, ok := s.convs[id]
	if !ok {
		return nil, nil
	}
	c.Status = status
	return c, nil
}

func (s *fakeStore) Assign(_ context.Context, id, agentID int) (*entities.Conversation, error) {
	c, ok := s.convs[id]
	if !ok {
		return nil, nil
	}
	c.AssignedAgent = &agentID
	if c.Status == entities.StatusPending {
		c.Status = entities.StatusActive
	}
	return c, nil
}

type fakeBroadcaster struct {
	messages    []entities.Message
	statuses    []string
	assignments []int
}

func (b *fakeBroadcaster) BroadcastNewMessage(_ *entities.Conversation, msg entities.Message) {
	b.messages = append(b.messages, msg)
}
func (b *fakeBroadcaster) BroadcastStatus(conv *entities.Conversation) {
	b.statuses = append(b.statuses, conv.Status)
}
func (b *fakeBroadcaster) BroadcastAssignment(conv *entities.Conversation) {
	if conv.AssignedAgent != nil {
		b.assignments = append(b.assignments, *conv.AssignedAgent)
	}
}

type fakeUsage struct {
	received, ai, agent int
}

func (u *fakeUsage) IncrementReceived(string) error   { u.received++; return nil }
func (u *fakeUsage) IncrementAIReply(string) error    { u.ai++; return nil }
func (u *fakeUsage) IncrementAgentReply(string) error { u.agent++; return nil }

// fixedResponder returns the same reply every turn and records the history
// it was shown.
type fixedResponder struct {
	reply   string
	history []entities.Message
}

func (r *fixedResponder) Generate(_ context.Context, _ string, history []entities.Message) string {
	r.history = history
	return r.reply
}

type recordingSender struct {
	sent []string
	err  error
}

func (s *recordingSender) SendMessage(_ context.Context, to, content string) error {
	s.sent = append(s.sent, to+"|"+content)
	return s.err
}

func inbound(platformName, sender, content string) platform.InboundMessage {
	return platform.InboundMessage{
		Platform:  platformName,
		SenderID:  sender,
		Content:   content,
		Type:      "text",
		Timestamp: time.Now(),
	}
}

func TestHandleInbound_NewConversationWithAutoReply(t *testing.T) {
	store := newFakeStore()
	broadcaster := &fakeBroadcaster{}
	usage := &fakeUsage{}
	responder := &fixedResponder{reply: "Thanks for reaching out!"}

	svc := NewMessageService(store, responder, nil, broadcaster, usage, nil, nil)

	err := svc.HandleInbound(context.Background(), inbound(entities.PlatformWeb, "visitor-1", "Hello"))
	require.NoError(t, err)

	conv := store.convs[1]
	require.NotNil(t, conv)
	assert.Equal(t, entities.StatusActive, conv.Status)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, entities.SenderCustomer, conv.Messages[0].Sender)
	assert.Equal(t, entities.SenderAI, conv.Messages[1].Sender)
	assert.Equal(t, 1, conv.AIResponses)
	assert.Equal(t, 2, conv.MessageCount)

	// Customer message and AI reply each broadcast once, in order.
	require.Len(t, broadcaster.messages, 2)
	assert.Equal(t, entities.SenderCustomer, broadcaster.messages[0].Sender)
	assert.Equal(t, entities.SenderAI, broadcaster.messages[1].Sender)

	assert.Equal(t, 1, usage.received)
	assert.Equal(t, 1, usage.ai)
}

func TestHandleInbound_SecondMessageReusesOpenConversation(t *testing.T) {
	store := newFakeStore()
	svc := NewMessageService(store, &fixedResponder{reply: ""}, nil, &fakeBroadcaster{}, &fakeUsage{}, nil, nil)

	require.NoError(t, svc.HandleInbound(context.Background(), inbound(entities.PlatformLine, "U1", "first")))
	require.NoError(t, svc.HandleInbound(context.Background(), inbound(entities.PlatformLine, "U1", "second")))

	assert.Len(t, store.convs, 1)
	assert.Equal(t, 2, store.convs[1].MessageCount)
}

func TestHandleInbound_EmptyReplyAppendsNothing(t *testing.T) {
	store := newFakeStore()
	broadcaster := &fakeBroadcaster{}
	svc := NewMessageService(store, &fixedResponder{reply: ""}, nil, broadcaster, &fakeUsage{}, nil, nil)

	require.NoError(t, svc.HandleInbound(context.Background(), inbound(entities.PlatformWeb, "v1", "hi")))

	assert.Equal(t, 0, store.convs[1].AIResponses)
	assert.Len(t, broadcaster.messages, 1)
}

func TestHandleInbound_RejectsInvalidMessage(t *testing.T) {
	svc := NewMessageService(newFakeStore(), nil, nil, nil, nil, nil, nil)

	err := svc.HandleInbound(context.Background(), platform.InboundMessage{Platform: entities.PlatformWeb})
	assert.Error(t, err)
}

func TestHandleInbound_AppendReplyFailureDoesNotFailIngest(t *testing.T) {
	store := newFakeStore()
	svc := NewMessageService(store, &fixedResponder{reply: "hi"}, nil, &fakeBroadcaster{}, &fakeUsage{}, nil, nil)

	require.NoError(t, svc.HandleInbound(context.Background(), inbound(entities.PlatformWeb, "v1", "hello")))
	store.failAppendReply = true
	err := svc.HandleInbound(context.Background(), inbound(entities.PlatformWeb, "v1", "again"))
	assert.NoError(t, err)
}

func TestHandleInbound_OutboundSentForPlatformChannels(t *testing.T) {
	store := newFakeStore()
	sender := &recordingSender{}
	svc := NewMessageService(store, &fixedResponder{reply: "auto"}, map[string]interfaces.Sender{
		entities.PlatformLine: sender,
	}, &fakeBroadcaster{}, &fakeUsage{}, nil, nil)

	require.NoError(t, svc.HandleInbound(context.Background(), inbound(entities.PlatformLine, "U9", "hello")))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "U9|auto", sender.sent[0])
}

func TestHandleInbound_WebPlatformSkipsOutbound(t *testing.T) {
	store := newFakeStore()
	sender := &recordingSender{}
	svc := NewMessageService(store, &fixedResponder{reply: "auto"}, map[string]interfaces.Sender{
		entities.PlatformWeb: sender,
	}, &fakeBroadcaster{}, &fakeUsage{}, nil, nil)

	require.NoError(t, svc.HandleInbound(context.Background(), inbound(entities.PlatformWeb, "v1", "hello")))
	assert.Empty(t, sender.sent)
}

func TestAgentReply(t *testing.T) {
	store := newFakeStore()
	broadcaster := &fakeBroadcaster{}
	usage := &fakeUsage{}
	sender := &recordingSender{}
	svc := NewMessageService(store, nil, map[string]interfaces.Sender{
		entities.PlatformTelegram: sender,
	}, broadcaster, usage, nil, nil)

	require.NoError(t, svc.HandleInbound(context.Background(), inbound(entities.PlatformTelegram, "555", "help")))

	conv, msg, err := svc.AgentReply(context.Background(), 1, "On it, give me a minute")
	require.NoError(t, err)
	assert.Equal(t, entities.SenderAgent, msg.Sender)
	assert.Equal(t, 1, conv.HumanResponses)
	assert.Equal(t, 1, usage.agent)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "555|On it, give me a minute", sender.sent[0])
}

func TestAgentReply_UnknownConversation(t *testing.T) {
	svc := NewMessageService(newFakeStore(), nil, nil, nil, nil, nil, nil)

	_, _, err := svc.AgentReply(context.Background(), 99, "hello?")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestUpdateStatusAndAssign_Broadcast(t *testing.T) {
	store := newFakeStore()
	broadcaster := &fakeBroadcaster{}
	svc := NewMessageService(store, nil, nil, broadcaster, nil, nil, nil)

	require.NoError(t, svc.HandleInbound(context.Background(), inbound(entities.PlatformWeb, "v1", "hi")))

	conv, err := svc.UpdateStatus(context.Background(), 1, entities.StatusResolved)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusResolved, conv.Status)
	assert.Equal(t, []string{entities.StatusResolved}, broadcaster.statuses)

	_, err = svc.UpdateStatus(context.Background(), 42, entities.StatusClosed)
	assert.ErrorIs(t, err, ErrConversationNotFound)

	conv, err = svc.AssignAgent(context.Background(), 1, 7)
	require.NoError(t, err)
	require.NotNil(t, conv.AssignedAgent)
	assert.Equal(t, 7, *conv.AssignedAgent)
	assert.Equal(t, []int{7}, broadcaster.assignments)
}

package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/entities"
)

func newTestClient(h *Hub, id string, buffer int) *Client {
	c := &Client{ID: id, send: make(chan []byte, buffer), hub: h}
	h.mu.Lock()
	h.clients[id] = c
	h.mu.Unlock()
	h.join(c, AudienceAgents)
	return c
}

func receive(t *testing.T, c *Client) WSMessage {
	t.Helper()
	select {
	case frame := <-c.send:
		var msg WSMessage
		require.NoError(t, json.Unmarshal(frame, &msg))
		return msg
	default:
		t.Fatal("no frame queued")
		return WSMessage{}
	}
}

func TestHub_JoinLeaveAudiences(t *testing.T) {
	h := NewHub()
	c := newTestClient(h, "c1", 4)

	assert.Equal(t, 1, h.AudienceSize(AudienceAgents))
	assert.Equal(t, 0, h.AudienceSize(ConversationAudience(7)))

	h.join(c, ConversationAudience(7))
	assert.Equal(t, 1, h.AudienceSize(ConversationAudience(7)))

	h.leave(c, ConversationAudience(7))
	assert.Equal(t, 0, h.AudienceSize(ConversationAudience(7)))
}

func TestHub_PublishReachesAudience(t *testing.T) {
	h := NewHub()
	c1 := newTestClient(h, "c1", 4)
	c2 := newTestClient(h, "c2", 4)
	h.join(c2, ConversationAudience(3))

	h.Publish(EventStatus, map[string]int{"conversation_id": 3}, ConversationAudience(3))

	msg := receive(t, c2)
	assert.Equal(t, EventStatus, msg.Type)
	assert.Empty(t, c1.send, "agents-only client is not in the conversation audience")
}

func TestHub_PublishDeduplicatesAcrossAudiences(t *testing.T) {
	h := NewHub()
	c := newTestClient(h, "c1", 4)
	h.join(c, ConversationAudience(5))

	// Client is in both target audiences but must get a single frame.
	h.Publish(EventNewMessage, map[string]int{"conversation_id": 5}, AudienceAgents, ConversationAudience(5))

	assert.Len(t, c.send, 1)
}

func TestHub_PublishDropsWhenBufferFull(t *testing.T) {
	h := NewHub()
	c := newTestClient(h, "c1", 1)

	h.Publish(EventStatus, map[string]int{"conversation_id": 1}, AudienceAgents)
	h.Publish(EventStatus, map[string]int{"conversation_id": 2}, AudienceAgents)

	// Second frame dropped, no blocking, no panic.
	assert.Len(t, c.send, 1)
}

func TestHub_RemoveClearsAllAudiences(t *testing.T) {
	h := NewHub()
	c := newTestClient(h, "c1", 4)
	h.join(c, ConversationAudience(9))

	h.remove(c)

	assert.Equal(t, 0, h.AudienceSize(AudienceAgents))
	assert.Equal(t, 0, h.AudienceSize(ConversationAudience(9)))
	h.Publish(EventStatus, map[string]int{}, AudienceAgents)
	assert.Empty(t, c.send)
}

func TestHub_BroadcastNewMessagePayload(t *testing.T) {
	h := NewHub()
	c := newTestClient(h, "c1", 4)

	conv := &entities.Conversation{
		ID:          12,
		CustomerID:  "U1",
		Platform:    entities.PlatformLine,
		Status:      entities.StatusActive,
		AIResponses: 2,
	}
	h.BroadcastNewMessage(conv, entities.Message{ID: "m1", Sender: entities.SenderAI, Content: "hi", Type: "text"})

	msg := receive(t, c)
	assert.Equal(t, EventNewMessage, msg.Type)

	var payload struct {
		ConversationID int              `json:"conversation_id"`
		Platform       string           `json:"platform"`
		Message        entities.Message `json:"message"`
	}
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	assert.Equal(t, 12, payload.ConversationID)
	assert.Equal(t, entities.PlatformLine, payload.Platform)
	assert.Equal(t, "hi", payload.Message.Content)
}

func TestClient_HandleFrameJoinAndLeave(t *testing.T) {
	h := NewHub()
	c := newTestClient(h, "c1", 4)

	c.handleFrame([]byte(`{"type":"join","payload":{"conversation_id":4}}`))
	assert.Equal(t, 1, h.AudienceSize(ConversationAudience(4)))

	c.handleFrame([]byte(`{"type":"leave","payload":{"conversation_id":4}}`))
	assert.Equal(t, 0, h.AudienceSize(ConversationAudience(4)))

	// Missing or zero conversation id is ignored.
	c.handleFrame([]byte(`{"type":"join","payload":{}}`))
	assert.Equal(t, 0, h.AudienceSize(ConversationAudience(0)))
}

func TestClient_HandleFramePing(t *testing.T) {
	h := NewHub()
	c := newTestClient(h, "c1", 4)

	c.handleFrame([]byte(`{"type":"ping","payload":null}`))

	msg := receive(t, c)
	assert.Equal(t, "pong", msg.Type)
}

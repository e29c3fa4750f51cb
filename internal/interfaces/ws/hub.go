package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/entities"
)

// Audience names. Every connected agent is in AudienceAgents; per-conversation
// audiences are joined and left explicitly by the dashboard.
const AudienceAgents = "agents"

func ConversationAudience(id int) string {
	return "conversation:" + strconv.Itoa(id)
}

// Event types broadcast to the dashboard.
const (
	EventNewMessage = "conversation.message"
	EventStatus     = "conversation.status"
	EventAssignment = "conversation.assignment"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Dashboard origin is enforced by the CORS layer
	},
}

// WSMessage is the frame format in both directions.
type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub fans conversation events out to connected dashboard clients. Delivery
// is at-most-once and best-effort: a slow client's frames are dropped, a
// disconnected client misses events and re-fetches state on reconnect.
type Hub struct {
	mu        sync.RWMutex
	clients   map[string]*Client
	audiences map[string]map[string]*Client // audience -> clientID -> client
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[string]*Client),
		audiences: make(map[string]map[string]*Client),
	}
}

// HandleConnection upgrades a dashboard request and registers the client.
// The client automatically joins the agents audience.
func (h *Hub) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] upgrade error: %v", err)
		return
	}

	agentID := 0
	if uid, ok := c.Get("user_id"); ok {
		if f, ok := uid.(float64); ok {
			agentID = int(f)
		}
	}

	client := &Client{
		ID:      uuid.New().String(),
		AgentID: agentID,
		conn:    conn,
		send:    make(chan []byte, 64),
		hub:     h,
	}

	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()
	h.join(client, AudienceAgents)

	log.Printf("[WS] client connected: %s (agent %d)", client.ID, agentID)

	go client.writePump()
	go client.readPump()
}

func (h *Hub) join(c *Client, audience string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.audiences[audience]; !ok {
		h.audiences[audience] = make(map[string]*Client)
	}
	h.audiences[audience][c.ID] = c
}

func (h *Hub) leave(c *Client, audience string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.audiences[audience]; ok {
		delete(members, c.ID)
		if len(members) == 0 {
			delete(h.audiences, audience)
		}
	}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c.ID)
	for audience, members := range h.audiences {
		delete(members, c.ID)
		if len(members) == 0 {
			delete(h.audiences, audience)
		}
	}
}

// AudienceSize returns the member count of an audience.
func (h *Hub) AudienceSize(audience string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.audiences[audience])
}

// Publish sends one event to every client in any of the given audiences.
// A client in several target audiences still receives a single frame.
// Non-blocking: frames are dropped for clients whose buffers are full.
func (h *Hub) Publish(eventType string, payload interface{}, audiences ...string) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[WS] marshal payload: %v", err)
		return
	}
	frame, err := json.Marshal(WSMessage{Type: eventType, Payload: body})
	if err != nil {
		return
	}

	h.mu.RLock()
	targets := make(map[string]*Client)
	for _, audience := range audiences {
		for id, c := range h.audiences[audience] {
			targets[id] = c
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.send <- frame:
		default:
			// Slow subscriber: drop, it reconciles on reconnect.
		}
	}
}

// BroadcastNewMessage implements interfaces.Broadcaster. Called only after
// the message is durably persisted.
func (h *Hub) BroadcastNewMessage(conv *entities.Conversation, msg entities.Message) {
	h.Publish(EventNewMessage, gin.H{
		"conversation_id":  conv.ID,
		"platform":         conv.Platform,
		"customer_id":      conv.CustomerID,
		"status":           conv.Status,
		"ai_responses":     conv.AIResponses,
		"human_responses":  conv.HumanResponses,
		"last_activity_at": conv.LastActivityAt,
		"message":          msg,
	}, AudienceAgents, ConversationAudience(conv.ID))
}

// BroadcastStatus implements interfaces.Broadcaster.
func (h *Hub) BroadcastStatus(conv *entities.Conversation) {
	h.Publish(EventStatus, gin.H{
		"conversation_id": conv.ID,
		"status":          conv.Status,
	}, AudienceAgents, ConversationAudience(conv.ID))
}

// BroadcastAssignment implements interfaces.Broadcaster.
func (h *Hub) BroadcastAssignment(conv *entities.Conversation) {
	h.Publish(EventAssignment, gin.H{
		"conversation_id": conv.ID,
		"assigned_agent":  conv.AssignedAgent,
	}, AudienceAgents, ConversationAudience(conv.ID))
}

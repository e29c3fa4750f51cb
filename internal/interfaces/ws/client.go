package ws

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	maxMsgSize = 4096
)

// Client is one connected dashboard session.
type Client struct {
	ID      string
	AgentID int
	conn    *websocket.Conn
	send    chan []byte
	hub     *Hub
}

type joinPayload struct {
	ConversationID int `json:"conversation_id"`
}

func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
		log.Printf("[WS] client disconnected: %s", c.ID)
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] read error: %v", err)
			}
			break
		}
		c.handleFrame(data)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleFrame(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("[WS] invalid frame: %v", err)
		return
	}

	switch msg.Type {
	case "join":
		var p joinPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil || p.ConversationID == 0 {
			return
		}
		c.hub.join(c, ConversationAudience(p.ConversationID))

	case "leave":
		var p joinPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil || p.ConversationID == 0 {
			return
		}
		c.hub.leave(c, ConversationAudience(p.ConversationID))

	case "ping":
		reply, _ := json.Marshal(WSMessage{Type: "pong"})
		select {
		case c.send <- reply:
		default:
		}

	default:
		log.Printf("[WS] unknown frame type: %s", msg.Type)
	}
}

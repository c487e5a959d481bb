// internal/editor/client.go
package editor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512 * 1024 // 512KB
)

var (
	newline = []byte{'\n'}
	space   = []byte{' '}
)

// Client represents a connected peer
type Client struct {
	// Unique identifier
	id string

	// The site id this peer's engine stamps onto operations
	siteID int

	// The hub that manages this client
	hub *Hub

	// The websocket connection
	conn *websocket.Conn

	// Buffered channel of outbound messages
	send chan []byte

	// Document this client is editing
	documentID string

	// Reference to the service
	service *Service

	// User information
	username string
	color    string // For cursor color
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Websocket error: %v", err)
			}
			break
		}

		message = bytes.TrimSpace(bytes.Replace(message, newline, space, -1))

		c.processMessage(message)
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
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

// processMessage processes incoming messages from the client
func (c *Client) processMessage(message []byte) {
	var msg Message
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Printf("Error unmarshaling message: %v", err)
		c.sendError("Invalid message format")
		return
	}

	// Add metadata to message
	msg.ClientID = c.id
	msg.DocumentID = c.documentID

	if c.service != nil {
		c.service.metrics.mu.Lock()
		c.service.metrics.MessagesReceived++
		c.service.metrics.mu.Unlock()
	}

	switch msg.Type {
	case "transaction":
		c.handleTransaction(msg)

	case "cursor_position":
		c.handleCursorPosition(msg)

	case "selection":
		c.handleSelection(msg)

	case "request_document":
		c.handleDocumentRequest(msg)

	case "ping":
		// Just a keepalive, no action needed
		return

	default:
		log.Printf("Unknown message type: %s", msg.Type)
		c.sendError(fmt.Sprintf("Unknown message type: %s", msg.Type))
	}
}

// handleTransaction integrates an operation transaction into the document
// session and relays it to the other peers. The peers receive the
// author's original transaction, not the server's transformed version;
// each engine positions it against its own history.
func (c *Client) handleTransaction(msg Message) {
	if msg.Transaction == nil {
		c.sendError("Transaction message without transaction payload")
		return
	}

	if c.service != nil {
		if err := c.service.HandleTransaction(c.documentID, *msg.Transaction); err != nil {
			log.Printf("Error integrating transaction from %s: %v", c.id, err)
			c.sendError("Failed to integrate transaction")
			return
		}
		c.service.persistTransaction(c.documentID, c.siteID, *msg.Transaction)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error marshaling transaction: %v", err)
		return
	}

	c.hub.broadcast <- data

	if c.service != nil {
		c.service.metrics.mu.Lock()
		c.service.metrics.MessagesSent++
		c.service.metrics.mu.Unlock()
	}

	log.Printf("Client %s sent transaction for doc %s", c.id, c.documentID)
}

// handleCursorPosition handles cursor position updates
func (c *Client) handleCursorPosition(msg Message) {
	if c.service != nil {
		if tracker := c.service.Presence(c.documentID); tracker != nil {
			tracker.UpdateCursor(c.id, c.username, c.color, msg.Position)
		}
	}

	msg.Data = map[string]interface{}{
		"userId":   c.id,
		"username": c.username,
		"color":    c.color,
		"position": msg.Position,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error marshaling cursor position: %v", err)
		return
	}

	c.hub.broadcast <- data
}

// handleSelection handles text selection updates
func (c *Client) handleSelection(msg Message) {
	var sel struct {
		Start int `json:"start"`
		End   int `json:"end"`
	}
	if selData, ok := msg.Data.(map[string]interface{}); ok {
		if start, ok := selData["start"].(float64); ok {
			sel.Start = int(start)
		}
		if end, ok := selData["end"].(float64); ok {
			sel.End = int(end)
		}
	}

	if c.service != nil {
		if tracker := c.service.Presence(c.documentID); tracker != nil {
			tracker.UpdateSelection(c.id, c.username, c.color, sel.Start, sel.End)
		}
	}

	msg.Data = map[string]interface{}{
		"userId":    c.id,
		"username":  c.username,
		"color":     c.color,
		"selection": sel,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error marshaling selection: %v", err)
		return
	}

	c.hub.broadcast <- data
}

// handleDocumentRequest handles requests for document state
func (c *Client) handleDocumentRequest(msg Message) {
	if c.service != nil {
		c.service.sendDocumentState(c, c.documentID)
	}
}

// sendInitMessage hands the client its identity and site id
func (c *Client) sendInitMessage() {
	initMsg := Message{
		Type:     "init",
		ClientID: c.id,
		SiteID:   c.siteID,
		Data: map[string]interface{}{
			"username": c.username,
			"color":    c.color,
		},
	}

	data, err := json.Marshal(initMsg)
	if err != nil {
		log.Printf("Error marshaling init message: %v", err)
		return
	}

	select {
	case c.send <- data:
	default:
		// Client not ready
	}
}

// sendError sends an error message to the client
func (c *Client) sendError(errorMsg string) {
	msg := Message{
		Type: "error",
		Data: map[string]interface{}{
			"message": errorMsg,
		},
	}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error marshaling error message: %v", err)
		return
	}

	select {
	case c.send <- data:
	default:
		// Client not ready to receive
	}
}

// SendMessage sends a message to the client
func (c *Client) SendMessage(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	select {
	case c.send <- data:
		return nil
	default:
		return fmt.Errorf("client %s not ready to receive", c.id)
	}
}

// NewClient creates a new client
func NewClient(hub *Hub, conn *websocket.Conn, service *Service, documentID string) *Client {
	clientID := uuid.New().String()

	// Generate a random color for cursor
	colors := []string{"#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4", "#FFEAA7", "#DDA0DD", "#98D8C8", "#FFA07A"}
	color := colors[time.Now().UnixNano()%int64(len(colors))]

	return &Client{
		id:         clientID[:8], // Use first 8 chars for display
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, 256),
		documentID: documentID,
		service:    service,
		username:   fmt.Sprintf("User-%s", clientID[:4]),
		color:      color,
	}
}

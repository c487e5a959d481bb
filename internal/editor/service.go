// internal/editor/service.go
package editor

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"collab-sync/internal/database"
	"collab-sync/pkg/ot"

	"github.com/gorilla/websocket"
)

// Service owns the live document sessions and the websocket plumbing
// around them.
type Service struct {
	hub      *Hub
	upgrader websocket.Upgrader
	config   *Config
	mu       sync.RWMutex
	db       *database.DB // nil means in-memory only

	// Live sessions keyed by document id, with presence alongside
	sessions map[string]*Session
	presence map[string]*PresenceTracker

	// Metrics
	metrics *Metrics
}

// Config holds service configuration
type Config struct {
	MaxMessageSize   int64
	WriteTimeout     time.Duration
	ReadTimeout      time.Duration
	PingInterval     time.Duration
	MaxClients       int
	AutoSaveInterval time.Duration
	PresenceTimeout  time.Duration
}

// Metrics tracks service performance
type Metrics struct {
	ActiveConnections      int64
	MessagesSent           int64
	MessagesReceived       int64
	TransactionsIntegrated int64
	TransactionsParked     int64
	DocumentsActive        int64
	DocumentsSaved         int64

	mu sync.RWMutex
}

// NewService creates a new editor service. db may be nil for in-memory
// only operation.
func NewService(cfg *Config, db *database.DB) *Service {
	if cfg == nil {
		cfg = &Config{
			MaxMessageSize:   512 * 1024, // 512KB
			WriteTimeout:     10 * time.Second,
			ReadTimeout:      60 * time.Second,
			PingInterval:     30 * time.Second,
			MaxClients:       1000,
			AutoSaveInterval: 30 * time.Second,
			PresenceTimeout:  2 * time.Minute,
		}
	}

	return &Service{
		hub: NewHub(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// TODO: Implement proper CORS check in production
				return true
			},
		},
		config:   cfg,
		sessions: make(map[string]*Session),
		presence: make(map[string]*PresenceTracker),
		metrics:  &Metrics{},
		db:       db,
	}
}

// Start initializes and starts the service
func (s *Service) Start() error {
	log.Println("[Service] Starting editor service...")

	go s.hub.run()
	go s.autoSaveLoop()
	go s.presenceCleanupLoop()

	log.Println("[Service] Editor service started")
	return nil
}

// Shutdown gracefully shuts down the service
func (s *Service) Shutdown() {
	log.Println("[Service] Shutting down editor service...")

	s.hub.shutdown()
	s.savePendingSessions()

	if s.db != nil {
		s.db.Close()
	}

	log.Println("[Service] Editor service shut down complete")
}

// HandleWebSocket handles WebSocket upgrade requests
func (s *Service) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	docID := r.URL.Query().Get("doc")
	if docID == "" {
		http.Error(w, "Missing document ID", http.StatusBadRequest)
		return
	}

	session, err := s.GetSession(docID)
	if err != nil {
		log.Printf("[Service] Could not open session %s: %v", docID, err)
		http.Error(w, "Could not open document", http.StatusInternalServerError)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Service] WebSocket upgrade failed: %v", err)
		return
	}

	client := NewClient(s.hub, conn, s, docID)
	client.siteID = session.AllocateSiteID()

	s.hub.register <- client

	s.metrics.mu.Lock()
	s.metrics.ActiveConnections++
	s.metrics.mu.Unlock()

	go client.writePump()
	go client.readPump()

	// The init message hands the client its identity and site id; the
	// site id is what its engine stamps onto operations.
	client.sendInitMessage()
	s.sendDocumentState(client, docID)

	log.Printf("[Service] Client %s (site %d) connected for document %s", client.id, client.siteID, docID)
}

// GetSession returns the session for a document, loading it from the
// database or creating it on first use.
func (s *Service) GetSession(id string) (*Session, error) {
	s.mu.RLock()
	session, exists := s.sessions[id]
	s.mu.RUnlock()
	if exists {
		return session, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if session, exists = s.sessions[id]; exists {
		return session, nil
	}

	content := ""
	if s.db != nil {
		if doc, err := s.db.GetDocument(id); err != nil {
			log.Printf("[Service] Could not load document %s: %v", id, err)
		} else if doc != nil {
			content = doc.Content
			log.Printf("[Service] Loaded document %s from database (version %d)", id, doc.Version)
		}
	}

	session, err := NewSession(id, content)
	if err != nil {
		return nil, err
	}
	s.sessions[id] = session
	s.presence[id] = NewPresenceTracker()

	if s.db != nil && content == "" {
		if err := s.db.CreateDocument(id, ""); err != nil {
			log.Printf("[Service] Could not create document %s: %v", id, err)
		}
	}

	s.metrics.mu.Lock()
	s.metrics.DocumentsActive = int64(len(s.sessions))
	s.metrics.mu.Unlock()

	return session, nil
}

// Presence returns the presence tracker for a document, if the session
// is live.
func (s *Service) Presence(id string) *PresenceTracker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.presence[id]
}

// HandleTransaction integrates a client transaction into the document
// session. The original wire transaction is relayed to the other clients
// by the caller regardless of parking: each peer buffers causally early
// transactions on its own.
func (s *Service) HandleTransaction(docID string, tx ot.Transaction) error {
	session, err := s.GetSession(docID)
	if err != nil {
		return err
	}

	drained, err := session.Integrate(tx)
	if err != nil {
		if errors.Is(err, ot.ErrCausalityNotMet) {
			s.metrics.mu.Lock()
			s.metrics.TransactionsParked++
			s.metrics.mu.Unlock()
			// Parked, not failed; the dependency has just not arrived.
			return nil
		}
		return fmt.Errorf("integrating into %s: %w", docID, err)
	}

	s.metrics.mu.Lock()
	s.metrics.TransactionsIntegrated += int64(1 + drained)
	s.metrics.mu.Unlock()

	if drained > 0 {
		log.Printf("[Service] Drained %d parked transactions for document %s", drained, docID)
	}
	return nil
}

// sendDocumentState sends the current document snapshot to a client.
func (s *Service) sendDocumentState(client *Client, docID string) {
	session, err := s.GetSession(docID)
	if err != nil {
		client.sendError("Could not load document")
		return
	}
	content, version := session.Snapshot()

	msg := Message{
		Type:       "sync",
		DocumentID: docID,
		Content:    content,
		Version:    version,
	}
	if err := client.SendMessage(msg); err != nil {
		log.Printf("[Service] Could not send document state to %s: %v", client.id, err)
	}
}

// RemoveClientFromDocument clears a disconnected client's presence.
func (s *Service) RemoveClientFromDocument(client *Client) {
	if tracker := s.Presence(client.documentID); tracker != nil {
		tracker.RemoveClient(client.id)
	}

	s.metrics.mu.Lock()
	if s.metrics.ActiveConnections > 0 {
		s.metrics.ActiveConnections--
	}
	s.metrics.mu.Unlock()
}

// autoSaveLoop periodically persists dirty sessions.
func (s *Service) autoSaveLoop() {
	if s.db == nil || s.config.AutoSaveInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.config.AutoSaveInterval)
	defer ticker.Stop()

	for range ticker.C {
		s.savePendingSessions()
	}
}

// savePendingSessions writes every dirty session to the database.
func (s *Service) savePendingSessions() {
	if s.db == nil {
		return
	}

	s.mu.RLock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.mu.RUnlock()

	for _, session := range sessions {
		content, version, ok := session.NeedsSave()
		if !ok {
			continue
		}
		if err := s.db.UpdateDocument(session.ID, content, version); err != nil {
			log.Printf("[Service] Could not save document %s: %v", session.ID, err)
			continue
		}
		s.metrics.mu.Lock()
		s.metrics.DocumentsSaved++
		s.metrics.mu.Unlock()
		log.Printf("[Service] Saved document %s (version %d)", session.ID, version)
	}
}

// presenceCleanupLoop drops cursors of clients that went silent.
func (s *Service) presenceCleanupLoop() {
	if s.config.PresenceTimeout <= 0 {
		return
	}
	ticker := time.NewTicker(s.config.PresenceTimeout / 2)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.RLock()
		trackers := make([]*PresenceTracker, 0, len(s.presence))
		for _, tracker := range s.presence {
			trackers = append(trackers, tracker)
		}
		s.mu.RUnlock()

		for _, tracker := range trackers {
			tracker.CleanupStale(s.config.PresenceTimeout)
		}
	}
}

// GetMetrics returns a snapshot of the service metrics.
func (s *Service) GetMetrics() map[string]interface{} {
	s.metrics.mu.RLock()
	defer s.metrics.mu.RUnlock()

	return map[string]interface{}{
		"active_connections":      s.metrics.ActiveConnections,
		"messages_sent":           s.metrics.MessagesSent,
		"messages_received":       s.metrics.MessagesReceived,
		"transactions_integrated": s.metrics.TransactionsIntegrated,
		"transactions_parked":     s.metrics.TransactionsParked,
		"documents_active":        s.metrics.DocumentsActive,
		"documents_saved":         s.metrics.DocumentsSaved,
	}
}

// persistTransaction appends a transaction to the document's durable log.
func (s *Service) persistTransaction(docID string, siteID int, tx ot.Transaction) {
	if s.db == nil {
		return
	}
	payload, err := json.Marshal(tx)
	if err != nil {
		log.Printf("[Service] Could not marshal transaction for %s: %v", docID, err)
		return
	}
	if err := s.db.SaveTransaction(docID, siteID, payload); err != nil {
		log.Printf("[Service] Could not persist transaction for %s: %v", docID, err)
	}
}

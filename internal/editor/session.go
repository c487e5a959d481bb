// internal/editor/session.go
package editor

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"collab-sync/pkg/ot"
)

// serverSiteID is the site id the server's own engine stamps onto
// operations it authors (seeding a document, administrative edits).
// Connected clients are handed ids starting above it.
const serverSiteID = 0

// Session holds the live state of one shared document: the OT engine with
// the site history, the materialized text buffer, and the transactions
// parked because their causal dependency has not arrived yet. All engine
// and buffer access is serialized through mu.
type Session struct {
	ID string

	mu      sync.Mutex
	engine  *ot.Engine
	buffer  *ot.Buffer
	version int

	// Transactions waiting for their starting state to show up.
	pending []ot.Transaction

	nextSiteID int

	dirty     bool
	createdAt time.Time
	updatedAt time.Time
	lastSaved time.Time
}

// NewSession creates a session for a document. Non-empty initial content
// is recorded as a server-authored seed transaction so that later
// transactions have a causal anchor.
func NewSession(id, content string) (*Session, error) {
	s := &Session{
		ID:         id,
		engine:     ot.NewEngine(serverSiteID),
		buffer:     ot.NewBuffer(""),
		nextSiteID: serverSiteID + 1,
		createdAt:  time.Now(),
		updatedAt:  time.Now(),
	}
	if content != "" {
		seed := ot.Transaction{Inserts: []ot.InsertOp{{Position: 0, Value: content}}}
		if err := s.buffer.Apply(seed); err != nil {
			return nil, err
		}
		if _, err := s.engine.ProcessTransaction(seed); err != nil {
			return nil, fmt.Errorf("seeding session %s: %w", id, err)
		}
		s.version = 1
	}
	return s, nil
}

// AllocateSiteID hands out the next free site id for a joining client.
func (s *Session) AllocateSiteID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSiteID
	s.nextSiteID++
	return id
}

// Integrate folds a client transaction into the session. The transformed
// transaction is applied to the buffer and the pending queue is retried,
// since this transaction may be the dependency others were waiting for.
// Returns the number of previously parked transactions that were drained.
// On ErrCausalityNotMet the transaction is parked and the error is still
// returned.
func (s *Session) Integrate(tx ot.Transaction) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.integrateLocked(tx); err != nil {
		if errors.Is(err, ot.ErrCausalityNotMet) {
			s.pending = append(s.pending, tx.Clone())
			log.Printf("[Session %s] parked transaction, %d pending", s.ID, len(s.pending))
		}
		return 0, err
	}
	return s.drainPendingLocked(), nil
}

func (s *Session) integrateLocked(tx ot.Transaction) error {
	applied, err := s.engine.IntegrateRemote(tx)
	if err != nil {
		return err
	}
	if err := s.buffer.Apply(applied); err != nil {
		// The engine accepted the transaction but the buffer rejected the
		// result; history and buffer no longer agree.
		return fmt.Errorf("session %s diverged: %w", s.ID, err)
	}
	s.version++
	s.dirty = true
	s.updatedAt = time.Now()
	return nil
}

// drainPendingLocked retries parked transactions until a full pass makes
// no progress.
func (s *Session) drainPendingLocked() int {
	drained := 0
	for {
		progressed := false
		remaining := s.pending[:0]
		for _, tx := range s.pending {
			if err := s.integrateLocked(tx); err != nil {
				remaining = append(remaining, tx)
				continue
			}
			progressed = true
			drained++
		}
		s.pending = remaining
		if !progressed || len(s.pending) == 0 {
			return drained
		}
	}
}

// SubmitLocal runs a server-authored transaction through the engine and
// returns the wire form to broadcast to clients.
func (s *Session) SubmitLocal(tx ot.Transaction) (ot.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.buffer.Apply(tx); err != nil {
		return ot.Transaction{}, err
	}
	wire, err := s.engine.ProcessTransaction(tx)
	if err != nil {
		return ot.Transaction{}, err
	}
	s.version++
	s.dirty = true
	s.updatedAt = time.Now()
	return wire, nil
}

// Snapshot returns the current content and version.
func (s *Session) Snapshot() (string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.String(), s.version
}

// PendingCount reports how many transactions are parked.
func (s *Session) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// NeedsSave reports whether the session changed since the last save, and
// marks the save as started by clearing the dirty flag.
func (s *Session) NeedsSave() (string, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return "", 0, false
	}
	s.dirty = false
	s.lastSaved = time.Now()
	return s.buffer.String(), s.version, true
}

// internal/editor/presence.go
package editor

import (
	"sync"
	"time"
)

// CursorPosition is a user's cursor position in a document. Cursors are
// presence information only; they are broadcast as-is and never run
// through the transformation engine.
type CursorPosition struct {
	ClientID  string    `json:"clientId"`
	Username  string    `json:"username"`
	Position  int       `json:"position"`
	Color     string    `json:"color"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SelectionRange is a text selection.
type SelectionRange struct {
	ClientID string `json:"clientId"`
	Username string `json:"username"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Color    string `json:"color"`
}

// PresenceTracker keeps cursor positions and selections for a document.
type PresenceTracker struct {
	mu         sync.RWMutex
	cursors    map[string]*CursorPosition
	selections map[string]*SelectionRange
}

// NewPresenceTracker creates an empty tracker.
func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{
		cursors:    make(map[string]*CursorPosition),
		selections: make(map[string]*SelectionRange),
	}
}

// UpdateCursor records a client's cursor position.
func (p *PresenceTracker) UpdateCursor(clientID, username, color string, position int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cursors[clientID] = &CursorPosition{
		ClientID:  clientID,
		Username:  username,
		Position:  position,
		Color:     color,
		UpdatedAt: time.Now(),
	}
}

// UpdateSelection records a client's selection. An empty range clears it.
func (p *PresenceTracker) UpdateSelection(clientID, username, color string, start, end int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if start == end {
		delete(p.selections, clientID)
		return
	}
	p.selections[clientID] = &SelectionRange{
		ClientID: clientID,
		Username: username,
		Start:    start,
		End:      end,
		Color:    color,
	}
}

// RemoveClient drops a client's cursor and selection.
func (p *PresenceTracker) RemoveClient(clientID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.cursors, clientID)
	delete(p.selections, clientID)
}

// Cursors returns all cursor positions except the requesting client's.
func (p *PresenceTracker) Cursors(excludeClientID string) []CursorPosition {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var positions []CursorPosition
	for id, cursor := range p.cursors {
		if id != excludeClientID {
			positions = append(positions, *cursor)
		}
	}
	return positions
}

// Selections returns all selections except the requesting client's.
func (p *PresenceTracker) Selections(excludeClientID string) []SelectionRange {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var selections []SelectionRange
	for id, selection := range p.selections {
		if id != excludeClientID {
			selections = append(selections, *selection)
		}
	}
	return selections
}

// CleanupStale removes cursors that have not moved within the timeout.
func (p *PresenceTracker) CleanupStale(timeout time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	for id, cursor := range p.cursors {
		if now.Sub(cursor.UpdatedAt) > timeout {
			delete(p.cursors, id)
			delete(p.selections, id)
		}
	}
}

// Package session keeps per-user pending tickets between the preview
// message and the user's confirm/edit/cancel decision. State is in-memory
// only; a restart simply forgets unconfirmed tickets.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SvetlanaKrugovykh/ai-dialog/ticket"
)

type SourceType string

const (
	SourceText  SourceType = "text"
	SourceVoice SourceType = "voice"
)

// PendingTicket wraps an unconfirmed ticket. Display is the canonical
// display text and the edit source of truth; Ticket holds the values as
// classified at creation. The store hands out copies, so the ticket core
// never shares mutable state with callers.
type PendingTicket struct {
	RecordID     string
	UserID       int64
	ChatID       int64
	Ticket       ticket.Ticket
	Display      string
	Source       SourceType
	AwaitingEdit bool
	// PreviewMessageID is the Telegram message carrying the current preview,
	// so edits can update it in place. Zero when the send failed.
	PreviewMessageID int64
	CreatedAt        time.Time
	LastModified     time.Time
}

type Store struct {
	mu      sync.Mutex
	ttl     time.Duration
	records map[int64]PendingTicket
	now     func() time.Time
}

const defaultTTL = 30 * time.Minute

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{
		ttl:     ttl,
		records: make(map[int64]PendingTicket),
		now:     time.Now,
	}
}

// Put registers a new pending ticket for the user, replacing any previous
// one. It returns the stored record with its assigned record id.
func (s *Store) Put(userID, chatID int64, tk ticket.Ticket, display string, source SourceType) PendingTicket {
	now := s.now()
	rec := PendingTicket{
		RecordID:     uuid.NewString(),
		UserID:       userID,
		ChatID:       chatID,
		Ticket:       tk,
		Display:      display,
		Source:       source,
		CreatedAt:    now,
		LastModified: now,
	}
	s.mu.Lock()
	s.records[userID] = rec
	s.mu.Unlock()
	return rec
}

// Get returns the user's pending ticket, if any. Expired records are swept
// lazily here instead of by a background goroutine.
func (s *Store) Get(userID int64) (PendingTicket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	if !ok {
		return PendingTicket{}, false
	}
	if s.now().Sub(rec.LastModified) > s.ttl {
		delete(s.records, userID)
		return PendingTicket{}, false
	}
	return rec, true
}

// Update applies fn to the user's pending record and bumps LastModified.
// It reports whether a record existed.
func (s *Store) Update(userID int64, fn func(*PendingTicket)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	if !ok {
		return false
	}
	if s.now().Sub(rec.LastModified) > s.ttl {
		delete(s.records, userID)
		return false
	}
	fn(&rec)
	rec.LastModified = s.now()
	s.records[userID] = rec
	return true
}

func (s *Store) Delete(userID int64) {
	s.mu.Lock()
	delete(s.records, userID)
	s.mu.Unlock()
}

// Len is used by tests and the periodic stats log line.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

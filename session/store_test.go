package session

import (
	"testing"
	"time"

	"github.com/SvetlanaKrugovykh/ai-dialog/ticket"
)

func TestStorePutGet(t *testing.T) {
	t.Parallel()

	s := NewStore(time.Minute)
	tk := ticket.Ticket{ID: "TKT-1", Title: "Тест"}
	rec := s.Put(10, 20, tk, "display", SourceVoice)
	if rec.RecordID == "" {
		t.Fatal("record id not assigned")
	}
	if rec.Source != SourceVoice {
		t.Fatalf("source = %s", rec.Source)
	}

	got, ok := s.Get(10)
	if !ok {
		t.Fatal("record not found")
	}
	if got.Ticket.ID != "TKT-1" || got.Display != "display" || got.ChatID != 20 {
		t.Fatalf("got %+v", got)
	}
}

func TestStoreReplacesPrevious(t *testing.T) {
	t.Parallel()

	s := NewStore(time.Minute)
	s.Put(1, 1, ticket.Ticket{ID: "TKT-old"}, "", SourceText)
	s.Put(1, 1, ticket.Ticket{ID: "TKT-new"}, "", SourceText)
	got, ok := s.Get(1)
	if !ok || got.Ticket.ID != "TKT-new" {
		t.Fatalf("got %+v, ok=%v", got, ok)
	}
	if s.Len() != 1 {
		t.Fatalf("len = %d", s.Len())
	}
}

func TestStoreExpiry(t *testing.T) {
	t.Parallel()

	s := NewStore(time.Minute)
	clock := time.Date(2025, 3, 7, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	s.Put(5, 5, ticket.Ticket{ID: "TKT-1"}, "", SourceText)
	clock = clock.Add(2 * time.Minute)
	if _, ok := s.Get(5); ok {
		t.Fatal("expired record returned")
	}
	if s.Len() != 0 {
		t.Fatalf("expired record not swept, len = %d", s.Len())
	}
}

func TestStoreUpdate(t *testing.T) {
	t.Parallel()

	s := NewStore(time.Minute)
	s.Put(7, 7, ticket.Ticket{ID: "TKT-1"}, "old", SourceText)

	ok := s.Update(7, func(rec *PendingTicket) {
		rec.Display = "new"
		rec.AwaitingEdit = true
	})
	if !ok {
		t.Fatal("update reported missing record")
	}
	got, _ := s.Get(7)
	if got.Display != "new" || !got.AwaitingEdit {
		t.Fatalf("got %+v", got)
	}
	if !got.LastModified.After(got.CreatedAt) && got.LastModified == got.CreatedAt {
		// LastModified must move forward; with the real clock the two calls
		// may land on the same nanosecond, so only a regression is fatal.
		if got.LastModified.Before(got.CreatedAt) {
			t.Fatal("LastModified went backwards")
		}
	}

	if s.Update(99, func(*PendingTicket) {}) {
		t.Fatal("update invented a record")
	}
}

func TestStoreDelete(t *testing.T) {
	t.Parallel()

	s := NewStore(time.Minute)
	s.Put(3, 3, ticket.Ticket{}, "", SourceText)
	s.Delete(3)
	if _, ok := s.Get(3); ok {
		t.Fatal("deleted record still present")
	}
}

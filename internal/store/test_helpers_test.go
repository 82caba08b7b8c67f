package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/deliver/internal/ir"
)

// epoch is the fixed base time for store tests.
var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSession stores an item delivery and a session for it.
func createTestSession(t *testing.T, s *Store) ir.CandidateSession {
	t.Helper()
	ctx := context.Background()
	d := ir.Delivery{
		ID:            "d1",
		Kind:          ir.DeliveryItem,
		AssessmentRef: "choice",
		Title:         "Choice",
		Item:          &ir.ItemDeliverySettings{AllowPlayback: true, MaxAttempts: 2},
	}
	if err := s.PutDelivery(ctx, d); err != nil {
		t.Fatalf("PutDelivery() failed: %v", err)
	}
	sess, err := s.CreateSession(ctx, ir.CandidateSession{
		Token:      "tok",
		DeliveryID: d.ID,
		Kind:       d.Kind,
		CreatedAt:  epoch,
	})
	if err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
	return sess
}

// itemEvent builds a NewEvent carrying a minimal item state snapshot.
func itemEvent(t *testing.T, typ ir.ItemEventType, at time.Time) ir.NewEvent {
	t.Helper()
	state, err := ir.EncodeState(&ir.ItemSessionState{Initialized: true, EnteredAt: epoch})
	if err != nil {
		t.Fatalf("EncodeState() failed: %v", err)
	}
	return ir.NewEvent{
		Category:  ir.CategoryItem,
		ItemType:  typ,
		State:     state,
		CreatedAt: at,
	}
}

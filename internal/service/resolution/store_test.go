package resolution

import (
	"errors"
	"testing"
	"time"

	"github.com/cardline/backend/internal/model/session"
)

func newStoredSession(store *SessionStore, status session.Status) session.Session {
	sess := session.Session{
		ID:         "sess_test01",
		CustomerID: "cust_001",
		CardLast4:  "4242",
		Transcript: "my card was charged twice",
		IssueType:  session.IssueBillingDispute,
		Status:     status,
		CreatedAt:  time.Now().UTC(),
	}
	store.Create(sess)
	return sess
}

func TestStoreGetMissing(t *testing.T) {
	store := NewSessionStore(0, 0)
	defer store.Close()

	if _, err := store.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreClaimSerializes(t *testing.T) {
	store := NewSessionStore(0, 0)
	defer store.Close()
	sess := newStoredSession(store, session.StatusIntakeComplete)

	if _, err := store.Claim(sess.ID, session.StatusIntakeComplete); err != nil {
		t.Fatalf("first claim err: %v", err)
	}
	if _, err := store.Claim(sess.ID, session.StatusIntakeComplete); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second claim should lose, got %v", err)
	}
}

func TestStoreReleaseReopensClaim(t *testing.T) {
	store := NewSessionStore(0, 0)
	defer store.Close()
	sess := newStoredSession(store, session.StatusIntakeComplete)

	if _, err := store.Claim(sess.ID, session.StatusIntakeComplete); err != nil {
		t.Fatalf("claim err: %v", err)
	}
	store.Release(sess.ID)
	if _, err := store.Claim(sess.ID, session.StatusIntakeComplete); err != nil {
		t.Fatalf("claim after release err: %v", err)
	}
}

func TestStoreCompleteAppliesMutation(t *testing.T) {
	store := NewSessionStore(0, 0)
	defer store.Close()
	sess := newStoredSession(store, session.StatusIntakeComplete)

	if _, err := store.Claim(sess.ID, session.StatusIntakeComplete); err != nil {
		t.Fatalf("claim err: %v", err)
	}
	updated, err := store.Complete(sess.ID, func(s *session.Session) {
		s.Status = session.StatusCallHandled
		s.Resolution = &session.Resolution{DisputeID: "disp_1"}
	})
	if err != nil {
		t.Fatalf("complete err: %v", err)
	}
	if updated.Status != session.StatusCallHandled || updated.Resolution == nil {
		t.Fatalf("mutation not applied: %+v", updated)
	}

	// Resolution set iff status is call_handled or later.
	got, _ := store.Get(sess.ID)
	if got.Resolution == nil || got.Status != session.StatusCallHandled {
		t.Fatalf("invariant broken: %+v", got)
	}
}

func TestStoreTransitionRejectsWrongState(t *testing.T) {
	store := NewSessionStore(0, 0)
	defer store.Close()
	sess := newStoredSession(store, session.StatusIntakeComplete)

	_, err := store.Transition(sess.ID, session.StatusCallHandled, session.StatusSummaryReady)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestStoreTransitionForwardOnly(t *testing.T) {
	store := NewSessionStore(0, 0)
	defer store.Close()
	sess := newStoredSession(store, session.StatusCallHandled)

	if _, err := store.Transition(sess.ID, session.StatusCallHandled, session.StatusSummaryReady); err != nil {
		t.Fatalf("transition err: %v", err)
	}
	// Terminal: a repeat summarize transition must fail.
	if _, err := store.Transition(sess.ID, session.StatusCallHandled, session.StatusSummaryReady); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState at terminal state, got %v", err)
	}
}

func TestStoreEvictsOnlyTerminalSessions(t *testing.T) {
	store := NewSessionStore(time.Nanosecond, time.Hour)
	defer store.Close()

	terminal := newStoredSession(store, session.StatusSummaryReady)
	active := session.Session{ID: "sess_active", Status: session.StatusIntakeComplete}
	store.Create(active)

	time.Sleep(5 * time.Millisecond)
	store.evictExpired()

	if _, err := store.Get(terminal.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected terminal session evicted, got %v", err)
	}
	if _, err := store.Get(active.ID); err != nil {
		t.Fatalf("active session must survive eviction: %v", err)
	}
}

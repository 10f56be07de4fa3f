package server

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestManagerReserve(t *testing.T) {
	sm := NewSessionManager(0, quietLogger())

	want := uuid.NewString()
	id, reused, err := sm.Reserve(want)
	if err != nil || !reused || id != want {
		t.Fatalf("Reserve(valid) = %q, %v, %v", id, reused, err)
	}

	again, reused, err := sm.Reserve(want)
	if err != nil {
		t.Fatalf("Reserve(held) error = %v", err)
	}
	if reused || again == want {
		t.Errorf("Reserve(held) = %q, %v; want a fresh ID", again, reused)
	}

	fresh, reused, _ := sm.Reserve("not-a-uuid")
	if reused {
		t.Error("Reserve(invalid) reported reuse")
	}
	if _, err := uuid.Parse(fresh); err != nil {
		t.Errorf("generated ID %q is not a UUID", fresh)
	}

	sm.Release(want)
	if _, reused, _ := sm.Reserve(want); !reused {
		t.Error("released ID was not reusable")
	}
}

func TestManagerLimit(t *testing.T) {
	sm := NewSessionManager(2, quietLogger())

	a, _, _ := sm.Reserve("")
	if _, _, err := sm.Reserve(""); err != nil {
		t.Fatalf("second Reserve() error = %v", err)
	}
	if _, _, err := sm.Reserve(""); !errors.Is(err, ErrMaxSessionsReached) {
		t.Fatalf("third Reserve() error = %v, want ErrMaxSessionsReached", err)
	}

	sm.Release(a)
	if _, _, err := sm.Reserve(""); err != nil {
		t.Errorf("Reserve() after Release error = %v", err)
	}
}

func TestManagerRegisterAndShutdown(t *testing.T) {
	sm := NewSessionManager(0, quietLogger())

	id, _, _ := sm.Reserve("")
	sess := newSession(nil, sessionParams{
		id:       id,
		location: mustURL(t, "http://example.com/"),
		idle:     true,
		onClose:  func(s *Session) { sm.Remove(s.ID) },
	}, nil, quietLogger())
	sm.Register(sess)

	if sm.Get(id) != sess {
		t.Fatal("Get() did not return the registered session")
	}
	if got := sm.Stats(); got.Active != 1 || got.Peak != 1 || got.TotalCreated != 1 {
		t.Errorf("Stats() = %+v", got)
	}

	if err := sm.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if !sess.IsClosed() {
		t.Error("session not closed by Shutdown")
	}
	if sm.Count() != 0 {
		t.Errorf("Count() = %d after Shutdown", sm.Count())
	}
	if got := sm.Stats().TotalClosed; got != 1 {
		t.Errorf("TotalClosed = %d, want 1", got)
	}
}

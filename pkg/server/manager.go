package server

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/vango-dev/locsync/pkg/protocol"
)

// SessionManager tracks live sessions and enforces the session limit.
type SessionManager struct {
	sessions map[string]*Session
	reserved map[string]struct{}
	mu       sync.RWMutex

	maxSessions int

	totalCreated atomic.Uint64
	totalClosed  atomic.Uint64
	peakSessions int

	logger *slog.Logger
}

// NewSessionManager creates a SessionManager. maxSessions <= 0 means no limit.
func NewSessionManager(maxSessions int, logger *slog.Logger) *SessionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{
		sessions:    make(map[string]*Session),
		reserved:    make(map[string]struct{}),
		maxSessions: maxSessions,
		logger:      logger.With("component", "session_manager"),
	}
}

// Reserve claims a session ID and a slot under the limit. A requested ID is
// reused when it is a valid UUID not held by a live session; otherwise a new
// one is generated. The second result reports whether the requested ID was
// reused. Release or Register must follow.
func (sm *SessionManager) Reserve(requested string) (string, bool, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.maxSessions > 0 && len(sm.sessions)+len(sm.reserved) >= sm.maxSessions {
		return "", false, ErrMaxSessionsReached
	}

	id, reused := "", false
	if parsed, err := uuid.Parse(requested); err == nil {
		candidate := parsed.String()
		if !sm.inUseLocked(candidate) {
			id, reused = candidate, true
		}
	}
	if id == "" {
		for {
			id = uuid.NewString()
			if !sm.inUseLocked(id) {
				break
			}
		}
	}
	sm.reserved[id] = struct{}{}
	return id, reused, nil
}

func (sm *SessionManager) inUseLocked(id string) bool {
	if _, ok := sm.sessions[id]; ok {
		return true
	}
	_, ok := sm.reserved[id]
	return ok
}

// Release drops a reservation that did not become a session.
func (sm *SessionManager) Release(id string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.reserved, id)
}

// Register turns a reservation into a live session.
func (sm *SessionManager) Register(s *Session) {
	sm.mu.Lock()
	delete(sm.reserved, s.ID)
	sm.sessions[s.ID] = s
	if n := len(sm.sessions); n > sm.peakSessions {
		sm.peakSessions = n
	}
	sm.mu.Unlock()

	sm.totalCreated.Add(1)
	sm.logger.Info("session created",
		"session_id", s.ID,
		"active_sessions", sm.Count())
}

// Remove forgets a session. It does not close it.
func (sm *SessionManager) Remove(id string) {
	sm.mu.Lock()
	_, ok := sm.sessions[id]
	delete(sm.sessions, id)
	sm.mu.Unlock()

	if ok {
		sm.totalClosed.Add(1)
	}
}

// Get returns the live session with the given ID, or nil.
func (sm *SessionManager) Get(id string) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[id]
}

// Count returns the number of live sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// List returns the live sessions ordered by creation time.
func (sm *SessionManager) List() []*Session {
	sm.mu.RLock()
	out := make([]*Session, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		out = append(out, s)
	}
	sm.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// ManagerStats contains session statistics.
type ManagerStats struct {
	Active       int    `json:"active"`
	Peak         int    `json:"peak"`
	TotalCreated uint64 `json:"total_created"`
	TotalClosed  uint64 `json:"total_closed"`
}

// Stats returns session statistics.
func (sm *SessionManager) Stats() ManagerStats {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return ManagerStats{
		Active:       len(sm.sessions),
		Peak:         sm.peakSessions,
		TotalCreated: sm.totalCreated.Load(),
		TotalClosed:  sm.totalClosed.Load(),
	}
}

// Shutdown tells every client the server is going away, closes all
// sessions, and waits for them to finish or for ctx to expire.
func (sm *SessionManager) Shutdown(ctx context.Context) error {
	sessions := sm.List()
	for _, s := range sessions {
		s.SendClose(protocol.CloseServerShutdown, "server shutting down")
		s.Close()
	}
	for _, s := range sessions {
		select {
		case <-s.finished():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	sm.logger.Info("sessions shut down", "count", len(sessions))
	return nil
}

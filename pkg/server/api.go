package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vango-dev/locsync/pkg/journal"
	"github.com/vango-dev/locsync/pkg/location"
	"github.com/vango-dev/locsync/pkg/protocol"
)

// SessionInfo is the JSON view of a session.
type SessionInfo struct {
	ID         string       `json:"id"`
	CreatedAt  time.Time    `json:"created_at"`
	LastActive time.Time    `json:"last_active"`
	Idle       bool         `json:"idle"`
	Reload     bool         `json:"reload"`
	Location   location.URL `json:"location"`
}

// LocationPatch is the body of PATCH /_locsync/sessions/{id}/location.
// Absent fields are left alone. Fields apply in the order pathname, search,
// hash, reload; RequestReload applies last.
type LocationPatch struct {
	Pathname      *string `json:"pathname,omitempty"`
	Search        *string `json:"search,omitempty"`
	Hash          *string `json:"hash,omitempty"`
	Reload        *bool   `json:"reload,omitempty"`
	RequestReload bool    `json:"request_reload,omitempty"`
}

// Apply writes the patch to st.
func (p LocationPatch) Apply(st *location.State) {
	if p.Pathname != nil {
		st.SetPathname(*p.Pathname)
	}
	if p.Search != nil {
		st.SetSearch(*p.Search)
	}
	if p.Hash != nil {
		st.SetHash(*p.Hash)
	}
	if p.Reload != nil {
		st.SetReload(*p.Reload)
	}
	if p.RequestReload {
		st.RequestReload()
	}
}

func sessionInfo(s *Session) SessionInfo {
	return SessionInfo{
		ID:         s.ID,
		CreatedAt:  s.CreatedAt,
		LastActive: s.LastActive(),
		Idle:       s.Idle(),
		Reload:     s.state.Reload(),
		Location:   s.Snapshot(),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Count(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.Stats())
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	list := s.sessions.List()
	out := make([]SessionInfo, 0, len(list))
	for _, sess := range list {
		out = append(out, sessionInfo(sess))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Get(chi.URLParam(r, "id"))
	if sess == nil {
		writeError(w, http.StatusNotFound, ErrSessionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sessionInfo(sess))
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Get(chi.URLParam(r, "id"))
	if sess == nil {
		writeError(w, http.StatusNotFound, ErrSessionNotFound)
		return
	}
	sess.SendClose(protocol.CloseNormal, "closed by server")
	sess.Close()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateLocation(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Get(chi.URLParam(r, "id"))
	if sess == nil {
		writeError(w, http.StatusNotFound, ErrSessionNotFound)
		return
	}

	var patch LocationPatch
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64*1024))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := patch.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	err := sess.Update(r.Context(), patch.Apply)
	switch {
	case errors.Is(err, ErrSessionClosed):
		writeError(w, http.StatusGone, err)
		return
	case err != nil:
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionInfo(sess))
}

func (s *Server) handleGetJournal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if sess := s.sessions.Get(id); sess != nil && sess.recorder != nil {
		writeJSON(w, http.StatusOK, sess.Journal())
		return
	}
	if s.config.Journal == nil {
		writeError(w, http.StatusNotFound, journal.ErrNotFound)
		return
	}

	entries, err := s.config.Journal.Load(r.Context(), id)
	switch {
	case errors.Is(err, journal.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
		return
	case err != nil:
		s.logger.Error("journal load failed", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

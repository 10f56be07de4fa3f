package journal

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrNotFound is returned by Load when no journal exists for a session.
	ErrNotFound = errors.New("journal: not found")

	// ErrStoreClosed is returned when a closed store is used.
	ErrStoreClosed = errors.New("journal: store closed")
)

// Store persists session journals. Implementations must be safe for
// concurrent use.
type Store interface {
	// Save overwrites the journal for sessionID.
	Save(ctx context.Context, sessionID string, entries []Entry) error

	// Load returns the journal for sessionID or ErrNotFound.
	Load(ctx context.Context, sessionID string) ([]Entry, error)

	// Delete removes a journal. Deleting a missing journal is not an error.
	Delete(ctx context.Context, sessionID string) error

	// Close releases resources held by the store.
	Close() error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu       sync.RWMutex
	journals map[string][]Entry
	closed   bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{journals: make(map[string][]Entry)}
}

// Save implements Store.
func (m *MemoryStore) Save(ctx context.Context, sessionID string, entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	m.journals[sessionID] = append([]Entry(nil), entries...)
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(ctx context.Context, sessionID string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	entries, ok := m.journals[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]Entry(nil), entries...), nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	delete(m.journals, sessionID)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.journals = nil
	return nil
}

// Len returns the number of stored journals.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.journals)
}

// Package session owns the single durable session identifier and the boot
// state machine that acquires it.
package session

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// DefaultKey is the storage key under which the identifier is kept.
const DefaultKey = "roombot_session_id"

// ErrNotFound is returned by a Store that holds no identifier.
var ErrNotFound = errors.New("session id not found")

// Store persists exactly one opaque session identifier.
//
// Get returns ErrNotFound when the identifier is absent or blank. Any other
// error means the storage itself is unavailable.
type Store interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	Close() error
}

func normalizeID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrNotFound
	}
	return id, nil
}

// MemoryStore keeps the identifier for the lifetime of the process.
type MemoryStore struct {
	mu sync.Mutex
	id string
}

var _ Store = &MemoryStore{}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Get(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return normalizeID(s.id)
}

func (s *MemoryStore) Set(_ context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("memory store: empty session id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = ""
	return nil
}

func (s *MemoryStore) Close() error { return nil }

package statestore

import (
	"context"
	"sync"
	"time"

	"shopify-integration-layer/internal/domain"
	"shopify-integration-layer/internal/ports"
)

// MemoryStateStore is used when no Redis is configured. States do not
// survive a restart and are not shared between instances.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]memoryEntry
	now    func() time.Time
}

type memoryEntry struct {
	state     domain.OAuthState
	expiresAt time.Time
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{
		states: make(map[string]memoryEntry),
		now:    time.Now,
	}
}

func (s *MemoryStateStore) Save(_ context.Context, state *domain.OAuthState, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.evictExpired(now)
	s.states[state.State] = memoryEntry{state: *state, expiresAt: now.Add(ttl)}
	return nil
}

func (s *MemoryStateStore) Consume(_ context.Context, state string) (*domain.OAuthState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.states[state]
	if !ok {
		return nil, nil
	}
	delete(s.states, state)

	now := s.now()
	if !now.Before(entry.expiresAt) || entry.state.Expired(now) {
		return nil, nil
	}
	out := entry.state
	return &out, nil
}

func (s *MemoryStateStore) evictExpired(now time.Time) {
	for k, e := range s.states {
		if !now.Before(e.expiresAt) {
			delete(s.states, k)
		}
	}
}

// MemoryLocker serializes holders within one process
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]memoryHold
	seq  uint64
	now  func() time.Time
}

type memoryHold struct {
	token uint64
	until time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]memoryHold), now: time.Now}
}

func (l *MemoryLocker) TryLock(_ context.Context, key string, ttl time.Duration) (ports.Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if h, ok := l.held[key]; ok && now.Before(h.until) {
		return nil, nil
	}
	l.seq++
	l.held[key] = memoryHold{token: l.seq, until: now.Add(ttl)}
	return &memoryLease{locker: l, key: key, token: l.seq}, nil
}

type memoryLease struct {
	locker *MemoryLocker
	key    string
	token  uint64
}

func (m *memoryLease) Extend(_ context.Context, ttl time.Duration) (bool, error) {
	l := m.locker
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	h, ok := l.held[m.key]
	if !ok || h.token != m.token || !now.Before(h.until) {
		return false, nil
	}
	l.held[m.key] = memoryHold{token: m.token, until: now.Add(ttl)}
	return true, nil
}

func (m *memoryLease) Release(context.Context) error {
	l := m.locker
	l.mu.Lock()
	defer l.mu.Unlock()
	if h, ok := l.held[m.key]; ok && h.token == m.token {
		delete(l.held, m.key)
	}
	return nil
}

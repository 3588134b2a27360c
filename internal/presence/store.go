package presence

import (
	"sync"
	"time"

	"github.com/callwatch/backend/internal/types"
)

// Store holds the ephemeral per-agent presence facts. Entries expire
// after the configured TTL so agents that silently vanish do not pin
// stale facts forever; expiry is checked on read and by Sweep.
type Store struct {
	facts map[string]*types.PresenceFact // agentCode -> fact
	ttl   time.Duration
	mu    sync.RWMutex
	now   func() time.Time
}

// NewStore creates a presence store. ttl <= 0 disables expiry.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		facts: make(map[string]*types.PresenceFact),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Update mutates the fact for code through fn, creating it first if needed
func (s *Store) Update(code string, fn func(fact *types.PresenceFact)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fact, ok := s.facts[code]
	if !ok {
		fact = &types.PresenceFact{
			AgentCode: code,
			Status:    types.StatusOffline,
		}
		s.facts[code] = fact
	}
	fn(fact)
	fact.UpdatedAt = s.now()
}

// Get returns a copy of the fact for code
func (s *Store) Get(code string) (types.PresenceFact, bool) {
	s.mu.RLock()
	fact, ok := s.facts[code]
	s.mu.RUnlock()

	if !ok {
		return types.PresenceFact{}, false
	}
	if s.expired(fact) {
		s.mu.Lock()
		// Re-check under the write lock; the fact may have been touched
		if f, still := s.facts[code]; still && s.expired(f) {
			delete(s.facts, code)
		}
		s.mu.Unlock()
		return types.PresenceFact{}, false
	}
	return *fact, true
}

// All returns copies of all unexpired facts
func (s *Store) All() []types.PresenceFact {
	s.mu.RLock()
	defer s.mu.RUnlock()

	facts := make([]types.PresenceFact, 0, len(s.facts))
	for _, fact := range s.facts {
		if s.expired(fact) {
			continue
		}
		facts = append(facts, *fact)
	}
	return facts
}

// Delete removes the fact for code
func (s *Store) Delete(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.facts, code)
}

// Sweep drops expired facts, returning how many were removed
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for code, fact := range s.facts {
		if s.expired(fact) {
			delete(s.facts, code)
			removed++
		}
	}
	return removed
}

// Clear drops all facts, returning how many were removed
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.facts)
	s.facts = make(map[string]*types.PresenceFact)
	return n
}

// Count returns the number of unexpired facts
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, fact := range s.facts {
		if !s.expired(fact) {
			n++
		}
	}
	return n
}

func (s *Store) expired(fact *types.PresenceFact) bool {
	if s.ttl <= 0 {
		return false
	}
	return s.now().Sub(fact.UpdatedAt) > s.ttl
}

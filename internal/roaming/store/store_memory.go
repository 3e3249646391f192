package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"exposure/internal/roaming/models"
)

// InMemoryStore keeps the last sighting of each country code in memory.
type InMemoryStore struct {
	mu    sync.RWMutex
	codes map[string]time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{codes: make(map[string]time.Time)}
}

// Upsert records a sighting; an older sighting never replaces a newer one.
func (s *InMemoryStore) Upsert(_ context.Context, code models.CountryCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.codes[code.Code]; ok && prev.After(code.LastSeen) {
		return nil
	}
	s.codes[code.Code] = code.LastSeen
	return nil
}

func (s *InMemoryStore) DeleteSeenBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for code, seen := range s.codes {
		if seen.Before(cutoff) {
			delete(s.codes, code)
			deleted++
		}
	}
	return deleted, nil
}

// ListSeenSince returns codes seen at or after since, most recent first.
func (s *InMemoryStore) ListSeenSince(_ context.Context, since time.Time) ([]models.CountryCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.CountryCode, 0, len(s.codes))
	for code, seen := range s.codes {
		if seen.Before(since) {
			continue
		}
		out = append(out, models.CountryCode{Code: code, LastSeen: seen})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastSeen.Equal(out[j].LastSeen) {
			return out[i].Code > out[j].Code
		}
		return out[i].LastSeen.After(out[j].LastSeen)
	})
	return out, nil
}

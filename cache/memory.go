package cache

import (
	"context"
	"sync"
	"time"

	"github.com/cheapflightsfrom/backend/logging"
)

// MemoryStore is a process-local Store with a tag index.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	tags    map[string]map[string]struct{}
}

// NewMemoryStore returns an empty MemoryStore. Expired entries stay until read past
// their expiry or removed by Sweep.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]Entry),
		tags:    make(map[string]map[string]struct{}),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	return e, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, e Entry) error {
	// Entries are replaced whole; callers never see a half-built value.
	e.Value = append([]byte(nil), e.Value...)
	e.Tags = append([]string(nil), e.Tags...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.unlinkLocked(key)
	s.entries[key] = e
	for _, t := range e.Tags {
		keys, ok := s.tags[t]
		if !ok {
			keys = make(map[string]struct{})
			s.tags[t] = keys
		}
		keys[key] = struct{}{}
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unlinkLocked(key)
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) InvalidateTag(_ context.Context, tag string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := s.tags[tag]
	n := 0
	for key := range keys {
		if _, ok := s.entries[key]; ok {
			s.unlinkLocked(key)
			delete(s.entries, key)
			n++
		}
	}
	delete(s.tags, tag)
	return n, nil
}

// Len returns the number of stored entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Sweep removes entries expired at now and returns how many were dropped.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key, e := range s.entries {
		if e.Expired(now) {
			s.unlinkLocked(key)
			delete(s.entries, key)
			n++
		}
	}
	return n
}

// StartJanitor sweeps expired entries every interval until ctx is done.
func (s *MemoryStore) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	log := logging.With("cache")
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := s.Sweep(now); n > 0 {
					log.Debug().Int("removed", n).Msg("swept expired cache entries")
				}
			}
		}
	}()
}

// unlinkLocked drops key from every tag set it belongs to.
func (s *MemoryStore) unlinkLocked(key string) {
	old, ok := s.entries[key]
	if !ok {
		return
	}
	for _, t := range old.Tags {
		if keys, ok := s.tags[t]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(s.tags, t)
			}
		}
	}
}

package store

import (
	"context"
	"sync"
	"time"

	"github.com/i474232898/weather-prediction/internal/weather"
)

// MemoryStore is a concurrency-safe in-memory cache of historical records.
type MemoryStore struct {
	mu sync.RWMutex

	// key: CacheKey.String()
	data map[string]weather.CacheEntry

	// retention configuration
	maxEntries int           // evicts the oldest entry beyond this (0 = unlimited)
	maxAge     time.Duration // entries older than this read as misses (0 = unlimited)

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
func NewMemoryStore(maxEntries int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]weather.CacheEntry),
		maxEntries: maxEntries,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// Get returns the record stored under key.
func (s *MemoryStore) Get(_ context.Context, key weather.CacheKey) (weather.HistoricalRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.data[key.String()]
	if !ok {
		return weather.HistoricalRecord{}, false, nil
	}
	if s.maxAge > 0 && s.now().Sub(entry.StoredAt) > s.maxAge {
		return weather.HistoricalRecord{}, false, nil
	}

	rec := entry.Record
	rec.Year = key.Year
	return rec, true, nil
}

// Put stores record under key, replacing any previous value, and enforces retention.
func (s *MemoryStore) Put(ctx context.Context, key weather.CacheKey, record weather.HistoricalRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key.String()] = weather.CacheEntry{
		Key:      key,
		Record:   record,
		StoredAt: s.now(),
	}

	if s.maxEntries > 0 && len(s.data) > s.maxEntries {
		s.evictOldestLocked()
	}
	return nil
}

// Clear drops every entry.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string]weather.CacheEntry)
	return nil
}

// Prune removes entries stored more than olderThan ago.
func (s *MemoryStore) Prune(_ context.Context, olderThan time.Duration) (int, error) {
	cutoff := s.now().Add(-olderThan)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, entry := range s.data {
		if entry.StoredAt.Before(cutoff) {
			delete(s.data, k)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *MemoryStore) evictOldestLocked() {
	var (
		oldestKey string
		oldestAt  time.Time
	)
	for k, entry := range s.data {
		if oldestKey == "" || entry.StoredAt.Before(oldestAt) {
			oldestKey, oldestAt = k, entry.StoredAt
		}
	}
	delete(s.data, oldestKey)
}

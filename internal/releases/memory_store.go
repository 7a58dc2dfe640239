package releases

import (
	"context"
	"fmt"
	"sync"

	"github.com/fixturefox/fixturefox/internal/models"
)

// MemoryStore is an in-process cache store. Suitable for single-node
// deployments and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*models.CacheEntry
	index   map[string][]string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*models.CacheEntry),
		index:   make(map[string][]string),
	}
}

// PutIfAbsent stores the entry unless a live entry already holds the guid
func (s *MemoryStore) PutIfAbsent(_ context.Context, entry *models.CacheEntry) (bool, *models.CacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[entry.GUID]; ok && !existing.Expired(entry.FirstSeenAt) {
		return false, existing, nil
	}

	stored := *entry
	s.entries[entry.GUID] = &stored
	key := indexKey(models.ReleaseSearchKey{Sport: entry.Sport, Year: entry.Year, Round: entry.Round})
	if !containsGUID(s.index[key], entry.GUID) {
		s.index[key] = append(s.index[key], entry.GUID)
	}
	return true, &stored, nil
}

// Get returns the entry for a guid, or nil when absent
func (s *MemoryStore) Get(_ context.Context, guid string) (*models.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[guid]
	if !ok {
		return nil, nil
	}
	copied := *entry
	return &copied, nil
}

// ListByKey returns all entries indexed under the search key
func (s *MemoryStore) ListByKey(_ context.Context, key models.ReleaseSearchKey) ([]*models.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	guids := s.index[indexKey(key)]
	entries := make([]*models.CacheEntry, 0, len(guids))
	for _, guid := range guids {
		if entry, ok := s.entries[guid]; ok {
			copied := *entry
			entries = append(entries, &copied)
		}
	}
	return entries, nil
}

func indexKey(key models.ReleaseSearchKey) string {
	return fmt.Sprintf("%s:%d:%s", key.Sport, key.Year, key.Round)
}

func containsGUID(guids []string, guid string) bool {
	for _, g := range guids {
		if g == guid {
			return true
		}
	}
	return false
}

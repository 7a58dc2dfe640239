package releases

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fixturefox/fixturefox/internal/models"
)

// Store is the backing store for cache entries. Implementations must make
// PutIfAbsent atomic per guid so concurrent upserts of the same release
// coalesce on a single entry.
type Store interface {
	// PutIfAbsent stores the entry unless a live entry with the same guid
	// already exists; it returns the stored or existing entry
	PutIfAbsent(ctx context.Context, entry *models.CacheEntry) (bool, *models.CacheEntry, error)
	// Get returns the entry for a guid, or nil when absent
	Get(ctx context.Context, guid string) (*models.CacheEntry, error)
	// ListByKey returns entries indexed under the search key, including
	// entries that may have expired since insertion
	ListByKey(ctx context.Context, key models.ReleaseSearchKey) ([]*models.CacheEntry, error)
}

// Cache coalesces releases seen across repeated queries within a TTL
// window. When multiple monitored events would trigger near-duplicate
// queries in the same cycle, later callers reuse the first caller's
// fetched result instead of re-querying the source.
type Cache struct {
	store  Store
	ttl    time.Duration
	logger *logrus.Logger
}

// NewCache creates a release cache over the given store
func NewCache(store Store, ttl time.Duration, logger *logrus.Logger) *Cache {
	return &Cache{store: store, ttl: ttl, logger: logger}
}

// Upsert records a sighting of the candidate's guid. The first sighting
// within the TTL window creates the entry; repeats return the existing one
// with isNew false.
func (c *Cache) Upsert(ctx context.Context, candidate *models.ReleaseCandidate, now time.Time) (bool, *models.CacheEntry, error) {
	entry := &models.CacheEntry{
		GUID:            candidate.GUID,
		NormalizedTitle: NormalizeTitle(candidate.Title),
		Sport:           candidate.Sport,
		Year:            candidate.Year,
		Round:           candidate.Round,
		Candidate:       *candidate,
		FirstSeenAt:     now,
		ExpiresAt:       now.Add(c.ttl),
	}

	if existing, err := c.store.Get(ctx, candidate.GUID); err != nil {
		return false, nil, err
	} else if existing != nil && existing.Expired(now) {
		// A stale entry counts as absent; the new sighting replaces it
		existing = nil
	} else if existing != nil {
		return false, existing, nil
	}

	isNew, stored, err := c.store.PutIfAbsent(ctx, entry)
	if err != nil {
		return false, nil, err
	}
	if isNew {
		c.logger.WithFields(logrus.Fields{
			"guid":    candidate.GUID,
			"expires": entry.ExpiresAt,
		}).Debug("Release cached")
	}
	return isNew, stored, nil
}

// Lookup returns live entries for the search key. Entries past their
// expiry are filtered out even if not yet physically evicted.
func (c *Cache) Lookup(ctx context.Context, key models.ReleaseSearchKey, now time.Time) ([]*models.CacheEntry, error) {
	entries, err := c.store.ListByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	live := make([]*models.CacheEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.Expired(now) {
			continue
		}
		live = append(live, entry)
	}
	return live, nil
}

// NormalizeTitle lowercases a release title and collapses separator runs so
// near-identical titles index under the same form
func NormalizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	lastSpace := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

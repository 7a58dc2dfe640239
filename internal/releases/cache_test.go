package releases

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixturefox/fixturefox/internal/models"
)

func newTestCache(ttl time.Duration) *Cache {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewCache(NewMemoryStore(), ttl, logger)
}

func cachedCandidate(guid string) *models.ReleaseCandidate {
	return &models.ReleaseCandidate{
		GUID:      guid,
		Title:     "NFL.2025.Week.05.Chiefs.vs.Bills.1080p.WEB-DL.x264-GRP",
		SourceID:  1,
		SizeBytes: 700 * 1024 * 1024,
		Quality:   models.QualityWEBDL1080p,
		Sport:     "football",
		Year:      2025,
		Round:     "5",
	}
}

func TestUpsert_FirstSightingIsNew(t *testing.T) {
	cache := newTestCache(time.Hour)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	isNew, entry, err := cache.Upsert(context.Background(), cachedCandidate("guid-1"), now)

	require.NoError(t, err)
	assert.True(t, isNew)
	require.NotNil(t, entry)
	assert.Equal(t, "guid-1", entry.GUID)
	assert.Equal(t, now.Add(time.Hour), entry.ExpiresAt)
}

func TestUpsert_RepeatWithinTTLReusesEntry(t *testing.T) {
	cache := newTestCache(time.Hour)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, first, err := cache.Upsert(ctx, cachedCandidate("guid-1"), now)
	require.NoError(t, err)

	// Same guid seen again ten minutes later
	isNew, second, err := cache.Upsert(ctx, cachedCandidate("guid-1"), now.Add(10*time.Minute))

	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, first.FirstSeenAt, second.FirstSeenAt, "the first sighting's entry is reused")
}

func TestUpsert_ExpiredEntryReplaced(t *testing.T) {
	cache := newTestCache(time.Hour)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, _, err := cache.Upsert(ctx, cachedCandidate("guid-1"), now)
	require.NoError(t, err)

	later := now.Add(2 * time.Hour)
	isNew, entry, err := cache.Upsert(ctx, cachedCandidate("guid-1"), later)

	require.NoError(t, err)
	assert.True(t, isNew, "a stale entry counts as absent")
	assert.Equal(t, later, entry.FirstSeenAt)
}

func TestLookup_FiltersExpiredEntries(t *testing.T) {
	cache := newTestCache(time.Hour)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, _, err := cache.Upsert(ctx, cachedCandidate("guid-1"), now)
	require.NoError(t, err)
	fresh := cachedCandidate("guid-2")
	_, _, err = cache.Upsert(ctx, fresh, now.Add(90*time.Minute))
	require.NoError(t, err)

	key := models.ReleaseSearchKey{Sport: "football", Year: 2025, Round: "5"}

	// At +95 minutes guid-1 has expired, guid-2 is live
	live, err := cache.Lookup(ctx, key, now.Add(95*time.Minute))
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, "guid-2", live[0].GUID)
}

func TestLookup_NeverReturnsStale(t *testing.T) {
	cache := newTestCache(30 * time.Minute)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, _, err := cache.Upsert(ctx, cachedCandidate("guid-1"), now)
	require.NoError(t, err)

	key := models.ReleaseSearchKey{Sport: "football", Year: 2025, Round: "5"}

	for _, offset := range []time.Duration{0, 10 * time.Minute, 29 * time.Minute} {
		live, err := cache.Lookup(ctx, key, now.Add(offset))
		require.NoError(t, err)
		assert.Len(t, live, 1, "entry live at +%s", offset)
	}
	for _, offset := range []time.Duration{31 * time.Minute, 2 * time.Hour} {
		live, err := cache.Lookup(ctx, key, now.Add(offset))
		require.NoError(t, err)
		assert.Empty(t, live, "entry expired at +%s", offset)
	}
}

func TestUpsert_ConcurrentSameGUIDCoalesces(t *testing.T) {
	cache := newTestCache(time.Hour)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var mu sync.Mutex
	newCount := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			isNew, _, err := cache.Upsert(ctx, cachedCandidate("guid-1"), now)
			require.NoError(t, err)
			if isNew {
				mu.Lock()
				newCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, newCount, "exactly one upsert wins")
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"NFL.2025.Week.05.1080p.WEB-DL.x264-GRP", "nfl 2025 week 05 1080p web dl x264 grp"},
		{"NFL 2025  Week_05", "nfl 2025 week 05"},
		{"  Leading.Trailing.  ", "leading trailing"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeTitle(tt.in))
	}
}

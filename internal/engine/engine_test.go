package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fixturefox/fixturefox/internal/formats"
	"github.com/fixturefox/fixturefox/internal/imports"
	"github.com/fixturefox/fixturefox/internal/models"
	"github.com/fixturefox/fixturefox/internal/parser"
	"github.com/fixturefox/fixturefox/internal/profiles"
	"github.com/fixturefox/fixturefox/internal/releases"
	"github.com/fixturefox/fixturefox/internal/sources"
	"github.com/fixturefox/fixturefox/internal/testutil"
)

// capturingPublisher records published events for assertions
type capturingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *capturingPublisher) Publish(eventType string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
}

func (p *capturingPublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e == eventType {
			n++
		}
	}
	return n
}

type engineFixture struct {
	engine    *Engine
	blockRepo *testutil.MockBlocklistRepository
	eventRepo *testutil.MockEventRepository
	pendRepo  *testutil.MockPendingImportRepository
	srcRepo   *testutil.MockSourceRepository
	publisher *capturingPublisher
}

func newEngineFixture() *engineFixture {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	blockRepo := new(testutil.MockBlocklistRepository)
	eventRepo := new(testutil.MockEventRepository)
	pendRepo := new(testutil.MockPendingImportRepository)
	srcRepo := new(testutil.MockSourceRepository)
	publisher := &capturingPublisher{}

	eng := New(
		sources.NewHealthTracker(nil, logger),
		releases.NewCache(releases.NewMemoryStore(), time.Hour, logger),
		releases.NewBlocklist(blockRepo, logger),
		profiles.NewEvaluator(models.DefaultQualityTable(), formats.NewMatcher()),
		imports.NewMatcher(85, 10, logger),
		imports.NewPendingManager(pendRepo, logger),
		parser.NewParser(),
		srcRepo,
		eventRepo,
		publisher,
		logger,
	)

	return &engineFixture{
		engine:    eng,
		blockRepo: blockRepo,
		eventRepo: eventRepo,
		pendRepo:  pendRepo,
		srcRepo:   srcRepo,
		publisher: publisher,
	}
}

func qualityPtr(id models.QualityID) *models.QualityID { return &id }

func webProfile() *models.QualityProfile {
	return &models.QualityProfile{
		ID:   1,
		Name: "web",
		Items: []models.QualityProfileItem{
			{Allowed: true, Quality: qualityPtr(models.QualityHDTV1080p)},
			{Allowed: true, Quality: qualityPtr(models.QualityWEBDL1080p)},
		},
		CutoffRank: 15,
	}
}

func feedItem(guid, title string, sizeMB int64) *FeedItem {
	return &FeedItem{
		GUID:        guid,
		Title:       title,
		SourceID:    1,
		SizeBytes:   sizeMB * 1024 * 1024,
		Protocol:    models.ProtocolTorrent,
		PublishedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestProcessFeed_ApprovesAndSortsBestFirst(t *testing.T) {
	f := newEngineFixture()
	f.blockRepo.On("Contains", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	items := []*FeedItem{
		feedItem("guid-hdtv", "NFL.2025.Week.05.1080p.HDTV.x264-GRP", 300),
		feedItem("guid-webdl", "NFL.2025.Week.05.1080p.WEB-DL.x264-GRP", 300),
	}

	evaluations, approved, err := f.engine.ProcessFeed(context.Background(), items, webProfile(), nil, now)

	require.NoError(t, err)
	assert.Len(t, evaluations, 2)
	require.Len(t, approved, 2)
	assert.Equal(t, "guid-webdl", approved[0].GUID, "higher quality sorts first")
	assert.Equal(t, "guid-hdtv", approved[1].GUID)
	assert.Equal(t, 2, f.publisher.count(EventReleaseApproved))
}

func TestProcessFeed_UnparsableTitleDegradesToRejection(t *testing.T) {
	f := newEngineFixture()
	f.blockRepo.On("Contains", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	items := []*FeedItem{
		feedItem("guid-bad", "not a real release title", 300),
		feedItem("guid-good", "NFL.2025.Week.05.1080p.WEB-DL.x264-GRP", 300),
	}

	evaluations, approved, err := f.engine.ProcessFeed(context.Background(), items, webProfile(), nil, now)

	require.NoError(t, err, "one bad item never aborts the batch")
	require.Len(t, evaluations, 2)
	assert.Len(t, approved, 1)

	var badEval *models.ReleaseEvaluation
	for _, e := range evaluations {
		if e.GUID == "guid-bad" {
			badEval = e
		}
	}
	require.NotNil(t, badEval)
	assert.False(t, badEval.Approved)
	require.Len(t, badEval.Rejections, 1)
	assert.Equal(t, models.RejectionTitleUnparsable, badEval.Rejections[0].Reason)
}

func TestProcessFeed_BlocklistOverridesApproval(t *testing.T) {
	f := newEngineFixture()
	f.blockRepo.On("Contains", mock.Anything, "guid-webdl", int64(1)).Return(true, nil)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	items := []*FeedItem{
		feedItem("guid-webdl", "NFL.2025.Week.05.1080p.WEB-DL.x264-GRP", 300),
	}

	evaluations, approved, err := f.engine.ProcessFeed(context.Background(), items, webProfile(), nil, now)

	require.NoError(t, err)
	assert.Empty(t, approved)
	require.Len(t, evaluations, 1)
	assert.False(t, evaluations[0].Approved)
	require.Len(t, evaluations[0].Rejections, 1)
	assert.Equal(t, models.RejectionBlocklisted, evaluations[0].Rejections[0].Reason)
	assert.Equal(t, 1, f.publisher.count(EventReleaseRejected))
}

func TestProcessFeed_DuplicateGUIDReusesCachedCandidate(t *testing.T) {
	f := newEngineFixture()
	f.blockRepo.On("Contains", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	item := feedItem("guid-webdl", "NFL.2025.Week.05.1080p.WEB-DL.x264-GRP", 300)

	_, _, err := f.engine.ProcessFeed(context.Background(), []*FeedItem{item}, webProfile(), nil, now)
	require.NoError(t, err)

	// Same guid again within the TTL window
	_, approved, err := f.engine.ProcessFeed(context.Background(), []*FeedItem{item}, webProfile(), nil, now.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Len(t, approved, 1, "duplicate still evaluates against the cached entry")
}

func TestRecordQueryOutcome_RoutesErrorTaxonomy(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Transient network errors count on the connection track only
	f.engine.RecordQueryOutcome(ctx, 1, &models.TransientNetworkError{Err: errors.New("timeout")}, now)
	health := f.engine.Tracker().Health(1)
	assert.Equal(t, 1, health.ConnectionFailures)
	assert.Zero(t, health.Query.Failures)
	assert.True(t, f.engine.Tracker().IsQueryEligible(1, nil, now))

	// Rate-limit signals set the throttle window, not a failure
	f.engine.RecordQueryOutcome(ctx, 1, &models.RateLimitedError{SourceID: 1, RetryAfter: now.Add(time.Hour)}, now)
	assert.False(t, f.engine.Tracker().IsQueryEligible(1, nil, now))
	health = f.engine.Tracker().Health(1)
	assert.Zero(t, health.Query.Failures)

	// Source rejections escalate the query track
	f.engine.RecordQueryOutcome(ctx, 2, &models.SourceRejectionError{SourceID: 2, Message: "HTTP 500"}, now)
	health = f.engine.Tracker().Health(2)
	assert.Equal(t, 1, health.Query.Failures)
	assert.Equal(t, 1, f.publisher.count(EventSourceDisabled))

	// Success resets the track
	f.engine.RecordQueryOutcome(ctx, 2, nil, now.Add(time.Hour))
	assert.Zero(t, f.engine.Tracker().Health(2).Query.Failures)
}

func TestIsGrabEligible_UsesConfiguredLimit(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 10, 0, 0, time.UTC)

	limit := 1
	f.srcRepo.On("GetByID", mock.Anything, int64(1)).
		Return(&models.Source{ID: 1, GrabLimitPerHour: &limit}, nil)

	assert.True(t, f.engine.IsGrabEligible(ctx, 1, now))
	f.engine.Tracker().RecordGrabAttempt(ctx, 1, now)
	assert.False(t, f.engine.IsGrabEligible(ctx, 1, now))
}

func TestMatchImport_AutoPublishesMatch(t *testing.T) {
	f := newEngineFixture()
	now := time.Date(2025, 10, 5, 20, 0, 0, 0, time.UTC)

	event := &models.Event{
		ID:          1,
		Title:       "Chiefs vs Bills",
		ScheduledAt: now.Add(-2 * time.Hour),
		Monitored:   true,
	}
	f.eventRepo.On("ListCandidates", mock.Anything, mock.Anything, mock.Anything).
		Return([]*models.Event{event}, nil)

	file := &models.ImportCandidate{
		Path:        "/downloads/chiefs.mkv",
		ParsedTitle: "Chiefs vs Bills",
		Quality:     models.QualityWEBDL1080p,
		ModifiedAt:  now,
	}

	decision, err := f.engine.MatchImport(context.Background(), file, now)

	require.NoError(t, err)
	assert.Equal(t, models.ImportActionAuto, decision.Action)
	assert.Equal(t, 1, f.publisher.count(EventImportMatched))
	f.pendRepo.AssertNotCalled(t, "Create")
}

func TestMatchImport_LowConfidenceQueuesPending(t *testing.T) {
	f := newEngineFixture()
	now := time.Date(2025, 10, 5, 20, 0, 0, 0, time.UTC)

	event := &models.Event{
		ID:          1,
		Title:       "Chiefs vs Bills",
		ScheduledAt: now.Add(-10 * 24 * time.Hour),
		Monitored:   true,
	}
	f.eventRepo.On("ListCandidates", mock.Anything, mock.Anything, mock.Anything).
		Return([]*models.Event{event}, nil)
	f.pendRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.PendingImport")).Return(nil)

	file := &models.ImportCandidate{
		Path:        "/downloads/unknown.mkv",
		ParsedTitle: "Some Other Broadcast",
		Quality:     models.QualityWEBDL1080p,
		ModifiedAt:  now,
	}

	decision, err := f.engine.MatchImport(context.Background(), file, now)

	require.NoError(t, err)
	assert.Equal(t, models.ImportActionPending, decision.Action)
	assert.Equal(t, 1, f.publisher.count(EventImportPending))
	f.pendRepo.AssertExpectations(t)
}

func TestBlocklist_UsesDedupKey(t *testing.T) {
	f := newEngineFixture()
	hash := "hash-1"
	f.blockRepo.On("Create", mock.Anything, mock.MatchedBy(func(r *models.RejectionRecord) bool {
		return r.Key == "hash-1" && r.SourceID == 1
	})).Return(nil)

	candidate := &models.ReleaseCandidate{GUID: "guid-1", SourceID: 1, ContentHash: &hash}
	err := f.engine.Blocklist(context.Background(), candidate, "stalled", "grab never completed")

	require.NoError(t, err)
	f.blockRepo.AssertExpectations(t)
}

func TestHealthSummaries_CoversEverySource(t *testing.T) {
	f := newEngineFixture()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	f.srcRepo.On("List", mock.Anything, false).Return([]*models.Source{
		{ID: 1, Name: "alpha"},
		{ID: 2, Name: "beta"},
	}, nil)

	f.engine.Tracker().RecordFailure(context.Background(), 2, models.TrackQuery, "boom", now)

	summaries, err := f.engine.HealthSummaries(context.Background(), now)

	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.True(t, summaries[0].QueryEligible)
	assert.False(t, summaries[1].QueryEligible)
}

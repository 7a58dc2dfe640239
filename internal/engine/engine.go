package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fixturefox/fixturefox/internal/imports"
	"github.com/fixturefox/fixturefox/internal/models"
	"github.com/fixturefox/fixturefox/internal/profiles"
	"github.com/fixturefox/fixturefox/internal/releases"
	"github.com/fixturefox/fixturefox/internal/repositories"
	"github.com/fixturefox/fixturefox/internal/sources"
)

// TitleParser is the release-title parsing collaborator
type TitleParser interface {
	Parse(title string) (*models.ParsedTitle, error)
}

// Publisher receives engine events for real-time delivery. Implementations
// must not block.
type Publisher interface {
	Publish(eventType string, payload interface{})
}

// Event types published by the engine
const (
	EventReleaseApproved = "release_approved"
	EventReleaseRejected = "release_rejected"
	EventSourceDisabled  = "source_disabled"
	EventImportPending   = "import_pending"
	EventImportMatched   = "import_matched"
)

// FeedItem is one raw result from a source query, before parsing
type FeedItem struct {
	GUID        string          `json:"guid"`
	Title       string          `json:"title"`
	SourceID    int64           `json:"source_id"`
	SizeBytes   int64           `json:"size_bytes"`
	Protocol    models.Protocol `json:"protocol"`
	ContentHash *string         `json:"content_hash,omitempty"`
	Seeders     *int            `json:"seeders,omitempty"`
	Leechers    *int            `json:"leechers,omitempty"`
	PublishedAt time.Time       `json:"published_at"`
}

// Engine is the release decision core. It exposes the narrow contracts the
// rest of the system consumes: evaluation, source health, release caching,
// the rejection ledger, and import matching.
type Engine struct {
	tracker       *sources.HealthTracker
	cache         *releases.Cache
	blocklist     *releases.Blocklist
	evaluator     *profiles.Evaluator
	importMatcher *imports.Matcher
	pending       *imports.PendingManager
	parser        TitleParser
	sourceRepo    repositories.SourceRepository
	eventRepo     repositories.EventRepository
	publisher     Publisher
	logger        *logrus.Logger
}

// New creates the engine. publisher may be nil when no real-time surface
// is attached.
func New(
	tracker *sources.HealthTracker,
	cache *releases.Cache,
	blocklist *releases.Blocklist,
	evaluator *profiles.Evaluator,
	importMatcher *imports.Matcher,
	pending *imports.PendingManager,
	parser TitleParser,
	sourceRepo repositories.SourceRepository,
	eventRepo repositories.EventRepository,
	publisher Publisher,
	logger *logrus.Logger,
) *Engine {
	return &Engine{
		tracker:       tracker,
		cache:         cache,
		blocklist:     blocklist,
		evaluator:     evaluator,
		importMatcher: importMatcher,
		pending:       pending,
		parser:        parser,
		sourceRepo:    sourceRepo,
		eventRepo:     eventRepo,
		publisher:     publisher,
		logger:        logger,
	}
}

// Evaluate scores a single candidate against a profile and rule set
func (e *Engine) Evaluate(candidate *models.ReleaseCandidate, profile *models.QualityProfile, rules []*models.FormatRule) *models.ReleaseEvaluation {
	return e.evaluator.Evaluate(candidate, profile, rules)
}

// IsUpgrade reports whether candidate beats the held evaluation under the
// profile's cutoff and increment rules
func (e *Engine) IsUpgrade(profile *models.QualityProfile, heldQuality models.QualityID, held, candidate *models.ReleaseEvaluation) bool {
	return e.evaluator.IsUpgrade(profile, heldQuality, held, candidate)
}

// IsQueryEligible reports whether the source may be queried now
func (e *Engine) IsQueryEligible(ctx context.Context, sourceID int64, now time.Time) bool {
	return e.tracker.IsQueryEligible(sourceID, e.queryLimit(ctx, sourceID), now)
}

// IsGrabEligible reports whether a grab may be attempted now
func (e *Engine) IsGrabEligible(ctx context.Context, sourceID int64, now time.Time) bool {
	return e.tracker.IsGrabEligible(sourceID, e.grabLimit(ctx, sourceID), now)
}

// RecordQueryOutcome classifies the result of a query attempt onto the
// right health track. A nil error is a success; transient network errors
// go to the connection track without escalating backoff; rate-limit
// signals set the throttle window; anything else escalates the query track.
func (e *Engine) RecordQueryOutcome(ctx context.Context, sourceID int64, err error, now time.Time) {
	e.recordOutcome(ctx, sourceID, models.TrackQuery, err, now)
}

// RecordGrabOutcome is the grab-track analogue of RecordQueryOutcome
func (e *Engine) RecordGrabOutcome(ctx context.Context, sourceID int64, err error, now time.Time) {
	e.recordOutcome(ctx, sourceID, models.TrackGrab, err, now)
}

// RecordRateLimited applies an explicit throttle signal for a source
func (e *Engine) RecordRateLimited(ctx context.Context, sourceID int64, until time.Time) {
	e.tracker.RecordRateLimited(ctx, sourceID, until)
}

// CacheUpsert records a sighting of the candidate in the dedup cache
func (e *Engine) CacheUpsert(ctx context.Context, candidate *models.ReleaseCandidate, now time.Time) (bool, *models.CacheEntry, error) {
	return e.cache.Upsert(ctx, candidate, now)
}

// CacheLookup returns live cached releases for the search key
func (e *Engine) CacheLookup(ctx context.Context, key models.ReleaseSearchKey, now time.Time) ([]*models.CacheEntry, error) {
	return e.cache.Lookup(ctx, key, now)
}

// IsRejected reports whether the key is on the rejection ledger for the
// source. A true result overrides any approved evaluation.
func (e *Engine) IsRejected(ctx context.Context, key string, sourceID int64) (bool, error) {
	return e.blocklist.Contains(ctx, key, sourceID)
}

// Blocklist appends a never-re-approve record for the candidate
func (e *Engine) Blocklist(ctx context.Context, candidate *models.ReleaseCandidate, reason, message string) error {
	return e.blocklist.Add(ctx, candidate.DedupKey(), candidate.SourceID, reason, message)
}

// ProcessFeed runs the decision flow over one source's query results:
// dedup through the cache, consult the ledger, evaluate, and sort approved
// candidates best first. A bad item degrades to a rejected evaluation; it
// never aborts the batch.
func (e *Engine) ProcessFeed(ctx context.Context, items []*FeedItem, profile *models.QualityProfile, rules []*models.FormatRule, now time.Time) ([]*models.ReleaseEvaluation, []*models.ReleaseCandidate, error) {
	evaluations := make([]*models.ReleaseEvaluation, 0, len(items))
	approved := make([]*models.ReleaseCandidate, 0, len(items))
	scoreByGUID := make(map[string]int64, len(items))

	for _, item := range items {
		candidate, err := e.parseItem(item)
		if err != nil {
			eval := &models.ReleaseEvaluation{GUID: item.GUID}
			eval.Reject(models.RejectionTitleUnparsable, err.Error())
			evaluations = append(evaluations, eval)
			continue
		}

		isNew, entry, err := e.cache.Upsert(ctx, candidate, now)
		if err != nil {
			return nil, nil, fmt.Errorf("cache upsert failed: %w", err)
		}
		if !isNew {
			// Seen this cycle already; reuse the first sighting's candidate
			candidate = &entry.Candidate
		}

		blocked, err := e.blocklist.ContainsCandidate(ctx, candidate)
		if err != nil {
			return nil, nil, fmt.Errorf("blocklist check failed: %w", err)
		}

		eval := e.evaluator.Evaluate(candidate, profile, rules)
		if blocked {
			eval.Reject(models.RejectionBlocklisted, "release is on the rejection ledger")
		}
		evaluations = append(evaluations, eval)

		if eval.Approved {
			approved = append(approved, candidate)
			scoreByGUID[candidate.GUID] = eval.TotalScore
			e.publish(EventReleaseApproved, eval)
		} else {
			e.publish(EventReleaseRejected, eval)
		}
	}

	sort.SliceStable(approved, func(i, j int) bool {
		return scoreByGUID[approved[i].GUID] > scoreByGUID[approved[j].GUID]
	})
	return evaluations, approved, nil
}

// MatchImport maps a completed download onto the library. Automatic
// matches update the event; everything else lands on the pending queue for
// manual resolution.
func (e *Engine) MatchImport(ctx context.Context, file *models.ImportCandidate, now time.Time) (*models.ImportDecision, error) {
	candidates, err := e.eventRepo.ListCandidates(ctx, now.Add(-14*24*time.Hour), now.Add(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate events: %w", err)
	}

	decision := e.importMatcher.Match(file, candidates, now)
	if decision.Action == models.ImportActionAuto {
		e.publish(EventImportMatched, decision)
		return decision, nil
	}

	if _, err := e.pending.Queue(ctx, file, decision); err != nil {
		return nil, err
	}
	e.publish(EventImportPending, decision)
	return decision, nil
}

// PackStatus exposes pack-resolution progress for callers deciding when a
// pack is complete
func (e *Engine) PackStatus(groupID string) *models.PackStatus {
	return e.importMatcher.PackStatus(groupID)
}

// PendingImports returns imports awaiting resolution
func (e *Engine) PendingImports(ctx context.Context, limit int) ([]*models.PendingImport, error) {
	return e.pending.List(ctx, models.ImportStatePending, limit)
}

// ClaimImport atomically claims a pending import for processing
func (e *Engine) ClaimImport(ctx context.Context, id int64) (*models.PendingImport, error) {
	return e.pending.Claim(ctx, id)
}

// CompleteImport finishes a claimed import
func (e *Engine) CompleteImport(ctx context.Context, id int64) error {
	return e.pending.Complete(ctx, id)
}

// RejectImport abandons a claimed import
func (e *Engine) RejectImport(ctx context.Context, id int64) error {
	return e.pending.Reject(ctx, id)
}

// HealthSummaries returns the operator view of every known source
func (e *Engine) HealthSummaries(ctx context.Context, now time.Time) ([]models.SourceHealthSummary, error) {
	sourceList, err := e.sourceRepo.List(ctx, false)
	if err != nil {
		return nil, err
	}
	summaries := make([]models.SourceHealthSummary, 0, len(sourceList))
	for _, source := range sourceList {
		summaries = append(summaries, e.tracker.Summary(source.ID, source, now))
	}
	return summaries, nil
}

// Tracker exposes the health tracker for callers recording raw attempts
func (e *Engine) Tracker() *sources.HealthTracker {
	return e.tracker
}

func (e *Engine) recordOutcome(ctx context.Context, sourceID int64, track models.FailureTrack, err error, now time.Time) {
	if err == nil {
		e.tracker.RecordSuccess(ctx, sourceID, track, now)
		return
	}
	if limited, ok := models.AsRateLimited(err); ok {
		e.tracker.RecordRateLimited(ctx, sourceID, limited.RetryAfter)
		return
	}
	if models.IsTransient(err) {
		e.tracker.RecordFailure(ctx, sourceID, models.TrackConnection, err.Error(), now)
		return
	}

	var rejection *models.SourceRejectionError
	reason := err.Error()
	if errors.As(err, &rejection) {
		reason = rejection.Message
	}
	e.tracker.RecordFailure(ctx, sourceID, track, reason, now)
	e.publish(EventSourceDisabled, e.tracker.Health(sourceID))
}

func (e *Engine) parseItem(item *FeedItem) (*models.ReleaseCandidate, error) {
	parsed, err := e.parser.Parse(item.Title)
	if err != nil {
		return nil, err
	}
	return &models.ReleaseCandidate{
		GUID:         item.GUID,
		Title:        item.Title,
		SourceID:     item.SourceID,
		SizeBytes:    item.SizeBytes,
		Quality:      parsed.Quality,
		Resolution:   parsed.Resolution,
		MediaSource:  parsed.MediaSource,
		Codec:        parsed.Codec,
		ReleaseGroup: parsed.ReleaseGroup,
		Language:     parsed.Language,
		Protocol:     item.Protocol,
		ContentHash:  item.ContentHash,
		Seeders:      item.Seeders,
		Leechers:     item.Leechers,
		PublishedAt:  item.PublishedAt,
		Sport:        parsed.Sport,
		Year:         parsed.Year,
		Round:        parsed.Round,
	}, nil
}

func (e *Engine) publish(eventType string, payload interface{}) {
	if e.publisher != nil {
		e.publisher.Publish(eventType, payload)
	}
}

func (e *Engine) queryLimit(ctx context.Context, sourceID int64) *int {
	source, err := e.sourceRepo.GetByID(ctx, sourceID)
	if err != nil || source == nil {
		return nil
	}
	return source.QueryLimitPerHour
}

func (e *Engine) grabLimit(ctx context.Context, sourceID int64) *int {
	source, err := e.sourceRepo.GetByID(ctx, sourceID)
	if err != nil || source == nil {
		return nil
	}
	return source.GrabLimitPerHour
}

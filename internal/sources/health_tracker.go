package sources

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fixturefox/fixturefox/internal/models"
	"github.com/fixturefox/fixturefox/internal/repositories"
)

// Escalation ladder for query/grab failures. The window grows with the
// failure count and is capped so an outage can never silence a source
// indefinitely.
var defaultBackoffSteps = []time.Duration{
	5 * time.Minute,
	15 * time.Minute,
	30 * time.Minute,
	time.Hour,
	3 * time.Hour,
	6 * time.Hour,
	12 * time.Hour,
	24 * time.Hour,
}

// HealthTracker tracks per-source query/grab/connection failures and
// quotas. Each source's record is guarded by its own lock so concurrent
// outcomes for different sources never contend, and concurrent outcomes
// for the same source never lose updates.
type HealthTracker struct {
	healthRepo   repositories.SourceHealthRepository
	logger       *logrus.Logger
	backoffSteps []time.Duration

	mu      sync.RWMutex
	records map[int64]*trackedSource
}

type trackedSource struct {
	mu     sync.Mutex
	health models.SourceHealth
}

// NewHealthTracker creates a tracker. The repository may be nil for
// in-memory operation; when set, every state transition is persisted so
// backoff survives restarts.
func NewHealthTracker(healthRepo repositories.SourceHealthRepository, logger *logrus.Logger) *HealthTracker {
	return &HealthTracker{
		healthRepo:   healthRepo,
		logger:       logger,
		backoffSteps: defaultBackoffSteps,
		records:      make(map[int64]*trackedSource),
	}
}

// Load restores persisted health records into the tracker
func (t *HealthTracker) Load(ctx context.Context) error {
	if t.healthRepo == nil {
		return nil
	}
	records, err := t.healthRepo.List(ctx)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, health := range records {
		t.records[health.SourceID] = &trackedSource{health: *health}
	}
	t.logger.Infof("Loaded health state for %d sources", len(records))
	return nil
}

// RecordSuccess resets the failure state of the given track and updates the
// last-success timestamp
func (t *HealthTracker) RecordSuccess(ctx context.Context, sourceID int64, track models.FailureTrack, now time.Time) {
	t.withSource(ctx, sourceID, func(h *models.SourceHealth) {
		switch track {
		case models.TrackQuery:
			h.Query = models.TrackState{}
		case models.TrackGrab:
			h.Grab = models.TrackState{}
		case models.TrackConnection:
			h.ConnectionFailures = 0
			h.ConnectionLastFailure = nil
		}
		h.LastSuccessAt = &now
		h.UpdatedAt = now
	})
}

// RecordFailure escalates the backoff window of the query or grab track.
// Connection failures only increment a counter; transient network noise
// must not silence a source the way a real rejection does.
func (t *HealthTracker) RecordFailure(ctx context.Context, sourceID int64, track models.FailureTrack, reason string, now time.Time) {
	t.withSource(ctx, sourceID, func(h *models.SourceHealth) {
		h.UpdatedAt = now
		if track == models.TrackConnection {
			h.ConnectionFailures++
			h.ConnectionLastFailure = &now
			t.logger.WithFields(logrus.Fields{
				"source_id": sourceID,
				"failures":  h.ConnectionFailures,
				"reason":    reason,
			}).Debug("Connection failure recorded")
			return
		}

		state := &h.Query
		if track == models.TrackGrab {
			state = &h.Grab
		}
		state.Failures++
		window := t.backoffWindow(state.Failures)
		state.DisabledUntil = now.Add(window)
		state.LastFailureAt = &now
		state.LastFailureReason = reason

		t.logger.WithFields(logrus.Fields{
			"source_id":      sourceID,
			"track":          track,
			"failures":       state.Failures,
			"disabled_until": state.DisabledUntil,
			"reason":         reason,
		}).Warn("Source failure recorded, backoff escalated")
	})
}

// RecordRateLimited applies an explicit throttle signal, independent of the
// failure tracks
func (t *HealthTracker) RecordRateLimited(ctx context.Context, sourceID int64, until time.Time) {
	t.withSource(ctx, sourceID, func(h *models.SourceHealth) {
		if until.After(h.RateLimitedUntil) {
			h.RateLimitedUntil = until
		}
		h.UpdatedAt = time.Now()
		t.logger.WithFields(logrus.Fields{
			"source_id": sourceID,
			"until":     until,
		}).Info("Source rate limited")
	})
}

// RecordQueryAttempt counts a query against the hourly quota. Attempts
// count whether or not they succeed.
func (t *HealthTracker) RecordQueryAttempt(ctx context.Context, sourceID int64, now time.Time) {
	t.withSource(ctx, sourceID, func(h *models.SourceHealth) {
		rolloverHour(h, now)
		h.QueriesThisHour++
		h.UpdatedAt = now
	})
}

// RecordGrabAttempt counts a grab against the hourly quota
func (t *HealthTracker) RecordGrabAttempt(ctx context.Context, sourceID int64, now time.Time) {
	t.withSource(ctx, sourceID, func(h *models.SourceHealth) {
		rolloverHour(h, now)
		h.GrabsThisHour++
		h.UpdatedAt = now
	})
}

// IsQueryEligible reports whether the source may be queried at the given
// time, honoring the query backoff, the rate-limit window, and the hourly
// query quota
func (t *HealthTracker) IsQueryEligible(sourceID int64, limit *int, now time.Time) bool {
	health := t.snapshot(sourceID)
	if health.Query.DisabledUntil.After(now) {
		return false
	}
	if health.RateLimitedUntil.After(now) {
		return false
	}
	if limit != nil && hourlyCount(&health, models.TrackQuery, now) >= *limit {
		return false
	}
	return true
}

// IsGrabEligible is the grab-track analogue of IsQueryEligible
func (t *HealthTracker) IsGrabEligible(sourceID int64, limit *int, now time.Time) bool {
	health := t.snapshot(sourceID)
	if health.Grab.DisabledUntil.After(now) {
		return false
	}
	if health.RateLimitedUntil.After(now) {
		return false
	}
	if limit != nil && hourlyCount(&health, models.TrackGrab, now) >= *limit {
		return false
	}
	return true
}

// Health returns a copy of the source's current health record
func (t *HealthTracker) Health(sourceID int64) models.SourceHealth {
	return t.snapshot(sourceID)
}

// Summary builds the operator-facing view of a source's health
func (t *HealthTracker) Summary(sourceID int64, source *models.Source, now time.Time) models.SourceHealthSummary {
	health := t.snapshot(sourceID)
	var queryLimit, grabLimit *int
	if source != nil {
		queryLimit = source.QueryLimitPerHour
		grabLimit = source.GrabLimitPerHour
	}
	summary := models.SourceHealthSummary{
		SourceID:      sourceID,
		QueryEligible: t.IsQueryEligible(sourceID, queryLimit, now),
		GrabEligible:  t.IsGrabEligible(sourceID, grabLimit, now),
		LastSuccessAt: health.LastSuccessAt,
	}
	if health.Query.DisabledUntil.After(now) {
		summary.QueryDisabledFor = health.Query.DisabledUntil.Sub(now).Round(time.Second).String()
	}
	if health.Grab.DisabledUntil.After(now) {
		summary.GrabDisabledFor = health.Grab.DisabledUntil.Sub(now).Round(time.Second).String()
	}
	if health.RateLimitedUntil.After(now) {
		summary.RateLimitedFor = health.RateLimitedUntil.Sub(now).Round(time.Second).String()
	}
	return summary
}

// backoffWindow returns the escalation window for the given consecutive
// failure count. Monotonically non-decreasing, capped at the last step.
func (t *HealthTracker) backoffWindow(failures int) time.Duration {
	if failures <= 0 {
		return 0
	}
	if failures > len(t.backoffSteps) {
		return t.backoffSteps[len(t.backoffSteps)-1]
	}
	return t.backoffSteps[failures-1]
}

// withSource applies fn to the source's health record. The repository write
// happens while the record lock is still held, so snapshots reach the
// repository in the order the transitions were applied.
func (t *HealthTracker) withSource(ctx context.Context, sourceID int64, fn func(*models.SourceHealth)) {
	record := t.record(sourceID)
	record.mu.Lock()
	defer record.mu.Unlock()
	fn(&record.health)

	if t.healthRepo != nil {
		health := record.health
		if err := t.healthRepo.Upsert(ctx, &health); err != nil {
			t.logger.Errorf("Failed to persist health for source %d: %v", sourceID, err)
		}
	}
}

func (t *HealthTracker) record(sourceID int64) *trackedSource {
	t.mu.RLock()
	record, ok := t.records[sourceID]
	t.mu.RUnlock()
	if ok {
		return record
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if record, ok = t.records[sourceID]; ok {
		return record
	}
	record = &trackedSource{health: models.SourceHealth{SourceID: sourceID}}
	t.records[sourceID] = record
	return record
}

func (t *HealthTracker) snapshot(sourceID int64) models.SourceHealth {
	record := t.record(sourceID)
	record.mu.Lock()
	defer record.mu.Unlock()
	return record.health
}

// rolloverHour resets the hourly counters once the reset time has passed
// and advances the reset time by whole hours
func rolloverHour(h *models.SourceHealth, now time.Time) {
	if h.HourResetAt.IsZero() {
		h.HourResetAt = now.Truncate(time.Hour).Add(time.Hour)
		return
	}
	if now.Before(h.HourResetAt) {
		return
	}
	h.QueriesThisHour = 0
	h.GrabsThisHour = 0
	for !now.Before(h.HourResetAt) {
		h.HourResetAt = h.HourResetAt.Add(time.Hour)
	}
}

// hourlyCount returns the effective counter for eligibility checks, treating
// an elapsed reset time as zero without mutating state
func hourlyCount(h *models.SourceHealth, track models.FailureTrack, now time.Time) int {
	if !h.HourResetAt.IsZero() && !now.Before(h.HourResetAt) {
		return 0
	}
	if track == models.TrackGrab {
		return h.GrabsThisHour
	}
	return h.QueriesThisHour
}

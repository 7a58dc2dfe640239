package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/fixturefox/fixturefox/internal/engine"
	"github.com/fixturefox/fixturefox/internal/models"
	"github.com/fixturefox/fixturefox/internal/repositories"
)

// SourceQuerier fetches raw feed items from a source. Implementations talk
// to the indexer's API; errors come back classified so the engine can route
// them onto the right failure track.
type SourceQuerier interface {
	Query(ctx context.Context, source *models.Source) ([]*engine.FeedItem, error)
}

// Scheduler drives the periodic feed and health sweeps. Each feed sweep
// walks the enabled sources, skips any the engine deems ineligible, and
// runs the query results through the decision flow. All outbound queries
// share one rate limiter.
type Scheduler struct {
	engine      *engine.Engine
	sourceRepo  repositories.SourceRepository
	profileRepo repositories.ProfileRepository
	querier     SourceQuerier
	logger      *logrus.Logger

	feedInterval   time.Duration
	healthInterval time.Duration
	limiter        *rate.Limiter

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a scheduler. requestsPerMinute bounds the aggregate outbound
// query rate across all sources.
func New(
	eng *engine.Engine,
	sourceRepo repositories.SourceRepository,
	profileRepo repositories.ProfileRepository,
	querier SourceQuerier,
	feedInterval, healthInterval time.Duration,
	requestsPerMinute int,
	logger *logrus.Logger,
) *Scheduler {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 30
	}
	return &Scheduler{
		engine:         eng,
		sourceRepo:     sourceRepo,
		profileRepo:    profileRepo,
		querier:        querier,
		logger:         logger,
		feedInterval:   feedInterval,
		healthInterval: healthInterval,
		limiter:        rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1),
		stopChan:       make(chan struct{}),
	}
}

// Start launches the sweep loops
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting scheduler")

	s.wg.Add(2)
	go s.feedLoop(ctx)
	go s.healthLoop(ctx)
}

// Stop stops the sweep loops and waits for in-flight sweeps to finish
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

// feedLoop runs the periodic feed sweep
func (s *Scheduler) feedLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.feedInterval)
	defer ticker.Stop()

	// Run one sweep at startup
	s.runFeedSweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.runFeedSweep(ctx)
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// healthLoop runs the periodic health sweep
func (s *Scheduler) healthLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.healthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runHealthSweep(ctx)
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// runFeedSweep queries every eligible source and feeds the results through
// the decision flow
func (s *Scheduler) runFeedSweep(ctx context.Context) {
	if s.querier == nil {
		return
	}

	start := time.Now()

	sourceList, err := s.sourceRepo.List(ctx, true)
	if err != nil {
		s.logger.Errorf("Feed sweep: failed to list sources: %v", err)
		return
	}

	profile, rules, err := s.activeProfile(ctx)
	if err != nil {
		s.logger.Errorf("Feed sweep: failed to load active profile: %v", err)
		return
	}
	if profile == nil {
		s.logger.Debug("Feed sweep: no quality profile configured, skipping")
		return
	}

	queried, skipped := 0, 0
	for _, source := range sourceList {
		select {
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}

		now := time.Now()
		if !s.engine.IsQueryEligible(ctx, source.ID, now) {
			skipped++
			continue
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return
		}

		s.engine.Tracker().RecordQueryAttempt(ctx, source.ID, now)
		items, err := s.querier.Query(ctx, source)
		s.engine.RecordQueryOutcome(ctx, source.ID, err, time.Now())
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"source_id": source.ID,
				"source":    source.Name,
			}).Warnf("Feed sweep: query failed: %v", err)
			continue
		}
		queried++

		evaluations, approved, err := s.engine.ProcessFeed(ctx, items, profile, rules, time.Now())
		if err != nil {
			s.logger.Errorf("Feed sweep: processing failed for source %d: %v", source.ID, err)
			continue
		}

		s.logger.WithFields(logrus.Fields{
			"source_id": source.ID,
			"items":     len(items),
			"evaluated": len(evaluations),
			"approved":  len(approved),
		}).Debug("Feed sweep: source processed")
	}

	s.logger.WithFields(logrus.Fields{
		"sources":  len(sourceList),
		"queried":  queried,
		"skipped":  skipped,
		"duration": time.Since(start).String(),
	}).Info("Feed sweep completed")
}

// runHealthSweep logs an operator summary of source health
func (s *Scheduler) runHealthSweep(ctx context.Context) {
	summaries, err := s.engine.HealthSummaries(ctx, time.Now())
	if err != nil {
		s.logger.Errorf("Health sweep failed: %v", err)
		return
	}

	disabled := 0
	for _, summary := range summaries {
		if !summary.QueryEligible || !summary.GrabEligible {
			disabled++
			s.logger.WithFields(logrus.Fields{
				"source_id":          summary.SourceID,
				"query_disabled_for": summary.QueryDisabledFor,
				"grab_disabled_for":  summary.GrabDisabledFor,
				"rate_limited_for":   summary.RateLimitedFor,
			}).Warn("Source in backoff")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"sources":  len(summaries),
		"disabled": disabled,
	}).Debug("Health sweep completed")
}

// activeProfile loads the first configured quality profile and the full
// format rule set. Multi-profile routing is a per-source concern left to
// the source configuration.
func (s *Scheduler) activeProfile(ctx context.Context) (*models.QualityProfile, []*models.FormatRule, error) {
	profileList, err := s.profileRepo.ListProfiles(ctx)
	if err != nil {
		return nil, nil, err
	}
	if len(profileList) == 0 {
		return nil, nil, nil
	}

	rules, err := s.profileRepo.ListRules(ctx)
	if err != nil {
		return nil, nil, err
	}
	return profileList[0], rules, nil
}

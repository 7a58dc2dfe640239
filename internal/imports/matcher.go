package imports

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fixturefox/fixturefox/internal/models"
	"github.com/fixturefox/fixturefox/internal/releases"
)

// Confidence weights. Title similarity dominates; temporal proximity and
// pack consistency break ties between plausible events.
const (
	titleWeight    = 0.60
	temporalWeight = 0.25
	packWeight     = 0.15
)

// Matcher maps completed downloads to library events with a 0-100
// confidence score. It operates against the snapshot of candidate events
// supplied per call.
type Matcher struct {
	autoThreshold int
	margin        int
	logger        *logrus.Logger

	mu    sync.Mutex
	packs map[string]*packGroup
}

// packGroup carries the aggregate for one pack plus the per-path sets that
// keep the seen/matched counts stable under repeated Match calls for the
// same file
type packGroup struct {
	status  models.PackStatus
	seen    map[string]bool
	matched map[string]bool
}

// NewMatcher creates an import matcher. autoThreshold is the minimum
// confidence for automatic import; margin is the required separation over
// the runner-up before a single candidate may be picked automatically.
func NewMatcher(autoThreshold, margin int, logger *logrus.Logger) *Matcher {
	return &Matcher{
		autoThreshold: autoThreshold,
		margin:        margin,
		logger:        logger,
		packs:         make(map[string]*packGroup),
	}
}

// Match scores the file against every candidate event and selects the
// highest-confidence one. The result is automatic only when the confidence
// clears the threshold and no runner-up is within the separation margin;
// near-tied candidates always come back pending for manual resolution.
func (m *Matcher) Match(file *models.ImportCandidate, events []*models.Event, now time.Time) *models.ImportDecision {
	m.recordPackFile(file)

	if len(events) == 0 {
		return &models.ImportDecision{Action: models.ImportActionPending}
	}

	best, runnerUp := 0, 0
	var bestEvent *models.Event
	for _, event := range events {
		confidence := m.confidence(file, event, now)
		if confidence > best {
			runnerUp = best
			best = confidence
			bestEvent = event
		} else if confidence > runnerUp {
			runnerUp = confidence
		}
	}

	decision := &models.ImportDecision{
		Action:     models.ImportActionPending,
		Confidence: best,
		RunnerUp:   runnerUp,
	}
	if bestEvent != nil {
		decision.EventID = &bestEvent.ID
		decision.PartNumber = matchPart(file.ParsedTitle, bestEvent.Parts)
	}

	if bestEvent != nil && best >= m.autoThreshold && best-runnerUp >= m.margin {
		decision.Action = models.ImportActionAuto
		m.recordPackMatch(file)
		m.logger.WithFields(logrus.Fields{
			"path":       file.Path,
			"event_id":   bestEvent.ID,
			"confidence": best,
		}).Info("Import matched automatically")
	} else {
		m.logger.WithFields(logrus.Fields{
			"path":       file.Path,
			"confidence": best,
			"runner_up":  runnerUp,
		}).Info("Import routed to pending queue")
	}
	return decision
}

// RecordManualMatch updates pack aggregates when an operator resolves a
// pending import by hand
func (m *Matcher) RecordManualMatch(file *models.ImportCandidate) {
	m.recordPackMatch(file)
}

// PackStatus returns the aggregate for a pack group, or nil when unknown
func (m *Matcher) PackStatus(groupID string) *models.PackStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	group, ok := m.packs[groupID]
	if !ok {
		return nil
	}
	copied := group.status
	return &copied
}

// confidence combines title similarity, temporal proximity, and pack
// consistency into a 0-100 score. A file without a modification time is
// treated as arriving now.
func (m *Matcher) confidence(file *models.ImportCandidate, event *models.Event, now time.Time) int {
	fileTime := file.ModifiedAt
	if fileTime.IsZero() {
		fileTime = now
	}
	title := bestTitleSimilarity(file.ParsedTitle, event)
	temporal := temporalProximity(fileTime, event.ScheduledAt)
	pack := m.packConsistency(file)

	score := titleWeight*title + temporalWeight*temporal + packWeight*pack
	return int(math.Round(score * 100))
}

func (m *Matcher) packConsistency(file *models.ImportCandidate) float64 {
	if file.PackGroupID == nil {
		return 0.5
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	group, ok := m.packs[*file.PackGroupID]
	if !ok || group.status.ExpectedFiles == 0 {
		return 0.5
	}
	// A pack that mostly resolved already makes the remaining files more
	// credible
	return 0.5 + 0.5*float64(group.status.FilesMatched)/float64(group.status.ExpectedFiles)
}

func (m *Matcher) recordPackFile(file *models.ImportCandidate) {
	if file.PackGroupID == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	group := m.pack(*file.PackGroupID)
	if file.PackExpectedFiles > group.status.ExpectedFiles {
		group.status.ExpectedFiles = file.PackExpectedFiles
	}
	if !group.seen[file.Path] {
		group.seen[file.Path] = true
		group.status.FilesSeen++
	}
}

func (m *Matcher) recordPackMatch(file *models.ImportCandidate) {
	if file.PackGroupID == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	group, ok := m.packs[*file.PackGroupID]
	if !ok {
		return
	}
	if !group.matched[file.Path] {
		group.matched[file.Path] = true
		group.status.FilesMatched++
	}
}

// pack returns the group for the id, creating it when first seen. Callers
// hold m.mu.
func (m *Matcher) pack(groupID string) *packGroup {
	group, ok := m.packs[groupID]
	if !ok {
		group = &packGroup{
			status:  models.PackStatus{GroupID: groupID},
			seen:    make(map[string]bool),
			matched: make(map[string]bool),
		}
		m.packs[groupID] = group
	}
	return group
}

// bestTitleSimilarity scores the parsed title against the event title and
// every known alias, keeping the best result
func bestTitleSimilarity(parsed string, event *models.Event) float64 {
	best := titleSimilarity(parsed, event.Title)
	for _, alias := range event.Aliases {
		if s := titleSimilarity(parsed, alias); s > best {
			best = s
		}
	}
	return best
}

// titleSimilarity is word-overlap similarity over normalized titles, with a
// bonus when one normalized form contains the other outright
func titleSimilarity(a, b string) float64 {
	na := releases.NormalizeTitle(a)
	nb := releases.NormalizeTitle(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}

	wordsB := strings.Fields(nb)
	matched := 0
	for _, word := range wordsB {
		if containsWord(na, word) {
			matched++
		}
	}
	score := float64(matched) / float64(len(wordsB))
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		score = math.Min(1, score+0.2)
	}
	return score
}

func containsWord(haystack, word string) bool {
	for _, w := range strings.Fields(haystack) {
		if w == word {
			return true
		}
	}
	return false
}

// temporalProximity decays from 1.0 within six hours of the scheduled time
// to zero past a week
func temporalProximity(fileTime, scheduled time.Time) float64 {
	if fileTime.IsZero() || scheduled.IsZero() {
		return 0.5
	}
	delta := fileTime.Sub(scheduled)
	if delta < 0 {
		delta = -delta
	}
	switch {
	case delta <= 6*time.Hour:
		return 1.0
	case delta <= 24*time.Hour:
		return 0.8
	case delta <= 72*time.Hour:
		return 0.6
	case delta <= 7*24*time.Hour:
		return 0.3
	default:
		return 0
	}
}

// matchPart resolves the broadcast segment for multi-part events by part
// title keywords or an explicit part number in the parsed title
func matchPart(parsed string, parts []models.EventPart) *int {
	if len(parts) == 0 {
		return nil
	}
	normalized := releases.NormalizeTitle(parsed)
	for i := range parts {
		partTitle := releases.NormalizeTitle(parts[i].Title)
		if partTitle != "" && strings.Contains(normalized, partTitle) {
			return &parts[i].Number
		}
	}
	return nil
}

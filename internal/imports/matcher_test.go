package imports

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixturefox/fixturefox/internal/models"
)

func newTestMatcher() *Matcher {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewMatcher(85, 10, logger)
}

func strPtr(s string) *string { return &s }

func kickoff() time.Time {
	return time.Date(2025, 10, 5, 18, 0, 0, 0, time.UTC)
}

func chiefsBills() *models.Event {
	return &models.Event{
		ID:          1,
		Title:       "Chiefs vs Bills",
		Aliases:     []string{"Kansas City vs Buffalo"},
		Sport:       "football",
		Season:      2025,
		Round:       "5",
		ScheduledAt: kickoff(),
		Monitored:   true,
	}
}

func importFile(title string) *models.ImportCandidate {
	return &models.ImportCandidate{
		Path:        "/downloads/" + title + ".mkv",
		SizeBytes:   700 * 1024 * 1024,
		Quality:     models.QualityWEBDL1080p,
		ParsedTitle: title,
		ModifiedAt:  kickoff().Add(2 * time.Hour),
	}
}

func TestMatch_HighConfidenceSingleCandidateAutoImports(t *testing.T) {
	matcher := newTestMatcher()

	decision := matcher.Match(importFile("Chiefs vs Bills"), []*models.Event{chiefsBills()}, kickoff())

	assert.Equal(t, models.ImportActionAuto, decision.Action)
	require.NotNil(t, decision.EventID)
	assert.Equal(t, int64(1), *decision.EventID)
	assert.GreaterOrEqual(t, decision.Confidence, 85)
}

func TestMatch_AliasMatchScoresLikeTitle(t *testing.T) {
	matcher := newTestMatcher()

	decision := matcher.Match(importFile("Kansas City vs Buffalo"), []*models.Event{chiefsBills()}, kickoff())

	assert.Equal(t, models.ImportActionAuto, decision.Action)
	require.NotNil(t, decision.EventID)
	assert.Equal(t, int64(1), *decision.EventID)
}

func TestMatch_NearTieGoesPending(t *testing.T) {
	matcher := newTestMatcher()

	twin := chiefsBills()
	twin.ID = 2
	// Two events the file matches equally well
	events := []*models.Event{chiefsBills(), twin}

	decision := matcher.Match(importFile("Chiefs vs Bills"), events, kickoff())

	assert.Equal(t, models.ImportActionPending, decision.Action,
		"near-tied candidates must never be auto-picked")
	assert.Equal(t, decision.Confidence, decision.RunnerUp)
}

func TestMatch_LowConfidenceGoesPending(t *testing.T) {
	matcher := newTestMatcher()

	file := importFile("Totally Unrelated Program")
	file.ModifiedAt = kickoff().Add(30 * 24 * time.Hour)

	decision := matcher.Match(file, []*models.Event{chiefsBills()}, kickoff())

	assert.Equal(t, models.ImportActionPending, decision.Action)
	assert.Less(t, decision.Confidence, 85)
}

func TestMatch_NoCandidatesGoesPending(t *testing.T) {
	matcher := newTestMatcher()

	decision := matcher.Match(importFile("Chiefs vs Bills"), nil, kickoff())

	assert.Equal(t, models.ImportActionPending, decision.Action)
	assert.Nil(t, decision.EventID)
}

func TestMatch_TemporalDistanceLowersConfidence(t *testing.T) {
	matcher := newTestMatcher()

	near := matcher.Match(importFile("Chiefs vs Bills"), []*models.Event{chiefsBills()}, kickoff())

	far := importFile("Chiefs vs Bills")
	far.ModifiedAt = kickoff().Add(6 * 24 * time.Hour)
	farDecision := matcher.Match(far, []*models.Event{chiefsBills()}, kickoff())

	assert.Greater(t, near.Confidence, farDecision.Confidence)
}

func TestMatch_PackResolutionRaisesConfidence(t *testing.T) {
	matcher := newTestMatcher()
	event := chiefsBills()

	packFile := func(n string) *models.ImportCandidate {
		f := importFile("Chiefs vs Bills " + n)
		f.PackGroupID = strPtr("pack-1")
		f.PackExpectedFiles = 3
		return f
	}

	// First two pack members auto-match
	first := matcher.Match(packFile("part1"), []*models.Event{event}, kickoff())
	require.Equal(t, models.ImportActionAuto, first.Action)
	second := matcher.Match(packFile("part2"), []*models.Event{event}, kickoff())
	require.Equal(t, models.ImportActionAuto, second.Action)

	// With 2 of 3 resolved, the final member scores above threshold and
	// auto-imports
	third := matcher.Match(packFile("part3"), []*models.Event{event}, kickoff())
	assert.Equal(t, models.ImportActionAuto, third.Action)
	assert.GreaterOrEqual(t, third.Confidence, 85)
	assert.Greater(t, third.Confidence, first.Confidence,
		"a mostly-resolved pack makes the remaining file more credible")
}

func TestPackStatus_TracksAggregates(t *testing.T) {
	matcher := newTestMatcher()
	event := chiefsBills()

	file := importFile("Chiefs vs Bills")
	file.PackGroupID = strPtr("pack-1")
	file.PackExpectedFiles = 2
	matcher.Match(file, []*models.Event{event}, kickoff())

	status := matcher.PackStatus("pack-1")
	require.NotNil(t, status)
	assert.Equal(t, 2, status.ExpectedFiles)
	assert.Equal(t, 1, status.FilesSeen)
	assert.Equal(t, 1, status.FilesMatched)
	assert.False(t, status.Resolved())

	// Manual resolution of the second file completes the pack
	second := importFile("Chiefs vs Bills 2")
	second.PackGroupID = strPtr("pack-1")
	second.PackExpectedFiles = 2
	matcher.recordPackFile(second)
	matcher.RecordManualMatch(second)

	status = matcher.PackStatus("pack-1")
	require.NotNil(t, status)
	assert.Equal(t, 2, status.FilesSeen)
	assert.Equal(t, 2, status.FilesMatched)
	assert.True(t, status.Resolved())
}

func TestMatch_ZeroModifiedAtUsesMatchTime(t *testing.T) {
	file := importFile("Chiefs vs Bills")
	file.ModifiedAt = time.Time{}

	// Right after kickoff the file is temporally credible
	near := newTestMatcher().Match(file, []*models.Event{chiefsBills()}, kickoff().Add(2*time.Hour))
	assert.Equal(t, models.ImportActionAuto, near.Action)

	// A month later the same file is not
	far := newTestMatcher().Match(file, []*models.Event{chiefsBills()}, kickoff().Add(30*24*time.Hour))
	assert.Less(t, far.Confidence, near.Confidence)
	assert.Equal(t, models.ImportActionPending, far.Action)
}

func TestPackStatus_RepeatedMatchesOfOneFileCountOnce(t *testing.T) {
	matcher := newTestMatcher()
	event := chiefsBills()

	file := importFile("Chiefs vs Bills")
	file.PackGroupID = strPtr("pack-1")
	file.PackExpectedFiles = 3

	matcher.Match(file, []*models.Event{event}, kickoff())
	matcher.Match(file, []*models.Event{event}, kickoff())
	matcher.RecordManualMatch(file)

	status := matcher.PackStatus("pack-1")
	require.NotNil(t, status)
	assert.Equal(t, 1, status.FilesSeen, "re-matching one file must not inflate the pack")
	assert.Equal(t, 1, status.FilesMatched)
	assert.False(t, status.Resolved())
}

func TestPackStatus_UnknownGroupReturnsNil(t *testing.T) {
	assert.Nil(t, newTestMatcher().PackStatus("missing"))
}

func TestMatch_MultiPartEventResolvesPart(t *testing.T) {
	matcher := newTestMatcher()

	event := chiefsBills()
	event.Parts = []models.EventPart{
		{Number: 1, Title: "Qualifying"},
		{Number: 2, Title: "Race"},
	}

	decision := matcher.Match(importFile("Chiefs vs Bills Race"), []*models.Event{event}, kickoff())

	require.NotNil(t, decision.PartNumber)
	assert.Equal(t, 2, *decision.PartNumber)
}

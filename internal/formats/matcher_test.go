package formats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixturefox/fixturefox/internal/models"
)

func compileRule(t *testing.T, rule *models.FormatRule) *models.FormatRule {
	t.Helper()
	require.NoError(t, rule.Compile())
	return rule
}

func testCandidate() *models.ReleaseCandidate {
	return &models.ReleaseCandidate{
		GUID:         "guid-1",
		Title:        "NFL.2025.Week.05.Chiefs.vs.Bills.1080p.WEB-DL.x264-GRP",
		SourceID:     1,
		SizeBytes:    700 * 1024 * 1024,
		Quality:      models.QualityWEBDL1080p,
		Resolution:   "1080p",
		MediaSource:  "WEBDL",
		ReleaseGroup: "GRP",
		Protocol:     models.ProtocolTorrent,
	}
}

func TestMatches_SingleSpec(t *testing.T) {
	matcher := NewMatcher()
	rule := compileRule(t, &models.FormatRule{
		ID:   1,
		Name: "web-dl",
		Specs: []models.Specification{
			{Kind: models.SpecTitleRegex, Pattern: `web[-. ]?dl`},
		},
	})

	assert.True(t, matcher.Matches(testCandidate(), rule))

	other := testCandidate()
	other.Title = "NFL.2025.Week.05.Chiefs.vs.Bills.1080p.HDTV.x264-GRP"
	assert.False(t, matcher.Matches(other, rule))
}

func TestMatches_CaseInsensitive(t *testing.T) {
	matcher := NewMatcher()
	rule := compileRule(t, &models.FormatRule{
		ID:   1,
		Name: "group",
		Specs: []models.Specification{
			{Kind: models.SpecReleaseGroupRegex, Pattern: `^grp$`},
		},
	})

	candidate := testCandidate()
	candidate.ReleaseGroup = "GRP"
	assert.True(t, matcher.Matches(candidate, rule))
}

func TestMatches_NegateInvertsSpec(t *testing.T) {
	matcher := NewMatcher()
	rule := compileRule(t, &models.FormatRule{
		ID:   1,
		Name: "not-hdtv",
		Specs: []models.Specification{
			{Kind: models.SpecMediaSource, Value: "HDTV", Negate: true, Required: true},
		},
	})

	assert.True(t, matcher.Matches(testCandidate(), rule))

	hdtv := testCandidate()
	hdtv.MediaSource = "HDTV"
	assert.False(t, matcher.Matches(hdtv, rule))
}

func TestMatches_AllRequiredMustPass(t *testing.T) {
	matcher := NewMatcher()
	rule := compileRule(t, &models.FormatRule{
		ID:   1,
		Name: "web-1080",
		Specs: []models.Specification{
			{Kind: models.SpecMediaSource, Value: "WEBDL", Required: true},
			{Kind: models.SpecResolution, Value: "1080p", Required: true},
		},
	})

	assert.True(t, matcher.Matches(testCandidate(), rule))

	// One required spec failing fails the whole rule
	lowRes := testCandidate()
	lowRes.Resolution = "720p"
	assert.False(t, matcher.Matches(lowRes, rule))
}

func TestMatches_NonRequiredSpecsDoNotGate(t *testing.T) {
	matcher := NewMatcher()
	rule := compileRule(t, &models.FormatRule{
		ID:   1,
		Name: "web-preferred",
		Specs: []models.Specification{
			{Kind: models.SpecMediaSource, Value: "WEBDL", Required: true},
			{Kind: models.SpecResolution, Value: "2160p"},
		},
	})

	// The informational 2160p spec fails but the required spec passes
	assert.True(t, matcher.Matches(testCandidate(), rule))
}

func TestMatches_NoRequiredSpecsNeedsAnyTrue(t *testing.T) {
	matcher := NewMatcher()
	rule := compileRule(t, &models.FormatRule{
		ID:   1,
		Name: "any-of",
		Specs: []models.Specification{
			{Kind: models.SpecResolution, Value: "2160p"},
			{Kind: models.SpecMediaSource, Value: "WEBDL"},
		},
	})

	assert.True(t, matcher.Matches(testCandidate(), rule))

	neither := testCandidate()
	neither.Resolution = "720p"
	neither.MediaSource = "HDTV"
	assert.False(t, matcher.Matches(neither, rule))
}

func TestMatches_SizeRange(t *testing.T) {
	matcher := NewMatcher()
	rule := compileRule(t, &models.FormatRule{
		ID:   1,
		Name: "plausible-size",
		Specs: []models.Specification{
			{Kind: models.SpecSizeRange, MinSizeMB: 100, MaxSizeMB: 2000, Required: true},
		},
	})

	assert.True(t, matcher.Matches(testCandidate(), rule))

	tiny := testCandidate()
	tiny.SizeBytes = 10 * 1024 * 1024
	assert.False(t, matcher.Matches(tiny, rule))
}

func TestMatches_IndexerFlag(t *testing.T) {
	matcher := NewMatcher()
	rule := compileRule(t, &models.FormatRule{
		ID:   1,
		Name: "freeleech",
		Specs: []models.Specification{
			{Kind: models.SpecIndexerFlag, Value: "freeleech", Required: true},
		},
	})

	candidate := testCandidate()
	candidate.IndexerFlags = []string{"internal", "Freeleech"}
	assert.True(t, matcher.Matches(candidate, rule))

	candidate.IndexerFlags = []string{"internal"}
	assert.False(t, matcher.Matches(candidate, rule))
}

func TestScore_SumsMatchingRules(t *testing.T) {
	matcher := NewMatcher()
	webRule := compileRule(t, &models.FormatRule{
		ID:   1,
		Name: "web-dl",
		Specs: []models.Specification{
			{Kind: models.SpecMediaSource, Value: "WEBDL", Required: true},
		},
	})
	groupRule := compileRule(t, &models.FormatRule{
		ID:   2,
		Name: "banned-group",
		Specs: []models.Specification{
			{Kind: models.SpecReleaseGroupRegex, Pattern: `^badgrp$`, Required: true},
		},
	})

	profile := &models.QualityProfile{
		Name:         "default",
		FormatScores: map[int64]int{1: 25, 2: -100},
	}

	score, matched := matcher.Score(testCandidate(), []*models.FormatRule{webRule, groupRule}, profile)
	assert.Equal(t, 25, score)
	assert.Equal(t, []string{"web-dl"}, matched)

	banned := testCandidate()
	banned.ReleaseGroup = "badgrp"
	score, matched = matcher.Score(banned, []*models.FormatRule{webRule, groupRule}, profile)
	assert.Equal(t, -75, score)
	assert.Equal(t, []string{"banned-group", "web-dl"}, matched)
}

func TestScore_UnmappedRuleContributesZero(t *testing.T) {
	matcher := NewMatcher()
	rule := compileRule(t, &models.FormatRule{
		ID:   7,
		Name: "web-dl",
		Specs: []models.Specification{
			{Kind: models.SpecMediaSource, Value: "WEBDL", Required: true},
		},
	})

	profile := &models.QualityProfile{Name: "default"}

	score, matched := matcher.Score(testCandidate(), []*models.FormatRule{rule}, profile)
	assert.Equal(t, 0, score)
	assert.Equal(t, []string{"web-dl"}, matched)
}

func TestScore_Deterministic(t *testing.T) {
	matcher := NewMatcher()
	rule := compileRule(t, &models.FormatRule{
		ID:   1,
		Name: "web-dl",
		Specs: []models.Specification{
			{Kind: models.SpecMediaSource, Value: "WEBDL", Required: true},
		},
	})
	profile := &models.QualityProfile{Name: "default", FormatScores: map[int64]int{1: 10}}

	first, _ := matcher.Score(testCandidate(), []*models.FormatRule{rule}, profile)
	for i := 0; i < 10; i++ {
		again, _ := matcher.Score(testCandidate(), []*models.FormatRule{rule}, profile)
		assert.Equal(t, first, again)
	}
}

func TestCompile_RejectsBadPattern(t *testing.T) {
	rule := &models.FormatRule{
		ID:   1,
		Name: "broken",
		Specs: []models.Specification{
			{Kind: models.SpecTitleRegex, Pattern: `([`},
		},
	}
	err := rule.Compile()
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidConfiguration)
}

package profiles

import (
	"fmt"

	"github.com/fixturefox/fixturefox/internal/formats"
	"github.com/fixturefox/fixturefox/internal/models"
)

// qualityScoreFactor keeps quality as the primary sort key: custom-format
// scores are bounded well below it, so a higher quality index always
// outranks any format-score difference.
const qualityScoreFactor = 1_000_000

// Evaluator approves, scores, or rejects release candidates against a
// quality profile. It is a pure function of its inputs and safe for
// concurrent use.
type Evaluator struct {
	table   *models.QualityTable
	matcher *formats.Matcher
}

// NewEvaluator creates an evaluator over the given quality table
func NewEvaluator(table *models.QualityTable, matcher *formats.Matcher) *Evaluator {
	return &Evaluator{table: table, matcher: matcher}
}

// Evaluate scores the candidate against the profile and the rule set.
// The returned evaluation carries rejection reasons exactly when not
// approved; it is recomputed per call and never persisted.
func (e *Evaluator) Evaluate(candidate *models.ReleaseCandidate, profile *models.QualityProfile, rules []*models.FormatRule) *models.ReleaseEvaluation {
	eval := &models.ReleaseEvaluation{GUID: candidate.GUID, Approved: true}

	index, allowed, found := profile.FindQuality(candidate.Quality)
	if !found || !allowed {
		eval.Reject(models.RejectionQualityNotAllowed,
			fmt.Sprintf("quality %d is not allowed by profile %q", candidate.Quality, profile.Name))
	} else {
		eval.QualityScore = index
	}

	sizeMB := float64(candidate.SizeBytes) / (1024 * 1024)
	if level, ok := e.table.Get(candidate.Quality); ok {
		if outOfBounds(sizeMB, level.MinSizeMB, level.MaxSizeMB) {
			eval.Reject(models.RejectionSizeOutOfBounds,
				fmt.Sprintf("%.0f MB outside [%.0f, %.0f] for %s", sizeMB, level.MinSizeMB, level.MaxSizeMB, level.Title))
		}
	}
	// Profile-level bounds apply independently of the quality level's own
	profileMin, profileMax := 0.0, 0.0
	if profile.MinSizeMB != nil {
		profileMin = *profile.MinSizeMB
	}
	if profile.MaxSizeMB != nil {
		profileMax = *profile.MaxSizeMB
	}
	if outOfBounds(sizeMB, profileMin, profileMax) {
		eval.Reject(models.RejectionSizeOutOfBounds,
			fmt.Sprintf("%.0f MB outside profile bounds", sizeMB))
	}

	score, matched := e.matcher.Score(candidate, rules, profile)
	eval.CustomFormatScore = score
	eval.MatchedRules = matched

	if profile.MinFormatScore != nil && score < *profile.MinFormatScore {
		eval.Reject(models.RejectionFormatScoreTooLow,
			fmt.Sprintf("format score %d below profile minimum %d", score, *profile.MinFormatScore))
	}

	eval.TotalScore = int64(eval.QualityScore)*qualityScoreFactor + int64(eval.CustomFormatScore)
	return eval
}

// IsUpgrade reports whether candidate would be an upgrade over the
// currently held evaluation. Below the profile's cutoff rank any strictly
// better quality wins regardless of format score; at or above the cutoff
// the candidate needs equal-or-better quality and a format-score
// improvement of at least the profile's configured increment.
func (e *Evaluator) IsUpgrade(profile *models.QualityProfile, heldQuality models.QualityID, held, candidate *models.ReleaseEvaluation) bool {
	heldLevel, ok := e.table.Get(heldQuality)
	if !ok {
		return candidate.Approved
	}

	if heldLevel.Rank < profile.CutoffRank {
		if candidate.QualityScore > held.QualityScore {
			return true
		}
		if candidate.QualityScore < held.QualityScore {
			return false
		}
	} else if candidate.QualityScore < held.QualityScore {
		return false
	}

	return candidate.CustomFormatScore >= held.CustomFormatScore+profile.MinScoreIncrement
}

func outOfBounds(size, min, max float64) bool {
	if min > 0 && size < min {
		return true
	}
	if max > 0 && size > max {
		return true
	}
	return false
}

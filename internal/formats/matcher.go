package formats

import (
	"sort"

	"github.com/fixturefox/fixturefox/internal/models"
)

// Matcher evaluates release candidates against custom-format rules. All
// methods are pure functions of their inputs and safe for concurrent use.
type Matcher struct{}

// NewMatcher creates a format matcher
func NewMatcher() *Matcher {
	return &Matcher{}
}

// Matches reports whether the rule matches the candidate. Every
// specification marked required must evaluate true (after negation) for the
// rule to match; non-required specifications are informational and do not
// gate the result. A rule with no required specifications matches when at
// least one specification evaluates true.
func (m *Matcher) Matches(candidate *models.ReleaseCandidate, rule *models.FormatRule) bool {
	hasRequired := false
	anyTrue := false

	for i := range rule.Specs {
		spec := &rule.Specs[i]
		result := evaluate(candidate, spec)
		if spec.Negate {
			result = !result
		}
		if spec.Required {
			hasRequired = true
			if !result {
				return false
			}
		}
		if result {
			anyTrue = true
		}
	}

	if hasRequired {
		return true
	}
	return anyTrue
}

// Score sums the profile's score mapping over every matching rule and
// returns the matched rule names. Rules matching without a profile mapping
// contribute zero but still appear in the matched list.
func (m *Matcher) Score(candidate *models.ReleaseCandidate, rules []*models.FormatRule, profile *models.QualityProfile) (int, []string) {
	total := 0
	var matched []string

	for _, rule := range rules {
		if !m.Matches(candidate, rule) {
			continue
		}
		matched = append(matched, rule.Name)
		if score, ok := profile.FormatScores[rule.ID]; ok {
			total += score
		}
	}

	sort.Strings(matched)
	return total, matched
}

// evaluate runs a single specification predicate against the candidate.
// Specifications are compiled at configuration time, so regex kinds cannot
// fail here.
func evaluate(c *models.ReleaseCandidate, spec *models.Specification) bool {
	switch spec.Kind {
	case models.SpecTitleRegex:
		return spec.Regexp().MatchString(c.Title)
	case models.SpecReleaseGroupRegex:
		return c.ReleaseGroup != "" && spec.Regexp().MatchString(c.ReleaseGroup)
	case models.SpecSizeRange:
		sizeMB := float64(c.SizeBytes) / (1024 * 1024)
		if spec.MinSizeMB > 0 && sizeMB < spec.MinSizeMB {
			return false
		}
		if spec.MaxSizeMB > 0 && sizeMB > spec.MaxSizeMB {
			return false
		}
		return true
	case models.SpecResolution:
		return spec.EqualsValue(c.Resolution)
	case models.SpecMediaSource:
		return spec.EqualsValue(c.MediaSource)
	case models.SpecLanguage:
		return spec.EqualsValue(c.Language)
	case models.SpecProtocol:
		return spec.EqualsValue(string(c.Protocol))
	case models.SpecIndexerFlag:
		for _, flag := range c.IndexerFlags {
			if spec.EqualsValue(flag) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

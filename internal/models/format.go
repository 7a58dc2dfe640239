package models

import (
	"fmt"
	"regexp"
	"strings"
)

// SpecificationKind selects the predicate a specification evaluates.
// Each kind carries a strongly-typed payload instead of a free-form map so
// the matcher can be exhaustively checked.
type SpecificationKind string

const (
	// Regex-text kinds
	SpecTitleRegex        SpecificationKind = "title_regex"
	SpecReleaseGroupRegex SpecificationKind = "release_group_regex"
	// Numeric-range kind
	SpecSizeRange SpecificationKind = "size_range"
	// Enumerated-value kinds
	SpecResolution  SpecificationKind = "resolution"
	SpecMediaSource SpecificationKind = "media_source"
	SpecLanguage    SpecificationKind = "language"
	SpecIndexerFlag SpecificationKind = "indexer_flag"
	SpecProtocol    SpecificationKind = "protocol"
)

// Specification is a single matching condition within a format rule.
// Negate inverts the individual result; Required gates the rule match.
type Specification struct {
	Kind     SpecificationKind `json:"kind"`
	Negate   bool              `json:"negate"`
	Required bool              `json:"required"`

	// Payload for regex-text kinds
	Pattern string `json:"pattern,omitempty"`
	// Payload for the numeric-range kind, megabytes
	MinSizeMB float64 `json:"min_size_mb,omitempty"`
	MaxSizeMB float64 `json:"max_size_mb,omitempty"`
	// Payload for enumerated-value kinds
	Value string `json:"value,omitempty"`

	compiled *regexp.Regexp
}

// Compile validates the specification payload and precompiles regex
// patterns. Compilation happens at configuration-save time; a compiled
// specification never fails mid-evaluation.
func (s *Specification) Compile() error {
	switch s.Kind {
	case SpecTitleRegex, SpecReleaseGroupRegex:
		if s.Pattern == "" {
			return fmt.Errorf("%w: %s specification requires a pattern", ErrInvalidConfiguration, s.Kind)
		}
		re, err := regexp.Compile("(?i)" + s.Pattern)
		if err != nil {
			return fmt.Errorf("%w: bad pattern %q: %v", ErrInvalidConfiguration, s.Pattern, err)
		}
		s.compiled = re
	case SpecSizeRange:
		if s.MinSizeMB <= 0 && s.MaxSizeMB <= 0 {
			return fmt.Errorf("%w: size specification requires a bound", ErrInvalidConfiguration)
		}
		if s.MinSizeMB > 0 && s.MaxSizeMB > 0 && s.MinSizeMB > s.MaxSizeMB {
			return fmt.Errorf("%w: size specification min above max", ErrInvalidConfiguration)
		}
	case SpecResolution, SpecMediaSource, SpecLanguage, SpecIndexerFlag, SpecProtocol:
		if s.Value == "" {
			return fmt.Errorf("%w: %s specification requires a value", ErrInvalidConfiguration, s.Kind)
		}
	default:
		return fmt.Errorf("%w: unknown specification kind %q", ErrInvalidConfiguration, s.Kind)
	}
	return nil
}

// Regexp returns the compiled pattern for regex-text kinds
func (s *Specification) Regexp() *regexp.Regexp {
	return s.compiled
}

// EqualsValue does a case-insensitive comparison against the enumerated
// payload
func (s *Specification) EqualsValue(v string) bool {
	return strings.EqualFold(s.Value, v)
}

// FormatRule is a named set of specifications used to add or subtract
// score. A rule is immutable once referenced by a profile score mapping;
// edits create effectively-new evaluation semantics going forward.
type FormatRule struct {
	ID    int64           `json:"id" db:"id"`
	Name  string          `json:"name" db:"name"`
	Specs []Specification `json:"specs"`
}

// Compile validates and compiles every specification in the rule
func (r *FormatRule) Compile() error {
	if r.Name == "" {
		return fmt.Errorf("%w: format rule name is required", ErrInvalidConfiguration)
	}
	if len(r.Specs) == 0 {
		return fmt.Errorf("%w: format rule %q has no specifications", ErrInvalidConfiguration, r.Name)
	}
	for i := range r.Specs {
		if err := r.Specs[i].Compile(); err != nil {
			return fmt.Errorf("rule %q spec %d: %w", r.Name, i, err)
		}
	}
	return nil
}

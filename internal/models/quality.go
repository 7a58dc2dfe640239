package models

import (
	"fmt"
)

// QualityID is a stable identifier for a quality level. Ordering is never
// derived from the id itself; ranks come from the quality table.
type QualityID int

const (
	QualityUnknown    QualityID = 0
	QualitySDTV       QualityID = 1
	QualityDVD        QualityID = 2
	QualityWEBDL480p  QualityID = 3
	QualityHDTV720p   QualityID = 4
	QualityHDTV1080p  QualityID = 5
	QualityWEBRip720p QualityID = 6
	QualityWEBDL720p  QualityID = 7
	QualityBluray720p QualityID = 8
	QualityWEBRip1080p QualityID = 9
	QualityWEBDL1080p  QualityID = 15
	QualityBluray1080p QualityID = 16
	QualityHDTV2160p   QualityID = 17
	QualityWEBDL2160p  QualityID = 18
	QualityBluray2160p QualityID = 19
)

// QualityLevel describes one rung of the quality ladder. Size bounds are
// megabytes per minute of runtime and gate the plausibility of a release
// given its detected quality; zero means unbounded.
type QualityLevel struct {
	ID              QualityID `json:"id"`
	Rank            int       `json:"rank"`
	Title           string    `json:"title"`
	MinSizeMB       float64   `json:"min_size_mb,omitempty"`
	MaxSizeMB       float64   `json:"max_size_mb,omitempty"`
	PreferredSizeMB float64   `json:"preferred_size_mb,omitempty"`
}

// QualityTable is the ordered lookup table for quality levels. It is loaded
// once and treated as immutable configuration.
type QualityTable struct {
	levels []QualityLevel
	byID   map[QualityID]QualityLevel
}

// NewQualityTable builds a table from levels ordered worst to best
func NewQualityTable(levels []QualityLevel) (*QualityTable, error) {
	byID := make(map[QualityID]QualityLevel, len(levels))
	lastRank := -1
	for _, level := range levels {
		if _, exists := byID[level.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate quality id %d", ErrInvalidConfiguration, level.ID)
		}
		if level.Rank <= lastRank {
			return nil, fmt.Errorf("%w: quality %q rank %d not ascending", ErrInvalidConfiguration, level.Title, level.Rank)
		}
		if level.MinSizeMB > 0 && level.MaxSizeMB > 0 && level.MinSizeMB > level.MaxSizeMB {
			return nil, fmt.Errorf("%w: quality %q min size above max", ErrInvalidConfiguration, level.Title)
		}
		byID[level.ID] = level
		lastRank = level.Rank
	}
	return &QualityTable{levels: levels, byID: byID}, nil
}

// Get returns the level for an id
func (t *QualityTable) Get(id QualityID) (QualityLevel, bool) {
	level, ok := t.byID[id]
	return level, ok
}

// Levels returns the levels ordered worst to best
func (t *QualityTable) Levels() []QualityLevel {
	return t.levels
}

// DefaultQualityTable returns the built-in broadcast quality ladder
func DefaultQualityTable() *QualityTable {
	table, err := NewQualityTable([]QualityLevel{
		{ID: QualitySDTV, Rank: 1, Title: "SDTV", MinSizeMB: 2, MaxSizeMB: 100, PreferredSizeMB: 20},
		{ID: QualityDVD, Rank: 2, Title: "DVD", MinSizeMB: 2, MaxSizeMB: 100, PreferredSizeMB: 30},
		{ID: QualityWEBDL480p, Rank: 3, Title: "WEBDL-480p", MinSizeMB: 2, MaxSizeMB: 100, PreferredSizeMB: 30},
		{ID: QualityHDTV720p, Rank: 4, Title: "HDTV-720p", MinSizeMB: 4, MaxSizeMB: 1000, PreferredSizeMB: 50},
		{ID: QualityHDTV1080p, Rank: 5, Title: "HDTV-1080p", MinSizeMB: 5, MaxSizeMB: 1000, PreferredSizeMB: 75},
		{ID: QualityWEBRip720p, Rank: 6, Title: "WEBRip-720p", MinSizeMB: 5, MaxSizeMB: 1000, PreferredSizeMB: 60},
		{ID: QualityWEBDL720p, Rank: 7, Title: "WEBDL-720p", MinSizeMB: 5, MaxSizeMB: 1000, PreferredSizeMB: 60},
		{ID: QualityBluray720p, Rank: 8, Title: "Bluray-720p", MinSizeMB: 8, MaxSizeMB: 1000, PreferredSizeMB: 90},
		{ID: QualityWEBRip1080p, Rank: 9, Title: "WEBRip-1080p", MinSizeMB: 8, MaxSizeMB: 1000, PreferredSizeMB: 90},
		{ID: QualityWEBDL1080p, Rank: 15, Title: "WEBDL-1080p", MinSizeMB: 10, MaxSizeMB: 1000, PreferredSizeMB: 100},
		{ID: QualityBluray1080p, Rank: 16, Title: "Bluray-1080p", MinSizeMB: 15, MaxSizeMB: 2000, PreferredSizeMB: 150},
		{ID: QualityHDTV2160p, Rank: 17, Title: "HDTV-2160p", MinSizeMB: 25, MaxSizeMB: 4000, PreferredSizeMB: 250},
		{ID: QualityWEBDL2160p, Rank: 18, Title: "WEBDL-2160p", MinSizeMB: 30, MaxSizeMB: 4000, PreferredSizeMB: 300},
		{ID: QualityBluray2160p, Rank: 19, Title: "Bluray-2160p", MinSizeMB: 50, MaxSizeMB: 8000, PreferredSizeMB: 400},
	})
	if err != nil {
		panic(err)
	}
	return table
}

// QualityGroup is a named bucket of interchangeable quality levels inside a
// profile, e.g. "WEB 1080p" containing WEBDL-1080p and WEBRip-1080p. A leaf
// counts as allowed if itself or its containing bucket is allowed.
type QualityGroup struct {
	Name      string      `json:"name"`
	Qualities []QualityID `json:"qualities"`
}

// QualityProfileItem is one entry in a profile's ordered allowed sequence.
// Exactly one of Quality or Group is set.
type QualityProfileItem struct {
	Allowed bool          `json:"allowed"`
	Quality *QualityID    `json:"quality,omitempty"`
	Group   *QualityGroup `json:"group,omitempty"`
}

// QualityProfile is a user policy defining allowed qualities, the upgrade
// cutoff, and custom-format score thresholds
type QualityProfile struct {
	ID                int64                `json:"id" db:"id"`
	Name              string               `json:"name" db:"name"`
	Items             []QualityProfileItem `json:"items"`
	CutoffRank        int                  `json:"cutoff_rank" db:"cutoff_rank"`
	MinFormatScore    *int                 `json:"min_format_score,omitempty" db:"min_format_score"`
	CutoffFormatScore *int                 `json:"cutoff_format_score,omitempty" db:"cutoff_format_score"`
	MinScoreIncrement int                  `json:"min_score_increment" db:"min_score_increment"`
	MinSizeMB         *float64             `json:"min_size_mb,omitempty" db:"min_size_mb"`
	MaxSizeMB         *float64             `json:"max_size_mb,omitempty" db:"max_size_mb"`

	// Rule id to score mapping. A rule has no intrinsic score outside a
	// profile; unmapped-but-matching rules contribute zero.
	FormatScores map[int64]int `json:"format_scores,omitempty"`
}

// FindQuality locates a quality id in the profile's ordered allowed
// sequence via leaf-or-containing-bucket match. The returned index is the
// position within the ordered sequence; ties within a bucket resolve by the
// bucket's own internal leaf ordering.
func (p *QualityProfile) FindQuality(id QualityID) (index int, allowed bool, found bool) {
	for i, item := range p.Items {
		if item.Quality != nil && *item.Quality == id {
			return i, item.Allowed, true
		}
		if item.Group != nil {
			for _, member := range item.Group.Qualities {
				if member == id {
					return i, item.Allowed, true
				}
			}
		}
	}
	return 0, false, false
}

// Validate checks structural profile invariants. Called at configuration
// save time so malformed profiles never surface mid-evaluation.
func (p *QualityProfile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: profile name is required", ErrInvalidConfiguration)
	}
	if len(p.Items) == 0 {
		return fmt.Errorf("%w: profile %q has no quality items", ErrInvalidConfiguration, p.Name)
	}
	anyAllowed := false
	seen := make(map[QualityID]bool)
	for _, item := range p.Items {
		if (item.Quality == nil) == (item.Group == nil) {
			return fmt.Errorf("%w: profile %q item must set exactly one of quality or group", ErrInvalidConfiguration, p.Name)
		}
		var members []QualityID
		if item.Quality != nil {
			members = []QualityID{*item.Quality}
		} else {
			if len(item.Group.Qualities) == 0 {
				return fmt.Errorf("%w: profile %q group %q is empty", ErrInvalidConfiguration, p.Name, item.Group.Name)
			}
			members = item.Group.Qualities
		}
		for _, id := range members {
			if seen[id] {
				return fmt.Errorf("%w: profile %q lists quality %d twice", ErrInvalidConfiguration, p.Name, id)
			}
			seen[id] = true
		}
		if item.Allowed {
			anyAllowed = true
		}
	}
	if !anyAllowed {
		return fmt.Errorf("%w: profile %q allows no qualities", ErrInvalidConfiguration, p.Name)
	}
	if p.MinSizeMB != nil && p.MaxSizeMB != nil && *p.MinSizeMB > *p.MaxSizeMB {
		return fmt.Errorf("%w: profile %q min size above max", ErrInvalidConfiguration, p.Name)
	}
	return nil
}

package models

import (
	"time"
)

// Protocol represents the transport used to fetch a release
type Protocol string

const (
	// ProtocolTorrent is pull-based peer-to-peer transport
	ProtocolTorrent Protocol = "torrent"
	// ProtocolUsenet is push-based newsgroup transport
	ProtocolUsenet Protocol = "usenet"
)

// RejectionReason categorizes why a release was not approved
type RejectionReason string

const (
	RejectionQualityNotAllowed RejectionReason = "quality_not_allowed"
	RejectionSizeOutOfBounds   RejectionReason = "size_out_of_bounds"
	RejectionFormatScoreTooLow RejectionReason = "format_score_too_low"
	RejectionTitleUnparsable   RejectionReason = "title_unparsable"
	RejectionBlocklisted       RejectionReason = "blocklisted"
)

// ReleaseCandidate represents a discovered release from a source.
// Candidates are immutable once produced by the parser.
type ReleaseCandidate struct {
	GUID         string     `json:"guid"`
	Title        string     `json:"title"`
	SourceID     int64      `json:"source_id"`
	SizeBytes    int64      `json:"size_bytes"`
	Quality      QualityID  `json:"quality"`
	Resolution   string     `json:"resolution,omitempty"`
	MediaSource  string     `json:"media_source,omitempty"`
	Codec        string     `json:"codec,omitempty"`
	ReleaseGroup string     `json:"release_group,omitempty"`
	Language     string     `json:"language,omitempty"`
	IndexerFlags []string   `json:"indexer_flags,omitempty"`
	Protocol     Protocol   `json:"protocol"`
	ContentHash  *string    `json:"content_hash,omitempty"`
	Seeders      *int       `json:"seeders,omitempty"`
	Leechers     *int       `json:"leechers,omitempty"`
	PublishedAt  time.Time  `json:"published_at"`

	// Search index fields extracted from the parsed title
	Sport string `json:"sport,omitempty"`
	Year  int    `json:"year,omitempty"`
	Round string `json:"round,omitempty"`
}

// DedupKey returns the blocklist/ledger key for the candidate. The content
// hash is preferred when the source supplies one, the guid otherwise.
func (c *ReleaseCandidate) DedupKey() string {
	if c.ContentHash != nil && *c.ContentHash != "" {
		return *c.ContentHash
	}
	return c.GUID
}

// Rejection is a single reason a candidate was refused
type Rejection struct {
	Reason  RejectionReason `json:"reason"`
	Message string          `json:"message"`
}

// ReleaseEvaluation is the outcome of evaluating a candidate against a
// quality profile. It is derived per call and never persisted as source
// of truth.
type ReleaseEvaluation struct {
	GUID              string      `json:"guid"`
	Approved          bool        `json:"approved"`
	QualityScore      int         `json:"quality_score"`
	CustomFormatScore int         `json:"custom_format_score"`
	TotalScore        int64       `json:"total_score"`
	MatchedRules      []string    `json:"matched_rules,omitempty"`
	Rejections        []Rejection `json:"rejections,omitempty"`
}

// Reject records a rejection reason and clears the approved flag
func (e *ReleaseEvaluation) Reject(reason RejectionReason, message string) {
	e.Approved = false
	e.Rejections = append(e.Rejections, Rejection{Reason: reason, Message: message})
}

// HasRejection reports whether the evaluation carries the given reason
func (e *ReleaseEvaluation) HasRejection(reason RejectionReason) bool {
	for _, r := range e.Rejections {
		if r.Reason == reason {
			return true
		}
	}
	return false
}

// CacheEntry is a deduplicated sighting of a release guid. A lookup never
// returns an entry past its expiry, even if it has not been evicted yet.
type CacheEntry struct {
	GUID            string           `json:"guid"`
	NormalizedTitle string           `json:"normalized_title"`
	Sport           string           `json:"sport,omitempty"`
	Year            int              `json:"year,omitempty"`
	Round           string           `json:"round,omitempty"`
	Candidate       ReleaseCandidate `json:"candidate"`
	FirstSeenAt     time.Time        `json:"first_seen_at"`
	ExpiresAt       time.Time        `json:"expires_at"`
}

// Expired reports whether the entry is past its expiry at the given time
func (e *CacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// ReleaseSearchKey identifies near-duplicate queries so repeated callers
// within one cycle can share cached results
type ReleaseSearchKey struct {
	Sport string `json:"sport"`
	Year  int    `json:"year"`
	Round string `json:"round"`
}

// RejectionRecord is an append-only blocklist entry. Records are created by
// explicit block actions and never mutated or deleted by the engine.
type RejectionRecord struct {
	ID        int64     `json:"id" db:"id"`
	Key       string    `json:"key" db:"key"`
	SourceID  int64     `json:"source_id" db:"source_id"`
	Reason    string    `json:"reason" db:"reason"`
	Message   string    `json:"message,omitempty" db:"message"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

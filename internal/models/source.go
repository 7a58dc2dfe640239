package models

import (
	"time"
)

// SourceType represents the protocol family of a source
type SourceType string

const (
	SourceTypeTorrent SourceType = "torrent"
	SourceTypeUsenet  SourceType = "usenet"
)

// Source represents an external indexer/provider queried for releases
type Source struct {
	ID                int64      `json:"id" db:"id"`
	Name              string     `json:"name" db:"name"`
	Type              SourceType `json:"type" db:"type"`
	BaseURL           string     `json:"base_url" db:"base_url"`
	Priority          int        `json:"priority" db:"priority"`
	IsEnabled         bool       `json:"is_enabled" db:"is_enabled"`
	QueryLimitPerHour *int       `json:"query_limit_per_hour,omitempty" db:"query_limit_per_hour"`
	GrabLimitPerHour  *int       `json:"grab_limit_per_hour,omitempty" db:"grab_limit_per_hour"`
	TimeoutSeconds    int        `json:"timeout_seconds" db:"timeout_seconds"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// FailureTrack identifies one of the independent failure tracks of a source
type FailureTrack string

const (
	TrackQuery      FailureTrack = "query"
	TrackGrab       FailureTrack = "grab"
	TrackConnection FailureTrack = "connection"
)

// TrackState holds the escalation state of a single failure track
type TrackState struct {
	Failures          int        `json:"failures" db:"failures"`
	DisabledUntil     time.Time  `json:"disabled_until" db:"disabled_until"`
	LastFailureAt     *time.Time `json:"last_failure_at,omitempty" db:"last_failure_at"`
	LastFailureReason string     `json:"last_failure_reason,omitempty" db:"last_failure_reason"`
}

// SourceHealth is the per-source health record. Query and Grab escalate
// independent backoff windows; Connection only counts transient noise and
// never disables the source.
type SourceHealth struct {
	SourceID int64 `json:"source_id" db:"source_id"`

	Query TrackState `json:"query"`
	Grab  TrackState `json:"grab"`

	ConnectionFailures    int        `json:"connection_failures" db:"connection_failures"`
	ConnectionLastFailure *time.Time `json:"connection_last_failure,omitempty" db:"connection_last_failure"`

	RateLimitedUntil time.Time `json:"rate_limited_until" db:"rate_limited_until"`

	QueriesThisHour int       `json:"queries_this_hour" db:"queries_this_hour"`
	GrabsThisHour   int       `json:"grabs_this_hour" db:"grabs_this_hour"`
	HourResetAt     time.Time `json:"hour_reset_at" db:"hour_reset_at"`

	LastSuccessAt *time.Time `json:"last_success_at,omitempty" db:"last_success_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// SourceHealthSummary aggregates tracker state for the status surface
type SourceHealthSummary struct {
	SourceID         int64      `json:"source_id"`
	QueryEligible    bool       `json:"query_eligible"`
	GrabEligible     bool       `json:"grab_eligible"`
	QueryDisabledFor string     `json:"query_disabled_for,omitempty"`
	GrabDisabledFor  string     `json:"grab_disabled_for,omitempty"`
	RateLimitedFor   string     `json:"rate_limited_for,omitempty"`
	LastSuccessAt    *time.Time `json:"last_success_at,omitempty"`
}

package models

import (
	"time"
)

// PendingImportState tracks the lifecycle of a downloaded file awaiting
// association with a library event. Completed and Rejected are terminal;
// Importing is in-flight and exclusive.
type PendingImportState string

const (
	ImportStatePending   PendingImportState = "pending"
	ImportStateImporting PendingImportState = "importing"
	ImportStateCompleted PendingImportState = "completed"
	ImportStateRejected  PendingImportState = "rejected"
)

// ImportCandidate describes a completed download file to be matched against
// the library
type ImportCandidate struct {
	Path        string    `json:"path"`
	SizeBytes   int64     `json:"size_bytes"`
	Quality     QualityID `json:"quality"`
	ParsedTitle string    `json:"parsed_title"`
	ModifiedAt  time.Time `json:"modified_at"`

	// Pack fields, set when the file is one of several sharing a transport
	// transaction
	PackGroupID       *string `json:"pack_group_id,omitempty"`
	PackExpectedFiles int     `json:"pack_expected_files,omitempty"`
}

// ImportAction is the outcome class of an import match
type ImportAction string

const (
	ImportActionAuto    ImportAction = "auto_import"
	ImportActionPending ImportAction = "pending_import"
)

// ImportDecision is the result of matching a file to candidate events.
// Near-tied candidates are never silently picked between; they come back as
// a pending decision carrying the best guess.
type ImportDecision struct {
	Action     ImportAction `json:"action"`
	EventID    *int64       `json:"event_id,omitempty"`
	PartNumber *int         `json:"part_number,omitempty"`
	Confidence int          `json:"confidence"`
	RunnerUp   int          `json:"runner_up_confidence,omitempty"`
}

// PendingImport is a persisted import awaiting manual or automatic
// resolution
type PendingImport struct {
	ID               int64              `json:"id" db:"id"`
	Path             string             `json:"path" db:"path"`
	SizeBytes        int64              `json:"size_bytes" db:"size_bytes"`
	Quality          QualityID          `json:"quality" db:"quality"`
	SuggestedEventID *int64             `json:"suggested_event_id,omitempty" db:"suggested_event_id"`
	SuggestedPart    *int               `json:"suggested_part,omitempty" db:"suggested_part"`
	Confidence       int                `json:"confidence" db:"confidence"`
	State            PendingImportState `json:"state" db:"state"`
	PackGroupID      *string            `json:"pack_group_id,omitempty" db:"pack_group_id"`
	CreatedAt        time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at" db:"updated_at"`
}

// PackStatus aggregates resolution progress for a pack group so a caller
// can decide when the pack is fully resolved
type PackStatus struct {
	GroupID       string `json:"group_id"`
	ExpectedFiles int    `json:"expected_files"`
	FilesSeen     int    `json:"files_seen"`
	FilesMatched  int    `json:"files_matched"`
}

// Resolved reports whether every expected file of the pack has matched
func (p *PackStatus) Resolved() bool {
	return p.ExpectedFiles > 0 && p.FilesMatched >= p.ExpectedFiles
}

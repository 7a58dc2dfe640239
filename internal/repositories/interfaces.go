package repositories

import (
	"context"
	"time"

	"github.com/fixturefox/fixturefox/internal/models"
)

// SourceRepository defines the interface for source configuration
type SourceRepository interface {
	Create(ctx context.Context, source *models.Source) error
	GetByID(ctx context.Context, id int64) (*models.Source, error)
	List(ctx context.Context, enabledOnly bool) ([]*models.Source, error)
	Update(ctx context.Context, source *models.Source) error
	Delete(ctx context.Context, id int64) error
}

// SourceHealthRepository persists per-source health records so backoff
// state survives restarts
type SourceHealthRepository interface {
	Upsert(ctx context.Context, health *models.SourceHealth) error
	GetBySourceID(ctx context.Context, sourceID int64) (*models.SourceHealth, error)
	List(ctx context.Context) ([]*models.SourceHealth, error)
}

// BlocklistRepository defines the interface for the append-only rejection
// ledger. Inserts must be atomic so concurrent writers are safe.
type BlocklistRepository interface {
	Create(ctx context.Context, record *models.RejectionRecord) error
	Contains(ctx context.Context, key string, sourceID int64) (bool, error)
	List(ctx context.Context, limit, offset int) ([]*models.RejectionRecord, error)
}

// PendingImportRepository defines the interface for pending-import
// persistence. Claim must be atomic: of concurrent claims on one id
// exactly one succeeds.
type PendingImportRepository interface {
	Create(ctx context.Context, pending *models.PendingImport) error
	GetByID(ctx context.Context, id int64) (*models.PendingImport, error)
	// Claim moves Pending -> Importing; returns ErrImportAlreadyClaimed
	// when the import is not in the Pending state
	Claim(ctx context.Context, id int64, now time.Time) (*models.PendingImport, error)
	// Transition moves between the given states; fails when the current
	// state does not match from
	Transition(ctx context.Context, id int64, from, to models.PendingImportState, now time.Time) error
	List(ctx context.Context, state models.PendingImportState, limit int) ([]*models.PendingImport, error)
}

// EventRepository defines the interface for library event lookups
type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id int64) (*models.Event, error)
	// ListCandidates returns monitored events scheduled inside the window,
	// a consistent snapshot for one import-match call
	ListCandidates(ctx context.Context, from, to time.Time) ([]*models.Event, error)
	Update(ctx context.Context, event *models.Event) error
}

// ProfileRepository defines the interface for quality profiles and format
// rules. Save-time validation keeps malformed definitions out of the
// evaluation path.
type ProfileRepository interface {
	SaveProfile(ctx context.Context, profile *models.QualityProfile) error
	GetProfile(ctx context.Context, id int64) (*models.QualityProfile, error)
	ListProfiles(ctx context.Context) ([]*models.QualityProfile, error)
	SaveRule(ctx context.Context, rule *models.FormatRule) error
	ListRules(ctx context.Context) ([]*models.FormatRule, error)
}

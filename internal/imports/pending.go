package imports

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fixturefox/fixturefox/internal/models"
	"github.com/fixturefox/fixturefox/internal/repositories"
)

// PendingManager drives pending-import state transitions. The
// Pending -> Importing transition is an atomic claim: of any number of
// concurrent claimers exactly one succeeds and the rest get
// ErrImportAlreadyClaimed.
type PendingManager struct {
	repo   repositories.PendingImportRepository
	logger *logrus.Logger
}

// NewPendingManager creates a pending-import manager
func NewPendingManager(repo repositories.PendingImportRepository, logger *logrus.Logger) *PendingManager {
	return &PendingManager{repo: repo, logger: logger}
}

// Queue persists a new pending import from an unresolved match decision
func (pm *PendingManager) Queue(ctx context.Context, file *models.ImportCandidate, decision *models.ImportDecision) (*models.PendingImport, error) {
	if decision.Action != models.ImportActionPending {
		return nil, fmt.Errorf("%w: decision is not pending", models.ErrInvalidInput)
	}
	now := time.Now().UTC()
	pending := &models.PendingImport{
		Path:             file.Path,
		SizeBytes:        file.SizeBytes,
		Quality:          file.Quality,
		SuggestedEventID: decision.EventID,
		SuggestedPart:    decision.PartNumber,
		Confidence:       decision.Confidence,
		State:            models.ImportStatePending,
		PackGroupID:      file.PackGroupID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := pm.repo.Create(ctx, pending); err != nil {
		return nil, fmt.Errorf("failed to queue pending import: %w", err)
	}
	pm.logger.WithFields(logrus.Fields{
		"import_id":  pending.ID,
		"path":       pending.Path,
		"confidence": pending.Confidence,
	}).Info("Pending import queued")
	return pending, nil
}

// Claim atomically moves the import from Pending to Importing. A second
// claim on the same id fails with ErrImportAlreadyClaimed rather than
// silently proceeding.
func (pm *PendingManager) Claim(ctx context.Context, id int64) (*models.PendingImport, error) {
	claimed, err := pm.repo.Claim(ctx, id, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	pm.logger.WithField("import_id", id).Info("Pending import claimed")
	return claimed, nil
}

// Complete moves a claimed import to its terminal Completed state
func (pm *PendingManager) Complete(ctx context.Context, id int64) error {
	if err := pm.repo.Transition(ctx, id, models.ImportStateImporting, models.ImportStateCompleted, time.Now().UTC()); err != nil {
		return err
	}
	pm.logger.WithField("import_id", id).Info("Import completed")
	return nil
}

// Reject moves a claimed import to its terminal Rejected state
func (pm *PendingManager) Reject(ctx context.Context, id int64) error {
	if err := pm.repo.Transition(ctx, id, models.ImportStateImporting, models.ImportStateRejected, time.Now().UTC()); err != nil {
		return err
	}
	pm.logger.WithField("import_id", id).Info("Import rejected")
	return nil
}

// List returns pending imports awaiting resolution
func (pm *PendingManager) List(ctx context.Context, state models.PendingImportState, limit int) ([]*models.PendingImport, error) {
	return pm.repo.List(ctx, state, limit)
}

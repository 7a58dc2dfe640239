package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fixturefox/fixturefox/internal/models"
)

// SQLitePendingImportRepository implements PendingImportRepository using
// SQLite. The claim path relies on a conditional UPDATE so the
// Pending -> Importing transition is atomic under concurrent callers.
type SQLitePendingImportRepository struct {
	db *sql.DB
}

// NewPendingImportRepository creates a new SQLite-based pending import
// repository
func NewPendingImportRepository(db *sql.DB) PendingImportRepository {
	return &SQLitePendingImportRepository{db: db}
}

// Create persists a new pending import
func (r *SQLitePendingImportRepository) Create(ctx context.Context, pending *models.PendingImport) error {
	query := `
		INSERT INTO pending_imports (
			path, size_bytes, quality, suggested_event_id, suggested_part,
			confidence, state, pack_group_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		pending.Path, pending.SizeBytes, pending.Quality,
		pending.SuggestedEventID, pending.SuggestedPart, pending.Confidence,
		pending.State, pending.PackGroupID, pending.CreatedAt, pending.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	pending.ID = id
	return nil
}

// GetByID retrieves a pending import by id
func (r *SQLitePendingImportRepository) GetByID(ctx context.Context, id int64) (*models.PendingImport, error) {
	query := `
		SELECT id, path, size_bytes, quality, suggested_event_id, suggested_part,
			   confidence, state, pack_group_id, created_at, updated_at
		FROM pending_imports WHERE id = ?
	`
	pending := &models.PendingImport{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&pending.ID, &pending.Path, &pending.SizeBytes, &pending.Quality,
		&pending.SuggestedEventID, &pending.SuggestedPart, &pending.Confidence,
		&pending.State, &pending.PackGroupID, &pending.CreatedAt, &pending.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrImportNotFound
	}
	if err != nil {
		return nil, err
	}
	return pending, nil
}

// Claim atomically moves the import from Pending to Importing. Exactly one
// of any number of concurrent claims succeeds; the rest fail with
// ErrImportAlreadyClaimed.
func (r *SQLitePendingImportRepository) Claim(ctx context.Context, id int64, now time.Time) (*models.PendingImport, error) {
	query := `
		UPDATE pending_imports SET state = ?, updated_at = ?
		WHERE id = ? AND state = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		models.ImportStateImporting, now, id, models.ImportStatePending)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// Distinguish a missing row from a lost claim race
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, models.ErrImportAlreadyClaimed
	}
	return r.GetByID(ctx, id)
}

// Transition moves the import between the given states with the same
// conditional-update discipline as Claim
func (r *SQLitePendingImportRepository) Transition(ctx context.Context, id int64, from, to models.PendingImportState, now time.Time) error {
	query := `
		UPDATE pending_imports SET state = ?, updated_at = ?
		WHERE id = ? AND state = ?
	`
	result, err := r.db.ExecContext(ctx, query, to, now, id, from)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: import %d is %s, expected %s",
			models.ErrImportStateTerminal, id, current.State, from)
	}
	return nil
}

// List returns imports in the given state, oldest first
func (r *SQLitePendingImportRepository) List(ctx context.Context, state models.PendingImportState, limit int) ([]*models.PendingImport, error) {
	query := `
		SELECT id, path, size_bytes, quality, suggested_event_id, suggested_part,
			   confidence, state, pack_group_id, created_at, updated_at
		FROM pending_imports
		WHERE state = ?
		ORDER BY created_at ASC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, state, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pendings []*models.PendingImport
	for rows.Next() {
		pending := &models.PendingImport{}
		if err := rows.Scan(
			&pending.ID, &pending.Path, &pending.SizeBytes, &pending.Quality,
			&pending.SuggestedEventID, &pending.SuggestedPart, &pending.Confidence,
			&pending.State, &pending.PackGroupID, &pending.CreatedAt, &pending.UpdatedAt); err != nil {
			return nil, err
		}
		pendings = append(pendings, pending)
	}
	return pendings, rows.Err()
}

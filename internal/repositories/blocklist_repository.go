package repositories

import (
	"context"
	"database/sql"

	"github.com/fixturefox/fixturefox/internal/models"
)

// SQLiteBlocklistRepository implements BlocklistRepository using SQLite
type SQLiteBlocklistRepository struct {
	db *sql.DB
}

// NewBlocklistRepository creates a new SQLite-based blocklist repository
func NewBlocklistRepository(db *sql.DB) BlocklistRepository {
	return &SQLiteBlocklistRepository{db: db}
}

// Create appends a rejection record
func (r *SQLiteBlocklistRepository) Create(ctx context.Context, record *models.RejectionRecord) error {
	query := `
		INSERT INTO blocklist (key, source_id, reason, message, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		record.Key, record.SourceID, record.Reason, record.Message, record.CreatedAt)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	record.ID = id
	return nil
}

// Contains reports whether the (key, source) pair is blocklisted
func (r *SQLiteBlocklistRepository) Contains(ctx context.Context, key string, sourceID int64) (bool, error) {
	query := `SELECT 1 FROM blocklist WHERE key = ? AND source_id = ? LIMIT 1`

	var one int
	err := r.db.QueryRowContext(ctx, query, key, sourceID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns blocklist records newest first
func (r *SQLiteBlocklistRepository) List(ctx context.Context, limit, offset int) ([]*models.RejectionRecord, error) {
	query := `
		SELECT id, key, source_id, reason, message, created_at
		FROM blocklist
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.RejectionRecord
	for rows.Next() {
		record := &models.RejectionRecord{}
		if err := rows.Scan(&record.ID, &record.Key, &record.SourceID,
			&record.Reason, &record.Message, &record.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

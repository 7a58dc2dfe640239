package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/fixturefox/fixturefox/internal/models"
)

// SQLiteSourceRepository implements SourceRepository using SQLite
type SQLiteSourceRepository struct {
	db *sql.DB
}

// NewSourceRepository creates a new SQLite-based source repository
func NewSourceRepository(db *sql.DB) SourceRepository {
	return &SQLiteSourceRepository{db: db}
}

// Create persists a new source configuration
func (r *SQLiteSourceRepository) Create(ctx context.Context, source *models.Source) error {
	query := `
		INSERT INTO sources (
			name, type, base_url, priority, is_enabled, query_limit_per_hour,
			grab_limit_per_hour, timeout_seconds, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, datetime('now'), datetime('now'))
	`
	result, err := r.db.ExecContext(ctx, query,
		source.Name, source.Type, source.BaseURL, source.Priority,
		source.IsEnabled, source.QueryLimitPerHour, source.GrabLimitPerHour,
		source.TimeoutSeconds)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	source.ID = id
	return nil
}

// GetByID retrieves a source by id
func (r *SQLiteSourceRepository) GetByID(ctx context.Context, id int64) (*models.Source, error) {
	query := `
		SELECT id, name, type, base_url, priority, is_enabled,
			   query_limit_per_hour, grab_limit_per_hour, timeout_seconds,
			   created_at, updated_at
		FROM sources WHERE id = ?
	`
	source := &models.Source{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&source.ID, &source.Name, &source.Type, &source.BaseURL,
		&source.Priority, &source.IsEnabled, &source.QueryLimitPerHour,
		&source.GrabLimitPerHour, &source.TimeoutSeconds,
		&source.CreatedAt, &source.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrSourceNotFound
	}
	if err != nil {
		return nil, err
	}
	return source, nil
}

// List returns sources ordered by priority
func (r *SQLiteSourceRepository) List(ctx context.Context, enabledOnly bool) ([]*models.Source, error) {
	query := `
		SELECT id, name, type, base_url, priority, is_enabled,
			   query_limit_per_hour, grab_limit_per_hour, timeout_seconds,
			   created_at, updated_at
		FROM sources
	`
	if enabledOnly {
		query += ` WHERE is_enabled = 1`
	}
	query += ` ORDER BY priority ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []*models.Source
	for rows.Next() {
		source := &models.Source{}
		if err := rows.Scan(
			&source.ID, &source.Name, &source.Type, &source.BaseURL,
			&source.Priority, &source.IsEnabled, &source.QueryLimitPerHour,
			&source.GrabLimitPerHour, &source.TimeoutSeconds,
			&source.CreatedAt, &source.UpdatedAt); err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}
	return sources, rows.Err()
}

// Update persists changes to a source configuration
func (r *SQLiteSourceRepository) Update(ctx context.Context, source *models.Source) error {
	query := `
		UPDATE sources SET
			name = ?, type = ?, base_url = ?, priority = ?, is_enabled = ?,
			query_limit_per_hour = ?, grab_limit_per_hour = ?,
			timeout_seconds = ?, updated_at = datetime('now')
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		source.Name, source.Type, source.BaseURL, source.Priority,
		source.IsEnabled, source.QueryLimitPerHour, source.GrabLimitPerHour,
		source.TimeoutSeconds, source.ID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrSourceNotFound
	}
	return nil
}

// Delete removes a source configuration
func (r *SQLiteSourceRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrSourceNotFound
	}
	return nil
}

// SQLiteSourceHealthRepository implements SourceHealthRepository using
// SQLite
type SQLiteSourceHealthRepository struct {
	db *sql.DB
}

// NewSourceHealthRepository creates a new SQLite-based source health
// repository
func NewSourceHealthRepository(db *sql.DB) SourceHealthRepository {
	return &SQLiteSourceHealthRepository{db: db}
}

// Upsert writes the full health record for a source
func (r *SQLiteSourceHealthRepository) Upsert(ctx context.Context, health *models.SourceHealth) error {
	query := `
		INSERT INTO source_health (
			source_id, query_failures, query_disabled_until, query_last_failure_at,
			query_last_failure_reason, grab_failures, grab_disabled_until,
			grab_last_failure_at, grab_last_failure_reason, connection_failures,
			connection_last_failure, rate_limited_until, queries_this_hour,
			grabs_this_hour, hour_reset_at, last_success_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id) DO UPDATE SET
			query_failures = excluded.query_failures,
			query_disabled_until = excluded.query_disabled_until,
			query_last_failure_at = excluded.query_last_failure_at,
			query_last_failure_reason = excluded.query_last_failure_reason,
			grab_failures = excluded.grab_failures,
			grab_disabled_until = excluded.grab_disabled_until,
			grab_last_failure_at = excluded.grab_last_failure_at,
			grab_last_failure_reason = excluded.grab_last_failure_reason,
			connection_failures = excluded.connection_failures,
			connection_last_failure = excluded.connection_last_failure,
			rate_limited_until = excluded.rate_limited_until,
			queries_this_hour = excluded.queries_this_hour,
			grabs_this_hour = excluded.grabs_this_hour,
			hour_reset_at = excluded.hour_reset_at,
			last_success_at = excluded.last_success_at,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		health.SourceID,
		health.Query.Failures, nullableTime(health.Query.DisabledUntil), health.Query.LastFailureAt, health.Query.LastFailureReason,
		health.Grab.Failures, nullableTime(health.Grab.DisabledUntil), health.Grab.LastFailureAt, health.Grab.LastFailureReason,
		health.ConnectionFailures, health.ConnectionLastFailure,
		nullableTime(health.RateLimitedUntil),
		health.QueriesThisHour, health.GrabsThisHour, nullableTime(health.HourResetAt),
		health.LastSuccessAt, health.UpdatedAt)
	return err
}

// GetBySourceID retrieves the health record for a source
func (r *SQLiteSourceHealthRepository) GetBySourceID(ctx context.Context, sourceID int64) (*models.SourceHealth, error) {
	query := healthSelect + ` WHERE source_id = ?`
	health, err := scanHealth(r.db.QueryRowContext(ctx, query, sourceID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return health, nil
}

// List returns all persisted health records
func (r *SQLiteSourceHealthRepository) List(ctx context.Context) ([]*models.SourceHealth, error) {
	rows, err := r.db.QueryContext(ctx, healthSelect)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.SourceHealth
	for rows.Next() {
		health, err := scanHealth(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, health)
	}
	return records, rows.Err()
}

const healthSelect = `
	SELECT source_id, query_failures, query_disabled_until, query_last_failure_at,
		   query_last_failure_reason, grab_failures, grab_disabled_until,
		   grab_last_failure_at, grab_last_failure_reason, connection_failures,
		   connection_last_failure, rate_limited_until, queries_this_hour,
		   grabs_this_hour, hour_reset_at, last_success_at, updated_at
	FROM source_health
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanHealth(row rowScanner) (*models.SourceHealth, error) {
	health := &models.SourceHealth{}
	var queryDisabled, grabDisabled, rateLimited, hourReset sql.NullTime
	var queryReason, grabReason sql.NullString
	err := row.Scan(
		&health.SourceID,
		&health.Query.Failures, &queryDisabled, &health.Query.LastFailureAt, &queryReason,
		&health.Grab.Failures, &grabDisabled, &health.Grab.LastFailureAt, &grabReason,
		&health.ConnectionFailures, &health.ConnectionLastFailure,
		&rateLimited, &health.QueriesThisHour, &health.GrabsThisHour,
		&hourReset, &health.LastSuccessAt, &health.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if queryDisabled.Valid {
		health.Query.DisabledUntil = queryDisabled.Time
	}
	if grabDisabled.Valid {
		health.Grab.DisabledUntil = grabDisabled.Time
	}
	if rateLimited.Valid {
		health.RateLimitedUntil = rateLimited.Time
	}
	if hourReset.Valid {
		health.HourResetAt = hourReset.Time
	}
	if queryReason.Valid {
		health.Query.LastFailureReason = queryReason.String
	}
	if grabReason.Valid {
		health.Grab.LastFailureReason = grabReason.String
	}
	return health, nil
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

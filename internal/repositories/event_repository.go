package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/fixturefox/fixturefox/internal/models"
)

// SQLiteEventRepository implements EventRepository using SQLite. Aliases
// and parts are stored as JSON columns alongside the row.
type SQLiteEventRepository struct {
	db *sql.DB
}

// NewEventRepository creates a new SQLite-based event repository
func NewEventRepository(db *sql.DB) EventRepository {
	return &SQLiteEventRepository{db: db}
}

// Create persists a new library event
func (r *SQLiteEventRepository) Create(ctx context.Context, event *models.Event) error {
	aliases, err := json.Marshal(event.Aliases)
	if err != nil {
		return err
	}
	parts, err := json.Marshal(event.Parts)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO events (
			league_id, home_team_id, away_team_id, title, aliases, sport,
			season, round, scheduled_at, monitored, parts, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'), datetime('now'))
	`
	result, err := r.db.ExecContext(ctx, query,
		event.LeagueID, event.HomeTeamID, event.AwayTeamID, event.Title,
		string(aliases), event.Sport, event.Season, event.Round,
		event.ScheduledAt, event.Monitored, string(parts))
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	event.ID = id
	return nil
}

// GetByID retrieves an event by id
func (r *SQLiteEventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	query := eventSelect + ` WHERE id = ?`
	event, err := scanEvent(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, models.ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return event, nil
}

// ListCandidates returns monitored events scheduled within the window
func (r *SQLiteEventRepository) ListCandidates(ctx context.Context, from, to time.Time) ([]*models.Event, error) {
	query := eventSelect + `
		WHERE monitored = 1 AND scheduled_at >= ? AND scheduled_at <= ?
		ORDER BY scheduled_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// Update persists changes to an event
func (r *SQLiteEventRepository) Update(ctx context.Context, event *models.Event) error {
	aliases, err := json.Marshal(event.Aliases)
	if err != nil {
		return err
	}
	parts, err := json.Marshal(event.Parts)
	if err != nil {
		return err
	}
	query := `
		UPDATE events SET
			league_id = ?, home_team_id = ?, away_team_id = ?, title = ?,
			aliases = ?, sport = ?, season = ?, round = ?, scheduled_at = ?,
			monitored = ?, parts = ?, updated_at = datetime('now')
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		event.LeagueID, event.HomeTeamID, event.AwayTeamID, event.Title,
		string(aliases), event.Sport, event.Season, event.Round,
		event.ScheduledAt, event.Monitored, string(parts), event.ID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrEventNotFound
	}
	return nil
}

const eventSelect = `
	SELECT id, league_id, home_team_id, away_team_id, title, aliases, sport,
		   season, round, scheduled_at, monitored, parts, created_at, updated_at
	FROM events
`

func scanEvent(row rowScanner) (*models.Event, error) {
	event := &models.Event{}
	var aliases, parts string
	err := row.Scan(
		&event.ID, &event.LeagueID, &event.HomeTeamID, &event.AwayTeamID,
		&event.Title, &aliases, &event.Sport, &event.Season, &event.Round,
		&event.ScheduledAt, &event.Monitored, &parts,
		&event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if aliases != "" {
		if err := json.Unmarshal([]byte(aliases), &event.Aliases); err != nil {
			return nil, err
		}
	}
	if parts != "" {
		if err := json.Unmarshal([]byte(parts), &event.Parts); err != nil {
			return nil, err
		}
	}
	return event, nil
}

package models

import (
	"time"
)

// League represents a competition. Related entities reference each other by
// integer id and are resolved through lookups at read time.
type League struct {
	ID    int64  `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Sport string `json:"sport" db:"sport"`
}

// Team represents a participating team
type Team struct {
	ID       int64  `json:"id" db:"id"`
	LeagueID int64  `json:"league_id" db:"league_id"`
	Name     string `json:"name" db:"name"`
	Alias    string `json:"alias,omitempty" db:"alias"`
}

// EventPart is one segment of a multi-part broadcast, e.g. pre-game show,
// the match itself, post-game analysis
type EventPart struct {
	Number int    `json:"number" db:"part_number"`
	Title  string `json:"title" db:"title"`
}

// Event represents a monitored broadcast in the library
type Event struct {
	ID          int64       `json:"id" db:"id"`
	LeagueID    int64       `json:"league_id" db:"league_id"`
	HomeTeamID  *int64      `json:"home_team_id,omitempty" db:"home_team_id"`
	AwayTeamID  *int64      `json:"away_team_id,omitempty" db:"away_team_id"`
	Title       string      `json:"title" db:"title"`
	Aliases     []string    `json:"aliases,omitempty"`
	Sport       string      `json:"sport" db:"sport"`
	Season      int         `json:"season" db:"season"`
	Round       string      `json:"round,omitempty" db:"round"`
	ScheduledAt time.Time   `json:"scheduled_at" db:"scheduled_at"`
	Monitored   bool        `json:"monitored" db:"monitored"`
	Parts       []EventPart `json:"parts,omitempty"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// SearchKey returns the cache lookup key for queries this event would issue
func (e *Event) SearchKey() ReleaseSearchKey {
	return ReleaseSearchKey{Sport: e.Sport, Year: e.Season, Round: e.Round}
}

package repositories

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/fixturefox/fixturefox/internal/models"
)

// SQLiteProfileRepository implements ProfileRepository using SQLite.
// Profiles and rules are validated and compiled before they are written so
// malformed definitions never reach the evaluation path.
type SQLiteProfileRepository struct {
	db *sql.DB
}

// NewProfileRepository creates a new SQLite-based profile repository
func NewProfileRepository(db *sql.DB) ProfileRepository {
	return &SQLiteProfileRepository{db: db}
}

// SaveProfile validates and persists a quality profile
func (r *SQLiteProfileRepository) SaveProfile(ctx context.Context, profile *models.QualityProfile) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	items, err := json.Marshal(profile.Items)
	if err != nil {
		return err
	}
	scores, err := json.Marshal(profile.FormatScores)
	if err != nil {
		return err
	}

	if profile.ID == 0 {
		query := `
			INSERT INTO quality_profiles (
				name, items, cutoff_rank, min_format_score, cutoff_format_score,
				min_score_increment, min_size_mb, max_size_mb, format_scores
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		result, err := r.db.ExecContext(ctx, query,
			profile.Name, string(items), profile.CutoffRank,
			profile.MinFormatScore, profile.CutoffFormatScore,
			profile.MinScoreIncrement, profile.MinSizeMB, profile.MaxSizeMB,
			string(scores))
		if err != nil {
			return err
		}
		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		profile.ID = id
		return nil
	}

	query := `
		UPDATE quality_profiles SET
			name = ?, items = ?, cutoff_rank = ?, min_format_score = ?,
			cutoff_format_score = ?, min_score_increment = ?, min_size_mb = ?,
			max_size_mb = ?, format_scores = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		profile.Name, string(items), profile.CutoffRank,
		profile.MinFormatScore, profile.CutoffFormatScore,
		profile.MinScoreIncrement, profile.MinSizeMB, profile.MaxSizeMB,
		string(scores), profile.ID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrProfileNotFound
	}
	return nil
}

// GetProfile retrieves a profile by id
func (r *SQLiteProfileRepository) GetProfile(ctx context.Context, id int64) (*models.QualityProfile, error) {
	query := profileSelect + ` WHERE id = ?`
	profile, err := scanProfile(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, models.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// ListProfiles returns all profiles
func (r *SQLiteProfileRepository) ListProfiles(ctx context.Context) ([]*models.QualityProfile, error) {
	rows, err := r.db.QueryContext(ctx, profileSelect+` ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*models.QualityProfile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}

// SaveRule compiles and persists a format rule
func (r *SQLiteProfileRepository) SaveRule(ctx context.Context, rule *models.FormatRule) error {
	if err := rule.Compile(); err != nil {
		return err
	}
	specs, err := json.Marshal(rule.Specs)
	if err != nil {
		return err
	}

	if rule.ID == 0 {
		result, err := r.db.ExecContext(ctx,
			`INSERT INTO format_rules (name, specs) VALUES (?, ?)`,
			rule.Name, string(specs))
		if err != nil {
			return err
		}
		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		rule.ID = id
		return nil
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE format_rules SET name = ?, specs = ? WHERE id = ?`,
		rule.Name, string(specs), rule.ID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrRuleNotFound
	}
	return nil
}

// ListRules returns all format rules compiled and ready for evaluation
func (r *SQLiteProfileRepository) ListRules(ctx context.Context) ([]*models.FormatRule, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, specs FROM format_rules ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*models.FormatRule
	for rows.Next() {
		rule := &models.FormatRule{}
		var specs string
		if err := rows.Scan(&rule.ID, &rule.Name, &specs); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(specs), &rule.Specs); err != nil {
			return nil, err
		}
		if err := rule.Compile(); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

const profileSelect = `
	SELECT id, name, items, cutoff_rank, min_format_score, cutoff_format_score,
		   min_score_increment, min_size_mb, max_size_mb, format_scores
	FROM quality_profiles
`

func scanProfile(row rowScanner) (*models.QualityProfile, error) {
	profile := &models.QualityProfile{}
	var items, scores string
	err := row.Scan(
		&profile.ID, &profile.Name, &items, &profile.CutoffRank,
		&profile.MinFormatScore, &profile.CutoffFormatScore,
		&profile.MinScoreIncrement, &profile.MinSizeMB, &profile.MaxSizeMB,
		&scores)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(items), &profile.Items); err != nil {
		return nil, err
	}
	if scores != "" && scores != "null" {
		if err := json.Unmarshal([]byte(scores), &profile.FormatScores); err != nil {
			return nil, err
		}
	}
	return profile, nil
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/stridewell/step-engine/internal/core/domain"
)

type PostgresLeaderboardRepository struct {
	db *sqlx.DB
}

func NewPostgresLeaderboardRepository(db *sqlx.DB) *PostgresLeaderboardRepository {
	return &PostgresLeaderboardRepository{db: db}
}

// leaderboardRow carries the jsonb daily map in its wire form.
type leaderboardRow struct {
	ID               string    `db:"id"`
	ChallengeID      string    `db:"challenge_id"`
	CycleID          string    `db:"cycle_id"`
	UserID           string    `db:"user_id"`
	TotalSteps       int       `db:"total_steps"`
	DailySteps       []byte    `db:"daily_steps"`
	IsValidated      bool      `db:"is_validated"`
	FlaggedForReview bool      `db:"flagged_for_review"`
	Version          int       `db:"version"`
	LastUpdated      time.Time `db:"last_updated"`
}

func (row *leaderboardRow) toDomain() (*domain.LeaderboardEntry, error) {
	daily := make(map[string]int)
	if len(row.DailySteps) > 0 {
		if err := json.Unmarshal(row.DailySteps, &daily); err != nil {
			return nil, fmt.Errorf("corrupted daily_steps for entry %s: %w", row.ID, err)
		}
	}

	return &domain.LeaderboardEntry{
		ID:               row.ID,
		ChallengeID:      row.ChallengeID,
		CycleID:          row.CycleID,
		UserID:           row.UserID,
		TotalSteps:       row.TotalSteps,
		DailySteps:       daily,
		IsValidated:      row.IsValidated,
		FlaggedForReview: row.FlaggedForReview,
		Version:          row.Version,
		LastUpdated:      row.LastUpdated,
	}, nil
}

// Upsert writes the entry keyed by (cycle_id, user_id). The conflict
// path bumps the stored version so repeated device pushes are visible
// as churn without ever double counting steps.
func (r *PostgresLeaderboardRepository) Upsert(ctx context.Context, entry *domain.LeaderboardEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	daily, err := json.Marshal(entry.DailySteps)
	if err != nil {
		return fmt.Errorf("failed to encode daily steps: %w", err)
	}

	query := `
		INSERT INTO leaderboard_entries (
			id, challenge_id, cycle_id, user_id, total_steps,
			daily_steps, is_validated, flagged_for_review, version, last_updated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (cycle_id, user_id) DO UPDATE
		SET total_steps        = EXCLUDED.total_steps,
		    daily_steps        = EXCLUDED.daily_steps,
		    is_validated       = EXCLUDED.is_validated,
		    flagged_for_review = EXCLUDED.flagged_for_review,
		    version            = leaderboard_entries.version + 1,
		    last_updated       = EXCLUDED.last_updated`

	_, err = r.db.ExecContext(ctx, query,
		entry.ID, entry.ChallengeID, entry.CycleID, entry.UserID, entry.TotalSteps,
		daily, entry.IsValidated, entry.FlaggedForReview, entry.Version, entry.LastUpdated,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return domain.ErrCycleNotFound
		}
		return err
	}
	return nil
}

func (r *PostgresLeaderboardRepository) GetByCycleAndUser(ctx context.Context, cycleID, userID string) (*domain.LeaderboardEntry, error) {
	var row leaderboardRow
	query := `SELECT * FROM leaderboard_entries WHERE cycle_id = $1 AND user_id = $2`

	err := r.db.GetContext(ctx, &row, query, cycleID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, err
	}
	return row.toDomain()
}

func (r *PostgresLeaderboardRepository) ListValidatedTop(ctx context.Context, cycleID string, limit int) ([]*domain.LeaderboardEntry, error) {
	rows := []leaderboardRow{}

	query := `
		SELECT * FROM leaderboard_entries
		WHERE cycle_id = $1
		  AND is_validated = TRUE
		ORDER BY total_steps DESC, last_updated ASC
		LIMIT $2`

	err := r.db.SelectContext(ctx, &rows, query, cycleID, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]*domain.LeaderboardEntry, 0, len(rows))
	for i := range rows {
		entry, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (r *PostgresLeaderboardRepository) ResetForCycle(ctx context.Context, cycleID string) error {
	query := `
		UPDATE leaderboard_entries
		SET total_steps = 0,
		    daily_steps = '{}'::jsonb,
		    version = version + 1,
		    last_updated = $1
		WHERE cycle_id = $2`

	_, err := r.db.ExecContext(ctx, query, time.Now().UTC(), cycleID)
	return err
}

package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/stridewell/step-engine/internal/core/domain"
)

type PostgresCycleRepository struct {
	db *sqlx.DB
}

func NewPostgresCycleRepository(db *sqlx.DB) *PostgresCycleRepository {
	return &PostgresCycleRepository{db: db}
}

func (r *PostgresCycleRepository) GetActive(ctx context.Context, challengeID string) (*domain.ChallengeCycle, error) {
	var cycle domain.ChallengeCycle
	query := `SELECT * FROM challenge_cycles WHERE challenge_id = $1 AND status = $2`

	err := r.db.GetContext(ctx, &cycle, query, challengeID, domain.CycleStatusActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCycleNotFound
		}
		return nil, err
	}
	return &cycle, nil
}

// Insert relies on a partial unique index on (challenge_id) WHERE
// status = 'active': a second concurrent open attempt loses the race
// at the database instead of after a stale read.
func (r *PostgresCycleRepository) Insert(ctx context.Context, cycle *domain.ChallengeCycle) error {
	query := `
		INSERT INTO challenge_cycles (
			id, challenge_id, cycle_start, cycle_end,
			status, participants_count, created_at
		) VALUES (
			:id, :challenge_id, :cycle_start, :cycle_end,
			:status, :participants_count, :created_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, cycle)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" {
				return domain.ErrActiveCycleExists
			}
			if pgErr.Code == "23503" {
				return domain.ErrChallengeNotFound
			}
		}
		return err
	}
	return nil
}

// Complete transitions a cycle active -> completed. The status guard
// in the WHERE clause makes the transition first-writer-wins; a
// replayed close sees zero affected rows and reports it.
func (r *PostgresCycleRepository) Complete(ctx context.Context, cycleID string, winnerUserID, runnerUpUserID *string, participantsCount int) error {
	query := `
		UPDATE challenge_cycles
		SET status = $1,
		    winner_user_id = $2,
		    runner_up_user_id = $3,
		    participants_count = $4
		WHERE id = $5
		  AND status = $6`

	result, err := r.db.ExecContext(ctx, query,
		domain.CycleStatusCompleted, winnerUserID, runnerUpUserID,
		participantsCount, cycleID, domain.CycleStatusActive,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		exists, _ := r.exists(ctx, cycleID)
		if !exists {
			return domain.ErrCycleNotFound
		}
		return domain.ErrCycleAlreadyClosed
	}

	return nil
}

func (r *PostgresCycleRepository) exists(ctx context.Context, id string) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, "SELECT count(*) FROM challenge_cycles WHERE id = $1", id)
	return count > 0, err
}

package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/stridewell/step-engine/internal/core/domain"
)

type PostgresChallengeRepository struct {
	db *sqlx.DB
}

func NewPostgresChallengeRepository(db *sqlx.DB) *PostgresChallengeRepository {
	return &PostgresChallengeRepository{db: db}
}

func (r *PostgresChallengeRepository) GetByID(ctx context.Context, id string) (*domain.Challenge, error) {
	var challenge domain.Challenge
	query := `SELECT * FROM challenges WHERE id = $1`

	err := r.db.GetContext(ctx, &challenge, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrChallengeNotFound
		}
		return nil, err
	}
	return &challenge, nil
}

func (r *PostgresChallengeRepository) ListActiveRecurring(ctx context.Context) ([]*domain.Challenge, error) {
	challenges := []*domain.Challenge{}

	query := `
		SELECT * FROM challenges
		WHERE status = $1
		  AND challenge_type IN ($2, $3)
		ORDER BY start_date ASC`

	err := r.db.SelectContext(ctx, &challenges, query,
		domain.ChallengeStatusActive,
		domain.ChallengeWeeklyRecurring,
		domain.ChallengeMonthlyRecurring,
	)
	if err != nil {
		return nil, err
	}
	return challenges, nil
}

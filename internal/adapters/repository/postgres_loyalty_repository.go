package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/stridewell/step-engine/internal/core/domain"
)

type PostgresLoyaltyRepository struct {
	db *sqlx.DB
}

func NewPostgresLoyaltyRepository(db *sqlx.DB) *PostgresLoyaltyRepository {
	return &PostgresLoyaltyRepository{db: db}
}

// Insert appends one ledger row. The unique index on (reference_id,
// user_id) is the last line of defense against double awards.
func (r *PostgresLoyaltyRepository) Insert(ctx context.Context, tx *domain.LoyaltyTransaction) error {
	query := `
		INSERT INTO loyalty_transactions (
			id, user_id, type, points,
			description, reference_type, reference_id, created_at
		) VALUES (
			:id, :user_id, :type, :points,
			:description, :reference_type, :reference_id, :created_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, tx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateAward
		}
		return err
	}
	return nil
}

package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/stridewell/step-engine/internal/core/domain"
)

// PostgresValidationLogRepository is the write-only audit trail of
// step validations. Nothing in the engine reads these rows back; they
// exist for operators investigating anti-cheat flags.
type PostgresValidationLogRepository struct {
	db *sqlx.DB
}

func NewPostgresValidationLogRepository(db *sqlx.DB) *PostgresValidationLogRepository {
	return &PostgresValidationLogRepository{db: db}
}

func (r *PostgresValidationLogRepository) Insert(ctx context.Context, logEntry *domain.ValidationLog) error {
	if logEntry.ID == "" {
		logEntry.ID = uuid.NewString()
	}

	flags := make([]string, 0, len(logEntry.Flags))
	for _, f := range logEntry.Flags {
		flags = append(flags, string(f))
	}

	query := `
		INSERT INTO step_validation_logs (
			id, user_id, challenge_id, reported_steps,
			validation_score, anomaly_flags, device_info, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		logEntry.ID, logEntry.UserID, logEntry.ChallengeID, logEntry.ReportedSteps,
		logEntry.Score, pq.Array(flags), logEntry.DeviceInfo, logEntry.CreatedAt,
	)
	return err
}

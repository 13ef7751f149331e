package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/stridewell/step-engine/internal/core/domain"
)

type PostgresDeviceRepository struct {
	db *sqlx.DB
}

func NewPostgresDeviceRepository(db *sqlx.DB) *PostgresDeviceRepository {
	return &PostgresDeviceRepository{db: db}
}

func (r *PostgresDeviceRepository) Create(ctx context.Context, device *domain.Device) error {
	query := `
		INSERT INTO devices (id, user_id, label, secret_hash, created_at, updated_at)
		VALUES (:id, :user_id, :label, :secret_hash, :created_at, :updated_at)`

	_, err := r.db.NamedExecContext(ctx, query, device)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDeviceAlreadyExists
		}
		return err
	}
	return nil
}

func (r *PostgresDeviceRepository) GetByID(ctx context.Context, id string) (*domain.Device, error) {
	var device domain.Device
	query := `SELECT * FROM devices WHERE id = $1`

	err := r.db.GetContext(ctx, &device, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDeviceNotFound
		}
		return nil, err
	}
	return &device, nil
}

package domain

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrDeviceNotFound      = errors.New("device not found")
	ErrDeviceAlreadyExists = errors.New("device already registered")
	ErrInvalidDeviceSecret = errors.New("invalid device secret")
	ErrSecretTooShort      = errors.New("device secret must be at least 16 characters long")
	ErrInvalidUserID       = errors.New("invalid user id")
)

// Device is one registered step-tracking client of a user. A user can
// own several devices; each authenticates with its own secret and all
// of them feed the same leaderboard entry through upserts.
type Device struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	Label      string    `json:"label" db:"label"`
	SecretHash string    `json:"-" db:"secret_hash"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

func NewDevice(id, userID, label string) (*Device, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidUserID
	}

	now := time.Now().UTC()
	return &Device{
		ID:        id,
		UserID:    userID,
		Label:     strings.TrimSpace(label),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (d *Device) SetSecret(plainSecret string) error {
	if utf8.RuneCountInString(plainSecret) < 16 {
		return ErrSecretTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plainSecret), 12)
	if err != nil {
		return err
	}

	d.SecretHash = string(hash)
	d.UpdatedAt = time.Now().UTC()
	return nil
}

func (d *Device) CheckSecret(plainSecret string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(d.SecretHash), []byte(plainSecret)); err != nil {
		return ErrInvalidDeviceSecret
	}
	return nil
}

type DeviceRepository interface {
	// Create persists a newly registered device.
	Create(ctx context.Context, device *Device) error

	// GetByID retrieves a device by its unique identifier.
	GetByID(ctx context.Context, id string) (*Device, error)
}

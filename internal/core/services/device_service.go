package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/stridewell/step-engine/internal/core/domain"
)

// DeviceService registers step-tracking devices and checks their
// credentials when they exchange a secret for a token.
type DeviceService struct {
	repo domain.DeviceRepository
}

func NewDeviceService(repo domain.DeviceRepository) *DeviceService {
	return &DeviceService{
		repo: repo,
	}
}

type RegisterDeviceInput struct {
	UserID string
	Label  string
	Secret string
}

func (s *DeviceService) Register(ctx context.Context, input RegisterDeviceInput) (*domain.Device, error) {
	id := uuid.NewString()
	device, err := domain.NewDevice(id, input.UserID, input.Label)
	if err != nil {
		return nil, err
	}

	if err := device.SetSecret(input.Secret); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, device); err != nil {
		return nil, fmt.Errorf("device service: failed to register device: %w", err)
	}

	return device, nil
}

// Authenticate verifies a device secret and returns the device.
func (s *DeviceService) Authenticate(ctx context.Context, deviceID, secret string) (*domain.Device, error) {
	device, err := s.repo.GetByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	if err := device.CheckSecret(secret); err != nil {
		return nil, err
	}

	return device, nil
}

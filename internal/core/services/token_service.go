package services

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/stridewell/step-engine/internal/core/domain"
)

type TokenService struct {
	secretKey     []byte
	issuer        string
	tokenDuration time.Duration
	deviceRepo    domain.DeviceRepository
}

func NewTokenService(secretKey string, issuer string, tokenDuration time.Duration, deviceRepo domain.DeviceRepository) *TokenService {
	return &TokenService{
		secretKey:     []byte(secretKey),
		issuer:        issuer,
		tokenDuration: tokenDuration,
		deviceRepo:    deviceRepo,
	}
}

// GenerateToken issues a device token carrying both the owning user
// and the device identity.
func (s *TokenService) GenerateToken(userID, deviceID string) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"did": deviceID,
		"exp": time.Now().Add(s.tokenDuration).Unix(),
		"iat": time.Now().Unix(),
		"iss": s.issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedToken, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("token service: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// ValidateToken returns the user and device IDs of a valid token. The
// device must still exist: deregistering a device revokes its tokens.
func (s *TokenService) ValidateToken(ctx context.Context, tokenString string) (string, string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	})

	if err != nil {
		return "", "", fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", "", fmt.Errorf("invalid token claims")
	}

	if iss, ok := claims["iss"].(string); !ok || iss != s.issuer {
		return "", "", fmt.Errorf("invalid token issuer")
	}

	userID, ok := claims["sub"].(string)
	if !ok {
		return "", "", fmt.Errorf("invalid token subject")
	}

	deviceID, ok := claims["did"].(string)
	if !ok {
		return "", "", fmt.Errorf("invalid device claim")
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	device, err := s.deviceRepo.GetByID(ctx, deviceID)
	if err != nil {
		return "", "", fmt.Errorf("device no longer registered or db error: %w", err)
	}
	if device.UserID != userID {
		return "", "", fmt.Errorf("device does not belong to token subject")
	}

	return userID, deviceID, nil
}

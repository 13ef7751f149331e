package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adapterHTTP "github.com/stridewell/step-engine/internal/adapters/handler/http"
	"github.com/stridewell/step-engine/internal/adapters/repository"
	"github.com/stridewell/step-engine/internal/core/services"
)

func setupAuthRouter(t *testing.T) (*gin.Engine, *services.TokenService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	devices := repository.NewInMemoryDeviceRepository()
	deviceService := services.NewDeviceService(devices)
	tokenService := services.NewTokenService("test-secret", "stride-step-engine", time.Hour, devices)

	handler := adapterHTTP.NewAuthHandler(deviceService, tokenService)

	r := gin.New()
	handler.RegisterRoutes(r.Group("/api/v1"))
	return r, tokenService
}

func TestDeviceRegistrationAndToken(t *testing.T) {
	t.Run("Success: Register then exchange secret for a valid token", func(t *testing.T) {
		router, tokenService := setupAuthRouter(t)

		body := `{"user_id": "u1", "label": "Pixel 9", "secret": "a-long-enough-secret"}`
		req, _ := http.NewRequest("POST", "/api/v1/auth/devices", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code)

		var device struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &device))
		require.NotEmpty(t, device.ID)

		tokenBody, _ := json.Marshal(gin.H{"device_id": device.ID, "secret": "a-long-enough-secret"})
		req, _ = http.NewRequest("POST", "/api/v1/auth/token", bytes.NewBuffer(tokenBody))

		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var token struct {
			Token string `json:"token"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &token))

		userID, deviceID, err := tokenService.ValidateToken(context.Background(), token.Token)
		require.NoError(t, err)
		assert.Equal(t, "u1", userID)
		assert.Equal(t, device.ID, deviceID)
	})

	t.Run("Fail: 400 on short secret", func(t *testing.T) {
		router, _ := setupAuthRouter(t)

		body := `{"user_id": "u1", "secret": "short"}`
		req, _ := http.NewRequest("POST", "/api/v1/auth/devices", bytes.NewBufferString(body))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Security: 401 on wrong secret", func(t *testing.T) {
		router, _ := setupAuthRouter(t)

		body := `{"user_id": "u1", "secret": "a-long-enough-secret"}`
		req, _ := http.NewRequest("POST", "/api/v1/auth/devices", bytes.NewBufferString(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusCreated, w.Code)

		var device struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &device))

		tokenBody, _ := json.Marshal(gin.H{"device_id": device.ID, "secret": "the-wrong-secret!"})
		req, _ = http.NewRequest("POST", "/api/v1/auth/token", bytes.NewBuffer(tokenBody))
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Security: 401 for an unknown device", func(t *testing.T) {
		router, _ := setupAuthRouter(t)

		body := `{"device_id": "ghost", "secret": "a-long-enough-secret"}`
		req, _ := http.NewRequest("POST", "/api/v1/auth/token", bytes.NewBufferString(body))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

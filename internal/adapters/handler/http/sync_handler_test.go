package http_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adapterHTTP "github.com/stridewell/step-engine/internal/adapters/handler/http"
	"github.com/stridewell/step-engine/internal/adapters/handler/http/middleware"
	"github.com/stridewell/step-engine/internal/adapters/repository"
	"github.com/stridewell/step-engine/internal/core/domain"
	"github.com/stridewell/step-engine/internal/core/services"
)

// fakeAuth stands in for the JWT middleware: it injects the identity
// the real middleware would have extracted from a bearer token.
func fakeAuth(userID, deviceID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserIDKey, userID)
		c.Set(middleware.ContextDeviceIDKey, deviceID)
		c.Next()
	}
}

func setupSyncRouter(t *testing.T, authed bool) (*gin.Engine, *repository.InMemoryLeaderboardRepository, *domain.ChallengeCycle) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cycles := repository.NewInMemoryCycleRepository()
	leaderboards := repository.NewInMemoryLeaderboardRepository()
	logs := repository.NewInMemoryValidationLogRepository()

	challenge := &domain.Challenge{
		ID:     "ch-1",
		Title:  "Spring Walk",
		Type:   domain.ChallengeWeeklyRecurring,
		Status: domain.ChallengeStatusActive,
	}
	cycle, err := domain.NewChallengeCycle(challenge, time.Now())
	require.NoError(t, err)
	require.NoError(t, cycles.Insert(context.Background(), cycle))

	handler := adapterHTTP.NewSyncHandler(services.NewSyncService(leaderboards, cycles, logs))

	r := gin.New()
	group := r.Group("/api/v1")
	if authed {
		group.Use(fakeAuth("u1", "dev-1"))
	}
	handler.RegisterRoutes(group)
	return r, leaderboards, cycle
}

func TestSyncEndpoint(t *testing.T) {
	t.Run("Success: 200 OK with sync result", func(t *testing.T) {
		router, leaderboards, cycle := setupSyncRouter(t, true)

		body := `{"challenge_id": "ch-1", "steps": 8000}`
		req, _ := http.NewRequest("POST", "/api/v1/steps/sync", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"success":true`)
		assert.Contains(t, w.Body.String(), `"synced_steps":8000`)

		entry, err := leaderboards.GetByCycleAndUser(context.Background(), cycle.ID, "u1")
		require.NoError(t, err)
		assert.Equal(t, 8000, entry.TotalSteps)
	})

	t.Run("Success: 200 OK with rejection data for unrealistic steps", func(t *testing.T) {
		router, _, _ := setupSyncRouter(t, true)

		body := `{"challenge_id": "ch-1", "steps": 150000}`
		req, _ := http.NewRequest("POST", "/api/v1/steps/sync", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code, "a validation rejection is not a transport error")
		assert.Contains(t, w.Body.String(), `"synced_steps":0`)
		assert.Contains(t, w.Body.String(), "unrealistic_steps")
	})

	t.Run("Fail: 401 without an authenticated user", func(t *testing.T) {
		router, _, _ := setupSyncRouter(t, false)

		body := `{"challenge_id": "ch-1", "steps": 8000}`
		req, _ := http.NewRequest("POST", "/api/v1/steps/sync", bytes.NewBufferString(body))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Fail: 400 on negative steps", func(t *testing.T) {
		router, _, _ := setupSyncRouter(t, true)

		body := `{"challenge_id": "ch-1", "steps": -5}`
		req, _ := http.NewRequest("POST", "/api/v1/steps/sync", bytes.NewBufferString(body))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Fail: 503 when no active cycle exists", func(t *testing.T) {
		router, _, _ := setupSyncRouter(t, true)

		body := `{"challenge_id": "ch-unknown", "steps": 8000}`
		req, _ := http.NewRequest("POST", "/api/v1/steps/sync", bytes.NewBufferString(body))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "sync_error")
	})
}

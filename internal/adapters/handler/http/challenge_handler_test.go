package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adapterHTTP "github.com/stridewell/step-engine/internal/adapters/handler/http"
	"github.com/stridewell/step-engine/internal/adapters/repository"
	"github.com/stridewell/step-engine/internal/core/domain"
	"github.com/stridewell/step-engine/internal/core/services"
)

func setupChallengeRouter(t *testing.T) (*gin.Engine, *domain.ChallengeCycle) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	challenges := repository.NewInMemoryChallengeRepository()
	cycles := repository.NewInMemoryCycleRepository()
	leaderboards := repository.NewInMemoryLeaderboardRepository()

	challenge := &domain.Challenge{
		ID:     "ch-1",
		Title:  "Spring Walk",
		Type:   domain.ChallengeWeeklyRecurring,
		Status: domain.ChallengeStatusActive,
	}
	challenges.Seed(challenge)

	cycle, err := domain.NewChallengeCycle(challenge, time.Now())
	require.NoError(t, err)
	require.NoError(t, cycles.Insert(context.Background(), cycle))

	clean := domain.ValidateSteps(1, 0)
	for _, spec := range []struct {
		user  string
		steps int
	}{
		{"alice", 30000},
		{"bob", 20000},
	} {
		entry := domain.NewLeaderboardEntry("ch-1", cycle.ID, spec.user)
		entry.ApplySnapshot("2026-03-09", spec.steps, clean, time.Now().UTC())
		require.NoError(t, leaderboards.Upsert(context.Background(), entry))
	}

	handler := adapterHTTP.NewChallengeHandler(services.NewChallengeService(challenges, cycles, leaderboards))

	r := gin.New()
	handler.RegisterRoutes(r.Group("/api/v1"))
	return r, cycle
}

func TestChallengeEndpoints(t *testing.T) {
	t.Run("Success: 200 OK lists active challenges", func(t *testing.T) {
		router, _ := setupChallengeRouter(t)

		req, _ := http.NewRequest("GET", "/api/v1/challenges", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"title":"Spring Walk"`)
	})

	t.Run("Success: 200 OK fetches one challenge", func(t *testing.T) {
		router, _ := setupChallengeRouter(t)

		req, _ := http.NewRequest("GET", "/api/v1/challenges/ch-1", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"id":"ch-1"`)
	})

	t.Run("Fail: 404 for unknown challenge", func(t *testing.T) {
		router, _ := setupChallengeRouter(t)

		req, _ := http.NewRequest("GET", "/api/v1/challenges/nope", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Success: 200 OK returns the current cycle", func(t *testing.T) {
		router, cycle := setupChallengeRouter(t)

		req, _ := http.NewRequest("GET", "/api/v1/challenges/ch-1/cycle", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), cycle.ID)
	})

	t.Run("Success: 200 OK ranks the leaderboard", func(t *testing.T) {
		router, _ := setupChallengeRouter(t)

		req, _ := http.NewRequest("GET", "/api/v1/challenges/ch-1/leaderboard", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, "alice")
		assert.Contains(t, body, "bob")
	})

	t.Run("Success: Leaderboard respects the limit query", func(t *testing.T) {
		router, _ := setupChallengeRouter(t)

		req, _ := http.NewRequest("GET", "/api/v1/challenges/ch-1/leaderboard?limit=1", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "alice")
		assert.NotContains(t, w.Body.String(), "bob")
	})
}

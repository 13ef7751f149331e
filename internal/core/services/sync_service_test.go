package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stridewell/step-engine/internal/adapters/repository"
	"github.com/stridewell/step-engine/internal/core/domain"
	"github.com/stridewell/step-engine/internal/core/services"
	"github.com/stridewell/step-engine/internal/core/tracking"
)

type syncFixture struct {
	svc          *services.SyncService
	leaderboards *repository.InMemoryLeaderboardRepository
	cycles       *repository.InMemoryCycleRepository
	logs         *repository.InMemoryValidationLogRepository
	cycle        *domain.ChallengeCycle
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()

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

	return &syncFixture{
		svc:          services.NewSyncService(leaderboards, cycles, logs),
		leaderboards: leaderboards,
		cycles:       cycles,
		logs:         logs,
		cycle:        cycle,
	}
}

// flakyLeaderboardRepo fails the next failReads reads before
// delegating to the wrapped repository.
type flakyLeaderboardRepo struct {
	domain.LeaderboardRepository
	failReads int
}

func (r *flakyLeaderboardRepo) GetByCycleAndUser(ctx context.Context, cycleID, userID string) (*domain.LeaderboardEntry, error) {
	if r.failReads > 0 {
		r.failReads--
		return nil, errors.New("connection reset by peer")
	}
	return r.LeaderboardRepository.GetByCycleAndUser(ctx, cycleID, userID)
}

func TestSyncService_Push(t *testing.T) {
	ctx := context.Background()
	today := domain.DayKey(time.Now())

	t.Run("Success: Valid count lands on the cycle leaderboard", func(t *testing.T) {
		f := newSyncFixture(t)

		result := f.svc.Push(ctx, services.PushInput{
			UserID:        "u1",
			ChallengeID:   "ch-1",
			DeviceInfo:    "pixel-9/android-16",
			ReportedSteps: 8000,
			Day:           today,
		})

		assert.True(t, result.Success)
		assert.Equal(t, 8000, result.SyncedSteps)
		assert.True(t, result.Validation.IsValid)

		entry, err := f.leaderboards.GetByCycleAndUser(ctx, f.cycle.ID, "u1")
		require.NoError(t, err)
		assert.Equal(t, 8000, entry.TotalSteps)
		assert.True(t, entry.IsValidated)
	})

	t.Run("Success: Re-pushing the same snapshot is idempotent", func(t *testing.T) {
		f := newSyncFixture(t)
		input := services.PushInput{
			UserID:        "u1",
			ChallengeID:   "ch-1",
			ReportedSteps: 8000,
			Day:           today,
		}

		r1 := f.svc.Push(ctx, input)
		r2 := f.svc.Push(ctx, input)

		assert.True(t, r1.Success)
		assert.True(t, r2.Success)
		assert.True(t, r2.Validation.IsValid, "an unchanged total is not a rapid increase")

		entry, err := f.leaderboards.GetByCycleAndUser(ctx, f.cycle.ID, "u1")
		require.NoError(t, err)
		assert.Equal(t, 8000, entry.TotalSteps, "retries MUST NOT double-count")
		assert.Equal(t, 2, entry.Version, "every push bumps the version for auditability")
	})

	t.Run("Success: Two devices of one user merge per-day max", func(t *testing.T) {
		f := newSyncFixture(t)

		f.svc.Push(ctx, services.PushInput{UserID: "u1", ChallengeID: "ch-1", ReportedSteps: 9000, Day: today})
		f.svc.Push(ctx, services.PushInput{UserID: "u1", ChallengeID: "ch-1", ReportedSteps: 4000, Day: today})

		entry, err := f.leaderboards.GetByCycleAndUser(ctx, f.cycle.ID, "u1")
		require.NoError(t, err)
		assert.Equal(t, 9000, entry.TotalSteps, "the lagging device MUST NOT shrink the record")
	})

	t.Run("Security: Unrealistic count is rejected but audited", func(t *testing.T) {
		f := newSyncFixture(t)

		result := f.svc.Push(ctx, services.PushInput{
			UserID:        "u1",
			ChallengeID:   "ch-1",
			ReportedSteps: 150000,
			Day:           today,
		})

		assert.True(t, result.Success, "a rejection is a handled outcome, not a transport failure")
		assert.Equal(t, 0, result.SyncedSteps)
		assert.False(t, result.Validation.IsValid)
		assert.True(t, result.Validation.HasFlag(domain.FlagUnrealisticSteps))

		_, err := f.leaderboards.GetByCycleAndUser(ctx, f.cycle.ID, "u1")
		assert.ErrorIs(t, err, domain.ErrEntryNotFound, "rejected counts stay off the leaderboard")

		logs := f.logs.Logs()
		require.Len(t, logs, 1)
		assert.Equal(t, 150000, logs[0].ReportedSteps)
		assert.Equal(t, 0.0, logs[0].Score)
	})

	t.Run("Success: Suspicious but plausible count is synced flagged", func(t *testing.T) {
		f := newSyncFixture(t)

		result := f.svc.Push(ctx, services.PushInput{
			UserID:        "u1",
			ChallengeID:   "ch-1",
			ReportedSteps: 60000,
			Day:           today,
		})

		assert.True(t, result.Success)
		assert.Equal(t, 60000, result.SyncedSteps)
		assert.False(t, result.Validation.IsValid)

		entry, err := f.leaderboards.GetByCycleAndUser(ctx, f.cycle.ID, "u1")
		require.NoError(t, err)
		assert.False(t, entry.IsValidated)
		assert.True(t, entry.FlaggedForReview)
		assert.Equal(t, 60000, entry.TotalSteps, "flagged counts are recorded for review")
	})

	t.Run("Fail: Backend read failure never erases recorded history", func(t *testing.T) {
		f := newSyncFixture(t)
		flaky := &flakyLeaderboardRepo{LeaderboardRepository: f.leaderboards}
		svc := services.NewSyncService(flaky, f.cycles, f.logs)

		first := svc.Push(ctx, services.PushInput{
			UserID:        "u1",
			ChallengeID:   "ch-1",
			ReportedSteps: 9000,
			Day:           "2026-03-01",
		})
		require.True(t, first.Success)

		flaky.failReads = 1
		second := svc.Push(ctx, services.PushInput{
			UserID:        "u1",
			ChallengeID:   "ch-1",
			ReportedSteps: 3000,
			Day:           "2026-03-02",
		})

		assert.False(t, second.Success, "a failed read MUST NOT pass for a first push")
		assert.True(t, second.Validation.HasFlag(domain.FlagSyncError))

		entry, err := f.leaderboards.GetByCycleAndUser(ctx, f.cycle.ID, "u1")
		require.NoError(t, err)
		assert.Equal(t, 9000, entry.TotalSteps, "the recorded day survives the outage")

		retry := svc.Push(ctx, services.PushInput{
			UserID:        "u1",
			ChallengeID:   "ch-1",
			ReportedSteps: 3000,
			Day:           "2026-03-02",
		})
		require.True(t, retry.Success)

		entry, err = f.leaderboards.GetByCycleAndUser(ctx, f.cycle.ID, "u1")
		require.NoError(t, err)
		assert.Equal(t, 12000, entry.TotalSteps, "the retry merges on top of the full history")
		assert.Equal(t, 9000, entry.DailySteps["2026-03-01"])
		assert.Equal(t, 3000, entry.DailySteps["2026-03-02"])
	})

	t.Run("Fail: No active cycle yields a retryable failure", func(t *testing.T) {
		f := newSyncFixture(t)

		result := f.svc.Push(ctx, services.PushInput{
			UserID:        "u1",
			ChallengeID:   "ch-unknown",
			ReportedSteps: 8000,
			Day:           today,
		})

		assert.False(t, result.Success)
		assert.True(t, result.Validation.HasFlag(domain.FlagSyncError))
	})

	t.Run("Success: Push without a challenge only audits", func(t *testing.T) {
		f := newSyncFixture(t)

		result := f.svc.Push(ctx, services.PushInput{
			UserID:        "u1",
			ReportedSteps: 8000,
			Day:           today,
		})

		assert.True(t, result.Success)
		assert.Equal(t, 8000, result.SyncedSteps)
		require.Len(t, f.logs.Logs(), 1)
		assert.Nil(t, f.logs.Logs()[0].ChallengeID)
	})

	t.Run("Success: Audit log is written on every push", func(t *testing.T) {
		f := newSyncFixture(t)

		f.svc.Push(ctx, services.PushInput{UserID: "u1", ChallengeID: "ch-1", ReportedSteps: 8000, Day: today})
		f.svc.Push(ctx, services.PushInput{UserID: "u1", ChallengeID: "ch-1", ReportedSteps: 150000, Day: today})

		assert.Len(t, f.logs.Logs(), 2)
	})
}

func TestSyncClient_Sync(t *testing.T) {
	ctx := context.Background()

	t.Run("Success: Pushes today's local count", func(t *testing.T) {
		f := newSyncFixture(t)

		store := tracking.NewInMemoryStepStore()
		today := domain.DayKey(time.Now())
		require.NoError(t, store.SaveDaily(today, 4200, 4200))

		client := services.NewSyncClient(store, f.svc, "u1", "pixel-9/android-16")
		result := client.Sync(ctx, "ch-1")

		assert.True(t, result.Success)
		assert.Equal(t, 4200, result.SyncedSteps)

		entry, err := f.leaderboards.GetByCycleAndUser(ctx, f.cycle.ID, "u1")
		require.NoError(t, err)
		assert.Equal(t, 4200, entry.TotalSteps)
	})

	t.Run("Success: Empty store syncs zero without error", func(t *testing.T) {
		f := newSyncFixture(t)

		client := services.NewSyncClient(tracking.NewInMemoryStepStore(), f.svc, "u1", "pixel-9")
		result := client.Sync(ctx, "ch-1")

		assert.True(t, result.Success)
		assert.Equal(t, 0, result.SyncedSteps)
	})
}

package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/stridewell/step-engine/internal/core/domain"
)

// backendTimeout bounds every backend round-trip of one push.
const backendTimeout = 10 * time.Second

// SyncResult reports one push of a step snapshot. Failures are data,
// not errors: the caller retries on the next tick.
type SyncResult struct {
	Success     bool                  `json:"success"`
	SyncedSteps int                   `json:"synced_steps"`
	Validation  domain.StepValidation `json:"validation"`
}

type PushInput struct {
	UserID        string
	ChallengeID   string
	DeviceInfo    string
	ReportedSteps int
	Day           string
}

// SyncService applies a reported daily step count to the shared
// leaderboard: validate, audit, then merge into the entry of the
// challenge's current active cycle. Writes are upserts keyed by
// (cycle, user), so retries and multi-device overlap stay idempotent.
type SyncService struct {
	leaderboardRepo domain.LeaderboardRepository
	cycleRepo       domain.CycleRepository
	logRepo         domain.ValidationLogRepository
}

func NewSyncService(
	leaderboardRepo domain.LeaderboardRepository,
	cycleRepo domain.CycleRepository,
	logRepo domain.ValidationLogRepository,
) *SyncService {
	return &SyncService{
		leaderboardRepo: leaderboardRepo,
		cycleRepo:       cycleRepo,
		logRepo:         logRepo,
	}
}

// Push validates and records one reported snapshot. The audit row is
// written on every call, valid or not. Leaderboard state is only
// touched when a challenge is given and the count is not rejected
// outright.
func (s *SyncService) Push(ctx context.Context, input PushInput) SyncResult {
	ctx, cancel := context.WithTimeout(ctx, backendTimeout)
	defer cancel()

	now := time.Now().UTC()
	day := input.Day
	if day == "" {
		day = domain.DayKey(now)
	}

	var cycle *domain.ChallengeCycle
	var prev *domain.LeaderboardEntry
	recorded := 0

	if input.ChallengeID != "" {
		var err error
		cycle, err = s.cycleRepo.GetActive(ctx, input.ChallengeID)
		if err != nil {
			log.Printf("[SYNC] No active cycle for challenge %s: %v", input.ChallengeID, err)
			return failure(domain.StepValidation{}, input.ReportedSteps)
		}

		prev, err = s.leaderboardRepo.GetByCycleAndUser(ctx, cycle.ID, input.UserID)
		switch {
		case err == nil:
			recorded = prev.DailySteps[day]
		case errors.Is(err, domain.ErrEntryNotFound):
			// First push of this cycle, start from an empty baseline.
		default:
			// A failed read must not pass for a missing entry: merging
			// against an empty baseline would overwrite the recorded
			// history on upsert. Fail the push and let the client retry.
			log.Printf("[SYNC] Leaderboard read failed for challenge %s user %s: %v",
				input.ChallengeID, input.UserID, err)
			return failure(domain.StepValidation{}, input.ReportedSteps)
		}
	}

	validation := domain.ValidateSteps(input.ReportedSteps, recorded)

	s.audit(ctx, input, validation)

	if input.ChallengeID == "" {
		return SyncResult{Success: true, SyncedSteps: input.ReportedSteps, Validation: validation}
	}

	// Unrealistic counts are rejected outright; anything else is
	// synced and carries its validated/flagged markers with it.
	if validation.Score <= 0 {
		return SyncResult{Success: true, SyncedSteps: 0, Validation: validation}
	}

	entry := prev
	if entry == nil {
		entry = domain.NewLeaderboardEntry(input.ChallengeID, cycle.ID, input.UserID)
	}

	entry.ApplySnapshot(day, input.ReportedSteps, validation, now)

	if err := s.leaderboardRepo.Upsert(ctx, entry); err != nil {
		log.Printf("[SYNC] Leaderboard upsert failed for challenge %s user %s: %v",
			input.ChallengeID, input.UserID, err)
		return failure(validation, input.ReportedSteps)
	}

	return SyncResult{Success: true, SyncedSteps: input.ReportedSteps, Validation: validation}
}

func (s *SyncService) audit(ctx context.Context, input PushInput, validation domain.StepValidation) {
	logEntry := &domain.ValidationLog{
		UserID:        input.UserID,
		ReportedSteps: input.ReportedSteps,
		Score:         validation.Score,
		Flags:         validation.Flags,
		DeviceInfo:    input.DeviceInfo,
		CreatedAt:     time.Now().UTC(),
	}
	if input.ChallengeID != "" {
		challengeID := input.ChallengeID
		logEntry.ChallengeID = &challengeID
	}

	if err := s.logRepo.Insert(ctx, logEntry); err != nil {
		log.Printf("[SYNC] Failed to write validation audit log for user %s: %v", input.UserID, err)
	}
}

func failure(validation domain.StepValidation, reported int) SyncResult {
	validation.Flags = append(validation.Flags, domain.FlagSyncError)
	return SyncResult{Success: false, SyncedSteps: reported, Validation: validation}
}

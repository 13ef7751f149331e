package services

import (
	"context"

	"github.com/stridewell/step-engine/internal/core/domain"
)

const DefaultLeaderboardLimit = 10

// ChallengeService is the read side of the engine: active challenges,
// their current cycle and the validated leaderboard.
type ChallengeService struct {
	challengeRepo   domain.ChallengeRepository
	cycleRepo       domain.CycleRepository
	leaderboardRepo domain.LeaderboardRepository
}

func NewChallengeService(
	challengeRepo domain.ChallengeRepository,
	cycleRepo domain.CycleRepository,
	leaderboardRepo domain.LeaderboardRepository,
) *ChallengeService {
	return &ChallengeService{
		challengeRepo:   challengeRepo,
		cycleRepo:       cycleRepo,
		leaderboardRepo: leaderboardRepo,
	}
}

func (s *ChallengeService) ListActive(ctx context.Context) ([]*domain.Challenge, error) {
	return s.challengeRepo.ListActiveRecurring(ctx)
}

func (s *ChallengeService) GetByID(ctx context.Context, id string) (*domain.Challenge, error) {
	return s.challengeRepo.GetByID(ctx, id)
}

// CurrentCycle returns the active cycle of a challenge.
func (s *ChallengeService) CurrentCycle(ctx context.Context, challengeID string) (*domain.ChallengeCycle, error) {
	if _, err := s.challengeRepo.GetByID(ctx, challengeID); err != nil {
		return nil, err
	}
	return s.cycleRepo.GetActive(ctx, challengeID)
}

// Leaderboard returns the validated ranking of the current cycle.
// Flagged and unvalidated entries never appear here.
func (s *ChallengeService) Leaderboard(ctx context.Context, challengeID string, limit int) ([]*domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}

	cycle, err := s.CurrentCycle(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	return s.leaderboardRepo.ListValidatedTop(ctx, cycle.ID, limit)
}

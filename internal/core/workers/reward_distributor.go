package workers

import (
	"context"
	"errors"
	"log"

	"github.com/stridewell/step-engine/internal/core/domain"
)

// RewardDistributor turns a ranked participant list into loyalty
// ledger rows: rank 0 earns the winner amount, rank 1 the runner-up
// amount, everyone else the participation amount. It performs no
// duplicate check of its own; running at most once per cycle is the
// cycle-close transition's job, and the ledger's unique index turns a
// replay into logged rejections rather than double awards.
type RewardDistributor struct {
	loyaltyRepo domain.LoyaltyRepository
}

func NewRewardDistributor(loyaltyRepo domain.LoyaltyRepository) *RewardDistributor {
	return &RewardDistributor{
		loyaltyRepo: loyaltyRepo,
	}
}

// Distribute inserts one transaction per ranked participant. A failed
// insert is logged and skipped; one participant must not block the
// rest of the cycle's awards.
func (d *RewardDistributor) Distribute(ctx context.Context, ranked []*domain.LeaderboardEntry, challenge *domain.Challenge, cycleID string) {
	for rank, entry := range ranked {
		points := pointsForRank(rank, challenge)
		if points <= 0 {
			// No zero-value ledger rows.
			continue
		}

		tx, err := domain.NewAwardTransaction(entry.UserID, cycleID, challenge.Title, points, rank)
		if err != nil {
			log.Printf("[REWARD] Skipping award for user %s in cycle %s: %v", entry.UserID, cycleID, err)
			continue
		}

		if err := d.loyaltyRepo.Insert(ctx, tx); err != nil {
			if errors.Is(err, domain.ErrDuplicateAward) {
				log.Printf("[REWARD] User %s already awarded for cycle %s", entry.UserID, cycleID)
				continue
			}
			log.Printf("[REWARD] Failed to award %d points to user %s for cycle %s: %v",
				points, entry.UserID, cycleID, err)
		}
	}
}

func pointsForRank(rank int, challenge *domain.Challenge) int {
	switch rank {
	case 0:
		return challenge.WinnerRewardPoints
	case 1:
		return challenge.RunnerUpRewardPoints
	default:
		return challenge.ParticipationRewardPoints
	}
}

package workers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/stridewell/step-engine/internal/core/domain"
)

// RankLimit caps how many validated entries rank in a closing cycle.
const RankLimit = 10

// CycleWorker keeps recurring challenges rolling: every run it makes
// sure each active recurring challenge has exactly one open cycle,
// closes cycles whose end time has passed, ranks the validated
// leaderboard, hands out rewards and opens the next window.
//
// The worker itself holds no state between runs; it is meant to be
// invoked from an external trigger (cron, one-shot binary). Overlap
// protection comes from the storage layer's active-cycle uniqueness
// guard and the conditional close transition, plus the run lock the
// scheduler binary takes.
type CycleWorker struct {
	challengeRepo   domain.ChallengeRepository
	cycleRepo       domain.CycleRepository
	leaderboardRepo domain.LeaderboardRepository
	rewards         *RewardDistributor
}

func NewCycleWorker(
	challengeRepo domain.ChallengeRepository,
	cycleRepo domain.CycleRepository,
	leaderboardRepo domain.LeaderboardRepository,
	rewards *RewardDistributor,
) *CycleWorker {
	return &CycleWorker{
		challengeRepo:   challengeRepo,
		cycleRepo:       cycleRepo,
		leaderboardRepo: leaderboardRepo,
		rewards:         rewards,
	}
}

// Run processes every active recurring challenge once. A failure on
// one challenge is logged and must not block the others; Run only
// errors when the working set itself cannot be listed.
func (w *CycleWorker) Run(ctx context.Context) error {
	challenges, err := w.challengeRepo.ListActiveRecurring(ctx)
	if err != nil {
		return fmt.Errorf("cycle worker: failed to list active challenges: %w", err)
	}

	log.Printf("[CYCLE] Processing %d active recurring challenges", len(challenges))

	for _, challenge := range challenges {
		if err := w.processChallenge(ctx, challenge); err != nil {
			log.Printf("[CYCLE] Challenge %s (%s) failed, continuing: %v", challenge.ID, challenge.Title, err)
		}
	}

	return nil
}

func (w *CycleWorker) processChallenge(ctx context.Context, challenge *domain.Challenge) error {
	cycle, err := w.cycleRepo.GetActive(ctx, challenge.ID)
	if errors.Is(err, domain.ErrCycleNotFound) {
		return w.openCycle(ctx, challenge)
	}
	if err != nil {
		return err
	}

	if !cycle.Expired(time.Now()) {
		return nil
	}

	if err := w.closeCycle(ctx, challenge, cycle); err != nil {
		return err
	}

	return w.openCycle(ctx, challenge)
}

func (w *CycleWorker) openCycle(ctx context.Context, challenge *domain.Challenge) error {
	cycle, err := domain.NewChallengeCycle(challenge, time.Now())
	if err != nil {
		return err
	}

	if err := w.cycleRepo.Insert(ctx, cycle); err != nil {
		if errors.Is(err, domain.ErrActiveCycleExists) {
			// A concurrent run got there first; nothing to do.
			log.Printf("[CYCLE] Active cycle already open for challenge %s", challenge.ID)
			return nil
		}
		return err
	}

	log.Printf("[CYCLE] Opened cycle %s for challenge %s until %s",
		cycle.ID, challenge.Title, cycle.CycleEnd.Format(time.RFC3339))
	return nil
}

// closeCycle ranks the validated leaderboard and completes the cycle.
// Completion is a conditional transition: when a concurrent run
// already closed this cycle, rewards are skipped here, which is what
// keeps awards at most-once.
func (w *CycleWorker) closeCycle(ctx context.Context, challenge *domain.Challenge, cycle *domain.ChallengeCycle) error {
	ranked, err := w.leaderboardRepo.ListValidatedTop(ctx, cycle.ID, RankLimit)
	if err != nil {
		return fmt.Errorf("failed to read validated leaderboard: %w", err)
	}

	var winnerID, runnerUpID *string
	if len(ranked) > 0 {
		winnerID = &ranked[0].UserID
	}
	if len(ranked) > 1 {
		runnerUpID = &ranked[1].UserID
	}

	err = w.cycleRepo.Complete(ctx, cycle.ID, winnerID, runnerUpID, len(ranked))
	if errors.Is(err, domain.ErrCycleAlreadyClosed) {
		log.Printf("[CYCLE] Cycle %s already closed by another run", cycle.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to complete cycle %s: %w", cycle.ID, err)
	}

	log.Printf("[CYCLE] Closed cycle %s of challenge %s with %d validated participants",
		cycle.ID, challenge.Title, len(ranked))

	if challenge.AutoAwardEnabled && len(ranked) > 0 {
		w.rewards.Distribute(ctx, ranked, challenge, cycle.ID)
	}

	return nil
}

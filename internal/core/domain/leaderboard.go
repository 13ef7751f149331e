package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrEntryNotFound = errors.New("leaderboard entry not found")
	ErrEntryConflict = errors.New("leaderboard entry version conflict")
)

// LeaderboardEntry is the per-user aggregate step record for one cycle
// of a challenge. Scoping entries by cycle (rather than resetting a
// challenge-wide row on rollover) makes cycle closure a partition
// switch: a client racing the rollover writes into the old cycle's
// rows, which the new cycle never reads.
type LeaderboardEntry struct {
	ID               string         `json:"id" db:"id"`
	ChallengeID      string         `json:"challenge_id" db:"challenge_id"`
	CycleID          string         `json:"cycle_id" db:"cycle_id"`
	UserID           string         `json:"user_id" db:"user_id"`
	TotalSteps       int            `json:"total_steps" db:"total_steps"`
	DailySteps       map[string]int `json:"daily_steps" db:"-"`
	IsValidated      bool           `json:"is_validated" db:"is_validated"`
	FlaggedForReview bool           `json:"flagged_for_review" db:"flagged_for_review"`
	Version          int            `json:"version" db:"version"`
	LastUpdated      time.Time      `json:"last_updated" db:"last_updated"`
}

const (
	// ValidatedScoreThreshold marks an entry as ranked for rewards.
	ValidatedScoreThreshold = 0.7
	// ReviewScoreThreshold marks an entry for manual review.
	ReviewScoreThreshold = 0.5
)

func NewLeaderboardEntry(challengeID, cycleID, userID string) *LeaderboardEntry {
	return &LeaderboardEntry{
		ChallengeID: challengeID,
		CycleID:     cycleID,
		UserID:      userID,
		DailySteps:  make(map[string]int),
		Version:     1,
	}
}

// ApplySnapshot merges today's count from a device snapshot into the
// entry and restamps the validation markers. The daily map merge is
// per-key max: two devices of the same user reporting different
// partial counts for a day must not shrink the recorded value.
func (e *LeaderboardEntry) ApplySnapshot(day string, steps int, validation StepValidation, now time.Time) {
	if e.DailySteps == nil {
		e.DailySteps = make(map[string]int)
	}
	if steps > e.DailySteps[day] {
		e.DailySteps[day] = steps
	}

	total := 0
	for _, s := range e.DailySteps {
		total += s
	}
	e.TotalSteps = total

	e.IsValidated = validation.Score > ValidatedScoreThreshold
	e.FlaggedForReview = validation.Score < ReviewScoreThreshold
	e.LastUpdated = now.UTC()
}

type LeaderboardRepository interface {
	// Upsert writes an entry keyed by (cycle_id, user_id). The write
	// is last-write-wins on totals but must bump the version column
	// so auditors can see churn.
	Upsert(ctx context.Context, entry *LeaderboardEntry) error

	// GetByCycleAndUser retrieves one user's entry for a cycle, or
	// ErrEntryNotFound.
	GetByCycleAndUser(ctx context.Context, cycleID, userID string) (*LeaderboardEntry, error)

	// ListValidatedTop returns validated entries of a cycle ordered
	// by total steps descending, capped to limit.
	ListValidatedTop(ctx context.Context, cycleID string, limit int) ([]*LeaderboardEntry, error)

	// ResetForCycle zeroes every entry of a cycle. Only used for
	// administrative resets of one-time challenges; recurring
	// rollover relies on cycle scoping instead.
	ResetForCycle(ctx context.Context, cycleID string) error
}

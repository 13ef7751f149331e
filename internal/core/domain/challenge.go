package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrChallengeInactive = errors.New("challenge is not active")
	ErrNotRecurring      = errors.New("challenge is not recurring")

	ErrCycleNotFound      = errors.New("challenge cycle not found")
	ErrActiveCycleExists  = errors.New("an active cycle already exists for this challenge")
	ErrCycleAlreadyClosed = errors.New("challenge cycle is already completed")
)

type ChallengeType string

const (
	ChallengeOneTime          ChallengeType = "one_time"
	ChallengeWeeklyRecurring  ChallengeType = "weekly_recurring"
	ChallengeMonthlyRecurring ChallengeType = "monthly_recurring"
)

type ChallengeStatus string

const (
	ChallengeStatusDraft     ChallengeStatus = "draft"
	ChallengeStatusActive    ChallengeStatus = "active"
	ChallengeStatusCompleted ChallengeStatus = "completed"
)

// Challenge is created and edited by organization admins outside this
// engine; the engine only ever reads it.
type Challenge struct {
	ID                        string          `json:"id" db:"id"`
	OrgID                     string          `json:"org_id" db:"org_id"`
	Title                     string          `json:"title" db:"title"`
	Type                      ChallengeType   `json:"challenge_type" db:"challenge_type"`
	StepGoal                  int             `json:"step_goal" db:"step_goal"`
	StartDate                 time.Time       `json:"start_date" db:"start_date"`
	EndDate                   *time.Time      `json:"end_date,omitempty" db:"end_date"`
	Status                    ChallengeStatus `json:"status" db:"status"`
	AutoAwardEnabled          bool            `json:"auto_award_enabled" db:"auto_award_enabled"`
	WinnerRewardPoints        int             `json:"winner_reward_points" db:"winner_reward_points"`
	RunnerUpRewardPoints      int             `json:"runner_up_reward_points" db:"runner_up_reward_points"`
	ParticipationRewardPoints int             `json:"participation_reward_points" db:"participation_reward_points"`
}

func (c *Challenge) IsRecurring() bool {
	return c.Type == ChallengeWeeklyRecurring || c.Type == ChallengeMonthlyRecurring
}

// CycleLength returns the duration of one leaderboard window for
// recurring challenge types.
func (c *Challenge) CycleLength() (time.Duration, error) {
	switch c.Type {
	case ChallengeWeeklyRecurring:
		return 7 * 24 * time.Hour, nil
	case ChallengeMonthlyRecurring:
		return 30 * 24 * time.Hour, nil
	default:
		return 0, ErrNotRecurring
	}
}

type CycleStatus string

const (
	CycleStatusActive    CycleStatus = "active"
	CycleStatusCompleted CycleStatus = "completed"
)

// ChallengeCycle is one bounded leaderboard window of a recurring
// challenge. At most one cycle per challenge may be active at a time;
// the storage layer enforces this with a unique partial index.
type ChallengeCycle struct {
	ID                string      `json:"id" db:"id"`
	ChallengeID       string      `json:"challenge_id" db:"challenge_id"`
	CycleStart        time.Time   `json:"cycle_start" db:"cycle_start"`
	CycleEnd          time.Time   `json:"cycle_end" db:"cycle_end"`
	Status            CycleStatus `json:"status" db:"status"`
	WinnerUserID      *string     `json:"winner_user_id,omitempty" db:"winner_user_id"`
	RunnerUpUserID    *string     `json:"runner_up_user_id,omitempty" db:"runner_up_user_id"`
	ParticipantsCount int         `json:"participants_count" db:"participants_count"`
	CreatedAt         time.Time   `json:"created_at" db:"created_at"`
}

func NewChallengeCycle(challenge *Challenge, now time.Time) (*ChallengeCycle, error) {
	length, err := challenge.CycleLength()
	if err != nil {
		return nil, err
	}

	now = now.UTC()
	return &ChallengeCycle{
		ID:          uuid.NewString(),
		ChallengeID: challenge.ID,
		CycleStart:  now,
		CycleEnd:    now.Add(length),
		Status:      CycleStatusActive,
		CreatedAt:   now,
	}, nil
}

func (c *ChallengeCycle) Expired(now time.Time) bool {
	return c.Status == CycleStatusActive && !now.UTC().Before(c.CycleEnd)
}

type ChallengeRepository interface {
	// GetByID retrieves a challenge by its unique identifier.
	GetByID(ctx context.Context, id string) (*Challenge, error)

	// ListActiveRecurring retrieves every active challenge of a
	// recurring type, across all organizations. This is the working
	// set of one scheduler pass.
	ListActiveRecurring(ctx context.Context) ([]*Challenge, error)
}

type CycleRepository interface {
	// GetActive returns the single active cycle of a challenge, or
	// ErrCycleNotFound when none is open.
	GetActive(ctx context.Context, challengeID string) (*ChallengeCycle, error)

	// Insert persists a new cycle. Implementations must reject a
	// second active cycle for the same challenge atomically and
	// return ErrActiveCycleExists.
	Insert(ctx context.Context, cycle *ChallengeCycle) error

	// Complete transitions a cycle from active to completed with its
	// final outcome. The transition must succeed at most once;
	// a cycle already completed yields ErrCycleAlreadyClosed.
	Complete(ctx context.Context, cycleID string, winnerUserID, runnerUpUserID *string, participantsCount int) error
}

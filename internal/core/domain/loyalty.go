package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDuplicateAward = errors.New("loyalty transaction already exists for this cycle and user")
	ErrInvalidPoints  = errors.New("points must be positive")
)

type TransactionType string

const (
	TransactionEarned TransactionType = "earned"
	TransactionSpent  TransactionType = "spent"
)

const ReferenceTypeChallengeCycle = "challenge_cycle"

// LoyaltyTransaction is one append-only ledger row. Rows are never
// mutated; the (reference_id, user_id) pair is unique so a replayed
// award degrades to a rejected insert.
type LoyaltyTransaction struct {
	ID            string          `json:"id" db:"id"`
	UserID        string          `json:"user_id" db:"user_id"`
	Type          TransactionType `json:"type" db:"type"`
	Points        int             `json:"points" db:"points"`
	Description   string          `json:"description" db:"description"`
	ReferenceType string          `json:"reference_type" db:"reference_type"`
	ReferenceID   string          `json:"reference_id" db:"reference_id"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// NewAwardTransaction builds the earned-points row for one participant
// of a closed challenge cycle.
func NewAwardTransaction(userID, cycleID, challengeTitle string, points int, rank int) (*LoyaltyTransaction, error) {
	if points <= 0 {
		return nil, ErrInvalidPoints
	}

	var desc string
	switch rank {
	case 0:
		desc = fmt.Sprintf("Winner of walking challenge %q", challengeTitle)
	case 1:
		desc = fmt.Sprintf("Runner-up of walking challenge %q", challengeTitle)
	default:
		desc = fmt.Sprintf("Participation in walking challenge %q", challengeTitle)
	}

	return &LoyaltyTransaction{
		ID:            uuid.NewString(),
		UserID:        userID,
		Type:          TransactionEarned,
		Points:        points,
		Description:   desc,
		ReferenceType: ReferenceTypeChallengeCycle,
		ReferenceID:   cycleID,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

type LoyaltyRepository interface {
	// Insert appends one ledger row. A duplicate (reference_id,
	// user_id) pair yields ErrDuplicateAward.
	Insert(ctx context.Context, tx *LoyaltyTransaction) error
}

// ValidationLog is the write-only audit trail of every validation the
// sync path performs, valid or not. The engine never reads it back.
type ValidationLog struct {
	ID            string           `json:"id" db:"id"`
	UserID        string           `json:"user_id" db:"user_id"`
	ChallengeID   *string          `json:"challenge_id,omitempty" db:"challenge_id"`
	ReportedSteps int              `json:"reported_steps" db:"reported_steps"`
	Score         float64          `json:"validation_score" db:"validation_score"`
	Flags         []ValidationFlag `json:"anomaly_flags" db:"-"`
	DeviceInfo    string           `json:"device_info" db:"device_info"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
}

type ValidationLogRepository interface {
	Insert(ctx context.Context, logEntry *ValidationLog) error
}

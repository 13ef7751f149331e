package domain

type ValidationFlag string

const (
	FlagExcessiveDailySteps ValidationFlag = "excessive_daily_steps"
	FlagUnrealisticSteps    ValidationFlag = "unrealistic_steps"
	FlagRapidStepIncrease   ValidationFlag = "rapid_step_increase"
	FlagSyncError           ValidationFlag = "sync_error"
)

const (
	// ExcessiveDailyThreshold is suspicious but humanly possible.
	ExcessiveDailyThreshold = 50000
	// UnrealisticDailyThreshold is beyond plausible human activity.
	UnrealisticDailyThreshold = 100000
	// RapidIncreaseThreshold caps how much a single sync may add on
	// top of what was previously on record for the same day.
	RapidIncreaseThreshold = 10000

	validThreshold = 0.5
)

// StepValidation is the outcome of the anti-cheat heuristics. It is a
// confidence signal, not proof: flagged counts are still synced, just
// marked for review and excluded from validated ranking.
type StepValidation struct {
	IsValid bool             `json:"is_valid"`
	Score   float64          `json:"score"`
	Flags   []ValidationFlag `json:"flags,omitempty"`
}

func (v StepValidation) HasFlag(flag ValidationFlag) bool {
	for _, f := range v.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// ValidateSteps scores a reported daily total against the count
// previously on record for the same day. The score starts at 1.0 and
// each anomaly subtracts from it; the unrealistic threshold is a hard
// override to zero. Validation never blocks local counting.
func ValidateSteps(reportedSteps, recordedSteps int) StepValidation {
	v := StepValidation{Score: 1.0}

	if reportedSteps > ExcessiveDailyThreshold {
		v.Flags = append(v.Flags, FlagExcessiveDailySteps)
		v.Score -= 0.5
	}

	if reportedSteps-recordedSteps > RapidIncreaseThreshold {
		v.Flags = append(v.Flags, FlagRapidStepIncrease)
		v.Score -= 0.3
	}

	if reportedSteps > UnrealisticDailyThreshold {
		v.Flags = append(v.Flags, FlagUnrealisticSteps)
		v.Score = 0
	}

	if v.Score < 0 {
		v.Score = 0
	}

	v.IsValid = v.Score > validThreshold
	return v
}

package domain

import (
	"math"
	"time"
)

const DayKeyFormat = "2006-01-02"

// DayKey returns the ISO calendar-day key used everywhere steps are
// bucketed per day.
func DayKey(t time.Time) string {
	return t.UTC().Format(DayKeyFormat)
}

// StepSample is one raw accelerometer reading. Samples are ephemeral:
// the detector consumes them and throws them away.
type StepSample struct {
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Z         float64   `json:"z"`
	Timestamp time.Time `json:"timestamp"`
}

func (s StepSample) Magnitude() float64 {
	return math.Sqrt(s.X*s.X + s.Y*s.Y + s.Z*s.Z)
}

// IsWellFormed reports whether every axis carries a usable value.
// Sensor glitches occasionally deliver NaN or Inf readings.
func (s StepSample) IsWellFormed() bool {
	for _, v := range []float64{s.X, s.Y, s.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return !s.Timestamp.IsZero()
}

// StepData is the payload handed to step callbacks each time the
// detector registers a step.
type StepData struct {
	Steps     int        `json:"steps"`
	Timestamp time.Time  `json:"timestamp"`
	DeviceID  string     `json:"device_id"`
	Sample    StepSample `json:"acceleration_data"`
}

type DailyStepRecord struct {
	Date        string    `json:"date"`
	Steps       int       `json:"steps"`
	LastUpdated time.Time `json:"last_updated"`
}

// StepSnapshot is what the local store hands to the sync client: the
// cumulative counter plus the per-day map.
type StepSnapshot struct {
	CurrentSteps int            `json:"current_steps"`
	DailySteps   map[string]int `json:"daily_steps"`
}

func (s StepSnapshot) StepsFor(day string) int {
	return s.DailySteps[day]
}

// StepStore is the device-local durable key-value persistence for step
// counters. Implementations must survive process restart.
type StepStore interface {
	// Snapshot reads the cumulative counter and the full daily map.
	Snapshot() (StepSnapshot, error)

	// SaveDaily persists the counter for one day together with the
	// cumulative total. Called on every detected step.
	SaveDaily(date string, steps int, total int) error

	// Reset clears both the daily map and the cumulative counter.
	Reset() error
}

package tracking

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/stridewell/step-engine/internal/core/domain"
)

const (
	// DefaultStepThreshold is the magnitude-delta a sample pair must
	// exceed to count as a step candidate.
	DefaultStepThreshold = 1.2
	// DefaultStepCooldown suppresses re-triggering off the same
	// physical step.
	DefaultStepCooldown = 200 * time.Millisecond
)

// StepCallback receives one payload per detected step.
type StepCallback func(data domain.StepData)

// Detector turns raw acceleration samples into discrete steps with a
// simple magnitude-delta peak detector plus a cooldown window. This is
// deliberately not real step-counting physics: the thresholds are
// fixed heuristics with no per-device calibration. Counts it produces
// are treated as claims and go through validation before ranking.
type Detector struct {
	store    domain.StepStore
	deviceID string

	threshold float64
	cooldown  time.Duration

	mu            sync.Mutex
	lastMagnitude float64
	hasPrevSample bool
	lastStepTime  time.Time
	currentSteps  int
	dailySteps    map[string]int
	callbacks     []StepCallback
}

type DetectorOption func(*Detector)

func WithThreshold(threshold float64) DetectorOption {
	return func(d *Detector) {
		if threshold > 0 {
			d.threshold = threshold
		}
	}
}

func WithCooldown(cooldown time.Duration) DetectorOption {
	return func(d *Detector) {
		if cooldown > 0 {
			d.cooldown = cooldown
		}
	}
}

// NewDetector restores its counters from the store so a restart does
// not lose the day's count.
func NewDetector(store domain.StepStore, deviceID string, opts ...DetectorOption) (*Detector, error) {
	d := &Detector{
		store:      store,
		deviceID:   deviceID,
		threshold:  DefaultStepThreshold,
		cooldown:   DefaultStepCooldown,
		dailySteps: make(map[string]int),
	}

	for _, opt := range opts {
		opt(d)
	}

	snapshot, err := store.Snapshot()
	if err != nil {
		return nil, err
	}
	d.currentSteps = snapshot.CurrentSteps
	for day, steps := range snapshot.DailySteps {
		d.dailySteps[day] = steps
	}

	return d, nil
}

// OnStep registers a callback invoked for every detected step.
func (d *Detector) OnStep(cb StepCallback) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.callbacks = append(d.callbacks, cb)
}

// OnSample feeds one acceleration sample through the detector.
// Malformed samples are logged and dropped, never propagated.
func (d *Detector) OnSample(sample domain.StepSample) {
	if !sample.IsWellFormed() {
		log.Printf("[DETECT] Dropping malformed sample from device %s", d.deviceID)
		return
	}

	d.mu.Lock()

	magnitude := sample.Magnitude()
	if !d.hasPrevSample {
		d.lastMagnitude = magnitude
		d.hasPrevSample = true
		d.mu.Unlock()
		return
	}

	delta := magnitude - d.lastMagnitude
	if delta < 0 {
		delta = -delta
	}
	d.lastMagnitude = magnitude

	if delta <= d.threshold || sample.Timestamp.Sub(d.lastStepTime) <= d.cooldown {
		d.mu.Unlock()
		return
	}

	d.lastStepTime = sample.Timestamp

	day := domain.DayKey(sample.Timestamp)
	d.currentSteps++
	d.dailySteps[day]++

	total := d.currentSteps
	callbacks := make([]StepCallback, len(d.callbacks))
	copy(callbacks, d.callbacks)

	// Persist before releasing the lock so interleaved samples cannot
	// write a stale lower total last. Callbacks run outside it.
	if err := d.store.SaveDaily(day, d.dailySteps[day], total); err != nil {
		log.Printf("[DETECT] Failed to persist step count for %s: %v", day, err)
	}
	d.mu.Unlock()

	data := domain.StepData{
		Steps:     total,
		Timestamp: sample.Timestamp,
		DeviceID:  d.deviceID,
		Sample:    sample,
	}
	for _, cb := range callbacks {
		cb(data)
	}
}

// Run pumps a source's samples into the detector until the context is
// cancelled or the source closes its channel.
func (d *Detector) Run(ctx context.Context, source SampleSource) error {
	if err := source.Start(ctx); err != nil {
		return err
	}
	defer source.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sample, ok := <-source.Samples():
			if !ok {
				return nil
			}
			d.OnSample(sample)
		}
	}
}

// CurrentSteps returns the cumulative counter. It only decreases on
// an explicit Reset.
func (d *Detector) CurrentSteps() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.currentSteps
}

func (d *Detector) StepsFor(day string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dailySteps[day]
}

// Reset zeroes every counter, in memory and in the store.
func (d *Detector) Reset() error {
	d.mu.Lock()
	d.currentSteps = 0
	d.dailySteps = make(map[string]int)
	d.hasPrevSample = false
	d.lastStepTime = time.Time{}
	d.mu.Unlock()

	return d.store.Reset()
}

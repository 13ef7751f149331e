package tracking

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/stridewell/step-engine/internal/core/domain"
)

var ErrSourceAlreadyStarted = errors.New("sample source already started")

// SampleSource feeds raw acceleration samples to the detector. The
// detector never knows whether a source is a real accelerometer, the
// built-in simulator, or a replay of recorded samples.
type SampleSource interface {
	Start(ctx context.Context) error
	Samples() <-chan domain.StepSample
	Stop()
}

// SimulatedSource synthesizes a walking-like acceleration waveform for
// devices without a motion sensor. Each simulated step is a short
// magnitude spike riding on gravity plus noise.
type SimulatedSource struct {
	interval time.Duration
	rng      *rand.Rand

	mu      sync.Mutex
	out     chan domain.StepSample
	cancel  context.CancelFunc
	started bool
}

func NewSimulatedSource(sampleInterval time.Duration, seed int64) *SimulatedSource {
	if sampleInterval <= 0 {
		sampleInterval = 50 * time.Millisecond
	}
	return &SimulatedSource{
		interval: sampleInterval,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

func (s *SimulatedSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrSourceAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.out = make(chan domain.StepSample)
	s.started = true

	go s.run(ctx, s.out)
	return nil
}

func (s *SimulatedSource) run(ctx context.Context, out chan<- domain.StepSample) {
	defer close(out)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	phase := 0.0
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			phase += 0.35

			// ~1g baseline with a periodic stride spike and jitter.
			// The spike amplitude keeps the magnitude delta well
			// above the detector's default threshold.
			spike := 0.0
			if math.Sin(phase) > 0.92 {
				spike = 6.0 + s.rng.Float64()*2.0
			}
			noise := (s.rng.Float64() - 0.5) * 0.2

			sample := domain.StepSample{
				X:         noise,
				Y:         spike + noise,
				Z:         9.81 + noise,
				Timestamp: now.UTC(),
			}

			select {
			case out <- sample:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *SimulatedSource) Samples() <-chan domain.StepSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out
}

func (s *SimulatedSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.cancel()
	s.started = false
}

// ReplaySource plays back a recorded sample trace. Used by tests and
// for reproducing detection issues from field logs.
type ReplaySource struct {
	samples []domain.StepSample

	mu      sync.Mutex
	out     chan domain.StepSample
	cancel  context.CancelFunc
	started bool
}

func NewReplaySource(samples []domain.StepSample) *ReplaySource {
	return &ReplaySource{samples: samples}
}

func (s *ReplaySource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrSourceAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.out = make(chan domain.StepSample)
	s.started = true

	go func(out chan<- domain.StepSample) {
		defer close(out)
		for _, sample := range s.samples {
			select {
			case out <- sample:
			case <-ctx.Done():
				return
			}
		}
	}(s.out)

	return nil
}

func (s *ReplaySource) Samples() <-chan domain.StepSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out
}

func (s *ReplaySource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.cancel()
	s.started = false
}

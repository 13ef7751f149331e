package tracking

import (
	"sync"

	"github.com/stridewell/step-engine/internal/core/domain"
)

// InMemoryStepStore keeps counters in process memory. It backs tests
// and environments without a writable data directory; production
// devices use the bbolt-backed store.
type InMemoryStepStore struct {
	mu      sync.RWMutex
	daily   map[string]int
	current int
}

var _ domain.StepStore = (*InMemoryStepStore)(nil)

func NewInMemoryStepStore() *InMemoryStepStore {
	return &InMemoryStepStore{
		daily: make(map[string]int),
	}
}

func (s *InMemoryStepStore) Snapshot() (domain.StepSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	daily := make(map[string]int, len(s.daily))
	for day, steps := range s.daily {
		daily[day] = steps
	}

	return domain.StepSnapshot{
		CurrentSteps: s.current,
		DailySteps:   daily,
	}, nil
}

func (s *InMemoryStepStore) SaveDaily(date string, steps int, total int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.daily[date] = steps
	s.current = total
	return nil
}

func (s *InMemoryStepStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.daily = make(map[string]int)
	s.current = 0
	return nil
}

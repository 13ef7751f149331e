package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/stridewell/step-engine/internal/core/domain"
)

// In-memory repositories mirror the postgres guards (active-cycle
// uniqueness, complete-once, duplicate-award rejection) so worker and
// service tests exercise the same failure paths without a database.

type InMemoryChallengeRepository struct {
	mu    sync.RWMutex
	store map[string]*domain.Challenge
}

func NewInMemoryChallengeRepository() *InMemoryChallengeRepository {
	return &InMemoryChallengeRepository{
		store: make(map[string]*domain.Challenge),
	}
}

func (r *InMemoryChallengeRepository) Seed(challenges ...*domain.Challenge) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range challenges {
		r.store[c.ID] = c
	}
}

func (r *InMemoryChallengeRepository) GetByID(ctx context.Context, id string) (*domain.Challenge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	challenge, ok := r.store[id]
	if !ok {
		return nil, domain.ErrChallengeNotFound
	}
	return challenge, nil
}

func (r *InMemoryChallengeRepository) ListActiveRecurring(ctx context.Context) ([]*domain.Challenge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var challenges []*domain.Challenge
	for _, c := range r.store {
		if c.Status == domain.ChallengeStatusActive && c.IsRecurring() {
			challenges = append(challenges, c)
		}
	}

	sort.Slice(challenges, func(i, j int) bool {
		return challenges[i].ID < challenges[j].ID
	})

	return challenges, nil
}

type InMemoryCycleRepository struct {
	mu    sync.RWMutex
	store map[string]*domain.ChallengeCycle
}

func NewInMemoryCycleRepository() *InMemoryCycleRepository {
	return &InMemoryCycleRepository{
		store: make(map[string]*domain.ChallengeCycle),
	}
}

func (r *InMemoryCycleRepository) GetActive(ctx context.Context, challengeID string) (*domain.ChallengeCycle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.store {
		if c.ChallengeID == challengeID && c.Status == domain.CycleStatusActive {
			copied := *c
			return &copied, nil
		}
	}
	return nil, domain.ErrCycleNotFound
}

func (r *InMemoryCycleRepository) Insert(ctx context.Context, cycle *domain.ChallengeCycle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.store {
		if c.ChallengeID == cycle.ChallengeID && c.Status == domain.CycleStatusActive {
			return domain.ErrActiveCycleExists
		}
	}

	copied := *cycle
	r.store[cycle.ID] = &copied
	return nil
}

func (r *InMemoryCycleRepository) Complete(ctx context.Context, cycleID string, winnerUserID, runnerUpUserID *string, participantsCount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cycle, ok := r.store[cycleID]
	if !ok {
		return domain.ErrCycleNotFound
	}
	if cycle.Status != domain.CycleStatusActive {
		return domain.ErrCycleAlreadyClosed
	}

	cycle.Status = domain.CycleStatusCompleted
	cycle.WinnerUserID = winnerUserID
	cycle.RunnerUpUserID = runnerUpUserID
	cycle.ParticipantsCount = participantsCount
	return nil
}

// ListAll returns every stored cycle, for test assertions.
func (r *InMemoryCycleRepository) ListAll() []*domain.ChallengeCycle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var cycles []*domain.ChallengeCycle
	for _, c := range r.store {
		copied := *c
		cycles = append(cycles, &copied)
	}
	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i].CreatedAt.Before(cycles[j].CreatedAt)
	})
	return cycles
}

type InMemoryLeaderboardRepository struct {
	mu    sync.RWMutex
	store map[string]*domain.LeaderboardEntry // keyed cycleID + "/" + userID
}

func NewInMemoryLeaderboardRepository() *InMemoryLeaderboardRepository {
	return &InMemoryLeaderboardRepository{
		store: make(map[string]*domain.LeaderboardEntry),
	}
}

func entryKey(cycleID, userID string) string {
	return cycleID + "/" + userID
}

func (r *InMemoryLeaderboardRepository) Upsert(ctx context.Context, entry *domain.LeaderboardEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := entryKey(entry.CycleID, entry.UserID)
	if existing, ok := r.store[key]; ok {
		entry.Version = existing.Version + 1
	}

	copied := *entry
	copied.DailySteps = make(map[string]int, len(entry.DailySteps))
	for day, steps := range entry.DailySteps {
		copied.DailySteps[day] = steps
	}
	r.store[key] = &copied
	return nil
}

func (r *InMemoryLeaderboardRepository) GetByCycleAndUser(ctx context.Context, cycleID, userID string) (*domain.LeaderboardEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.store[entryKey(cycleID, userID)]
	if !ok {
		return nil, domain.ErrEntryNotFound
	}

	copied := *entry
	copied.DailySteps = make(map[string]int, len(entry.DailySteps))
	for day, steps := range entry.DailySteps {
		copied.DailySteps[day] = steps
	}
	return &copied, nil
}

func (r *InMemoryLeaderboardRepository) ListValidatedTop(ctx context.Context, cycleID string, limit int) ([]*domain.LeaderboardEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var entries []*domain.LeaderboardEntry
	for _, e := range r.store {
		if e.CycleID == cycleID && e.IsValidated {
			copied := *e
			entries = append(entries, &copied)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalSteps != entries[j].TotalSteps {
			return entries[i].TotalSteps > entries[j].TotalSteps
		}
		return entries[i].LastUpdated.Before(entries[j].LastUpdated)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (r *InMemoryLeaderboardRepository) ResetForCycle(ctx context.Context, cycleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.store {
		if e.CycleID == cycleID {
			e.TotalSteps = 0
			e.DailySteps = make(map[string]int)
			e.Version++
		}
	}
	return nil
}

type InMemoryLoyaltyRepository struct {
	mu           sync.RWMutex
	transactions []*domain.LoyaltyTransaction
	failFor      map[string]error
}

func NewInMemoryLoyaltyRepository() *InMemoryLoyaltyRepository {
	return &InMemoryLoyaltyRepository{
		failFor: make(map[string]error),
	}
}

// FailFor makes inserts for one user fail, to exercise the
// partial-failure path.
func (r *InMemoryLoyaltyRepository) FailFor(userID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failFor[userID] = err
}

func (r *InMemoryLoyaltyRepository) Insert(ctx context.Context, tx *domain.LoyaltyTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err, ok := r.failFor[tx.UserID]; ok {
		return err
	}

	for _, existing := range r.transactions {
		if existing.ReferenceID == tx.ReferenceID && existing.UserID == tx.UserID {
			return domain.ErrDuplicateAward
		}
	}

	copied := *tx
	r.transactions = append(r.transactions, &copied)
	return nil
}

func (r *InMemoryLoyaltyRepository) Transactions() []*domain.LoyaltyTransaction {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.LoyaltyTransaction, len(r.transactions))
	copy(out, r.transactions)
	return out
}

type InMemoryValidationLogRepository struct {
	mu   sync.RWMutex
	logs []*domain.ValidationLog
}

func NewInMemoryValidationLogRepository() *InMemoryValidationLogRepository {
	return &InMemoryValidationLogRepository{}
}

func (r *InMemoryValidationLogRepository) Insert(ctx context.Context, logEntry *domain.ValidationLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *logEntry
	r.logs = append(r.logs, &copied)
	return nil
}

func (r *InMemoryValidationLogRepository) Logs() []*domain.ValidationLog {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.ValidationLog, len(r.logs))
	copy(out, r.logs)
	return out
}

type InMemoryDeviceRepository struct {
	mu    sync.RWMutex
	store map[string]*domain.Device
}

func NewInMemoryDeviceRepository() *InMemoryDeviceRepository {
	return &InMemoryDeviceRepository{
		store: make(map[string]*domain.Device),
	}
}

func (r *InMemoryDeviceRepository) Create(ctx context.Context, device *domain.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store[device.ID]; ok {
		return domain.ErrDeviceAlreadyExists
	}
	r.store[device.ID] = device
	return nil
}

func (r *InMemoryDeviceRepository) GetByID(ctx context.Context, id string) (*domain.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	device, ok := r.store[id]
	if !ok {
		return nil, domain.ErrDeviceNotFound
	}
	return device, nil
}

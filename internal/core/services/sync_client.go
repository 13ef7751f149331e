package services

import (
	"context"
	"log"
	"time"

	"github.com/stridewell/step-engine/internal/core/domain"
)

// DefaultSyncInterval is how often AutoSync pushes a snapshot while
// tracking is active.
const DefaultSyncInterval = 5 * time.Minute

// SyncClient is the device-side half of the sync pipeline: it reads
// the local step store and pushes today's snapshot through the
// SyncService, periodically and on demand.
type SyncClient struct {
	store      domain.StepStore
	svc        *SyncService
	userID     string
	deviceInfo string
}

func NewSyncClient(store domain.StepStore, svc *SyncService, userID, deviceInfo string) *SyncClient {
	return &SyncClient{
		store:      store,
		svc:        svc,
		userID:     userID,
		deviceInfo: deviceInfo,
	}
}

// Sync pushes the current local snapshot. Local counters are never
// rolled back on failure; a failed push is simply retried on the next
// interval or manual trigger.
func (c *SyncClient) Sync(ctx context.Context, challengeID string) SyncResult {
	snapshot, err := c.store.Snapshot()
	if err != nil {
		log.Printf("[SYNC] Failed to read local step store: %v", err)
		return failure(domain.StepValidation{}, 0)
	}

	today := domain.DayKey(time.Now().UTC())

	return c.svc.Push(ctx, PushInput{
		UserID:        c.userID,
		ChallengeID:   challengeID,
		DeviceInfo:    c.deviceInfo,
		ReportedSteps: snapshot.StepsFor(today),
		Day:           today,
	})
}

// AutoSync runs Sync on a fixed interval until the context is
// cancelled. An in-flight sync is allowed to complete: losing a
// validated snapshot to shutdown is worse than a slightly late stop.
func (c *SyncClient) AutoSync(ctx context.Context, challengeID string, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.Sync(context.WithoutCancel(ctx), challengeID)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[SYNC] Auto-sync stopped for challenge %s", challengeID)
			return
		case <-ticker.C:
			c.Sync(context.WithoutCancel(ctx), challengeID)
		}
	}
}

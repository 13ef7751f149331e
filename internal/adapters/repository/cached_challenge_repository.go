package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stridewell/step-engine/internal/core/domain"
)

var _ domain.ChallengeRepository = (*CachedChallengeRepository)(nil)

// CachedChallengeRepository is a cache-aside decorator over the
// challenge repository. Challenge definitions change rarely (admins
// edit them) while every sync and leaderboard read wants them, so a
// short TTL takes most of the read load off postgres.
type CachedChallengeRepository struct {
	next  domain.ChallengeRepository
	cache *redis.Client
	ttl   time.Duration
}

func NewCachedChallengeRepository(next domain.ChallengeRepository, cache *redis.Client, ttl time.Duration) *CachedChallengeRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedChallengeRepository{
		next:  next,
		cache: cache,
		ttl:   ttl,
	}
}

const activeRecurringKey = "challenges:active_recurring"

func (r *CachedChallengeRepository) challengeKey(id string) string {
	return fmt.Sprintf("challenges:%s", id)
}

func (r *CachedChallengeRepository) ListActiveRecurring(ctx context.Context) ([]*domain.Challenge, error) {
	val, err := r.cache.Get(ctx, activeRecurringKey).Result()
	if err == nil {
		var challenges []*domain.Challenge
		if err := json.Unmarshal([]byte(val), &challenges); err == nil {
			return challenges, nil
		}

		log.Printf("[CACHE] Corrupted active challenge list, cleaning up key")
		r.cache.Del(ctx, activeRecurringKey)
	} else if err != redis.Nil {
		log.Printf("[CACHE] Redis read error: %v", err)
	}

	challenges, err := r.next.ListActiveRecurring(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(challenges); err == nil {
		if setErr := r.cache.Set(ctx, activeRecurringKey, data, r.ttl).Err(); setErr != nil {
			log.Printf("[CACHE] Redis set error: %v", setErr)
		}
	}

	return challenges, nil
}

func (r *CachedChallengeRepository) GetByID(ctx context.Context, id string) (*domain.Challenge, error) {
	key := r.challengeKey(id)

	val, err := r.cache.Get(ctx, key).Result()
	if err == nil {
		var challenge domain.Challenge
		if err := json.Unmarshal([]byte(val), &challenge); err == nil {
			return &challenge, nil
		}

		log.Printf("[CACHE] Corrupted challenge %s, cleaning up key", id)
		r.cache.Del(ctx, key)
	} else if err != redis.Nil {
		log.Printf("[CACHE] Redis read error: %v", err)
	}

	challenge, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(challenge); err == nil {
		if setErr := r.cache.Set(ctx, key, data, r.ttl).Err(); setErr != nil {
			log.Printf("[CACHE] Redis set error: %v", setErr)
		}
	}

	return challenge, nil
}

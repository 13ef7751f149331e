// Command scheduler runs one pass of the challenge cycle worker: it opens
// cycles for recurring challenges that need one, closes expired cycles and
// distributes rewards. Meant to be invoked periodically (cron or a container
// scheduler); a Redis lock keeps concurrent invocations from overlapping.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/stridewell/step-engine/internal/adapters/cache"
	"github.com/stridewell/step-engine/internal/adapters/repository"
	"github.com/stridewell/step-engine/internal/core/workers"
)

const (
	lockName = "cycle_scheduler"
	lockTTL  = 10 * time.Minute
	runLimit = 5 * time.Minute
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		os.Getenv("DB_NAME"),
	)

	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		log.Fatalf("Critical: Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), runLimit)
	defer cancel()

	redisClient, err := cache.NewRedisClient(
		getEnv("REDIS_HOST", "localhost"),
		getEnv("REDIS_PORT", "6379"),
		os.Getenv("REDIS_PASSWORD"),
		0,
	)
	if err != nil {
		log.Printf("Warning: Redis unavailable, running without scheduler lock: %v", err)
	} else {
		lock := cache.NewRunLock(redisClient)
		acquired, err := lock.TryAcquire(ctx, lockName, lockTTL)
		if err != nil {
			log.Fatalf("Critical: Failed to acquire scheduler lock: %v", err)
		}
		if !acquired {
			log.Println("[CYCLE] Another scheduler run is in progress, exiting.")
			return
		}
		defer func() {
			if err := lock.Release(context.Background(), lockName); err != nil {
				log.Printf("[ERROR] Failed to release scheduler lock: %v", err)
			}
		}()
	}

	challengeRepo := repository.NewPostgresChallengeRepository(db)
	cycleRepo := repository.NewPostgresCycleRepository(db)
	leaderboardRepo := repository.NewPostgresLeaderboardRepository(db)
	loyaltyRepo := repository.NewPostgresLoyaltyRepository(db)

	worker := workers.NewCycleWorker(
		challengeRepo,
		cycleRepo,
		leaderboardRepo,
		workers.NewRewardDistributor(loyaltyRepo),
	)

	log.Println("[CYCLE] Scheduler run starting.")
	if err := worker.Run(ctx); err != nil {
		log.Fatalf("[ERROR] Scheduler run failed: %v", err)
	}
	log.Println("[CYCLE] Scheduler run complete.")
}

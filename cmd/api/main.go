package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/stridewell/step-engine/internal/adapters/cache"
	adapterHTTP "github.com/stridewell/step-engine/internal/adapters/handler/http"
	"github.com/stridewell/step-engine/internal/adapters/repository"
	"github.com/stridewell/step-engine/internal/core/domain"
	"github.com/stridewell/step-engine/internal/core/services"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	startTime := time.Now()

	_ = godotenv.Load()

	dbUser := os.Getenv("DB_USER")
	dbPass := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	serverPort := getEnv("PORT", "8080")

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("Critical: JWT_SECRET is required")
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		dbUser, dbPass, dbHost, dbPort, dbName)

	log.Println("Connecting to database...")

	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		log.Fatalf("Critical: Failed to connect to database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	log.Println("Database connected successfully.")

	redisClient, err := cache.NewRedisClient(
		getEnv("REDIS_HOST", "localhost"),
		getEnv("REDIS_PORT", "6379"),
		os.Getenv("REDIS_PASSWORD"),
		0,
	)
	if err != nil {
		log.Printf("Warning: Redis unavailable, continuing without cache: %v", err)
		redisClient = nil
	}

	challengeRepo := repository.NewPostgresChallengeRepository(db)
	cycleRepo := repository.NewPostgresCycleRepository(db)
	leaderboardRepo := repository.NewPostgresLeaderboardRepository(db)
	logRepo := repository.NewPostgresValidationLogRepository(db)
	deviceRepo := repository.NewPostgresDeviceRepository(db)

	var challengeReads domain.ChallengeRepository = challengeRepo
	if redisClient != nil {
		challengeReads = repository.NewCachedChallengeRepository(challengeRepo, redisClient, 5*time.Minute)
	}

	challengeService := services.NewChallengeService(challengeReads, cycleRepo, leaderboardRepo)

	syncService := services.NewSyncService(leaderboardRepo, cycleRepo, logRepo)
	deviceService := services.NewDeviceService(deviceRepo)
	tokenService := services.NewTokenService(jwtSecret, "stride-step-engine", 30*24*time.Hour, deviceRepo)

	router := adapterHTTP.NewRouter(adapterHTTP.RouterDependencies{
		AuthHandler:      adapterHTTP.NewAuthHandler(deviceService, tokenService),
		SyncHandler:      adapterHTTP.NewSyncHandler(syncService),
		ChallengeHandler: adapterHTTP.NewChallengeHandler(challengeService),
		TokenService:     tokenService,
		DB:               db,
		Redis:            redisClient,
		StartTime:        startTime,
	})

	srv := &http.Server{
		Addr:         ":" + serverPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Stride step engine running on http://localhost:%s", serverPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Critical server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Stop signal received. Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Forced shutdown error:", err)
	}

	log.Println("Server stopped gracefully.")
}

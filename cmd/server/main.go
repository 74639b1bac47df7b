package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/kilo-studio/kilo-backend/internal/clock"
	"github.com/kilo-studio/kilo-backend/internal/config"
	"github.com/kilo-studio/kilo-backend/internal/database"
	"github.com/kilo-studio/kilo-backend/internal/handler"
	"github.com/kilo-studio/kilo-backend/internal/logger"
	"github.com/kilo-studio/kilo-backend/internal/middleware"
	"github.com/kilo-studio/kilo-backend/internal/repository"
	"github.com/kilo-studio/kilo-backend/internal/router"
	"github.com/kilo-studio/kilo-backend/internal/service"
	"github.com/kilo-studio/kilo-backend/internal/validator"
	"github.com/kilo-studio/kilo-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("timezone", cfg.Location.String()).
		Msg("Starting Kilo Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Services ──────────────────────────────────────────
	store := repository.NewPostgres(pool)
	clk := clock.New(cfg.Location)

	quotaService := service.NewQuotaService(store, clk)
	enrollmentService := service.NewEnrollmentService(store, quotaService, clk, log)
	lessonService := service.NewLessonService(store, enrollmentService, log)
	scheduleService := service.NewScheduleService(store, enrollmentService, clk, log)
	authService := service.NewAuthService(cfg)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Lesson: handler.NewLessonHandler(lessonService, enrollmentService, scheduleService, quotaService),
		Member: handler.NewMemberHandler(enrollmentService, quotaService),
		System: handler.NewSystemHandler(pool, rdb, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	scheduleWorker := worker.NewScheduleWorker(
		scheduleService, rdb, clk,
		cfg.ScheduleAutogenDay, cfg.SchedulePollInterval, log,
	)
	workers.Go(func() { scheduleWorker.Start(workerCtx) })

	// ─── Setup Router ──────────────────────────────────────────────────
	limiter := middleware.NewRateLimiter(rdb, cfg.RateLimitPerMinute, time.Minute, log)
	r := router.SetupRouter(authService, handlers, limiter, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers. An in-flight generation finishes or rolls back.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ereas/ereas-backend/internal/cache"
	"github.com/ereas/ereas-backend/internal/config"
	"github.com/ereas/ereas-backend/internal/database"
	"github.com/ereas/ereas-backend/internal/handler"
	"github.com/ereas/ereas-backend/internal/logger"
	"github.com/ereas/ereas-backend/internal/repository"
	"github.com/ereas/ereas-backend/internal/router"
	"github.com/ereas/ereas-backend/internal/service"
	"github.com/ereas/ereas-backend/internal/validator"
	"github.com/ereas/ereas-backend/internal/worker"
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
		Msg("Starting EREAS Backend")

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

	// ─── Initialize Repositories ───────────────────────────────────────
	studentRepo := repository.NewStudentRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	assignmentRepo := repository.NewAssignmentRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	sessionCache := cache.NewSessionCache(rdb)
	authService := service.NewAuthService(cfg, rdb, studentRepo, adminRepo)
	examService := service.NewExamService(examRepo, log)
	questionService := service.NewQuestionService(questionRepo, log)
	assemblerService := service.NewAssemblerService(assignmentRepo, assignmentRepo, examRepo, sessionCache, log)
	sessionService := service.NewSessionService(sessionRepo, assignmentRepo, examRepo, sessionCache, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:        handler.NewAuthHandler(authService),
		Exam:        handler.NewExamHandler(examService, assemblerService),
		Question:    handler.NewQuestionHandler(questionService),
		StudentExam: handler.NewStudentExamHandler(sessionService),
		WS:          handler.NewWSHandler(sessionService, log, cfg.AllowedOrigins),
		System:      handler.NewSystemHandler(pool, rdb),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	statsWorker := worker.NewResultStatsWorker(pool, rdb, log)
	go statsWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
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

	// 2. Stop the stats worker and wait for its queue to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}

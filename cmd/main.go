package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"

	"github.com/matchpoint-academy/tournament-engine/config"
	"github.com/matchpoint-academy/tournament-engine/db"
	"github.com/matchpoint-academy/tournament-engine/events"
	"github.com/matchpoint-academy/tournament-engine/handlers"
	"github.com/matchpoint-academy/tournament-engine/middleware"
	"github.com/matchpoint-academy/tournament-engine/repositories"
	api "github.com/matchpoint-academy/tournament-engine/routes"
	"github.com/matchpoint-academy/tournament-engine/services"
	"github.com/matchpoint-academy/tournament-engine/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	var uploader storage.FileUploader
	if cfg.R2Configured() {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		uploader = storage.NewDisabledUploader()
		logger.Warn("object storage not configured, logo uploads disabled")
	}

	hub := events.NewHub(logger)
	go hub.Run()
	logger.Info("event hub started")

	userRepo := repositories.NewPostgresUserRepository(dbConn)
	campusRepo := repositories.NewPostgresCampusRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	stageRepo := repositories.NewPostgresStageRepository(dbConn)
	sessionRepo := repositories.NewPostgresSessionRepository(dbConn)
	enrollmentRepo := repositories.NewPostgresEnrollmentRepository(dbConn)
	rewardRepo := repositories.NewPostgresRewardTransactionRepository(dbConn)
	skillRepo := repositories.NewPostgresSkillProfileRepository(dbConn)
	logger.Info("repositories initialized")

	txRunner := db.NewTxRunner(dbConn)
	authorizer := services.NewRoleAuthorizer()

	authService := services.NewAuthService(userRepo)
	campusService := services.NewCampusService(campusRepo, authorizer)
	scheduleService := services.NewScheduleService(stageRepo, sessionRepo, campusRepo, logger)
	rewardService := services.NewRewardService(
		txRunner,
		tournamentRepo,
		stageRepo,
		sessionRepo,
		enrollmentRepo,
		rewardRepo,
		skillRepo,
		userRepo,
		authorizer,
		hub,
		uploader,
		logger,
	)
	lifecycleService := services.NewLifecycleService(
		txRunner,
		tournamentRepo,
		stageRepo,
		sessionRepo,
		enrollmentRepo,
		userRepo,
		scheduleService,
		rewardService,
		authorizer,
		hub,
		logger,
	)
	resultsService := services.NewResultsService(
		txRunner,
		tournamentRepo,
		stageRepo,
		sessionRepo,
		enrollmentRepo,
		scheduleService,
		authorizer,
		hub,
		logger,
	)
	enrollmentService := services.NewEnrollmentService(
		txRunner,
		tournamentRepo,
		enrollmentRepo,
		userRepo,
		authorizer,
		logger,
	)
	tournamentService := services.NewTournamentService(
		tournamentRepo,
		stageRepo,
		enrollmentRepo,
		userRepo,
		authorizer,
		uploader,
		logger,
	)
	logger.Info("services initialized")

	// Tournaments whose enrollment window has closed are started or
	// cancelled on a fixed cadence.
	go func() {
		ticker := time.NewTicker(cfg.SchedulerInterval)
		defer ticker.Stop()
		logger.Info("enrollment deadline scheduler started", slog.Duration("interval", cfg.SchedulerInterval))

		if err := lifecycleService.CloseExpiredEnrollments(context.Background()); err != nil {
			logger.Error("scheduler: initial run failed", slog.Any("error", err))
		}
		for range ticker.C {
			if err := lifecycleService.CloseExpiredEnrollments(context.Background()); err != nil {
				logger.Error("scheduler: periodic run failed", slog.Any("error", err))
			}
		}
	}()

	authenticator := middleware.NewAuthenticator(cfg.JWTSecretKey)
	authHandler := handlers.NewAuthHandler(authService, cfg.JWTSecretKey)
	tournamentHandler := handlers.NewTournamentHandler(tournamentService, lifecycleService, rewardService)
	enrollmentHandler := handlers.NewEnrollmentHandler(enrollmentService)
	sessionHandler := handlers.NewSessionHandler(resultsService)
	campusHandler := handlers.NewCampusHandler(campusService)
	webSocketHandler := handlers.NewWebSocketHandler(hub, tournamentService, logger)
	logger.Info("HTTP handlers initialized")

	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		authenticator,
		authHandler,
		tournamentHandler,
		enrollmentHandler,
		sessionHandler,
		campusHandler,
		webSocketHandler,
	)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}

package main

import (
	"alcyxob/fitness-scheduler/internal/api"
	"alcyxob/fitness-scheduler/internal/config"
	"alcyxob/fitness-scheduler/internal/domain"
	"alcyxob/fitness-scheduler/internal/logger"
	"alcyxob/fitness-scheduler/internal/repository/mongo"
	"alcyxob/fitness-scheduler/internal/scheduler"
	"alcyxob/fitness-scheduler/internal/service"
	"alcyxob/fitness-scheduler/internal/storage"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

// @title Fitness Scheduler API
// @version 1.0
// @description Split scheduling, workout materialization and mesocycle phase management.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}

	appLog, err := logger.New(cfg.Log.Mode)
	if err != nil {
		log.Fatalf("FATAL: Could not initialize logger: %v", err)
	}
	defer appLog.Sync()
	appLog.Info("starting fitness scheduler", "address", cfg.Server.Address)

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		appLog.Fatal("could not connect to MongoDB", "error", err)
	}
	defer func() {
		if err := mongo.DisconnectDB(dbClient); err != nil {
			appLog.Error("failed to disconnect MongoDB", "error", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	appLog.Info("database connection established", "database", cfg.Database.Name)

	// --- Ensure Indexes ---
	go func() { // Run index creation concurrently/in background
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongo.EnsureUserIndexes(ctx, appDB.Collection("users"))
		mongo.EnsureSplitIndexes(ctx, appDB.Collection("split_definitions"))
		mongo.EnsureAssignmentIndexes(ctx, appDB.Collection("split_assignments"))
		mongo.EnsureMesocycleIndexes(ctx, appDB.Collection("mesocycles"))
		mongo.EnsureAnalysisIndexes(ctx, appDB.Collection("phase_analyses"))
		mongo.EnsureCachedWorkoutIndexes(ctx, appDB.Collection("cached_workouts"))
		mongo.EnsureFrequencyChangeIndexes(ctx, appDB.Collection("frequency_changes"))
		mongo.EnsureTaskIndexes(ctx, appDB.Collection("scheduled_tasks"))
		mongo.EnsureSessionIndexes(ctx, appDB.Collection("workout_sessions"))
		appLog.Info("index creation process completed")
	}()

	// --- Initialize Storage ---
	fileStorage, err := storage.NewS3Storage(cfg.S3)
	if err != nil {
		appLog.Fatal("failed to initialize S3 storage", "error", err)
	}

	// --- Initialize Repositories ---
	userRepo := mongo.NewMongoUserRepository(appDB)
	splitRepo := mongo.NewMongoSplitRepository(appDB)
	assignmentRepo := mongo.NewMongoAssignmentRepository(appDB)
	mesocycleRepo := mongo.NewMongoMesocycleRepository(appDB)
	analysisRepo := mongo.NewMongoAnalysisRepository(appDB)
	cachedWorkoutRepo := mongo.NewMongoCachedWorkoutRepository(appDB)
	frequencyChangeRepo := mongo.NewMongoFrequencyChangeRepository(appDB)
	taskRepo := mongo.NewMongoTaskRepository(appDB)
	sessionRepo := mongo.NewMongoSessionRepository(appDB)

	// --- Seed Reference Data ---
	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 30*time.Second)
	if err := splitRepo.Seed(seedCtx, domain.DefaultSplitDefinitions()); err != nil {
		appLog.Error("failed to seed split definitions", "error", err)
	}
	cancelSeed()

	// --- Initialize Services ---
	clock := service.NewRealClock()
	locks := service.NewUserLocks()

	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	resolver := service.NewSplitResolver(splitRepo, assignmentRepo, userRepo)
	materializer := service.NewMaterializerService(cachedWorkoutRepo, assignmentRepo, cfg.Cache, clock, appLog)
	mesocycleService := service.NewMesocycleService(mesocycleRepo, analysisRepo, sessionRepo, cfg.Analysis, clock, appLog)
	frequencyService := service.NewFrequencyChangeService(
		userRepo, mesocycleRepo, frequencyChangeRepo,
		mesocycleService, resolver, materializer,
		assignmentRepo, cfg.Cache, locks, clock, appLog,
	)
	sessionService := service.NewSessionService(sessionRepo, cachedWorkoutRepo, clock, appLog)
	recoveryService := service.NewRecoveryService(sessionRepo, splitRepo, userRepo, cfg.Recovery, clock)

	// --- Background Scheduler ---
	reports := scheduler.NewReportGenerator(sessionRepo, mesocycleRepo, fileStorage, clock)
	sched := scheduler.New(
		taskRepo, userRepo, mesocycleRepo, assignmentRepo, sessionRepo, analysisRepo,
		mesocycleService, frequencyService, materializer, reports,
		locks, clock, appLog, cfg.Scheduler, cfg.Cache,
	)
	if err := sched.Start(); err != nil {
		appLog.Fatal("failed to start scheduler", "error", err)
	}
	defer sched.Stop()

	// --- Initialize Gin Engine ---
	if cfg.Log.Mode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default() // Includes Logger and Recovery middleware

	// --- Setup Routes ---
	api.SetupRoutes(router, cfg.JWT.Secret,
		authService, assignmentRepo, frequencyService, materializer,
		sessionService, recoveryService, mesocycleService, sched, fileStorage,
	)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("listen and serve error", "error", err)
		}
	}()
	appLog.Info("server started", "address", cfg.Server.Address)

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		appLog.Fatal("server forced to shutdown", "error", err)
	}

	appLog.Info("server exiting")
}

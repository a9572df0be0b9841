package api

import (
	"alcyxob/fitness-scheduler/internal/repository"
	"alcyxob/fitness-scheduler/internal/scheduler"
	"alcyxob/fitness-scheduler/internal/service"
	"alcyxob/fitness-scheduler/internal/storage"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authService service.AuthService,
	assignmentRepo repository.SplitAssignmentRepository,
	frequencyService service.FrequencyChangeService,
	materializer service.MaterializerService,
	sessionService service.SessionService,
	recoveryService service.RecoveryService,
	mesocycleService service.MesocycleService,
	sched *scheduler.Scheduler,
	files storage.FileStorage,
) {

	authHandler := NewAuthHandler(authService)
	scheduleHandler := NewScheduleHandler(assignmentRepo, frequencyService, materializer, sessionService, recoveryService)
	mesocycleHandler := NewMesocycleHandler(mesocycleService, frequencyService)
	schedulerHandler := NewSchedulerHandler(sched, files)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", func(c *gin.Context) {
			userID, err := getUserIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
				return
			}
			c.JSON(http.StatusOK, gin.H{"userId": userID.Hex()})
		})

		// --- Schedule & Workout Routes ---
		scheduleGroup := protected.Group("/schedule")
		{
			scheduleGroup.GET("", scheduleHandler.GetSchedule)
			scheduleGroup.PUT("/preferences", scheduleHandler.UpdatePreferences)
		}

		workoutGroup := protected.Group("/workouts")
		{
			workoutGroup.GET("/today", scheduleHandler.GetTodayWorkout)
			workoutGroup.GET("/:date", scheduleHandler.GetWorkoutByDate)
		}

		protected.POST("/sessions", scheduleHandler.RecordSession)
		protected.GET("/recovery", scheduleHandler.GetRecovery)

		// --- Mesocycle & Decision Routes ---
		protected.GET("/mesocycle", mesocycleHandler.GetActiveMesocycle)

		analysisGroup := protected.Group("/analyses")
		{
			analysisGroup.GET("/pending", mesocycleHandler.GetPendingAnalysis)
			analysisGroup.POST("/:id/decision", mesocycleHandler.DecideAnalysis)
		}

		changeGroup := protected.Group("/frequency-change")
		{
			changeGroup.GET("/pending", mesocycleHandler.GetPendingFrequencyChange)
			changeGroup.POST("/:id/decision", mesocycleHandler.DecideFrequencyChange)
		}

		// --- Report Artifacts ---
		protected.GET("/reports/url/*key", schedulerHandler.ReportURL)

		// --- Scheduler Control Surface ---
		schedulerGroup := protected.Group("/scheduler")
		{
			schedulerGroup.POST("/start", schedulerHandler.Start)
			schedulerGroup.POST("/stop", schedulerHandler.Stop)
			schedulerGroup.GET("/health", schedulerHandler.Health)
			schedulerGroup.GET("/stats", schedulerHandler.Stats)
			schedulerGroup.POST("/analyze/:userId", schedulerHandler.ForceAnalysis)
			schedulerGroup.POST("/cleanup", schedulerHandler.Cleanup)
		}
	}
}

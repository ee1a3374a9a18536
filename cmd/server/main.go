package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/placementhub/readiness/internal/cache"
	"github.com/placementhub/readiness/internal/catalog"
	"github.com/placementhub/readiness/internal/config"
	"github.com/placementhub/readiness/internal/database"
	apperrors "github.com/placementhub/readiness/internal/errors"
	"github.com/placementhub/readiness/internal/lifecycle"
	"github.com/placementhub/readiness/internal/middleware"
	"github.com/placementhub/readiness/internal/monitoring"
	"github.com/placementhub/readiness/internal/providers"
	"github.com/placementhub/readiness/internal/ratelimit"
	"github.com/placementhub/readiness/internal/readiness"
	"github.com/placementhub/readiness/internal/recommend"
	"github.com/placementhub/readiness/internal/simulate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	appLogger := monitoring.NewLogger(cfg.LogLevel())
	slog.SetDefault(appLogger.Logger)

	db, err := database.NewDB(cfg.Database.DataDir)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := database.NewRepository(db)

	cat, err := catalog.Load(cfg.Readiness.CatalogPath)
	if err != nil {
		slog.Error("Failed to load intervention catalog", "error", err)
		os.Exit(1)
	}

	directory := providers.NewDirectory(repo)
	academics := providers.NewAcademic(repo)
	resumes := providers.NewResumes(repo)
	interviews := providers.NewInterviews(repo)
	attendance := providers.NewAttendance(repo)

	engine := readiness.NewEngine(directory, academics, resumes, interviews, attendance, repo)
	recommender := recommend.NewEngine(engine, cat, resumes, interviews, cfg.ProfileMaxAge())
	simulator := simulate.NewEngine(repo, cat)
	interventions := lifecycle.NewManager(repo, cat, engine, directory)

	appMetrics := monitoring.NewMetrics()
	appCache := cache.New(cfg.CacheTTL())

	redisClient, err := ratelimit.NewRedisClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		slog.Warn("Redis unavailable, rate limiting degrades to in-memory", "error", err)
	}
	defer redisClient.Close()

	limiter := ratelimit.NewLimiter(redisClient, ratelimit.Config{
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Burst:             cfg.RateLimit.Burst,
	}, appMetrics)

	r := gin.New()

	r.Use(monitoring.MonitoringMiddleware(appMetrics, appLogger))
	r.Use(middleware.Compression())
	r.Use(middleware.SecurityHeaders())
	r.Use(apperrors.ErrorHandler())
	r.Use(apperrors.RecoveryHandler())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(ratelimit.Middleware(limiter))

	// invalidate drops every cached response for a subject after a write
	invalidate := func(subjectID string) {
		appCache.DeletePrefix("subject:" + subjectID + ":")
	}

	// recompute re-derives the profile after an ingestion write. The call is
	// awaited so provider failures surface to the caller instead of leaving a
	// silently stale profile.
	recompute := func(c *gin.Context, subjectID string) bool {
		appMetrics.IncrementCompute()
		if _, err := engine.Compute(c.Request.Context(), subjectID); err != nil {
			appMetrics.IncrementComputeFailure()
			respondError(c, err)
			return false
		}
		invalidate(subjectID)
		return true
	}

	// requireStudent resolves the subject before any write, 404 otherwise
	requireStudent := func(c *gin.Context, subjectID string) bool {
		eligible, err := directory.Eligible(c.Request.Context(), subjectID)
		if err != nil {
			respondError(c, err)
			return false
		}
		if !eligible {
			respondError(c, apperrors.NewNotFoundError("student", subjectID))
			return false
		}
		return true
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "ok",
			"timestamp":  time.Now().Format(time.RFC3339),
			"version":    "1.0.0",
			"metrics":    appMetrics.GetStats(),
			"database":   db.GetPoolStats(),
			"cache":      appCache.Stats(),
			"rate_limit": limiter.Stats(),
		})
	})

	r.GET("/catalog", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"interventions": cat.Definitions()})
	})

	r.POST("/students", func(c *gin.Context) {
		var req struct {
			Name  string `json:"name" binding:"required"`
			Email string `json:"email" binding:"required,email"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, apperrors.NewInvalidArgumentError("body", err.Error()))
			return
		}

		student := database.NewStudent(req.Name, req.Email)
		if err := repo.CreateStudent(c.Request.Context(), student); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, student)
	})

	r.GET("/students/:id", func(c *gin.Context) {
		student, err := repo.Student(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		if student == nil {
			respondError(c, apperrors.NewNotFoundError("student", c.Param("id")))
			return
		}

		c.JSON(http.StatusOK, student)
	})

	r.POST("/students/:id/academics", func(c *gin.Context) {
		subjectID := c.Param("id")
		var req struct {
			Term  int      `json:"term" binding:"required"`
			Score *float64 `json:"score" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, apperrors.NewInvalidArgumentError("body", err.Error()))
			return
		}
		if *req.Score < 0 || *req.Score > 10 {
			respondError(c, apperrors.NewInvalidArgumentError("score", "score must be between 0 and 10"))
			return
		}
		if !requireStudent(c, subjectID) {
			return
		}

		record := database.NewTermRecord(subjectID, req.Term, *req.Score)
		if err := repo.AddTermScore(c.Request.Context(), record); err != nil {
			respondError(c, err)
			return
		}
		if !recompute(c, subjectID) {
			return
		}

		c.JSON(http.StatusCreated, record)
	})

	r.PUT("/students/:id/resume", func(c *gin.Context) {
		subjectID := c.Param("id")
		var snapshot readiness.ResumeSnapshot
		if err := c.ShouldBindJSON(&snapshot); err != nil {
			respondError(c, apperrors.NewInvalidArgumentError("body", err.Error()))
			return
		}
		if snapshot.AIScore < 0 || snapshot.AIScore > 100 {
			respondError(c, apperrors.NewInvalidArgumentError("ai_score", "ai_score must be between 0 and 100"))
			return
		}
		if !requireStudent(c, subjectID) {
			return
		}

		if err := repo.UpsertResume(c.Request.Context(), subjectID, &snapshot); err != nil {
			respondError(c, err)
			return
		}
		if !recompute(c, subjectID) {
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"subject_id":   subjectID,
			"completeness": snapshot.Sections.Completeness(),
		})
	})

	r.POST("/students/:id/interviews", func(c *gin.Context) {
		subjectID := c.Param("id")
		var req struct {
			Score       *float64   `json:"score"`
			CompletedAt *time.Time `json:"completed_at"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, apperrors.NewInvalidArgumentError("body", err.Error()))
			return
		}
		if req.Score != nil && (*req.Score < 0 || *req.Score > 100) {
			respondError(c, apperrors.NewInvalidArgumentError("score", "score must be between 0 and 100"))
			return
		}
		if !requireStudent(c, subjectID) {
			return
		}

		completedAt := time.Now()
		if req.CompletedAt != nil {
			completedAt = *req.CompletedAt
		}

		row := database.NewInterviewSessionRow(subjectID, req.Score, completedAt)
		if err := repo.AddInterviewSession(c.Request.Context(), row); err != nil {
			respondError(c, err)
			return
		}
		if !recompute(c, subjectID) {
			return
		}

		c.JSON(http.StatusCreated, row)
	})

	r.PUT("/students/:id/attendance", func(c *gin.Context) {
		subjectID := c.Param("id")
		var req struct {
			Percentage *float64 `json:"percentage" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, apperrors.NewInvalidArgumentError("body", err.Error()))
			return
		}
		if *req.Percentage < 0 || *req.Percentage > 100 {
			respondError(c, apperrors.NewInvalidArgumentError("percentage", "percentage must be between 0 and 100"))
			return
		}
		if !requireStudent(c, subjectID) {
			return
		}

		if err := repo.UpsertAttendance(c.Request.Context(), subjectID, *req.Percentage); err != nil {
			respondError(c, err)
			return
		}
		if !recompute(c, subjectID) {
			return
		}

		c.JSON(http.StatusOK, gin.H{"subject_id": subjectID, "percentage": *req.Percentage})
	})

	r.POST("/students/:id/readiness", func(c *gin.Context) {
		subjectID := c.Param("id")

		appMetrics.IncrementCompute()
		profile, err := engine.Compute(c.Request.Context(), subjectID)
		if err != nil {
			appMetrics.IncrementComputeFailure()
			respondError(c, err)
			return
		}
		invalidate(subjectID)

		c.JSON(http.StatusOK, profile)
	})

	r.GET("/students/:id/readiness", func(c *gin.Context) {
		subjectID := c.Param("id")
		key := "subject:" + subjectID + ":readiness"

		if data, ok := appCache.Get(key); ok {
			appMetrics.IncrementCacheHit()
			c.Data(http.StatusOK, "application/json", data)
			return
		}
		appMetrics.IncrementCacheMiss()

		profile, err := engine.FreshProfile(c.Request.Context(), subjectID, cfg.ProfileMaxAge())
		if err != nil {
			respondError(c, err)
			return
		}

		data, err := json.Marshal(profile)
		if err != nil {
			respondError(c, err)
			return
		}
		appCache.Set(key, data)

		c.Data(http.StatusOK, "application/json", data)
	})

	r.GET("/students/:id/recommendations", func(c *gin.Context) {
		subjectID := c.Param("id")
		key := "subject:" + subjectID + ":recommendations"

		if data, ok := appCache.Get(key); ok {
			appMetrics.IncrementCacheHit()
			c.Data(http.StatusOK, "application/json", data)
			return
		}
		appMetrics.IncrementCacheMiss()

		candidates, err := recommender.Recommend(c.Request.Context(), subjectID)
		if err != nil {
			respondError(c, err)
			return
		}
		appMetrics.IncrementRecommendation()

		data, err := json.Marshal(gin.H{"subject_id": subjectID, "recommendations": candidates})
		if err != nil {
			respondError(c, err)
			return
		}
		appCache.Set(key, data)

		c.Data(http.StatusOK, "application/json", data)
	})

	r.POST("/students/:id/simulate", func(c *gin.Context) {
		subjectID := c.Param("id")
		var req struct {
			Interventions []string `json:"interventions" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, apperrors.NewInvalidArgumentError("body", err.Error()))
			return
		}

		types := make([]catalog.InterventionType, len(req.Interventions))
		for i, t := range req.Interventions {
			types[i] = catalog.InterventionType(t)
		}

		result, err := simulator.Simulate(c.Request.Context(), subjectID, types)
		if err != nil {
			respondError(c, err)
			return
		}
		appMetrics.IncrementSimulation()

		c.JSON(http.StatusOK, result)
	})

	r.POST("/students/:id/interventions", func(c *gin.Context) {
		subjectID := c.Param("id")
		var req struct {
			Type string `json:"type" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, apperrors.NewInvalidArgumentError("body", err.Error()))
			return
		}

		record, err := interventions.Start(c.Request.Context(), subjectID, catalog.InterventionType(req.Type))
		if err != nil {
			respondError(c, err)
			return
		}
		appMetrics.IncrementInterventionStarted()

		c.JSON(http.StatusCreated, record)
	})

	r.GET("/students/:id/interventions", func(c *gin.Context) {
		subjectID := c.Param("id")

		records, err := interventions.List(c.Request.Context(), subjectID)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"subject_id": subjectID, "interventions": records})
	})

	r.POST("/students/:id/interventions/:recordID/complete", func(c *gin.Context) {
		subjectID := c.Param("id")

		record, err := interventions.Complete(c.Request.Context(), subjectID, c.Param("recordID"))
		if err != nil {
			respondError(c, err)
			return
		}
		appMetrics.IncrementInterventionCompleted()
		invalidate(subjectID)

		c.JSON(http.StatusOK, record)
	})

	r.POST("/students/:id/interventions/:recordID/dismiss", func(c *gin.Context) {
		subjectID := c.Param("id")

		record, err := interventions.Dismiss(c.Request.Context(), subjectID, c.Param("recordID"))
		if err != nil {
			respondError(c, err)
			return
		}
		appMetrics.IncrementInterventionDismissed()

		c.JSON(http.StatusOK, record)
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		slog.Info("Starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited")
}

func respondError(c *gin.Context, err error) {
	appErr := apperrors.ToAppError(err)
	apperrors.LogError(c, appErr)
	c.JSON(appErr.HTTPStatus, appErr)
}

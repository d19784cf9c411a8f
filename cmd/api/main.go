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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"classtrack/internal/attendance"
	"classtrack/internal/auth"
	"classtrack/internal/community"
	"classtrack/internal/config"
	"classtrack/internal/export"
	"classtrack/internal/handler"
	"classtrack/internal/httpmiddleware"
	"classtrack/internal/queue"
	"classtrack/internal/schedule"
	"classtrack/internal/session"
	"classtrack/internal/sessiontoken"
	"classtrack/internal/store"
	"classtrack/internal/user"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("db migrate: %w", err)
	}

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "classtrack:marks")
	}

	staging, err := export.NewStaging(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("staging dir: %w", err)
	}

	codec := sessiontoken.New(cfg.JWTSecret)

	schedRepo := schedule.NewRepository(db.Client)
	sched := schedule.NewService(schedRepo)

	userRepo := user.NewRepository(db.Client)
	users := user.NewService(userRepo, schedRepo)

	sessions := session.NewService(schedRepo, codec, cfg.ClientURL)

	attRepo := attendance.NewRepository(db.Client)
	marks := attendance.NewService(attRepo, profileSource{users}, codec)

	board := community.NewService(community.NewRepository(db.Client))

	h := handler.New(cfg, users, sched, sessions, marks, attRepo, board, staging, q)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.ClientURL, "http://localhost:3000", "http://127.0.0.1:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}))
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewLimiter(cfg.RateLimitPerMin, cfg.RateLimitPerMin).Gin())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})
	r.GET("/api/health", h.Health)

	authn := auth.RequireAuth(cfg.JWTSecret)
	adminOnly := auth.RequireAdmin()

	// 100 requests per 15 minutes, expressed as a slow-refill bucket.
	authGroup := r.Group("/api/auth", httpmiddleware.NewLimiter(100, 7).Gin())
	authGroup.POST("/register", h.Register)
	authGroup.POST("/login", h.Login)
	authGroup.GET("/me", authn, h.Me)

	api := r.Group("/api", authn)

	api.GET("/batches", h.ListBatches)
	api.POST("/batches", adminOnly, h.UpsertBatch)
	api.GET("/batches/:id/schedule", adminOnly, h.GetSchedule)
	api.PUT("/batches/:id/schedule", adminOnly, h.PutSchedule)

	api.GET("/users", adminOnly, h.ListUsers)
	api.PUT("/users/:id", adminOnly, h.UpdateUser)

	api.GET("/schedule/today", h.ScheduleToday)
	api.GET("/schedule/on-date", h.ScheduleOnDate)
	api.GET("/on-date", h.ScheduleOnDate) // legacy client alias

	api.POST("/sessions/:batchId/generate", adminOnly, h.GenerateSession)
	api.POST("/generate", adminOnly, h.GenerateSession)
	api.POST("/attendance/mark", h.MarkAttendance)
	api.GET("/attendance/session/:id", adminOnly, h.SessionAttendance)
	api.GET("/attendance/export", adminOnly, h.ExportAttendance)

	// 60 requests per 15 minutes for the board.
	boardGroup := r.Group("/api/community", httpmiddleware.NewLimiter(60, 4).Gin(), authn)
	boardGroup.GET("", h.ListPosts)
	boardGroup.POST("", h.CreatePost)
	boardGroup.DELETE("/:id", adminOnly, h.DeletePost)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// profileSource resolves the caller's current registration data for marking.
type profileSource struct {
	users *user.Service
}

func (p profileSource) Profile(ctx context.Context, userID string) (attendance.Profile, error) {
	u, err := p.users.Get(ctx, userID)
	if err != nil {
		return attendance.Profile{}, err
	}
	if u == nil {
		return attendance.Profile{}, fmt.Errorf("user %s not found", userID)
	}
	return attendance.Profile{RegNo: u.RegNo, Name: u.Name}, nil
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

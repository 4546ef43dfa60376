package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"rollbook/internal/admin"
	"rollbook/internal/attendance"
	"rollbook/internal/config"
	"rollbook/internal/httpmiddleware"
	"rollbook/internal/roster"
	"rollbook/internal/store"
)

func main() {
	_ = godotenv.Load()
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
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.EnsureSchema(ctx); err != nil {
		cancel()
		log.Fatalf("schema setup failed: %v", err)
	}
	cancel()

	// Redis is only dialed when the limiter runs on it; the memory backend
	// needs no external state.
	var redisClient *store.Redis
	var limiter httpmiddleware.Limiter
	if cfg.RateLimitBackend == "redis" {
		redisClient = store.NewRedis(cfg.RedisAddr)
		limiter = httpmiddleware.NewRedisFixedWindow(redisClient.Client, "rollbook:ratelimit:", cfg.RateLimitMax, cfg.RateLimitWindow)
	} else {
		limiter = httpmiddleware.NewFixedWindow(cfg.RateLimitMax, cfg.RateLimitWindow)
	}

	admins := admin.NewService(admin.NewRepository(db.Client), cfg.JWTIssuer, cfg.JWTSigningKey, cfg.TokenTTL)
	students := roster.NewRepository(db.Client)
	att := attendance.NewService(attendance.NewRepository(db.Client))

	healthz := func(c *gin.Context) {
		dbHealthy := db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		body := gin.H{"status": "ok", "db": dbHealthy}
		if redisClient != nil {
			redisHealthy := redisClient.Healthy(c.Request.Context())
			body["redis"] = redisHealthy
			if !redisHealthy {
				status = http.StatusServiceUnavailable
			}
		}
		c.JSON(status, body)
	}

	r := newRouter(cfg, admins, students, att, limiter, healthz)

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

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

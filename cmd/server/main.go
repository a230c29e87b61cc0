package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	config "github.com/purrfectstays/waitlist-api/configs"
	"github.com/purrfectstays/waitlist-api/internal/application/services"
	"github.com/purrfectstays/waitlist-api/internal/core/ports"
	"github.com/purrfectstays/waitlist-api/internal/infrastructure/db"
	"github.com/purrfectstays/waitlist-api/internal/infrastructure/email"
	"github.com/purrfectstays/waitlist-api/internal/infrastructure/health"
	"github.com/purrfectstays/waitlist-api/internal/infrastructure/httpserver"
	customMiddleware "github.com/purrfectstays/waitlist-api/internal/infrastructure/httpserver/middleware"
	"github.com/purrfectstays/waitlist-api/internal/infrastructure/redis"
	"github.com/purrfectstays/waitlist-api/internal/infrastructure/repositories"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Setup logger
	logger := logrus.New()
	if cfg.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}

	logger.Info("Starting Purrfect Stays waitlist API...")

	// Initialize database (apply pool settings from config)
	database, err := db.NewDatabaseWithConfig(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}
	defer database.Close()

	logger.Info("Connected to database successfully")

	// Initialize Redis client
	redisClient, err := redis.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis:", err)
	}
	defer redisClient.Close()

	logger.Info("Connected to Redis successfully")

	// Run migrations
	if err := database.Migrate("./migrations"); err != nil {
		logger.Warn("Failed to run migrations:", err)
	}

	// Initialize Redis-backed infrastructure
	redisCache := redis.NewRedisCache(redisClient, "waitlist")
	rateLimitRepo := repositories.NewRateLimitRedisRepository(redisClient)

	// Repository, with short-TTL read caching for the hot lookups
	baseWaitlistRepo := repositories.NewWaitlistRepository(database, logger)
	waitlistRepo := repositories.NewCachingWaitlistRepository(baseWaitlistRepo, redisCache, 3*time.Minute)

	// Email service
	emailConfig := &email.EmailConfig{
		SendGridAPIKey:    cfg.Email.SendGridAPIKey,
		FromEmail:         cfg.Email.FromEmail,
		FromName:          cfg.Email.FromName,
		FallbackFromEmail: cfg.Email.FallbackFromEmail,
		FallbackFromName:  cfg.Email.FallbackFromName,
		CompanyName:       cfg.Email.CompanyName,
		BaseURL:           cfg.Email.BaseURL,
	}
	emailService, err := email.NewEmailService(emailConfig, logger)
	if err != nil {
		logger.Fatal("Failed to initialize email service:", err)
	}

	// Wire application services
	registrationService := services.NewRegistrationService(waitlistRepo, emailService, logger)
	verificationService := services.NewVerificationService(waitlistRepo, cfg.Verification.TokenTTL, logger)
	welcomeService := services.NewWelcomeService(waitlistRepo, emailService, logger)

	hcSlice := []ports.HealthChecker{health.NewDBHealthChecker(database), health.NewRedisHealthChecker(redisClient)}

	// Create server configuration
	serverConfig := &httpserver.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		TLSCertFile:    cfg.Server.TLSCertFile,
		TLSKeyFile:     cfg.Server.TLSKeyFile,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		SiteURL:        cfg.Server.SiteURL,
	}

	deps := httpserver.ServerDeps{
		RegistrationService: registrationService,
		VerificationService: verificationService,
		WelcomeService:      welcomeService,
		RateLimitCounter:    rateLimitRepo,
		RateLimitConfig: &customMiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.RequestsPerWindow,
			Window:            cfg.RateLimit.Window,
			KeyPrefix:         cfg.RateLimit.KeyPrefix,
		},
		HealthCheckers: hcSlice,
	}

	server := httpserver.NewServer(serverConfig, cfg.Auth.ServiceTokenSecret, logger, deps)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start server:", err)
		}
	}()

	logger.Infof("Server started on %s:%s", cfg.Server.Host, cfg.Server.Port)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}

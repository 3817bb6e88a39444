package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"polyglot-service/internal/cache"
	"polyglot-service/internal/clients"
	"polyglot-service/internal/config"
	"polyglot-service/internal/handlers"
	"polyglot-service/internal/health"
	"polyglot-service/internal/languages"
	"polyglot-service/internal/middleware"
	"polyglot-service/internal/models"
	"polyglot-service/internal/nats"
	"polyglot-service/internal/repository"
	"polyglot-service/internal/services"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	log := logger.WithField("service", cfg.App.Name)

	// Set log level
	level, err := logrus.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	// Set Gin mode
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Load the language directory (built-in table unless overridden)
	dir := languages.New()
	if cfg.Translation.DirectoryPath != "" {
		dir, err = languages.Load(cfg.Translation.DirectoryPath)
		if err != nil {
			log.WithError(err).WithField("path", cfg.Translation.DirectoryPath).
				Fatal("Failed to load language directory")
		}
		log.WithFields(logrus.Fields{
			"path":      cfg.Translation.DirectoryPath,
			"languages": len(dir.Entries()),
		}).Info("Loaded language directory override")
	}

	// Initialize database
	db, err := initDatabase(&cfg.Database, cfg.App.Environment)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}

	// Run migrations
	if err := runMigrations(db); err != nil {
		log.WithError(err).Fatal("Failed to run migrations")
	}

	// Initialize repository
	repo := repository.NewTranslationRepository(db)

	// Initialize translation cache: in-process LRU, fronting Redis when enabled
	var store cache.Store = cache.NewMemoryCache(cfg.Translation.CacheCapacity, cfg.Translation.CacheTTL)
	var redisCache *cache.RedisCache
	if cfg.Translation.CacheEnabled {
		redisCache, err = cache.NewRedisCache(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Translation.CacheTTL,
			log,
		)
		if err != nil {
			log.WithError(err).Warn("Failed to initialize Redis cache, continuing with in-memory cache only")
			redisCache = nil
		} else {
			store = cache.NewTieredStore(store, redisCache)
		}
	}

	// Initialize translation providers
	// Tier order: premium (1) -> free (2) -> broad (3)
	var providers []clients.TranslationProvider

	if cfg.Translation.PremiumAPIKey != "" {
		deepL := clients.NewDeepLClient(
			cfg.Translation.PremiumAPIURL,
			cfg.Translation.PremiumAPIKey,
			cfg.Translation.ProviderTimeout,
			dir.PremiumTargets(),
			log,
		)
		providers = append(providers, deepL)
		log.Info("Premium tier enabled (priority 1)")
	} else {
		log.Warn("Premium API key not configured - falling through to free tier")
	}

	myMemory := clients.NewMyMemoryClient(
		cfg.Translation.FreeAPIURL,
		cfg.Translation.FreeAPIKey,
		cfg.Translation.FreeUserIdentity,
		cfg.Translation.ProviderTimeout,
		cfg.Translation.FreeDailyBudget,
		dir.FreeTargets(),
		log,
	)
	providers = append(providers, myMemory)
	log.WithField("daily_budget", cfg.Translation.FreeDailyBudget).Info("Free tier enabled (priority 2)")

	if cfg.Translation.BroadEnabled {
		googleWeb := clients.NewGoogleWebClient(
			cfg.Translation.BroadAPIURL,
			cfg.Translation.ProviderTimeout,
			dir.AllTargets(),
			log,
		)
		providers = append(providers, googleWeb)
		log.Info("Broad tier enabled (priority 3)")
	} else {
		log.Info("Broad tier disabled - coverage limited to premium and free targets")
	}

	// Create the orchestrator with the provider chain
	orchestrator := clients.NewTranslationOrchestrator(providers, store, log)

	// Verify provider reachability at startup (non-fatal)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	orchestrator.RefreshHealth(ctx)
	cancel()
	for id, ph := range orchestrator.GetProviderHealth() {
		if !ph.Healthy {
			log.WithField("provider", string(id)).Warn("Provider unhealthy at startup")
		}
	}

	// Platform gateway client: rosters, role languages, DM delivery
	platformClient := services.NewPlatformClient(cfg.Platform.GatewayURL, log)

	// Target resolution and broadcast fan-out
	resolver := services.NewTargetResolver(dir, repo, platformClient, cfg.Translation.DefaultGuildLang, log)
	broadcaster := services.NewBroadcaster(
		orchestrator,
		resolver,
		platformClient,
		platformClient,
		repo,
		dir,
		cfg.Broadcast,
		log,
	)

	// Health checker and Prometheus metrics
	var cachePinger health.CachePinger
	if redisCache != nil {
		cachePinger = redisCache
	}
	healthChecker := health.NewHealthChecker(db, orchestrator, cachePinger, cfg.App.Version)

	// SOS event consumer (optional, enabled when NATS_URL is set)
	var natsClient *nats.Client
	var subscriber *nats.Subscriber
	if cfg.NATS.URL != "" {
		natsClient, err = nats.NewClient(cfg.NATS.URL, cfg.NATS.MaxReconnects, cfg.NATS.ReconnectWait, log)
		if err != nil {
			log.WithError(err).Warn("Failed to connect to NATS, continuing without SOS event consumer")
		} else {
			subscriber = nats.NewSubscriber(natsClient, broadcaster, log)
			if err := subscriber.Start(); err != nil {
				log.WithError(err).Warn("Failed to start SOS event consumer")
				subscriber = nil
			}
		}
	} else {
		log.Info("NATS_URL not set - SOS events available via HTTP only")
	}

	// Initialize handlers
	translationHandler := handlers.NewTranslationHandler(repo, orchestrator, resolver, dir, log)
	broadcastHandler := handlers.NewBroadcastHandler(broadcaster, repo, log)
	preferenceHandler := handlers.NewPreferenceHandler(repo, dir, log)

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter(
		cfg.Translation.RateLimit,
		cfg.Translation.RateLimitWindow,
	)

	// Setup Gin router
	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(health.MetricsMiddleware())
	router.Use(middleware.GuildID())
	router.Use(middleware.UserID())

	// Health endpoints (no auth required)
	router.GET("/health", healthChecker.HealthHandler)
	router.GET("/livez", healthChecker.LivezHandler)
	router.GET("/readyz", healthChecker.ReadyzHandler)

	// Metrics endpoint
	router.GET("/metrics", health.MetricsHandler())

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Translation endpoints (rate limited)
		v1.POST("/translate", rateLimiter.Middleware(), translationHandler.Translate)
		v1.POST("/translate/author", rateLimiter.Middleware(), translationHandler.TranslateForAuthor)
		v1.POST("/broadcast", rateLimiter.Middleware(), broadcastHandler.Broadcast)

		// Language directory
		v1.GET("/languages", translationHandler.GetLanguages)
		v1.GET("/languages/resolve", translationHandler.ResolveLanguage)

		// Guild-scoped endpoints
		guilds := v1.Group("/guilds/:guildID")
		{
			guilds.GET("/members/:userID/preference", preferenceHandler.GetPreference)
			guilds.PUT("/members/:userID/preference", preferenceHandler.SetPreference)
			guilds.DELETE("/members/:userID/preference", preferenceHandler.DeletePreference)
			guilds.GET("/settings", preferenceHandler.GetGuildSettings)
			guilds.PUT("/settings", preferenceHandler.UpdateGuildSettings)
			guilds.GET("/stats", translationHandler.GetStats)
			guilds.GET("/broadcasts", broadcastHandler.RecentBroadcasts)
		}
	}

	healthChecker.SetReady(true)

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.WithField("addr", addr).Info("Starting polyglot service")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	healthChecker.SetReady(false)

	// Shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	// Drain the SOS consumer before dropping the connection
	if subscriber != nil {
		subscriber.Stop()
	}
	if natsClient != nil {
		natsClient.Close()
	}

	// Close Redis connection
	if redisCache != nil {
		if err := redisCache.Close(); err != nil {
			log.WithError(err).Warn("Failed to close Redis connection")
		}
	}

	log.Info("Server exited")
}

func initDatabase(cfg *config.DatabaseConfig, env string) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	logLevel := gormLogger.Silent
	if env != "production" {
		logLevel = gormLogger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

func runMigrations(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.UserLanguagePreference{},
		&models.GuildSettings{},
		&models.TranslationStats{},
		&models.BroadcastRecord{},
	)
}

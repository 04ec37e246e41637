package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/redis/rueidis"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/engine"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/imagehost"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/lock"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/routes"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/scheduler"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/store"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/store/gormstore"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/store/memstore"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/store/mongostore"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	// Structured logging (JSON to stdout)
	stdoutHandler := logging.Setup()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.ContactHashKey == "" {
		slog.Warn("CONTACT_HASH_KEY not set, phone digests are unkeyed")
	}

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Store
	gateway, db, err := openStore(cfg)
	if err != nil {
		slog.Error("store connection failed", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}

	// Database log handler (ERROR+ async batch), relational store only
	var dbLogHandler *logging.DBHandler
	if db != nil {
		dbLogHandler = logging.NewDBHandler(db, logging.DBHandlerOptions{})
		slog.SetDefault(slog.New(logging.NewMultiHandler(stdoutHandler, dbLogHandler)))
	}

	// Locks
	locks, redisClient, err := openLocker(cfg)
	if err != nil {
		slog.Error("lock backend connection failed", "driver", cfg.LockDriver, "error", err)
		os.Exit(1)
	}

	// Image host
	images, err := openImageHost(cfg)
	if err != nil {
		slog.Error("image host setup failed", "error", err)
		os.Exit(1)
	}

	eng := engine.New(gateway, images, locks, engine.Options{
		Location:         cfg.Location(),
		SweepConcurrency: cfg.SweepConcurrency,
		OnInconsistency:  reportInconsistency,
	})

	// Services
	moderationService := services.NewModerationService()
	categoryService := services.NewCategoryService(gateway)
	reportService := services.NewReportService(gateway, eng, moderationService)
	userService := services.NewUserService(gateway, cfg.ContactHashKey)

	// Handlers
	healthHandler := handlers.NewHealthHandler(gateway, cfg.StoreDriver)
	categoryHandler := handlers.NewCategoryHandler(categoryService, reportService)
	reportHandler := handlers.NewReportHandler(reportService)
	userHandler := handlers.NewUserHandler(userService)
	adminHandler := handlers.NewAdminHandler(eng)

	// Scheduled jobs
	jobs := scheduler.New(cfg.Location())
	jobs.Daily("sweep", cfg.SweepHour, sweepJob(eng))
	if db != nil {
		jobs.Daily("log_retention", (cfg.SweepHour+1)%24, logging.RetentionJob(db, cfg.LogRetention))
	}
	jobs.Start()

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    8 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${locals:requestid}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(middleware.SecurityHeaders())

	// Routes
	routes.Setup(app, cfg, healthHandler, categoryHandler, reportHandler, userHandler, adminHandler)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "store", cfg.StoreDriver, "lock", cfg.LockDriver)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	jobs.Stop()

	if dbLogHandler != nil {
		dbLogHandler.Stop()
		slog.SetDefault(slog.New(stdoutHandler))
	}
	sentry.Flush(2 * time.Second)

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := gateway.Close(closeCtx); err != nil {
		slog.Error("store close error", "error", err)
	}
	if redisClient != nil {
		redisClient.Close()
	}

	slog.Info("server stopped")
}

func openStore(cfg *config.Config) (store.Gateway, *gorm.DB, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		db, err := database.Connect(cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := database.Migrate(db); err != nil {
			return nil, nil, err
		}
		return gormstore.New(db), db, nil
	case config.StoreMongo:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		st, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("mongo connected", "database", cfg.MongoDatabase)
		return st, nil, nil
	case config.StoreMemory:
		slog.Warn("using in-memory store, data is lost on restart")
		return memstore.New(), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

func openLocker(cfg *config.Config) (lock.Locker, rueidis.Client, error) {
	if cfg.LockDriver != config.LockRedis {
		return lock.NewLocal(), nil, nil
	}
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{cfg.RedisAddr},
		Password:     cfg.RedisPassword,
		DisableCache: true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	slog.Info("redis connected", "addr", cfg.RedisAddr)
	return lock.NewRedis(client, lock.RedisOptions{TTL: cfg.LockTTL, Wait: cfg.LockWait}), client, nil
}

func openImageHost(cfg *config.Config) (imagehost.Host, error) {
	switch {
	case cfg.CloudinaryURL != "":
		return imagehost.NewCloudinary(cfg.CloudinaryURL)
	case cfg.HasCloudinary():
		return imagehost.NewCloudinaryFromParams(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	}
	slog.Warn("cloudinary not configured, images are kept in memory only")
	return imagehost.NewMemory("http://localhost:" + cfg.Port + "/images"), nil
}

func sweepJob(eng *engine.Engine) scheduler.Job {
	return func(ctx context.Context) error {
		result, err := eng.Sweep(ctx)
		if err != nil {
			return err
		}
		return errors.Join(result.Errors()...)
	}
}

// reportInconsistency forwards partial removals and orphan reactions to
// Sentry, tagged so they can be grouped by step.
func reportInconsistency(err error) {
	sentry.WithScope(func(scope *sentry.Scope) {
		var (
			partial *engine.PartialRemovalError
			orphan  *engine.OrphanReactionError
		)
		switch {
		case errors.As(err, &partial):
			scope.SetTag("report_id", partial.ReportID)
			scope.SetTag("step", partial.Step.String())
		case errors.As(err, &orphan):
			scope.SetTag("report_id", orphan.ReportID)
			scope.SetTag("reaction_id", orphan.ReactionID)
		}
		sentry.CaptureException(err)
	})
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}

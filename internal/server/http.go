package server

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/dushyantisbest/SIH-Student-attendence/internal/cache"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/config"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/database"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/session"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/migrations"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/utils"
)

// shutdownTimeout bounds in-flight requests on SIGINT/SIGTERM
const shutdownTimeout = 10 * time.Second

// Start initializes logging, connects to the database and (optionally) Redis,
// migrates the schema, registers routes, starts the reaper and serves until
// the process is signalled.
func Start(cfg *config.Config, env *config.Environment) error {
	initLogger(cfg.Logging.Level)

	app := NewApp(cfg)

	if err := database.ConnectDB(cfg); err != nil {
		slog.Error("Failed to connect to database", "error", err)
		return err
	}
	defer func() { _ = database.Close() }()
	slog.Info("Database connected successfully", "driver", cfg.Database.Driver)

	if cfg.Redis.Enabled {
		if err := cache.ConnectRedis(&cfg.Redis); err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			return err
		}
		defer func() { _ = cache.CloseRedis() }()
	} else {
		slog.Info("Redis disabled; caches and token revocation are off")
	}

	if err := migrations.Apply(cfg, database.DB); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return err
	}
	slog.Info("Migrations completed successfully")

	slog.Info("Environment loaded", "environment", env.Environment.String())
	sessions, err := SetupRoutes(app, env, cfg)
	if err != nil {
		slog.Error("Failed to setup routes", "error", err)
		return err
	}

	if cfg.Attendance.Reaper.Enabled {
		grace := time.Duration(cfg.Attendance.Reaper.GraceMinutes) * time.Minute
		reaper := session.NewReaper(sessions, cfg.Attendance.Reaper.Schedule, grace)
		if err := reaper.Start(); err != nil {
			slog.Error("Failed to start session reaper", "error", err)
			return err
		}
		defer reaper.Stop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listenErr := make(chan error, 1)
	go func() {
		addr := cfg.Server.Address()
		slog.Info("Server starting",
			"address", addr,
			"app", cfg.App.Name,
			"version", cfg.App.Version,
		)
		listenErr <- app.Listen(addr)
	}()

	select {
	case err := <-listenErr:
		if err != nil {
			slog.Error("Failed to start server", "error", err)
		}
		return err
	case <-ctx.Done():
		slog.Info("Shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	}
}

// NewApp builds the Fiber app with the JSON codec, error handler and the
// security middleware stack. Routes are added by SetupRoutes.
func NewApp(cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    1 * 1024 * 1024,
		JSONEncoder:  sonic.Marshal,
		JSONDecoder:  sonic.Unmarshal,
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())

	// Use Helmet for security headers
	app.Use(helmet.New())

	if cfg.Server.RateLimit.Max > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.Server.RateLimit.Max,
			Expiration: time.Duration(cfg.Server.RateLimit.Expiration) * time.Second,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return utils.ErrorResponse(c, utils.ErrTooManyRequests.Code, fiber.StatusTooManyRequests)
			},
		}))
	}

	if len(cfg.Server.AllowedOrigins) > 0 {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     strings.Join(cfg.Server.AllowedOrigins, ","),
			AllowMethods:     "GET,POST,PUT,DELETE,PATCH,OPTIONS",
			AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
			AllowCredentials: true,
			ExposeHeaders:    "Content-Length",
			MaxAge:           3600,
		}))
	}

	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	var apiErr *utils.APIError
	if errors.As(err, &apiErr) {
		return utils.APIErrorResponse(c, apiErr)
	}

	var e *fiber.Error
	if errors.As(err, &e) {
		return utils.ErrorResponse(c, httpErrorCode(e.Code), e.Code)
	}

	slog.Error("Unhandled request error", "method", c.Method(), "path", c.Path(), "error", err)
	return utils.ErrorResponse(c, utils.ErrInternalServer.Code, fiber.StatusInternalServerError)
}

func httpErrorCode(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return utils.ErrNotFound.Code
	case fiber.StatusMethodNotAllowed:
		return "method_not_allowed"
	case fiber.StatusRequestEntityTooLarge:
		return "body_too_large"
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
		return utils.ErrBadRequest.Code
	}
	if status >= fiber.StatusInternalServerError {
		return utils.ErrInternalServer.Code
	}
	return "http_error"
}

func initLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	slog.SetDefault(slog.New(handler))
}

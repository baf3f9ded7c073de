// Package internal contains core application functionality
package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	v1 "pagebeam/api/v1"
	"pagebeam/internal/config"
	"pagebeam/internal/geo"
	"pagebeam/internal/logging"
	"pagebeam/internal/sessions"
	"pagebeam/internal/storage"
)

// Application wires the HTTP server to the event store, session manager
// and geolocation resolver.
type Application struct {
	Config   *config.Config
	Logger   *slog.Logger
	Server   *fiber.App
	Guard    *storage.Guard
	Sessions *sessions.Manager
	Geo      geo.Resolver
}

// NewApp creates a new application instance with default settings
func NewApp() (*Application, error) {
	cfg := config.GetConfig()
	return NewAppWithConfig(cfg)
}

// NewAppWithConfig creates a new application with the provided config. When no
// database is configured the application still starts, with every store
// operation running in degraded mode.
func NewAppWithConfig(cfg *config.Config) (*Application, error) {
	logger := logging.NewLogger(cfg)

	var store storage.Store
	if cfg.IsStoreConfigured() {
		gormStore, err := storage.Connect(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := gormStore.InitSchema(); err != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
		store = gormStore
	} else {
		logger.Warn("No database configured, running in degraded mode")
	}

	guard := storage.NewGuard(store, logger)
	sessionMgr := sessions.NewManager(guard, logger)
	resolver := geo.NewResolver(cfg, logger)

	server := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		DisableStartupMessage: cfg.IsTest(),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ErrorHandler:          errorHandler(logger),
	})

	app := &Application{
		Config:   cfg,
		Logger:   logger,
		Server:   server,
		Guard:    guard,
		Sessions: sessionMgr,
		Geo:      resolver,
	}

	handler := v1.NewHandler(guard, sessionMgr, resolver, logger)
	MountRoutes(server, handler)

	return app, nil
}

// Start listens on the configured port. It blocks until the server stops.
func (a *Application) Start() error {
	addr := ":" + a.Config.AppPort
	a.Logger.Info("Starting server", slog.String("addr", addr))
	return a.Server.Listen(addr)
}

// Shutdown gracefully stops the server and closes the store.
func (a *Application) Shutdown() error {
	if err := a.Server.Shutdown(); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if gs, ok := a.Guard.Store().(*storage.GormStore); ok && gs != nil {
		return gs.Close()
	}
	return nil
}

// errorHandler converts unhandled errors into JSON responses so API clients
// never receive an HTML error page.
func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			code = fiberErr.Code
		}
		if code >= fiber.StatusInternalServerError {
			logger.Error("Unhandled request error",
				slog.String("path", c.Path()),
				slog.Any("error", err))
		}
		return c.Status(code).JSON(fiber.Map{"error": err.Error()})
	}
}

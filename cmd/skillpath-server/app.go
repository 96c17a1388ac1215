package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	jsonfileAdapter "skillpath/adapters/jsonfile"
	mem "skillpath/adapters/memory"
	redisAdapter "skillpath/adapters/redis"
	sqlxAdapter "skillpath/adapters/sqlx"
	"skillpath/analytics"
	"skillpath/api/httpapi"
	"skillpath/config"
	"skillpath/core"
	"skillpath/engine"
	"skillpath/integrations/webhook"
	"skillpath/leaderboard"
	"skillpath/progression"
	"skillpath/realtime"
)

// App aggregates the assembled server components.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Hub     *realtime.Hub
	Boards  *leaderboard.Boards
	Metrics *analytics.ProgressMetrics
	Service *engine.ProgressService
	Handler http.Handler
	Server  *http.Server
}

// userStore is the persistence surface every storage adapter provides.
type userStore interface {
	engine.FactStore
	engine.AccessStore
	engine.GrantStore
}

func provideConfig(_ context.Context) (*config.Config, error) {
	return config.Load()
}

func provideLogger(cfg *config.Config) *slog.Logger {
	return setupLogging(cfg)
}

func provideHub() *realtime.Hub {
	return realtime.NewHub()
}

func provideBoards() *leaderboard.Boards {
	return leaderboard.NewBoards()
}

func provideMetrics() *analytics.ProgressMetrics {
	return analytics.NewProgressMetrics()
}

func provideCatalog(cfg *config.Config, log *slog.Logger) (engine.Catalog, error) {
	return setupCatalog(cfg, log)
}

func provideStorage(ctx context.Context, cfg *config.Config) (userStore, error) {
	return setupStorage(ctx, cfg)
}

func provideService(cfg *config.Config, log *slog.Logger, hub *realtime.Hub, boards *leaderboard.Boards, metrics *analytics.ProgressMetrics, catalog engine.Catalog, store userStore) *engine.ProgressService {
	mode := engine.DispatchAsync
	if cfg.Engine.Dispatch == "sync" {
		mode = engine.DispatchSync
	}
	opts := []progression.Option{
		progression.WithCatalog(catalog),
		progression.WithFactStore(store),
		progression.WithAccessStore(store),
		progression.WithGrantStore(store),
		progression.WithLogger(log),
		progression.WithDispatchMode(mode),
		progression.WithRealtime(hub),
	}
	if cfg.Engine.LeaderboardEnabled {
		opts = append(opts, progression.WithLeaderboard(boards))
	}
	svc := progression.New(opts...)

	hooks := []analytics.Hook{metrics, analytics.NewDAU()}
	if len(cfg.Integrations.WebhookEndpoints) > 0 {
		hooks = append(hooks, webhook.New(cfg.Integrations.WebhookEndpoints))
	}
	analytics.Bridge(svc, hooks...)

	return svc
}

func provideHandler(svc *engine.ProgressService, hub *realtime.Hub, boards *leaderboard.Boards, cfg *config.Config) http.Handler {
	if !cfg.Engine.LeaderboardEnabled {
		boards = nil
	}
	return httpapi.NewMux(svc, hub, boards, httpapi.Options{
		PathPrefix:       cfg.Server.PathPrefix,
		AllowCORSOrigin:  cfg.Server.CORSOrigin,
		APIKeys:          cfg.Security.APIKeys,
		RateLimitEnabled: cfg.Security.EnableRateLimit,
		RateLimitRPM:     cfg.Security.RateLimit.RequestsPerMinute,
		RateLimitBurst:   cfg.Security.RateLimit.BurstSize,
		DemoEnabled:      cfg.Engine.DemoEnabled,
	})
}

func provideServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

// setupLogging configures the logger based on configuration.
func setupLogging(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	switch cfg.Logging.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	if len(cfg.Logging.Attributes) > 0 {
		handler = handler.WithAttrs(convertAttributes(cfg.Logging.Attributes))
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// convertAttributes converts map[string]string to []slog.Attr.
func convertAttributes(attrs map[string]string) []slog.Attr {
	var result []slog.Attr
	for k, v := range attrs {
		result = append(result, slog.String(k, v))
	}
	return result
}

// catalogEntry is one sport path definition in the catalog file.
type catalogEntry struct {
	Path   core.SportPath `json:"path"`
	Levels []core.Level   `json:"levels"`
}

// setupCatalog loads sport path definitions into an in-memory catalog.
func setupCatalog(cfg *config.Config, log *slog.Logger) (engine.Catalog, error) {
	store := mem.New()
	if cfg.Catalog.Path == "" {
		log.Warn("no catalog file configured, starting with an empty catalog")
		return store, nil
	}
	data, err := os.ReadFile(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file %s: %w", cfg.Catalog.Path, err)
	}
	var entries []catalogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse catalog file %s: %w", cfg.Catalog.Path, err)
	}
	for _, e := range entries {
		store.SeedPath(e.Path, e.Levels)
		log.Info("loaded sport path", "path", e.Path.Key, "levels", len(e.Levels))
	}
	return store, nil
}

// setupStorage creates the appropriate storage adapter based on configuration.
func setupStorage(_ context.Context, cfg *config.Config) (userStore, error) {
	switch cfg.Storage.Adapter {
	case "memory":
		return mem.New(), nil
	case "redis":
		return redisAdapter.New(cfg.Storage.Redis)
	case "sql":
		return sqlxAdapter.New(cfg.Storage.SQL)
	case "file":
		return jsonfileAdapter.New(cfg.Storage.File.Path)
	default:
		return nil, fmt.Errorf("unknown storage adapter: %s", cfg.Storage.Adapter)
	}
}

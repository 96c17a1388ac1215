package progression

import (
	"context"
	"log/slog"

	mem "skillpath/adapters/memory"
	"skillpath/core"
	"skillpath/engine"
	"skillpath/leaderboard"
	"skillpath/realtime"
)

// Option configures the progression service builder.
type Option func(*config)

type config struct {
	catalog engine.Catalog
	facts   engine.FactStore
	access  engine.AccessStore
	grants  engine.GrantStore
	mode    engine.DispatchMode
	log     *slog.Logger
	hub     *realtime.Hub
	boards  *leaderboard.Boards
}

// WithCatalog sets the path catalog source.
func WithCatalog(c engine.Catalog) Option { return func(cfg *config) { cfg.catalog = c } }

// WithFactStore sets the user fact persistence adapter.
func WithFactStore(f engine.FactStore) Option { return func(cfg *config) { cfg.facts = f } }

// WithAccessStore sets the purchase/demo fact source.
func WithAccessStore(a engine.AccessStore) Option { return func(cfg *config) { cfg.access = a } }

// WithGrantStore sets the achievement grant adapter.
func WithGrantStore(g engine.GrantStore) Option { return func(cfg *config) { cfg.grants = g } }

// WithStore wires a single adapter implementing all four stores.
func WithStore(s Storage) Option {
	return func(cfg *config) {
		cfg.catalog = s
		cfg.facts = s
		cfg.access = s
		cfg.grants = s
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(cfg *config) { cfg.log = l } }

// WithDispatchMode selects sync or async event dispatch.
func WithDispatchMode(m engine.DispatchMode) Option { return func(cfg *config) { cfg.mode = m } }

// WithRealtime wires a realtime hub to receive all progression events.
func WithRealtime(h *realtime.Hub) Option { return func(cfg *config) { cfg.hub = h } }

// WithLeaderboard keeps per-path boards current from computed points.
func WithLeaderboard(b *leaderboard.Boards) Option { return func(cfg *config) { cfg.boards = b } }

// Storage bundles the four store interfaces a full adapter provides.
type Storage interface {
	engine.Catalog
	engine.FactStore
	engine.AccessStore
	engine.GrantStore
}

// New builds a configured ProgressService. If not provided, defaults are used:
//   - storage: in-memory (catalog, facts, access, grants)
//   - dispatch: async
//   - logger: slog.Default
func New(opts ...Option) *engine.ProgressService {
	cfg := &config{mode: engine.DispatchAsync}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.catalog == nil || cfg.facts == nil || cfg.access == nil || cfg.grants == nil {
		store := mem.New()
		if cfg.catalog == nil {
			cfg.catalog = store
		}
		if cfg.facts == nil {
			cfg.facts = store
		}
		if cfg.access == nil {
			cfg.access = store
		}
		if cfg.grants == nil {
			cfg.grants = store
		}
	}
	bus := engine.NewEventBus(cfg.mode)
	svc := engine.NewProgressService(cfg.catalog, cfg.facts, cfg.access, cfg.grants, bus, cfg.log)
	if cfg.hub != nil {
		// Bridge all primary events to realtime
		for _, typ := range []core.EventType{
			core.EventFigureRecorded,
			core.EventTrainingRecorded,
			core.EventChallengeRecorded,
			core.EventPointsComputed,
			core.EventLevelCompleted,
			core.EventAchievementUnlocked,
		} {
			bus.Subscribe(typ, func(ctx context.Context, e core.Event) { cfg.hub.Broadcast(ctx, e) })
		}
	}
	if cfg.boards != nil {
		boards := cfg.boards
		bus.Subscribe(core.EventPointsComputed, func(_ context.Context, e core.Event) {
			boards.Record(e.Path, e.UserID, int64(e.Points))
		})
	}
	return svc
}

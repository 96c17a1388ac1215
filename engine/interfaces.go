package engine

import (
	"context"

	"skillpath/core"
)

// Catalog supplies the structural data administrators maintain. The engine
// never mutates it. Levels returns published levels only, ordered by sequence.
type Catalog interface {
	Path(ctx context.Context, key core.PathKey) (core.SportPath, error)
	Levels(ctx context.Context, key core.PathKey) ([]core.Level, error)
}

// FactStore is the completion fact table: per-figure status, per-training
// completion, per-challenge participation. The three fetches are independent
// and the service issues them concurrently.
type FactStore interface {
	FigureStatuses(ctx context.Context, user core.UserID, path core.PathKey) (map[core.FigureID]core.FigureStatus, error)
	TrainingCompletions(ctx context.Context, user core.UserID) (map[core.LevelID]map[core.TrainingID]struct{}, error)
	ChallengeParticipations(ctx context.Context, user core.UserID) (map[core.ChallengeID]core.ChallengeParticipation, error)

	RecordFigureStatus(ctx context.Context, user core.UserID, figure core.FigureID, status core.FigureStatus) error
	RecordTraining(ctx context.Context, user core.UserID, level core.LevelID, training core.TrainingID) error
	RecordChallenge(ctx context.Context, user core.UserID, participation core.ChallengeParticipation) error
}

// AccessStore answers purchase and demo-allowlist lookups.
type AccessStore interface {
	HasPurchase(ctx context.Context, user core.UserID, path core.PathKey) (bool, error)
	DemoAllowed(ctx context.Context, user core.UserID, path core.PathKey) (bool, error)
}

// GrantStore persists achievement grants. Grant must be an atomic
// insert-if-absent: it returns true only when the grant is new, so concurrent
// re-evaluations racing to finish the same level award exactly once.
type GrantStore interface {
	Grant(ctx context.Context, user core.UserID, achievement core.AchievementID) (bool, error)
	Granted(ctx context.Context, user core.UserID) (map[core.AchievementID]struct{}, error)
}

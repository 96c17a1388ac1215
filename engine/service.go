package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"skillpath/core"
)

// ErrInvalidStatus is returned when a figure status outside the enum is recorded.
var ErrInvalidStatus = errors.New("invalid figure status")

// EvaluateOptions carry the request-scoped access inputs. None of them are
// persisted: admin preview and the demo toggle live in the caller's session,
// premium is an externally-managed subscription flag.
type EvaluateOptions struct {
	AdminPreview bool
	DemoEnabled  bool
	Premium      bool
}

// ProgressService wires the catalog, fact store, access store, grant store
// and event bus into the progression API. All rule evaluation is delegated to
// pure functions in core; the service owns fetching, awarding and events.
type ProgressService struct {
	catalog Catalog
	facts   FactStore
	access  AccessStore
	grants  GrantStore
	bus     *EventBus
	log     *slog.Logger
}

func NewProgressService(catalog Catalog, facts FactStore, access AccessStore, grants GrantStore, bus *EventBus, log *slog.Logger) *ProgressService {
	if catalog == nil || facts == nil || access == nil || grants == nil || bus == nil {
		panic("NewProgressService requires non-nil catalog, facts, access, grants, and bus")
	}
	if log == nil {
		log = slog.Default()
	}
	return &ProgressService{catalog: catalog, facts: facts, access: access, grants: grants, bus: bus, log: log}
}

// Subscribe convenience method.
func (s *ProgressService) Subscribe(typ core.EventType, handler func(context.Context, core.Event)) func() {
	return s.bus.Subscribe(typ, handler)
}

func (s *ProgressService) Publish(ctx context.Context, ev core.Event) {
	s.bus.Publish(ctx, ev)
}

func (s *ProgressService) Close() { s.bus.Close() }

// Snapshot assembles the user's completion facts for a path. The three fact
// lookups are independent, so they run concurrently; any failure fails the
// whole snapshot because a partially-fetched fact set must never masquerade
// as zero progress.
func (s *ProgressService) Snapshot(ctx context.Context, user core.UserID, path core.PathKey) (core.Snapshot, error) {
	snap := core.NewSnapshot(user)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	wg.Add(3)
	go func() {
		defer wg.Done()
		figures, err := s.facts.FigureStatuses(ctx, user, path)
		if err != nil {
			fail(fmt.Errorf("fetch figure statuses: %w", err))
			return
		}
		snap.Figures = figures
	}()
	go func() {
		defer wg.Done()
		trainings, err := s.facts.TrainingCompletions(ctx, user)
		if err != nil {
			fail(fmt.Errorf("fetch training completions: %w", err))
			return
		}
		snap.Trainings = trainings
	}()
	go func() {
		defer wg.Done()
		challenges, err := s.facts.ChallengeParticipations(ctx, user)
		if err != nil {
			fail(fmt.Errorf("fetch challenge participations: %w", err))
			return
		}
		snap.Challenges = challenges
	}()
	wg.Wait()

	if firstErr != nil {
		return core.Snapshot{}, firstErr
	}
	if snap.Figures == nil {
		snap.Figures = map[core.FigureID]core.FigureStatus{}
	}
	if snap.Trainings == nil {
		snap.Trainings = map[core.LevelID]map[core.TrainingID]struct{}{}
	}
	if snap.Challenges == nil {
		snap.Challenges = map[core.ChallengeID]core.ChallengeParticipation{}
	}
	return snap, nil
}

// ResolveAccess derives the access mode for a user on a path. Admin preview
// short-circuits without store lookups.
func (s *ProgressService) ResolveAccess(ctx context.Context, user core.UserID, path core.PathKey, opts EvaluateOptions) (core.AccessMode, error) {
	if opts.AdminPreview {
		return core.ResolveAccess(core.AccessFacts{AdminPreview: true}), nil
	}
	purchased, err := s.access.HasPurchase(ctx, user, path)
	if err != nil {
		return "", fmt.Errorf("fetch purchase: %w", err)
	}
	demoAllowed, err := s.access.DemoAllowed(ctx, user, path)
	if err != nil {
		return "", fmt.Errorf("fetch demo allowlist: %w", err)
	}
	return core.ResolveAccess(core.AccessFacts{
		HasPurchase: purchased,
		DemoAllowed: demoAllowed,
		DemoEnabled: opts.DemoEnabled,
	}), nil
}

// EvaluatePath recomputes the full progression view for a user on a path and
// triggers achievement awarding for levels at 100%. Award failures are logged
// and retried on the next evaluation; they never fail the computation.
func (s *ProgressService) EvaluatePath(ctx context.Context, user core.UserID, key core.PathKey, opts EvaluateOptions) (core.PathEvaluation, error) {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return core.PathEvaluation{}, err
	}

	path, err := s.catalog.Path(ctx, key)
	if err != nil {
		return core.PathEvaluation{}, fmt.Errorf("fetch path %s: %w", key, err)
	}
	levels, err := s.catalog.Levels(ctx, key)
	if err != nil {
		return core.PathEvaluation{}, fmt.Errorf("fetch levels for %s: %w", key, err)
	}
	for _, issue := range core.Anomalies(levels) {
		s.log.Warn("structural data anomaly", "path", key, "issue", issue)
	}

	snap, err := s.Snapshot(ctx, normalized, key)
	if err != nil {
		return core.PathEvaluation{}, err
	}
	mode, err := s.ResolveAccess(ctx, normalized, key, opts)
	if err != nil {
		return core.PathEvaluation{}, err
	}

	evaluation := core.EvaluatePath(path, levels, mode, snap)
	s.bus.Publish(ctx, core.NewPointsComputed(normalized, key, evaluation.Points))

	ordered := core.SortedLevels(levels)
	for i, le := range evaluation.Levels {
		if le.Progress < 100 || len(le.Achievements) == 0 {
			continue
		}
		if fresh := s.awardLevelAchievements(ctx, normalized, key, ordered[i]); fresh > 0 {
			s.bus.Publish(ctx, core.NewLevelCompleted(normalized, key, le.LevelID, le.Progress))
		}
	}
	return evaluation, nil
}

// awardLevelAchievements grants every achievement bound to the level that the
// user does not hold yet. Grant is an atomic insert-if-absent, so concurrent
// evaluations racing on the same level award each achievement exactly once.
// Returns the number of fresh grants.
func (s *ProgressService) awardLevelAchievements(ctx context.Context, user core.UserID, path core.PathKey, lvl core.Level) int {
	fresh := 0
	for _, a := range lvl.Achievements {
		granted, err := s.grants.Grant(ctx, user, a)
		if err != nil {
			// non-fatal: the user keeps their completion; retried next evaluation
			s.log.Warn("achievement award failed", "user", user, "level", lvl.ID, "achievement", a, "error", err)
			continue
		}
		if granted {
			fresh++
			s.bus.Publish(ctx, core.NewAchievementUnlocked(user, path, lvl.ID, a))
		}
	}
	return fresh
}

// Achievements lists the achievement IDs the user holds, sorted for stable
// output.
func (s *ProgressService) Achievements(ctx context.Context, user core.UserID) ([]core.AchievementID, error) {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return nil, err
	}
	granted, err := s.grants.Granted(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("fetch achievement grants: %w", err)
	}
	out := make([]core.AchievementID, 0, len(granted))
	for id := range granted {
		out = append(out, id)
	}
	slices.Sort(out)
	return out, nil
}

// RecordFigureStatus persists a practice result and re-evaluates the path.
// Progress is recorded regardless of access mode.
func (s *ProgressService) RecordFigureStatus(ctx context.Context, user core.UserID, key core.PathKey, figure core.FigureID, status core.FigureStatus, opts EvaluateOptions) (core.PathEvaluation, error) {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return core.PathEvaluation{}, err
	}
	switch status {
	case core.StatusNotTried, core.StatusCompleted, core.StatusForLater, core.StatusFailed:
	default:
		return core.PathEvaluation{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if err := s.facts.RecordFigureStatus(ctx, normalized, figure, status); err != nil {
		return core.PathEvaluation{}, fmt.Errorf("record figure status: %w", err)
	}
	s.bus.Publish(ctx, core.NewFigureRecorded(normalized, key, figure, status))
	return s.EvaluatePath(ctx, normalized, key, opts)
}

// RecordTraining persists a first training completion (repeats are no-ops at
// the store level) and re-evaluates the path.
func (s *ProgressService) RecordTraining(ctx context.Context, user core.UserID, key core.PathKey, level core.LevelID, training core.TrainingID, opts EvaluateOptions) (core.PathEvaluation, error) {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return core.PathEvaluation{}, err
	}
	if err := s.facts.RecordTraining(ctx, normalized, level, training); err != nil {
		return core.PathEvaluation{}, fmt.Errorf("record training: %w", err)
	}
	s.bus.Publish(ctx, core.NewTrainingRecorded(normalized, key, level, training))
	return s.EvaluatePath(ctx, normalized, key, opts)
}

// RecordChallenge upserts a challenge participation record and re-evaluates
// the path.
func (s *ProgressService) RecordChallenge(ctx context.Context, user core.UserID, key core.PathKey, participation core.ChallengeParticipation, opts EvaluateOptions) (core.PathEvaluation, error) {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return core.PathEvaluation{}, err
	}
	if participation.ChallengeID == "" {
		return core.PathEvaluation{}, errors.New("challenge id is required")
	}
	if err := s.facts.RecordChallenge(ctx, normalized, participation); err != nil {
		return core.PathEvaluation{}, fmt.Errorf("record challenge: %w", err)
	}
	s.bus.Publish(ctx, core.NewChallengeRecorded(normalized, key, participation.ChallengeID))
	return s.EvaluatePath(ctx, normalized, key, opts)
}

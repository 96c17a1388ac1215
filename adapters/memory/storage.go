package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"skillpath/core"
)

// Store is a concurrent in-memory implementation of the engine's catalog,
// fact, access, and grant stores. Suitable for tests, demos, and the default
// server configuration.
type Store struct {
	mu sync.RWMutex

	paths  map[core.PathKey]core.SportPath
	levels map[core.PathKey][]core.Level

	figures    map[core.UserID]map[core.FigureID]core.FigureStatus
	trainings  map[core.UserID]map[core.LevelID]map[core.TrainingID]time.Time
	challenges map[core.UserID]map[core.ChallengeID]core.ChallengeParticipation

	purchases map[core.UserID]map[core.PathKey]struct{}
	demo      map[core.PathKey]map[core.UserID]struct{}
	grants    map[core.UserID]map[core.AchievementID]time.Time
}

func New() *Store {
	return &Store{
		paths:      map[core.PathKey]core.SportPath{},
		levels:     map[core.PathKey][]core.Level{},
		figures:    map[core.UserID]map[core.FigureID]core.FigureStatus{},
		trainings:  map[core.UserID]map[core.LevelID]map[core.TrainingID]time.Time{},
		challenges: map[core.UserID]map[core.ChallengeID]core.ChallengeParticipation{},
		purchases:  map[core.UserID]map[core.PathKey]struct{}{},
		demo:       map[core.PathKey]map[core.UserID]struct{}{},
		grants:     map[core.UserID]map[core.AchievementID]time.Time{},
	}
}

// SeedPath registers a sport path and its levels. Draft levels are filtered
// out at read time, mirroring the published-only catalog contract.
func (s *Store) SeedPath(path core.SportPath, levels []core.Level) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths[path.Key] = path
	s.levels[path.Key] = core.SortedLevels(levels)
}

// SetPurchase records or clears a completed purchase for a path.
func (s *Store) SetPurchase(user core.UserID, path core.PathKey, purchased bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.purchases[user] == nil {
		s.purchases[user] = map[core.PathKey]struct{}{}
	}
	if purchased {
		s.purchases[user][path] = struct{}{}
	} else {
		delete(s.purchases[user], path)
	}
}

// AllowDemo adds a user to the demo allowlist for a path.
func (s *Store) AllowDemo(user core.UserID, path core.PathKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.demo[path] == nil {
		s.demo[path] = map[core.UserID]struct{}{}
	}
	s.demo[path][user] = struct{}{}
}

// Catalog

func (s *Store) Path(_ context.Context, key core.PathKey) (core.SportPath, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.paths[key]
	if !ok {
		return core.SportPath{}, fmt.Errorf("sport path %s: %w", key, core.ErrPathNotFound)
	}
	return p, nil
}

func (s *Store) Levels(_ context.Context, key core.PathKey) ([]core.Level, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.levels[key]
	out := make([]core.Level, 0, len(all))
	for _, lvl := range all {
		if lvl.Status == core.LevelDraft {
			continue
		}
		out = append(out, lvl)
	}
	return out, nil
}

// FactStore reads

func (s *Store) FigureStatuses(_ context.Context, user core.UserID, _ core.PathKey) (map[core.FigureID]core.FigureStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[core.FigureID]core.FigureStatus, len(s.figures[user]))
	for k, v := range s.figures[user] {
		out[k] = v
	}
	return out, nil
}

func (s *Store) TrainingCompletions(_ context.Context, user core.UserID) (map[core.LevelID]map[core.TrainingID]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[core.LevelID]map[core.TrainingID]struct{}, len(s.trainings[user]))
	for lvl, set := range s.trainings[user] {
		inner := make(map[core.TrainingID]struct{}, len(set))
		for t := range set {
			inner[t] = struct{}{}
		}
		out[lvl] = inner
	}
	return out, nil
}

func (s *Store) ChallengeParticipations(_ context.Context, user core.UserID) (map[core.ChallengeID]core.ChallengeParticipation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[core.ChallengeID]core.ChallengeParticipation, len(s.challenges[user]))
	for k, v := range s.challenges[user] {
		out[k] = v
	}
	return out, nil
}

// FactStore writes

func (s *Store) RecordFigureStatus(_ context.Context, user core.UserID, figure core.FigureID, status core.FigureStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.figures[user] == nil {
		s.figures[user] = map[core.FigureID]core.FigureStatus{}
	}
	s.figures[user][figure] = status
	return nil
}

func (s *Store) RecordTraining(_ context.Context, user core.UserID, level core.LevelID, training core.TrainingID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.trainings[user] == nil {
		s.trainings[user] = map[core.LevelID]map[core.TrainingID]time.Time{}
	}
	if s.trainings[user][level] == nil {
		s.trainings[user][level] = map[core.TrainingID]time.Time{}
	}
	// first completion only; repeats keep the original timestamp
	if _, ok := s.trainings[user][level][training]; !ok {
		s.trainings[user][level][training] = time.Now().UTC()
	}
	return nil
}

func (s *Store) RecordChallenge(_ context.Context, user core.UserID, participation core.ChallengeParticipation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.challenges[user] == nil {
		s.challenges[user] = map[core.ChallengeID]core.ChallengeParticipation{}
	}
	s.challenges[user][participation.ChallengeID] = participation
	return nil
}

// AccessStore

func (s *Store) HasPurchase(_ context.Context, user core.UserID, path core.PathKey) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.purchases[user][path]
	return ok, nil
}

func (s *Store) DemoAllowed(_ context.Context, user core.UserID, path core.PathKey) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.demo[path][user]
	return ok, nil
}

// GrantStore

func (s *Store) Grant(_ context.Context, user core.UserID, achievement core.AchievementID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.grants[user] == nil {
		s.grants[user] = map[core.AchievementID]time.Time{}
	}
	if _, ok := s.grants[user][achievement]; ok {
		return false, nil
	}
	s.grants[user][achievement] = time.Now().UTC()
	return true, nil
}

func (s *Store) Granted(_ context.Context, user core.UserID) (map[core.AchievementID]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[core.AchievementID]struct{}, len(s.grants[user]))
	for a := range s.grants[user] {
		out[a] = struct{}{}
	}
	return out, nil
}

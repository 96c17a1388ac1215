package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"skillpath/core"
)

// Store persists user progression facts to a single JSON file.
// Suitable for demos and small deployments.
type Store struct {
	path string
	mu   sync.Mutex
	// in-memory cache for speed
	data map[core.UserID]*userRecord
}

type userRecord struct {
	Figures      map[core.FigureID]core.FigureStatus                `json:"figures,omitempty"`
	Trainings    map[core.LevelID]map[core.TrainingID]time.Time     `json:"trainings,omitempty"`
	Challenges   map[core.ChallengeID]core.ChallengeParticipation   `json:"challenges,omitempty"`
	Achievements map[core.AchievementID]time.Time                   `json:"achievements,omitempty"`
	Purchases    map[core.PathKey]time.Time                         `json:"purchases,omitempty"`
	DemoPaths    map[core.PathKey]struct{}                          `json:"demo_paths,omitempty"`
	Updated      time.Time                                          `json:"updated"`
}

func New(path string) (*Store, error) {
	s := &Store{path: path, data: map[core.UserID]*userRecord{}}
	if err := s.load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	var raw map[string]*userRecord
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		v.normalize()
		s.data[core.UserID(k)] = v
	}
	return nil
}

// normalize re-initializes maps that were empty at save time; omitempty drops
// them from the file, so they come back nil after a reload.
func (r *userRecord) normalize() {
	if r.Figures == nil {
		r.Figures = map[core.FigureID]core.FigureStatus{}
	}
	if r.Trainings == nil {
		r.Trainings = map[core.LevelID]map[core.TrainingID]time.Time{}
	}
	if r.Challenges == nil {
		r.Challenges = map[core.ChallengeID]core.ChallengeParticipation{}
	}
	if r.Achievements == nil {
		r.Achievements = map[core.AchievementID]time.Time{}
	}
	if r.Purchases == nil {
		r.Purchases = map[core.PathKey]time.Time{}
	}
	if r.DemoPaths == nil {
		r.DemoPaths = map[core.PathKey]struct{}{}
	}
}

func (s *Store) persist() error {
	tmp := s.path + ".tmp"
	raw := make(map[string]*userRecord, len(s.data))
	for k, v := range s.data {
		raw[string(k)] = v
	}
	b, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) get(user core.UserID) *userRecord {
	if rec, ok := s.data[user]; ok {
		return rec
	}
	rec := &userRecord{
		Figures:      map[core.FigureID]core.FigureStatus{},
		Trainings:    map[core.LevelID]map[core.TrainingID]time.Time{},
		Challenges:   map[core.ChallengeID]core.ChallengeParticipation{},
		Achievements: map[core.AchievementID]time.Time{},
		Purchases:    map[core.PathKey]time.Time{},
		DemoPaths:    map[core.PathKey]struct{}{},
		Updated:      time.Now().UTC(),
	}
	s.data[user] = rec
	return rec
}

// FactStore

func (s *Store) FigureStatuses(_ context.Context, user core.UserID, _ core.PathKey) (map[core.FigureID]core.FigureStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.get(user)
	out := make(map[core.FigureID]core.FigureStatus, len(rec.Figures))
	for id, st := range rec.Figures {
		out[id] = st
	}
	return out, nil
}

func (s *Store) TrainingCompletions(_ context.Context, user core.UserID) (map[core.LevelID]map[core.TrainingID]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.get(user)
	out := make(map[core.LevelID]map[core.TrainingID]struct{}, len(rec.Trainings))
	for level, trainings := range rec.Trainings {
		out[level] = make(map[core.TrainingID]struct{}, len(trainings))
		for id := range trainings {
			out[level][id] = struct{}{}
		}
	}
	return out, nil
}

func (s *Store) ChallengeParticipations(_ context.Context, user core.UserID) (map[core.ChallengeID]core.ChallengeParticipation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.get(user)
	out := make(map[core.ChallengeID]core.ChallengeParticipation, len(rec.Challenges))
	for id, p := range rec.Challenges {
		out[id] = p
	}
	return out, nil
}

func (s *Store) RecordFigureStatus(_ context.Context, user core.UserID, figure core.FigureID, status core.FigureStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.get(user)
	rec.Figures[figure] = status
	rec.Updated = time.Now().UTC()
	return s.persist()
}

func (s *Store) RecordTraining(_ context.Context, user core.UserID, level core.LevelID, training core.TrainingID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.get(user)
	if rec.Trainings[level] == nil {
		rec.Trainings[level] = map[core.TrainingID]time.Time{}
	}
	// first completion wins, repeats keep the original timestamp
	if _, ok := rec.Trainings[level][training]; ok {
		return nil
	}
	rec.Trainings[level][training] = time.Now().UTC()
	rec.Updated = time.Now().UTC()
	return s.persist()
}

func (s *Store) RecordChallenge(_ context.Context, user core.UserID, participation core.ChallengeParticipation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.get(user)
	rec.Challenges[participation.ChallengeID] = participation
	rec.Updated = time.Now().UTC()
	return s.persist()
}

// AccessStore

func (s *Store) HasPurchase(_ context.Context, user core.UserID, path core.PathKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.get(user).Purchases[path]
	return ok, nil
}

func (s *Store) DemoAllowed(_ context.Context, user core.UserID, path core.PathKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.get(user).DemoPaths[path]
	return ok, nil
}

func (s *Store) SetPurchase(_ context.Context, user core.UserID, path core.PathKey, purchased bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.get(user)
	if purchased {
		rec.Purchases[path] = time.Now().UTC()
	} else {
		delete(rec.Purchases, path)
	}
	rec.Updated = time.Now().UTC()
	return s.persist()
}

func (s *Store) AllowDemo(_ context.Context, user core.UserID, path core.PathKey, allowed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.get(user)
	if allowed {
		rec.DemoPaths[path] = struct{}{}
	} else {
		delete(rec.DemoPaths, path)
	}
	rec.Updated = time.Now().UTC()
	return s.persist()
}

// GrantStore

func (s *Store) Grant(_ context.Context, user core.UserID, achievement core.AchievementID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.get(user)
	if _, ok := rec.Achievements[achievement]; ok {
		return false, nil
	}
	rec.Achievements[achievement] = time.Now().UTC()
	rec.Updated = time.Now().UTC()
	if err := s.persist(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Granted(_ context.Context, user core.UserID) (map[core.AchievementID]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.get(user)
	out := make(map[core.AchievementID]struct{}, len(rec.Achievements))
	for id := range rec.Achievements {
		out[id] = struct{}{}
	}
	return out, nil
}

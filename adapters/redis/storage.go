package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"skillpath/core"
)

// Config holds Redis connection configuration
type Config struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Store implements the engine's fact, access, and grant stores on Redis.
// Data structure:
// - user:{user_id}:figures -> hash of figure id -> status
// - user:{user_id}:level:{level_id}:trainings -> set of training ids
// - user:{user_id}:training_levels -> set of level ids with completions
// - user:{user_id}:challenges -> hash of challenge id -> participation JSON
// - user:{user_id}:achievements -> set of achievement ids (grants)
// - user:{user_id}:purchases -> set of path keys
// - path:{key}:demo_users -> demo allowlist set
type Store struct {
	client *redis.Client
}

// New creates a Redis-backed store with the provided configuration
func New(config Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{client: client}, nil
}

// NewWithClient creates a Store using an existing Redis client (useful for testing)
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

func userFiguresKey(user core.UserID) string {
	return fmt.Sprintf("user:%s:figures", user)
}

func userTrainingsKey(user core.UserID, level core.LevelID) string {
	return fmt.Sprintf("user:%s:level:%s:trainings", user, level)
}

func userTrainingLevelsKey(user core.UserID) string {
	return fmt.Sprintf("user:%s:training_levels", user)
}

func userChallengesKey(user core.UserID) string {
	return fmt.Sprintf("user:%s:challenges", user)
}

func userAchievementsKey(user core.UserID) string {
	return fmt.Sprintf("user:%s:achievements", user)
}

func userPurchasesKey(user core.UserID) string {
	return fmt.Sprintf("user:%s:purchases", user)
}

func demoUsersKey(path core.PathKey) string {
	return fmt.Sprintf("path:%s:demo_users", path)
}

// FactStore reads

func (s *Store) FigureStatuses(ctx context.Context, user core.UserID, _ core.PathKey) (map[core.FigureID]core.FigureStatus, error) {
	raw, err := s.client.HGetAll(ctx, userFiguresKey(user)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get figure statuses: %w", err)
	}
	out := make(map[core.FigureID]core.FigureStatus, len(raw))
	for k, v := range raw {
		out[core.FigureID(k)] = core.FigureStatus(v)
	}
	return out, nil
}

func (s *Store) TrainingCompletions(ctx context.Context, user core.UserID) (map[core.LevelID]map[core.TrainingID]struct{}, error) {
	levels, err := s.client.SMembers(ctx, userTrainingLevelsKey(user)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get training levels: %w", err)
	}
	out := make(map[core.LevelID]map[core.TrainingID]struct{}, len(levels))
	for _, lvl := range levels {
		trainings, err := s.client.SMembers(ctx, userTrainingsKey(user, core.LevelID(lvl))).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to get trainings for level %s: %w", lvl, err)
		}
		set := make(map[core.TrainingID]struct{}, len(trainings))
		for _, t := range trainings {
			set[core.TrainingID(t)] = struct{}{}
		}
		out[core.LevelID(lvl)] = set
	}
	return out, nil
}

func (s *Store) ChallengeParticipations(ctx context.Context, user core.UserID) (map[core.ChallengeID]core.ChallengeParticipation, error) {
	raw, err := s.client.HGetAll(ctx, userChallengesKey(user)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge participations: %w", err)
	}
	out := make(map[core.ChallengeID]core.ChallengeParticipation, len(raw))
	for k, v := range raw {
		var p core.ChallengeParticipation
		if err := json.Unmarshal([]byte(v), &p); err != nil {
			continue // skip malformed entries
		}
		out[core.ChallengeID(k)] = p
	}
	return out, nil
}

// FactStore writes

func (s *Store) RecordFigureStatus(ctx context.Context, user core.UserID, figure core.FigureID, status core.FigureStatus) error {
	if err := s.client.HSet(ctx, userFiguresKey(user), string(figure), string(status)).Err(); err != nil {
		return fmt.Errorf("failed to record figure status: %w", err)
	}
	return nil
}

func (s *Store) RecordTraining(ctx context.Context, user core.UserID, level core.LevelID, training core.TrainingID) error {
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, userTrainingsKey(user, level), string(training))
	pipe.SAdd(ctx, userTrainingLevelsKey(user), string(level))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record training: %w", err)
	}
	return nil
}

func (s *Store) RecordChallenge(ctx context.Context, user core.UserID, participation core.ChallengeParticipation) error {
	data, err := json.Marshal(participation)
	if err != nil {
		return err
	}
	if err := s.client.HSet(ctx, userChallengesKey(user), string(participation.ChallengeID), data).Err(); err != nil {
		return fmt.Errorf("failed to record challenge: %w", err)
	}
	return nil
}

// AccessStore

func (s *Store) HasPurchase(ctx context.Context, user core.UserID, path core.PathKey) (bool, error) {
	ok, err := s.client.SIsMember(ctx, userPurchasesKey(user), string(path)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check purchase: %w", err)
	}
	return ok, nil
}

func (s *Store) DemoAllowed(ctx context.Context, user core.UserID, path core.PathKey) (bool, error) {
	ok, err := s.client.SIsMember(ctx, demoUsersKey(path), string(user)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check demo allowlist: %w", err)
	}
	return ok, nil
}

// SetPurchase records a completed purchase for a path.
func (s *Store) SetPurchase(ctx context.Context, user core.UserID, path core.PathKey) error {
	return s.client.SAdd(ctx, userPurchasesKey(user), string(path)).Err()
}

// AllowDemo adds a user to a path's demo allowlist.
func (s *Store) AllowDemo(ctx context.Context, user core.UserID, path core.PathKey) error {
	return s.client.SAdd(ctx, demoUsersKey(path), string(user)).Err()
}

// GrantStore

// Grant is atomic through SADD: the reply tells whether the member was new,
// so two racing evaluations cannot both observe a fresh grant.
func (s *Store) Grant(ctx context.Context, user core.UserID, achievement core.AchievementID) (bool, error) {
	added, err := s.client.SAdd(ctx, userAchievementsKey(user), string(achievement)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to grant achievement: %w", err)
	}
	return added == 1, nil
}

func (s *Store) Granted(ctx context.Context, user core.UserID) (map[core.AchievementID]struct{}, error) {
	members, err := s.client.SMembers(ctx, userAchievementsKey(user)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	out := make(map[core.AchievementID]struct{}, len(members))
	for _, m := range members {
		out[core.AchievementID(m)] = struct{}{}
	}
	return out, nil
}

package sqlx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	// database drivers selectable through Config.Driver
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"skillpath/core"
)

// Driver selects the SQL dialect.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
)

// Config holds SQL storage configuration
type Config struct {
	Driver          Driver        `json:"driver"`
	DSN             string        `json:"dsn"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
}

// DefaultConfig returns sensible defaults for the given driver
func DefaultConfig(driver Driver) Config {
	return Config{
		Driver:          driver,
		DSN:             "",
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

// Store implements the engine's fact, access, and grant stores on SQL.
//
// Expected schema:
//
//	figure_progress(user_id, figure_id, status, updated_at, PRIMARY KEY(user_id, figure_id))
//	training_completions(user_id, level_id, training_id, completed_at, PRIMARY KEY(user_id, level_id, training_id))
//	challenge_participations(user_id, challenge_id, participating, completed, status, updated_at, PRIMARY KEY(user_id, challenge_id))
//	user_achievements(user_id, achievement_id, granted_at, PRIMARY KEY(user_id, achievement_id))
//	path_purchases(user_id, path_key, purchased_at, PRIMARY KEY(user_id, path_key))
//	demo_access(user_id, path_key, PRIMARY KEY(user_id, path_key))
//
// The (user_id, achievement_id) primary key is what makes Grant an atomic
// insert-if-absent under concurrent evaluation.
type Store struct {
	db     *sqlx.DB
	driver Driver
}

// New connects using the configured driver and DSN.
func New(cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, errors.New("sql storage requires a DSN")
	}
	db, err := sqlx.Connect(string(cfg.Driver), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return NewWithDB(db, cfg.Driver), nil
}

// NewWithDB creates a Store using an existing sqlx.DB (useful for testing)
func NewWithDB(db *sqlx.DB, driver Driver) *Store {
	return &Store{db: db, driver: driver}
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// FactStore reads

func (s *Store) FigureStatuses(ctx context.Context, user core.UserID, _ core.PathKey) (map[core.FigureID]core.FigureStatus, error) {
	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(
		`SELECT figure_id, status FROM figure_progress WHERE user_id = ?`), user)
	if err != nil {
		return nil, fmt.Errorf("query figure progress: %w", err)
	}
	defer rows.Close()

	out := map[core.FigureID]core.FigureStatus{}
	for rows.Next() {
		var figure, status string
		if err := rows.Scan(&figure, &status); err != nil {
			return nil, err
		}
		out[core.FigureID(figure)] = core.FigureStatus(status)
	}
	return out, rows.Err()
}

func (s *Store) TrainingCompletions(ctx context.Context, user core.UserID) (map[core.LevelID]map[core.TrainingID]struct{}, error) {
	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(
		`SELECT level_id, training_id FROM training_completions WHERE user_id = ?`), user)
	if err != nil {
		return nil, fmt.Errorf("query training completions: %w", err)
	}
	defer rows.Close()

	out := map[core.LevelID]map[core.TrainingID]struct{}{}
	for rows.Next() {
		var level, training string
		if err := rows.Scan(&level, &training); err != nil {
			return nil, err
		}
		if out[core.LevelID(level)] == nil {
			out[core.LevelID(level)] = map[core.TrainingID]struct{}{}
		}
		out[core.LevelID(level)][core.TrainingID(training)] = struct{}{}
	}
	return out, rows.Err()
}

func (s *Store) ChallengeParticipations(ctx context.Context, user core.UserID) (map[core.ChallengeID]core.ChallengeParticipation, error) {
	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(
		`SELECT challenge_id, participating, completed, status FROM challenge_participations WHERE user_id = ?`), user)
	if err != nil {
		return nil, fmt.Errorf("query challenge participations: %w", err)
	}
	defer rows.Close()

	out := map[core.ChallengeID]core.ChallengeParticipation{}
	for rows.Next() {
		var p core.ChallengeParticipation
		var challenge string
		if err := rows.Scan(&challenge, &p.Participating, &p.Completed, &p.Status); err != nil {
			return nil, err
		}
		p.ChallengeID = core.ChallengeID(challenge)
		out[p.ChallengeID] = p
	}
	return out, rows.Err()
}

// FactStore writes

func (s *Store) RecordFigureStatus(ctx context.Context, user core.UserID, figure core.FigureID, status core.FigureStatus) error {
	var query string
	switch s.driver {
	case DriverMySQL:
		query = `INSERT INTO figure_progress (user_id, figure_id, status, updated_at) VALUES (?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE status = VALUES(status), updated_at = VALUES(updated_at)`
	default:
		query = `INSERT INTO figure_progress (user_id, figure_id, status, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT (user_id, figure_id) DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`
	}
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), user, figure, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert figure progress: %w", err)
	}
	return nil
}

func (s *Store) RecordTraining(ctx context.Context, user core.UserID, level core.LevelID, training core.TrainingID) error {
	// first completion only: repeats must not create rows or refresh timestamps
	var query string
	switch s.driver {
	case DriverMySQL:
		query = `INSERT IGNORE INTO training_completions (user_id, level_id, training_id, completed_at) VALUES (?, ?, ?, ?)`
	default:
		query = `INSERT INTO training_completions (user_id, level_id, training_id, completed_at) VALUES (?, ?, ?, ?)
			ON CONFLICT (user_id, level_id, training_id) DO NOTHING`
	}
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), user, level, training, time.Now().UTC()); err != nil {
		return fmt.Errorf("insert training completion: %w", err)
	}
	return nil
}

func (s *Store) RecordChallenge(ctx context.Context, user core.UserID, participation core.ChallengeParticipation) error {
	var query string
	switch s.driver {
	case DriverMySQL:
		query = `INSERT INTO challenge_participations (user_id, challenge_id, participating, completed, status, updated_at) VALUES (?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE participating = VALUES(participating), completed = VALUES(completed), status = VALUES(status), updated_at = VALUES(updated_at)`
	default:
		query = `INSERT INTO challenge_participations (user_id, challenge_id, participating, completed, status, updated_at) VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (user_id, challenge_id) DO UPDATE SET participating = EXCLUDED.participating, completed = EXCLUDED.completed, status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(query),
		user, participation.ChallengeID, participation.Participating, participation.Completed, participation.Status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert challenge participation: %w", err)
	}
	return nil
}

// AccessStore

func (s *Store) HasPurchase(ctx context.Context, user core.UserID, path core.PathKey) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, s.db.Rebind(
		`SELECT EXISTS (SELECT 1 FROM path_purchases WHERE user_id = ? AND path_key = ?)`), user, path)
	if err != nil {
		return false, fmt.Errorf("query purchase: %w", err)
	}
	return exists, nil
}

func (s *Store) DemoAllowed(ctx context.Context, user core.UserID, path core.PathKey) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, s.db.Rebind(
		`SELECT EXISTS (SELECT 1 FROM demo_access WHERE user_id = ? AND path_key = ?)`), user, path)
	if err != nil {
		return false, fmt.Errorf("query demo access: %w", err)
	}
	return exists, nil
}

// GrantStore

// Grant relies on the primary key for atomicity: the insert either lands or
// conflicts, and RowsAffected says which.
func (s *Store) Grant(ctx context.Context, user core.UserID, achievement core.AchievementID) (bool, error) {
	var query string
	switch s.driver {
	case DriverMySQL:
		query = `INSERT IGNORE INTO user_achievements (user_id, achievement_id, granted_at) VALUES (?, ?, ?)`
	default:
		query = `INSERT INTO user_achievements (user_id, achievement_id, granted_at) VALUES (?, ?, ?)
			ON CONFLICT (user_id, achievement_id) DO NOTHING`
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), user, achievement, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("insert achievement grant: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *Store) Granted(ctx context.Context, user core.UserID) (map[core.AchievementID]struct{}, error) {
	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(
		`SELECT achievement_id FROM user_achievements WHERE user_id = ?`), user)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return map[core.AchievementID]struct{}{}, nil
		}
		return nil, fmt.Errorf("query grants: %w", err)
	}
	defer rows.Close()

	out := map[core.AchievementID]struct{}{}
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		out[core.AchievementID(a)] = struct{}{}
	}
	return out, rows.Err()
}

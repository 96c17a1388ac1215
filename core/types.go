package core

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// ErrPathNotFound reports a lookup for a sport path the catalog does not know.
var ErrPathNotFound = errors.New("sport path not found")

// UserID uniquely identifies an athlete in the progression domain.
type UserID string

// PathKey identifies a sport path (one progression track per sport).
type PathKey string

// LevelID identifies a level within a sport path.
type LevelID string

// FigureID identifies an exercise figure.
type FigureID string

// TrainingID identifies a training linked to a level.
type TrainingID string

// ChallengeID identifies a challenge optionally linked to a level.
type ChallengeID string

// AchievementID identifies an achievement bound to a level.
type AchievementID string

// FigureStatus is the per-user practice status of a figure.
type FigureStatus string

const (
	StatusNotTried  FigureStatus = "not_tried"
	StatusCompleted FigureStatus = "completed"
	StatusForLater  FigureStatus = "for_later"
	StatusFailed    FigureStatus = "failed"
)

// FigureKind distinguishes core figures from transition (bonus) content.
type FigureKind string

const (
	KindStandard   FigureKind = "standard"
	KindTransition FigureKind = "transition"
)

// Difficulty grades a figure. Advanced and expert figures are premium content.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
	DifficultyExpert       Difficulty = "expert"
)

// PremiumGated reports whether the difficulty alone requires premium access.
func (d Difficulty) PremiumGated() bool {
	return d == DifficultyAdvanced || d == DifficultyExpert
}

// LevelStatus is the editorial state of a level. The engine only sees published levels.
type LevelStatus string

const (
	LevelDraft     LevelStatus = "draft"
	LevelPublished LevelStatus = "published"
)

// SportPath is a named progression track for one sport, composed of ordered levels.
type SportPath struct {
	Key        PathKey `json:"key"`
	Name       string  `json:"name"`
	FreeLevels int     `json:"free_levels"`
	PriceCents int64   `json:"price_cents"`
	Published  bool    `json:"published"`
}

// Figure is an exercise inside a level. A figure may be the level's boss,
// may belong to a sublevel grouping, and may be premium content.
type Figure struct {
	ID         FigureID   `json:"id"`
	LevelID    LevelID    `json:"level_id"`
	Name       string     `json:"name"`
	Sublevel   int        `json:"sublevel"`
	Boss       bool       `json:"boss"`
	Kind       FigureKind `json:"kind"`
	Difficulty Difficulty `json:"difficulty"`
	Premium    bool       `json:"premium"`
}

// SublevelOrDefault clamps non-positive sublevel numbers to the entry sublevel.
func (f Figure) SublevelOrDefault() int {
	if f.Sublevel <= 0 {
		return 1
	}
	return f.Sublevel
}

// Gating reports whether the figure participates in sublevel/boss gating.
// Boss figures gate themselves and transitions are bonus content, so both are excluded.
func (f Figure) Gating() bool {
	return !f.Boss && f.Kind != KindTransition
}

// TrainingLink associates a training with a level.
type TrainingLink struct {
	TrainingID TrainingID `json:"training_id"`
	Required   bool       `json:"required"`
}

// Level is an ordered stage within a sport path, gated by a point threshold
// and optionally by the previous level's boss figure.
type Level struct {
	ID             LevelID         `json:"id"`
	Path           PathKey         `json:"path"`
	Sequence       int             `json:"sequence"`
	Name           string          `json:"name"`
	PointThreshold int             `json:"point_threshold"`
	ChallengeID    ChallengeID     `json:"challenge_id,omitempty"`
	Status         LevelStatus     `json:"status"`
	Figures        []Figure        `json:"figures"`
	Trainings      []TrainingLink  `json:"trainings"`
	Achievements   []AchievementID `json:"achievements,omitempty"`
}

// BossFigure returns the level's boss figure. When administrative data holds
// more than one boss the first in slice order wins so reads stay deterministic.
func (l Level) BossFigure() (Figure, bool) {
	for _, f := range l.Figures {
		if f.Boss {
			return f, true
		}
	}
	return Figure{}, false
}

// SortedLevels returns a copy ordered by sequence ascending (ID breaks ties).
func SortedLevels(levels []Level) []Level {
	out := make([]Level, len(levels))
	copy(out, levels)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Sequence == out[j].Sequence {
			return out[i].ID < out[j].ID
		}
		return out[i].Sequence < out[j].Sequence
	})
	return out
}

// ChallengeParticipation is a per-user challenge record.
type ChallengeParticipation struct {
	ChallengeID   ChallengeID `json:"challenge_id"`
	Participating bool        `json:"participating"`
	Completed     bool        `json:"completed"`
	Status        string      `json:"status"`
}

// Snapshot is an immutable view of a user's completion facts for one sport path.
// All rule functions are pure over a Snapshot; recomputation from the same
// facts always yields the same result.
type Snapshot struct {
	UserID     UserID                                 `json:"user_id"`
	Figures    map[FigureID]FigureStatus              `json:"figures"`
	Trainings  map[LevelID]map[TrainingID]struct{}    `json:"trainings"`
	Challenges map[ChallengeID]ChallengeParticipation `json:"challenges"`
	Fetched    time.Time                              `json:"fetched"`
}

// NewSnapshot allocates an empty snapshot for a user.
func NewSnapshot(user UserID) Snapshot {
	return Snapshot{
		UserID:     user,
		Figures:    map[FigureID]FigureStatus{},
		Trainings:  map[LevelID]map[TrainingID]struct{}{},
		Challenges: map[ChallengeID]ChallengeParticipation{},
		Fetched:    time.Now().UTC(),
	}
}

// Clone returns a deep copy so callers can hold snapshots without aliasing.
func (s Snapshot) Clone() Snapshot {
	cp := Snapshot{
		UserID:     s.UserID,
		Figures:    make(map[FigureID]FigureStatus, len(s.Figures)),
		Trainings:  make(map[LevelID]map[TrainingID]struct{}, len(s.Trainings)),
		Challenges: make(map[ChallengeID]ChallengeParticipation, len(s.Challenges)),
		Fetched:    s.Fetched,
	}
	for k, v := range s.Figures {
		cp.Figures[k] = v
	}
	for lvl, set := range s.Trainings {
		inner := make(map[TrainingID]struct{}, len(set))
		for t := range set {
			inner[t] = struct{}{}
		}
		cp.Trainings[lvl] = inner
	}
	for k, v := range s.Challenges {
		cp.Challenges[k] = v
	}
	return cp
}

// FigureCompleted reports whether the user has a completed record for the figure.
func (s Snapshot) FigureCompleted(id FigureID) bool {
	return s.Figures[id] == StatusCompleted
}

// TrainingCompleted reports whether the training was completed for the level.
// Repeat completions are collapsed upstream; this is plain set membership.
func (s Snapshot) TrainingCompleted(level LevelID, training TrainingID) bool {
	set, ok := s.Trainings[level]
	if !ok {
		return false
	}
	_, ok = set[training]
	return ok
}

// ChallengeCompleted reports whether the user completed the challenge.
func (s Snapshot) ChallengeCompleted(id ChallengeID) bool {
	return s.Challenges[id].Completed
}

// NormalizeUserID trims and lowercases user identifiers.
func NormalizeUserID(id UserID) (UserID, error) {
	s := strings.TrimSpace(string(id))
	if s == "" {
		return "", errors.New("empty user id")
	}
	return UserID(strings.ToLower(s)), nil
}

// ValidateID ensures a non-empty identifier with a simple charset check.
func ValidateID(id string) error {
	s := strings.TrimSpace(id)
	if s == "" {
		return errors.New("empty id")
	}
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_' {
			continue
		}
		return errors.New("invalid id")
	}
	return nil
}

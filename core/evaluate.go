package core

import "fmt"

// SublevelAccess pairs a sublevel number with its gate result.
type SublevelAccess struct {
	Number     int  `json:"number"`
	Accessible bool `json:"accessible"`
}

// LevelEvaluation is the computed state of one level for one user.
type LevelEvaluation struct {
	LevelID        LevelID          `json:"level_id"`
	Sequence       int              `json:"sequence"`
	Name           string           `json:"name"`
	PointThreshold int              `json:"point_threshold"`
	Unlocked       bool             `json:"unlocked"`
	Paywalled      bool             `json:"paywalled"`
	Progress       int              `json:"progress"`
	BossFigure     FigureID         `json:"boss_figure,omitempty"`
	BossAccessible bool             `json:"boss_accessible"`
	BossDefeated   bool             `json:"boss_defeated"`
	Sublevels      []SublevelAccess `json:"sublevels"`
	Achievements   []AchievementID  `json:"achievements,omitempty"`
}

// PathEvaluation is the full computed progression view for one user on one path.
type PathEvaluation struct {
	Path   SportPath         `json:"path"`
	UserID UserID            `json:"user_id"`
	Mode   AccessMode        `json:"mode"`
	Points int               `json:"points"`
	Levels []LevelEvaluation `json:"levels"`
}

// EvaluatePath runs the whole rule set over a snapshot: point ledger, per-level
// unlock state, sublevel gates, boss eligibility and progress percent. Pure and
// deterministic; the caller supplies the already-resolved access mode.
func EvaluatePath(path SportPath, levels []Level, mode AccessMode, snap Snapshot) PathEvaluation {
	ordered := SortedLevels(levels)
	points := ComputePoints(ordered, snap)

	out := PathEvaluation{
		Path:   path,
		UserID: snap.UserID,
		Mode:   mode,
		Points: points,
		Levels: make([]LevelEvaluation, 0, len(ordered)),
	}
	for i, lvl := range ordered {
		le := LevelEvaluation{
			LevelID:        lvl.ID,
			Sequence:       lvl.Sequence,
			Name:           lvl.Name,
			PointThreshold: lvl.PointThreshold,
			Unlocked:       IsLevelUnlocked(path, ordered, i, points, mode, snap),
			Paywalled:      PaywallLocked(lvl, mode, path.FreeLevels),
			Progress:       LevelProgressPercent(lvl, snap),
			BossAccessible: CanAccessBoss(lvl, snap),
			Achievements:   lvl.Achievements,
		}
		if boss, ok := lvl.BossFigure(); ok {
			le.BossFigure = boss.ID
			le.BossDefeated = snap.FigureCompleted(boss.ID)
		}
		for _, n := range Sublevels(lvl) {
			le.Sublevels = append(le.Sublevels, SublevelAccess{
				Number:     n,
				Accessible: CanAccessSublevel(lvl, n, mode, snap),
			})
		}
		out.Levels = append(out.Levels, le)
	}
	return out
}

// Anomalies scans structural data for invariant violations the engine
// tolerates at read time but that should be surfaced for data-quality
// monitoring: duplicate boss figures and non-positive sublevel numbers.
func Anomalies(levels []Level) []string {
	var out []string
	for _, lvl := range levels {
		bosses := 0
		for _, f := range lvl.Figures {
			if f.Boss {
				bosses++
			}
			if f.Sublevel <= 0 {
				out = append(out, fmt.Sprintf("level %s: figure %s has sublevel %d, treated as 1", lvl.ID, f.ID, f.Sublevel))
			}
		}
		if bosses > 1 {
			out = append(out, fmt.Sprintf("level %s: %d boss figures, first one wins", lvl.ID, bosses))
		}
	}
	return out
}

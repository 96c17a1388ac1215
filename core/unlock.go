package core

// IsLevelUnlocked decides whether levels[index] is reachable for a user.
// The slice must already be in sequence order (SortedLevels).
//
// Full and demo access unlock everything. Free tier first hits the paywall
// for levels beyond the path's free count. The first level is always open;
// every later level requires the computed point total to meet its threshold
// and the previous level's boss figure, if one exists, to be completed.
func IsLevelUnlocked(path SportPath, levels []Level, index int, points int, mode AccessMode, snap Snapshot) bool {
	if index < 0 || index >= len(levels) {
		return false
	}
	if mode.Unrestricted() {
		return true
	}
	lvl := levels[index]
	if PaywallLocked(lvl, mode, path.FreeLevels) {
		return false
	}
	if index == 0 {
		return true
	}
	if points < lvl.PointThreshold {
		return false
	}
	if boss, ok := levels[index-1].BossFigure(); ok && !snap.FigureCompleted(boss.ID) {
		return false
	}
	return true
}

// CanAccessSublevel decides whether a sublevel inside a level is open.
// Sublevel 1 is the entry sublevel and always open; sublevel n requires every
// gating figure of sublevel n-1 to be completed. Transition figures and the
// boss never gate sublevels.
func CanAccessSublevel(lvl Level, sublevel int, mode AccessMode, snap Snapshot) bool {
	if mode.Unrestricted() {
		return true
	}
	if sublevel <= 1 {
		return true
	}
	for _, f := range lvl.Figures {
		if !f.Gating() || f.SublevelOrDefault() != sublevel-1 {
			continue
		}
		if !snap.FigureCompleted(f.ID) {
			return false
		}
	}
	return true
}

// CanAccessBoss reports whether the boss figure is attemptable: every gating
// figure in the level must be completed. Vacuously true with no such figures.
func CanAccessBoss(lvl Level, snap Snapshot) bool {
	for _, f := range lvl.Figures {
		if f.Gating() && !snap.FigureCompleted(f.ID) {
			return false
		}
	}
	return true
}

// CanAccessFigure applies the premium gate. Advanced/expert difficulty and
// premium-flagged figures require premium access; full and demo modes carry
// premium access implicitly. Level and sublevel gates are checked separately.
func CanAccessFigure(f Figure, mode AccessMode, hasPremium bool) bool {
	if !f.Premium && !f.Difficulty.PremiumGated() {
		return true
	}
	return hasPremium || mode.Unrestricted()
}

// Sublevels returns the distinct sublevel numbers present in the level,
// ascending, always including the entry sublevel.
func Sublevels(lvl Level) []int {
	seen := map[int]struct{}{1: {}}
	max := 1
	for _, f := range lvl.Figures {
		n := f.SublevelOrDefault()
		seen[n] = struct{}{}
		if n > max {
			max = n
		}
	}
	out := make([]int, 0, len(seen))
	for n := 1; n <= max; n++ {
		if _, ok := seen[n]; ok {
			out = append(out, n)
		}
	}
	return out
}

package core

// Point weights are multiplied by the level's sequence number.
const (
	FigurePointWeight    = 1
	TrainingPointWeight  = 2
	ChallengePointWeight = 3
)

// ComputePoints replays levels in sequence order and accumulates point
// contributions from levels whose threshold is already met by the running
// total of strictly earlier levels.
//
// The gate is per level, not an early exit: a closed level contributes zero
// but later levels are still tested independently, so a later level with a
// lower threshold can contribute even while an earlier one is locked.
func ComputePoints(levels []Level, snap Snapshot) int {
	points := 0
	for _, lvl := range SortedLevels(levels) {
		if points < lvl.PointThreshold {
			continue
		}
		points += LevelPoints(lvl, snap)
	}
	return points
}

// LevelPoints sums one level's contributions, assuming its gate is open:
// 1 x sequence per completed figure, 2 x sequence per distinct completed
// linked training, 3 x sequence for a completed linked challenge.
func LevelPoints(lvl Level, snap Snapshot) int {
	points := 0
	for _, f := range lvl.Figures {
		if snap.FigureCompleted(f.ID) {
			points += FigurePointWeight * lvl.Sequence
		}
	}
	for _, t := range lvl.Trainings {
		if snap.TrainingCompleted(lvl.ID, t.TrainingID) {
			points += TrainingPointWeight * lvl.Sequence
		}
	}
	if lvl.ChallengeID != "" && snap.ChallengeCompleted(lvl.ChallengeID) {
		points += ChallengePointWeight * lvl.Sequence
	}
	return points
}

package core

import "math"

// LevelProgressPercent computes the 0-100 completion score for a level.
//
// A completed linked challenge finishes the level outright, regardless of how
// many figures or trainings are done. Otherwise the score is the rounded
// share of completed items over all figures plus linked trainings; a level
// with nothing to complete scores zero.
func LevelProgressPercent(lvl Level, snap Snapshot) int {
	if lvl.ChallengeID != "" && snap.ChallengeCompleted(lvl.ChallengeID) {
		return 100
	}
	total := len(lvl.Figures) + len(lvl.Trainings)
	if total == 0 {
		return 0
	}
	done := 0
	for _, f := range lvl.Figures {
		if snap.FigureCompleted(f.ID) {
			done++
		}
	}
	for _, t := range lvl.Trainings {
		if snap.TrainingCompleted(lvl.ID, t.TrainingID) {
			done++
		}
	}
	return int(math.Round(100 * float64(done) / float64(total)))
}

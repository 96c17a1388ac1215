package core

import "testing"

// twoLevelPath builds a small aerial path: level 1 (threshold 0) with three
// figures, one of them the boss; level 2 (threshold 3) with two figures.
func twoLevelPath() []Level {
	return []Level{
		{
			ID: "l1", Path: "aerial", Sequence: 1, PointThreshold: 0, Status: LevelPublished,
			Figures: []Figure{
				{ID: "f1", LevelID: "l1", Sublevel: 1, Kind: KindStandard, Difficulty: DifficultyBeginner},
				{ID: "f2", LevelID: "l1", Sublevel: 1, Kind: KindStandard, Difficulty: DifficultyBeginner},
				{ID: "boss1", LevelID: "l1", Sublevel: 1, Boss: true, Kind: KindStandard, Difficulty: DifficultyIntermediate},
			},
		},
		{
			ID: "l2", Path: "aerial", Sequence: 2, PointThreshold: 3, Status: LevelPublished,
			Figures: []Figure{
				{ID: "f3", LevelID: "l2", Sublevel: 1, Kind: KindStandard, Difficulty: DifficultyIntermediate},
				{ID: "f4", LevelID: "l2", Sublevel: 2, Kind: KindStandard, Difficulty: DifficultyIntermediate},
			},
		},
	}
}

func snapWithFigures(ids ...FigureID) Snapshot {
	s := NewSnapshot("u1")
	for _, id := range ids {
		s.Figures[id] = StatusCompleted
	}
	return s
}

func TestComputePointsOrderedFold(t *testing.T) {
	levels := twoLevelPath()

	// Two level-1 figures done: 2 x (1 x seq 1) = 2 points; level 2 stays gated.
	snap := snapWithFigures("f1", "f2")
	if got := ComputePoints(levels, snap); got != 2 {
		t.Fatalf("points = %d, want 2", got)
	}

	// Boss done too: 3 points from level 1, still short of nothing else.
	snap = snapWithFigures("f1", "f2", "boss1")
	if got := ComputePoints(levels, snap); got != 3 {
		t.Fatalf("points = %d, want 3", got)
	}

	// Level-2 completions only count once level 2's gate opens from level 1.
	snap = snapWithFigures("f3", "f4")
	if got := ComputePoints(levels, snap); got != 0 {
		t.Fatalf("gated level contributed: points = %d, want 0", got)
	}

	// All five figures: level 1 gives 3, opening level 2's threshold of 3,
	// then level 2 gives 2 x (1 x seq 2) = 4.
	snap = snapWithFigures("f1", "f2", "boss1", "f3", "f4")
	if got := ComputePoints(levels, snap); got != 7 {
		t.Fatalf("points = %d, want 7", got)
	}
}

func TestComputePointsPerLevelGateNotEarlyExit(t *testing.T) {
	// Level 2 is locked (threshold 100) but level 3 has a lower threshold and
	// must be gated independently on the running total, not short-circuited.
	levels := []Level{
		{ID: "l1", Sequence: 1, PointThreshold: 0, Figures: []Figure{{ID: "a"}}},
		{ID: "l2", Sequence: 2, PointThreshold: 100, Figures: []Figure{{ID: "b"}}},
		{ID: "l3", Sequence: 3, PointThreshold: 1, Figures: []Figure{{ID: "c"}}},
	}
	snap := snapWithFigures("a", "b", "c")
	// l1 contributes 1; l2 closed (1 < 100); l3 open (1 >= 1), contributes 3.
	if got := ComputePoints(levels, snap); got != 4 {
		t.Fatalf("points = %d, want 4", got)
	}
}

func TestComputePointsTrainingsAndChallenges(t *testing.T) {
	levels := []Level{{
		ID: "l1", Sequence: 2, PointThreshold: 0, ChallengeID: "ch1",
		Figures:   []Figure{{ID: "f1"}},
		Trainings: []TrainingLink{{TrainingID: "t1", Required: true}, {TrainingID: "t2"}},
	}}
	snap := NewSnapshot("u1")
	snap.Figures["f1"] = StatusCompleted
	snap.Trainings["l1"] = map[TrainingID]struct{}{"t1": {}, "t2": {}}
	snap.Challenges["ch1"] = ChallengeParticipation{ChallengeID: "ch1", Participating: true, Completed: true, Status: "completed"}

	// figure 1x2 + trainings 2x(2x2) + challenge 3x2 = 2 + 8 + 6
	if got := ComputePoints(levels, snap); got != 16 {
		t.Fatalf("points = %d, want 16", got)
	}
}

func TestComputePointsIgnoresNonCompletedStatuses(t *testing.T) {
	levels := twoLevelPath()
	snap := NewSnapshot("u1")
	snap.Figures["f1"] = StatusFailed
	snap.Figures["f2"] = StatusForLater
	snap.Figures["boss1"] = StatusNotTried
	if got := ComputePoints(levels, snap); got != 0 {
		t.Fatalf("points = %d, want 0", got)
	}
}

func TestComputePointsMonotonicUnderSupersets(t *testing.T) {
	levels := twoLevelPath()
	subset := snapWithFigures("f1")
	superset := snapWithFigures("f1", "f2", "boss1", "f3")
	if ComputePoints(levels, superset) < ComputePoints(levels, subset) {
		t.Fatal("superset of completions computed fewer points")
	}
}

func TestComputePointsDeterministic(t *testing.T) {
	levels := twoLevelPath()
	snap := snapWithFigures("f1", "f2", "boss1", "f3", "f4")
	first := ComputePoints(levels, snap)
	for i := 0; i < 10; i++ {
		if got := ComputePoints(levels, snap); got != first {
			t.Fatalf("recomputation drifted: %d != %d", got, first)
		}
	}
}

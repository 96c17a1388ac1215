package core

import "testing"

func TestLevelProgressPercent(t *testing.T) {
	lvl := Level{
		ID: "l1", Sequence: 1,
		Figures:   []Figure{{ID: "f1"}, {ID: "f2"}, {ID: "f3"}},
		Trainings: []TrainingLink{{TrainingID: "t1"}},
	}
	snap := NewSnapshot("u1")
	if got := LevelProgressPercent(lvl, snap); got != 0 {
		t.Fatalf("empty progress = %d, want 0", got)
	}

	snap.Figures["f1"] = StatusCompleted
	if got := LevelProgressPercent(lvl, snap); got != 25 {
		t.Fatalf("progress = %d, want 25", got)
	}

	snap.Figures["f2"] = StatusCompleted
	snap.Figures["f3"] = StatusCompleted
	snap.Trainings["l1"] = map[TrainingID]struct{}{"t1": {}}
	if got := LevelProgressPercent(lvl, snap); got != 100 {
		t.Fatalf("progress = %d, want 100", got)
	}
}

func TestLevelProgressRounding(t *testing.T) {
	lvl := Level{ID: "l1", Figures: []Figure{{ID: "a"}, {ID: "b"}, {ID: "c"}}}
	snap := snapWithFigures("a")
	// 1/3 rounds to 33, 2/3 rounds to 67.
	if got := LevelProgressPercent(lvl, snap); got != 33 {
		t.Fatalf("progress = %d, want 33", got)
	}
	snap.Figures["b"] = StatusCompleted
	if got := LevelProgressPercent(lvl, snap); got != 67 {
		t.Fatalf("progress = %d, want 67", got)
	}
}

func TestChallengeCompletionOverridesProgress(t *testing.T) {
	lvl := Level{
		ID: "l1", ChallengeID: "ch1",
		Figures:   []Figure{{ID: "f1"}, {ID: "f2"}},
		Trainings: []TrainingLink{{TrainingID: "t1"}},
	}
	snap := NewSnapshot("u1")
	snap.Challenges["ch1"] = ChallengeParticipation{ChallengeID: "ch1", Completed: true}
	if got := LevelProgressPercent(lvl, snap); got != 100 {
		t.Fatalf("progress = %d, want 100 via challenge override", got)
	}

	// Even a level with nothing else to complete finishes through its challenge.
	bare := Level{ID: "l2", ChallengeID: "ch1"}
	if got := LevelProgressPercent(bare, snap); got != 100 {
		t.Fatalf("bare level progress = %d, want 100", got)
	}
}

func TestIncompleteChallengeDoesNotOverride(t *testing.T) {
	lvl := Level{ID: "l1", ChallengeID: "ch1", Figures: []Figure{{ID: "f1"}}}
	snap := NewSnapshot("u1")
	snap.Challenges["ch1"] = ChallengeParticipation{ChallengeID: "ch1", Participating: true, Status: "active"}
	if got := LevelProgressPercent(lvl, snap); got != 0 {
		t.Fatalf("progress = %d, want 0", got)
	}
}

package core

import "testing"

func TestFirstLevelAlwaysUnlocked(t *testing.T) {
	path := SportPath{Key: "aerial", FreeLevels: 2}
	levels := twoLevelPath()
	empty := NewSnapshot("u1")
	for _, pts := range []int{0, -5, 1000} {
		if !IsLevelUnlocked(path, levels, 0, pts, AccessFreeTier, empty) {
			t.Fatalf("first level locked at %d points", pts)
		}
	}
}

func TestLevelUnlockRequiresPointsAndBoss(t *testing.T) {
	path := SportPath{Key: "aerial", FreeLevels: 10}
	levels := twoLevelPath()

	// Enough points but boss of level 1 not defeated.
	snap := snapWithFigures("f1", "f2")
	if IsLevelUnlocked(path, levels, 1, 3, AccessFreeTier, snap) {
		t.Fatal("level 2 unlocked without defeating level-1 boss")
	}

	// Boss defeated but points short.
	snap = snapWithFigures("boss1")
	if IsLevelUnlocked(path, levels, 1, 2, AccessFreeTier, snap) {
		t.Fatal("level 2 unlocked below threshold")
	}

	// Both conditions met.
	snap = snapWithFigures("f1", "f2", "boss1")
	if !IsLevelUnlocked(path, levels, 1, 3, AccessFreeTier, snap) {
		t.Fatal("level 2 locked with threshold met and boss defeated")
	}
}

func TestLevelWithoutBossHasNoBossGate(t *testing.T) {
	path := SportPath{Key: "aerial", FreeLevels: 10}
	levels := []Level{
		{ID: "l1", Sequence: 1, Figures: []Figure{{ID: "f1"}}},
		{ID: "l2", Sequence: 2, PointThreshold: 1},
	}
	snap := snapWithFigures("f1")
	if !IsLevelUnlocked(path, levels, 1, 1, AccessFreeTier, snap) {
		t.Fatal("boss gate applied although previous level has no boss")
	}
}

func TestFreeTierPaywallIgnoresPoints(t *testing.T) {
	path := SportPath{Key: "aerial", FreeLevels: 2}
	levels := []Level{
		{ID: "l1", Sequence: 1},
		{ID: "l2", Sequence: 2, PointThreshold: 1},
		{ID: "l3", Sequence: 3, PointThreshold: 2},
	}
	snap := NewSnapshot("u1")
	if IsLevelUnlocked(path, levels, 2, 1_000_000, AccessFreeTier, snap) {
		t.Fatal("level beyond free count unlocked for free tier")
	}
	// Full and demo access ignore the paywall.
	if !IsLevelUnlocked(path, levels, 2, 0, AccessFull, snap) {
		t.Fatal("full access locked out")
	}
	if !IsLevelUnlocked(path, levels, 2, 0, AccessDemo, snap) {
		t.Fatal("demo access locked out")
	}
}

func TestCanAccessSublevel(t *testing.T) {
	lvl := Level{
		ID: "l1", Sequence: 1,
		Figures: []Figure{
			{ID: "s1a", Sublevel: 1},
			{ID: "s1b", Sublevel: 1},
			{ID: "tr", Sublevel: 1, Kind: KindTransition},
			{ID: "boss", Sublevel: 1, Boss: true},
			{ID: "s2a", Sublevel: 2},
		},
	}
	empty := NewSnapshot("u1")

	if !CanAccessSublevel(lvl, 1, AccessFreeTier, empty) {
		t.Fatal("entry sublevel closed")
	}
	if CanAccessSublevel(lvl, 2, AccessFreeTier, empty) {
		t.Fatal("sublevel 2 open with sublevel 1 incomplete")
	}
	// Transition and boss figures do not gate: completing just the two
	// standard figures opens sublevel 2.
	snap := snapWithFigures("s1a", "s1b")
	if !CanAccessSublevel(lvl, 2, AccessFreeTier, snap) {
		t.Fatal("sublevel 2 closed although gating figures are complete")
	}
	if !CanAccessSublevel(lvl, 2, AccessDemo, empty) {
		t.Fatal("demo access should open every sublevel")
	}
}

func TestCanAccessBoss(t *testing.T) {
	lvl := twoLevelPath()[0]

	if !CanAccessBoss(lvl, snapWithFigures("f1", "f2")) {
		t.Fatal("boss closed with all gating figures complete")
	}
	if CanAccessBoss(lvl, snapWithFigures("f1")) {
		t.Fatal("boss open with a gating figure incomplete")
	}
	// Vacuously true when the level has no gating figures.
	onlyBoss := Level{ID: "lx", Figures: []Figure{{ID: "b", Boss: true}}}
	if !CanAccessBoss(onlyBoss, NewSnapshot("u1")) {
		t.Fatal("boss should be open when nothing gates it")
	}
}

func TestCanAccessFigurePremiumGate(t *testing.T) {
	expert := Figure{ID: "x", Difficulty: DifficultyExpert}
	flagged := Figure{ID: "y", Difficulty: DifficultyBeginner, Premium: true}
	basic := Figure{ID: "z", Difficulty: DifficultyBeginner}

	if CanAccessFigure(expert, AccessFreeTier, false) {
		t.Fatal("expert figure open without premium")
	}
	if !CanAccessFigure(expert, AccessFreeTier, true) {
		t.Fatal("expert figure closed despite premium")
	}
	if !CanAccessFigure(expert, AccessFull, false) {
		t.Fatal("full access should include premium content")
	}
	if CanAccessFigure(flagged, AccessFreeTier, false) {
		t.Fatal("premium-flagged figure open without premium")
	}
	if !CanAccessFigure(basic, AccessFreeTier, false) {
		t.Fatal("basic figure should always be open")
	}
}

func TestSublevelsToleratesBadNumbers(t *testing.T) {
	lvl := Level{Figures: []Figure{
		{ID: "a", Sublevel: -3},
		{ID: "b", Sublevel: 0},
		{ID: "c", Sublevel: 2},
	}}
	got := Sublevels(lvl)
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("sublevels = %v, want [1 2]", got)
	}
}

func TestBossFigureDeterministicFirstMatch(t *testing.T) {
	lvl := Level{Figures: []Figure{
		{ID: "a"},
		{ID: "b", Boss: true},
		{ID: "c", Boss: true},
	}}
	boss, ok := lvl.BossFigure()
	if !ok || boss.ID != "b" {
		t.Fatalf("boss = %v ok=%v, want first match b", boss.ID, ok)
	}
}

package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"skillpath/core"
)

func TestStorePersistAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "progress.json")

	store, err := New(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	ctx := context.Background()
	if err := store.RecordFigureStatus(ctx, "alice", "handstand", core.StatusCompleted); err != nil {
		t.Fatalf("record figure: %v", err)
	}
	if err := store.RecordTraining(ctx, "alice", "l1", "t1"); err != nil {
		t.Fatalf("record training: %v", err)
	}
	if err := store.RecordChallenge(ctx, "alice", core.ChallengeParticipation{
		ChallengeID: "c1", Participating: true, Completed: true, Status: "finished",
	}); err != nil {
		t.Fatalf("record challenge: %v", err)
	}
	fresh, err := store.Grant(ctx, "alice", "first-level")
	if err != nil || !fresh {
		t.Fatalf("grant: fresh=%v err=%v", fresh, err)
	}
	if err := store.SetPurchase(ctx, "alice", "aerial", true); err != nil {
		t.Fatalf("set purchase: %v", err)
	}

	// ensure file written
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file at %s", path)
	}

	// reload
	reloaded, err := New(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}

	figures, err := reloaded.FigureStatuses(ctx, "alice", "aerial")
	if err != nil {
		t.Fatalf("figure statuses: %v", err)
	}
	if figures["handstand"] != core.StatusCompleted {
		t.Fatalf("expected handstand completed, got %q", figures["handstand"])
	}

	trainings, err := reloaded.TrainingCompletions(ctx, "alice")
	if err != nil {
		t.Fatalf("training completions: %v", err)
	}
	if _, ok := trainings["l1"]["t1"]; !ok {
		t.Fatalf("expected training t1 on level l1")
	}

	challenges, err := reloaded.ChallengeParticipations(ctx, "alice")
	if err != nil {
		t.Fatalf("challenge participations: %v", err)
	}
	if !challenges["c1"].Completed {
		t.Fatalf("expected challenge c1 completed")
	}

	granted, err := reloaded.Granted(ctx, "alice")
	if err != nil {
		t.Fatalf("granted: %v", err)
	}
	if _, ok := granted["first-level"]; !ok {
		t.Fatalf("expected achievement first-level")
	}

	purchased, err := reloaded.HasPurchase(ctx, "alice", "aerial")
	if err != nil || !purchased {
		t.Fatalf("expected purchase to survive reload: purchased=%v err=%v", purchased, err)
	}
}

func TestGrantIdempotentAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	ctx := context.Background()

	store, err := New(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if fresh, _ := store.Grant(ctx, "bob", "challenger"); !fresh {
		t.Fatal("first grant should be fresh")
	}
	if fresh, _ := store.Grant(ctx, "bob", "challenger"); fresh {
		t.Fatal("second grant should not be fresh")
	}

	reloaded, err := New(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if fresh, _ := reloaded.Grant(ctx, "bob", "challenger"); fresh {
		t.Fatal("grant after reload should not be fresh")
	}
}

func TestWritesAfterReloadInitializeOmittedMaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	ctx := context.Background()

	store, err := New(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	// only figures recorded: every other map is empty and omitted from the file
	if err := store.RecordFigureStatus(ctx, "carol", "invert", core.StatusCompleted); err != nil {
		t.Fatalf("record figure: %v", err)
	}

	reloaded, err := New(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if err := reloaded.RecordTraining(ctx, "carol", "l1", "t1"); err != nil {
		t.Fatalf("record training after reload: %v", err)
	}
	if err := reloaded.RecordChallenge(ctx, "carol", core.ChallengeParticipation{
		ChallengeID: "c1", Participating: true,
	}); err != nil {
		t.Fatalf("record challenge after reload: %v", err)
	}
	if fresh, err := reloaded.Grant(ctx, "carol", "first-level"); err != nil || !fresh {
		t.Fatalf("grant after reload: fresh=%v err=%v", fresh, err)
	}
	if err := reloaded.SetPurchase(ctx, "carol", "aerial", true); err != nil {
		t.Fatalf("set purchase after reload: %v", err)
	}
	if err := reloaded.AllowDemo(ctx, "carol", "pole", true); err != nil {
		t.Fatalf("allow demo after reload: %v", err)
	}

	trainings, err := reloaded.TrainingCompletions(ctx, "carol")
	if err != nil {
		t.Fatalf("training completions: %v", err)
	}
	if _, ok := trainings["l1"]["t1"]; !ok {
		t.Fatal("expected training t1 recorded after reload")
	}
}

func TestTrainingRepeatKeepsOriginalTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	ctx := context.Background()

	store, err := New(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.RecordTraining(ctx, "bob", "l1", "t1"); err != nil {
		t.Fatalf("record training: %v", err)
	}
	first := store.data["bob"].Trainings["l1"]["t1"]
	if err := store.RecordTraining(ctx, "bob", "l1", "t1"); err != nil {
		t.Fatalf("repeat training: %v", err)
	}
	if !store.data["bob"].Trainings["l1"]["t1"].Equal(first) {
		t.Fatal("repeat completion must not refresh the recorded time")
	}
}

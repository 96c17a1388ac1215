package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	mem "skillpath/adapters/memory"
	"skillpath/api/httpapi"
	"skillpath/core"
	"skillpath/leaderboard"
	"skillpath/progression"
	"skillpath/realtime"
)

// A self-contained demo: seeds one sport path into memory storage and serves
// the full API on :8080 without any external dependencies.
func main() {
	// Use readable text logging for development/demo
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(textHandler))

	store := mem.New()
	seedDemoPath(store)

	hub := realtime.NewHub()
	boards := leaderboard.NewBoards()
	svc := progression.New(
		progression.WithStore(store),
		progression.WithRealtime(hub),
		progression.WithLeaderboard(boards),
	)

	svc.Subscribe(core.EventAchievementUnlocked, func(_ context.Context, e core.Event) {
		slog.Info("achievement unlocked", "user", e.UserID, "achievement", e.Achievement)
	})

	handler := httpapi.NewMux(svc, hub, boards, httpapi.Options{})

	slog.Info("starting demo server on :8080")

	if err := http.ListenAndServe(":8080", handler); err != nil {
		slog.Error("demo server crashed", "error", err)
		os.Exit(1)
	}
}

func seedDemoPath(store *mem.Store) {
	store.SeedPath(core.SportPath{Key: "aerial", Name: "Aerial Silks", FreeLevels: 2, Published: true}, []core.Level{
		{
			ID: "l1", Path: "aerial", Sequence: 1, Name: "Foundations", Status: core.LevelPublished,
			Figures: []core.Figure{
				{ID: "invert", LevelID: "l1", Name: "Basic Invert", Sublevel: 1},
				{ID: "foot-lock", LevelID: "l1", Name: "Foot Lock", Sublevel: 1},
				{ID: "climb", LevelID: "l1", Name: "Russian Climb", Sublevel: 2},
				{ID: "star", LevelID: "l1", Name: "Star Drop", Boss: true, Difficulty: core.DifficultyIntermediate},
			},
			Trainings:    []core.TrainingLink{{TrainingID: "conditioning-1"}},
			Achievements: []core.AchievementID{"first-level"},
		},
		{
			ID: "l2", Path: "aerial", Sequence: 2, Name: "Drops", PointThreshold: 4, Status: core.LevelPublished,
			Figures: []core.Figure{
				{ID: "salto", LevelID: "l2", Name: "Salto", Sublevel: 1},
				{ID: "double-star", LevelID: "l2", Name: "Double Star", Sublevel: 2, Difficulty: core.DifficultyAdvanced},
			},
		},
	})
}

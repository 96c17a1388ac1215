package sdk

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	mem "skillpath/adapters/memory"
	"skillpath/api/httpapi"
	"skillpath/core"
	"skillpath/engine"
	"skillpath/leaderboard"
	"skillpath/progression"
	"skillpath/realtime"
)

// newTestServer stands up the real API surface over an in-memory store.
func newTestServer() *httptest.Server {
	store := mem.New()
	store.SeedPath(core.SportPath{Key: "aerial", Name: "Aerial Silks", FreeLevels: 2}, []core.Level{
		{
			ID: "l1", Path: "aerial", Sequence: 1, Status: core.LevelPublished,
			Figures: []core.Figure{
				{ID: "f1", LevelID: "l1", Sublevel: 1},
				{ID: "f2", LevelID: "l1", Sublevel: 1},
			},
			Achievements: []core.AchievementID{"first-level"},
		},
	})
	hub := realtime.NewHub()
	boards := leaderboard.NewBoards()
	svc := progression.New(
		progression.WithStore(store),
		progression.WithRealtime(hub),
		progression.WithLeaderboard(boards),
		progression.WithDispatchMode(engine.DispatchSync),
	)
	handler := httpapi.NewMux(svc, hub, boards, httpapi.Options{PathPrefix: "/api"})
	return httptest.NewServer(handler)
}

func TestClient_EvaluateAndRecord(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	client, err := NewClient(srv.URL+"/api", WithAPIKey("k1"))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	ctx := context.Background()

	eval, err := client.EvaluatePath(ctx, "alice", "aerial", EvaluateParams{})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if eval.UserID != "alice" || eval.Mode != "free_tier" {
		t.Fatalf("unexpected evaluation: %+v", eval)
	}

	eval, err = client.RecordFigure(ctx, "alice", "aerial", "f1", "completed")
	if err != nil {
		t.Fatalf("record figure: %v", err)
	}
	if len(eval.Levels) != 1 || eval.Levels[0].Progress != 50 {
		t.Fatalf("unexpected progress: %+v", eval.Levels)
	}

	if _, err := client.RecordTraining(ctx, "alice", "aerial", "l1", "t1"); err != nil {
		t.Fatalf("record training: %v", err)
	}
	if _, err := client.RecordChallenge(ctx, "alice", "aerial", ChallengeUpdate{
		ChallengeID: "c1", Participating: true, Completed: true, Status: "finished",
	}); err != nil {
		t.Fatalf("record challenge: %v", err)
	}

	entries, err := client.Leaderboard(ctx, "aerial", 5)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 1 || entries[0].User != "alice" {
		t.Fatalf("unexpected leaderboard: %+v", entries)
	}

	health, err := client.Health(ctx)
	if err != nil || health.Status != "healthy" {
		t.Fatalf("health: %+v err=%v", health, err)
	}
}

func TestClient_Achievements(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	client, err := NewClient(srv.URL + "/api")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	ctx := context.Background()

	owned, err := client.Achievements(ctx, "bob")
	if err != nil {
		t.Fatalf("achievements: %v", err)
	}
	if len(owned) != 0 {
		t.Fatalf("expected no achievements yet, got %v", owned)
	}

	// completing every figure finishes the level and awards its achievement
	for _, f := range []string{"f1", "f2"} {
		if _, err := client.RecordFigure(ctx, "bob", "aerial", f, "completed"); err != nil {
			t.Fatalf("record figure %s: %v", f, err)
		}
	}
	owned, err = client.Achievements(ctx, "bob")
	if err != nil {
		t.Fatalf("achievements: %v", err)
	}
	if len(owned) != 1 || owned[0] != "first-level" {
		t.Fatalf("unexpected achievements: %v", owned)
	}
}

func TestClient_EvaluateUnknownPath(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	client, err := NewClient(srv.URL + "/api")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.EvaluatePath(context.Background(), "alice", "bogus", EvaluateParams{}); err == nil {
		t.Fatal("expected error for unknown path")
	}
}

func TestClient_SubscribeEvents(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	client, err := NewClient(srv.URL + "/api")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	events, err := client.SubscribeEvents(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if _, err := client.RecordFigure(ctx, "alice", "aerial", "f1", "completed"); err != nil {
		t.Fatalf("record figure: %v", err)
	}

	for {
		select {
		case evt := <-events:
			if evt.Type == core.EventFigureRecorded && evt.UserID == "alice" {
				return
			}
		case <-ctx.Done():
			t.Fatal("timed out waiting for event")
		}
	}
}

package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLite(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return store
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	store := openStore(t)
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("second ensure schema: %v", err)
	}
}

func TestSummaryCountsChampions(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	for i, reached := range []string{"complete", "dialogue", "complete"} {
		id := []string{"s1", "s2", "s3"}[i]
		start := base.Add(time.Duration(i) * time.Hour)
		if err := store.StartSession(ctx, Session{ID: id, ScriptTitle: "GenAisis", StartTS: start}); err != nil {
			t.Fatalf("start session: %v", err)
		}
		if err := store.RecordStage(ctx, StageEvent{SessionID: id, From: "preloader", To: "welcome", TS: start}); err != nil {
			t.Fatalf("record stage: %v", err)
		}
		if err := store.RecordAttempt(ctx, Attempt{SessionID: id, Stage: "dialogue", Kind: AttemptChat, TS: start}); err != nil {
			t.Fatalf("record attempt: %v", err)
		}
		if err := store.FinishSession(ctx, id, reached, start.Add(5*time.Minute)); err != nil {
			t.Fatalf("finish: %v", err)
		}
	}
	if err := store.RecordAttempt(ctx, Attempt{SessionID: "s3", Stage: "outcome-simulation", Kind: AttemptUpload, Passed: true, TS: base}); err != nil {
		t.Fatal(err)
	}
	for _, v := range []float64{72.5, 91.25} {
		if err := store.RecordScore(ctx, Score{SessionID: "s3", Value: v, Tier: "x", TS: base}); err != nil {
			t.Fatalf("record score: %v", err)
		}
	}

	sum, err := store.GetSummary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.Sessions != 3 || sum.Champions != 2 || sum.Attempts != 3 || sum.Uploads != 1 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if sum.BestScore != 91.25 {
		t.Fatalf("expected best score 91.25, got %v", sum.BestScore)
	}
	if !sum.LastPlayed.Equal(base.Add(2 * time.Hour)) {
		t.Fatalf("unexpected last played %v", sum.LastPlayed)
	}

	last, err := store.GetLastSession(ctx)
	if err != nil {
		t.Fatalf("last session: %v", err)
	}
	if last == nil || last.ID != "s3" || !last.Completed || last.Attempts != 2 || last.BestScore != 91.25 {
		t.Fatalf("unexpected last session %+v", last)
	}
}

func TestEmptyStore(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	sum, err := store.GetSummary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Sessions != 0 || !sum.LastPlayed.IsZero() {
		t.Fatalf("expected empty summary, got %+v", sum)
	}
	last, err := store.GetLastSession(ctx)
	if err != nil || last != nil {
		t.Fatalf("expected no last session, got %+v err=%v", last, err)
	}
}

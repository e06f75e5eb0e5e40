package audit

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"dailyreport/infrastructure/sqlite"
	"dailyreport/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := sqlite.OpenDB(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if _, err := sqlite.ApplyEmbeddedMigrations(context.Background(), db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	s := NewService(db)
	clock := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func TestBeginAndFinishSuccess(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	run, err := s.Begin(ctx, Start{ID: "run-1", Kind: "PendingReport", Format: "pdf", Scope: "lot-7", Params: map[string]string{"lotNo": "7"}})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if run.Status != models.ExportGenerating {
		t.Fatalf("expected generating, got %s", run.Status)
	}
	if err := s.Finish(ctx, "run-1", Outcome{RowCount: 12, ByteSize: 2048}); err != nil {
		t.Fatalf("finish: %v", err)
	}

	got, err := s.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.ExportSucceeded || got.RowCount != 12 || got.ByteSize != 2048 {
		t.Fatalf("unexpected run %+v", got)
	}
	if got.FinishedAt == nil || got.Duration() != time.Second {
		t.Fatalf("expected finished one second after start, got %+v", got.FinishedAt)
	}
	if got.ParamsJSON != `{"lotNo":"7"}` {
		t.Fatalf("unexpected params json %q", got.ParamsJSON)
	}
}

func TestFinishFailureAndDoubleFinish(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	run, err := s.Begin(ctx, Start{Kind: "ProcessProductionReport", Format: "xlsx", Scope: "undated"})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if run.ID == "" {
		t.Fatalf("expected generated id")
	}
	if err := s.Finish(ctx, run.ID, Outcome{Err: errors.New("render failed")}); err != nil {
		t.Fatalf("finish: %v", err)
	}
	got, err := s.Get(ctx, run.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.ExportFailed || got.Error != "render failed" {
		t.Fatalf("unexpected run %+v", got)
	}

	if err := s.Finish(ctx, run.ID, Outcome{}); !errors.Is(err, ErrAlreadyFinished) {
		t.Fatalf("expected ErrAlreadyFinished, got %v", err)
	}
	if err := s.Finish(ctx, "missing", Outcome{}); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound from Get, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if _, err := s.Begin(ctx, Start{ID: id, Kind: "k", Format: "pdf", Scope: "s"}); err != nil {
			t.Fatalf("begin %s: %v", id, err)
		}
	}
	runs, err := s.List(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Fatalf("unexpected order %+v", runs)
	}
}

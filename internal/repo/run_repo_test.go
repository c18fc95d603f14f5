package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-tgstats/internal/domain"
)

func TestRunLifecycle(t *testing.T) {
	db := newTestDB(t, &domain.HarvestRun{}, &domain.HarvestProbe{})
	ctx := context.Background()
	start := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	r, err := CreateRun(ctx, db, 5, "scheduler", start)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if len(r.ID) != 36 || r.Status != domain.RunRunning {
		t.Fatalf("unexpected run: %+v", r)
	}

	fin := start.Add(time.Minute)
	r.Status = domain.RunSucceeded
	r.FinishedAt = &fin
	r.Observed = 3
	r.Inserted = 2
	if err := FinishRun(ctx, db, r); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	got, err := GetRun(ctx, db, r.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != domain.RunSucceeded || got.Observed != 3 || got.Inserted != 2 || got.FinishedAt == nil {
		t.Fatalf("run not finished: %+v", got)
	}

	// counters can go back to zero
	r.Inserted = 0
	if err := FinishRun(ctx, db, r); err != nil {
		t.Fatalf("FinishRun zero: %v", err)
	}
	got, _ = GetRun(ctx, db, r.ID)
	if got.Inserted != 0 {
		t.Fatalf("expected zero counter to be stored, got %d", got.Inserted)
	}

	probes := []domain.HarvestProbe{
		{RunID: r.ID, ProbeKey: "a", Pages: 2, Entities: 3, NewEntities: 3},
		{RunID: r.ID, ProbeKey: "b", Pages: 1, Entities: 2, NewEntities: 1, Error: "timeout"},
	}
	if err := CreateProbes(ctx, db, probes); err != nil {
		t.Fatalf("CreateProbes: %v", err)
	}
	if err := CreateProbes(ctx, db, nil); err != nil {
		t.Fatalf("CreateProbes(nil): %v", err)
	}
	ps, err := ListProbes(ctx, db, r.ID)
	if err != nil || len(ps) != 2 || ps[0].ProbeKey != "a" || ps[1].Error != "timeout" {
		t.Fatalf("ListProbes: %+v %v", ps, err)
	}
}

func TestListRunsPage_NewestFirst(t *testing.T) {
	db := newTestDB(t, &domain.HarvestRun{})
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if _, err := CreateRun(ctx, db, 9, "api", base.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("CreateRun: %v", err)
		}
	}
	if _, err := CreateRun(ctx, db, 10, "api", base); err != nil {
		t.Fatalf("CreateRun other: %v", err)
	}

	n, err := CountRuns(ctx, db, 9)
	if err != nil || n != 3 {
		t.Fatalf("CountRuns = %d, %v", n, err)
	}
	runs, err := ListRunsPage(ctx, db, 9, 0, 2)
	if err != nil || len(runs) != 2 {
		t.Fatalf("ListRunsPage: %v %v", runs, err)
	}
	if !runs[0].StartedAt.After(runs[1].StartedAt) {
		t.Fatalf("expected newest first: %v then %v", runs[0].StartedAt, runs[1].StartedAt)
	}
}

func TestFinishRun_Missing(t *testing.T) {
	db := newTestDB(t, &domain.HarvestRun{})
	r := &domain.HarvestRun{ID: "00000000-0000-0000-0000-000000000000", Status: domain.RunFailed}
	if err := FinishRun(context.Background(), db, r); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

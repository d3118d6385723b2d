package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/ctxslim/ctxslim/internal/engine"
	"github.com/ctxslim/ctxslim/internal/plan"
	"github.com/ctxslim/ctxslim/internal/rules"
	"github.com/ctxslim/ctxslim/internal/store"
)

const workerDoc = `# Current Sprint

- [ ] migrate the billing tables

# Q1 2023 Planning

The first quarter effort focused on migrating billing off the legacy
schema. We profiled the slowest queries, split the invoice table, and
moved reporting onto replicas. The rollout finished on 2023-01-15 and
the dashboards were handed to the platform group. The budget closed on
2023-03-01 after two revisions, and the retrospective called out slow
reviews as the main schedule risk for the following cycle.
`

func workerFixture(t *testing.T) (*Worker, *store.Store) {
	t.Helper()
	log := slog.New(slog.DiscardHandler)

	cfg := engine.DefaultConfig()
	cfg.Now = func() time.Time { return time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC) }
	eng := engine.New(cfg, rules.DefaultRules(), log)

	db, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewWorker(eng, db, log), db
}

func TestWorker_ProcessCompletesJob(t *testing.T) {
	w, db := workerFixture(t)

	job := newTestJob(NewJobID())
	job.Strategy = plan.StrategyConservative
	job.SetContent(workerDoc)

	w.Process(context.Background(), job)

	if job.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (error: %s)", job.Status, job.Error)
	}
	res := job.Result
	if res == nil {
		t.Fatal("expected a result")
	}
	if res.ScoreAfter <= res.ScoreBefore {
		t.Errorf("expected score to improve, before=%d after=%d", res.ScoreBefore, res.ScoreAfter)
	}
	if res.TokensSaved <= 0 {
		t.Errorf("expected token savings, got %d", res.TokensSaved)
	}
	if strings.Contains(res.Content, "retrospective") {
		t.Error("stale content must be gone from the result")
	}

	if len(res.ArchiveIDs) != 1 {
		t.Fatalf("expected 1 archive id, got %d", len(res.ArchiveIDs))
	}
	saved, err := db.GetArchive(res.ArchiveIDs[0])
	if err != nil {
		t.Fatalf("archive not persisted: %v", err)
	}
	if saved.SectionName != "Q1 2023 Planning" {
		t.Errorf("unexpected archived section %q", saved.SectionName)
	}

	history, err := db.RecentAnalyses(10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].ID != job.ID {
		t.Errorf("expected one history row for the job, got %+v", history)
	}
}

func TestWorker_ProcessFailsOnBadInput(t *testing.T) {
	w, _ := workerFixture(t)

	job := newTestJob(NewJobID())
	job.SetContent("bad \xff input")

	w.Process(context.Background(), job)

	if job.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", job.Status)
	}
	if job.Error == "" {
		t.Error("expected an error message")
	}
}

func TestOrchestrator_SubmitQueueFull(t *testing.T) {
	// No workers started: the queue only drains on Start.
	o := &Orchestrator{
		jobs:  NewJobStore(time.Hour),
		queue: make(chan *Job, 1),
	}

	if err := o.Submit(newTestJob("a")); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	overflow := newTestJob("b")
	if err := o.Submit(overflow); err == nil {
		t.Fatal("expected an error once the queue is full")
	}
	if overflow.Status != StatusFailed {
		t.Errorf("expected the overflow job marked failed, got %s", overflow.Status)
	}
	if o.GetJob("b") == nil {
		t.Error("the failed job should still be pollable")
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected queue depth 1, got %d", o.QueueDepth())
	}
}

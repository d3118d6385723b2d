package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ctxslim/ctxslim/internal/engine"
	"github.com/ctxslim/ctxslim/internal/store"
)

// NewJobID returns a fresh job identifier.
func NewJobID() string {
	return uuid.NewString()
}

// Worker processes a single optimization job: analyze, plan+apply, persist.
type Worker struct {
	eng *engine.Engine
	db  *store.Store
	log *slog.Logger
}

func NewWorker(eng *engine.Engine, db *store.Store, log *slog.Logger) *Worker {
	return &Worker{eng: eng, db: db, log: log}
}

// Process runs the full optimization for a job. The engine stages are pure;
// all persistence happens here.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "source_file", job.SourceFile)

	job.SetStatus(StatusAnalyzing, "analyzing document")
	analysis, err := w.eng.Analyze(job.Content())
	if err != nil {
		log.Error("analysis failed", "error", err)
		job.Fail("analyzing", err.Error())
		return
	}

	strategy := job.Strategy
	if strategy == "" {
		strategy = analysis.Strategy
	}

	job.SetStatus(StatusPlanning, "planning edits")
	outcome, err := w.eng.Optimize(analysis, strategy, job.SourceFile)
	if err != nil {
		log.Error("optimization failed", "error", err)
		job.Fail("planning", err.Error())
		return
	}

	job.SetStatus(StatusApplying, "persisting results")

	archiveIDs := make([]string, 0, len(outcome.Archives))
	for _, a := range outcome.Archives {
		if err := w.db.SaveArchive(a); err != nil {
			log.Error("saving archive failed", "archive_id", a.ID, "error", err)
			job.Fail("applying", err.Error())
			return
		}
		archiveIDs = append(archiveIDs, a.ID)
	}

	scoreAfter, err := w.eng.Score(outcome.Result.Content)
	if err != nil {
		// The optimized output always reparses; treat a failure here as a bug.
		log.Error("rescore failed", "error", err)
		scoreAfter = analysis.Score
	}

	rec := store.AnalysisRecord{
		ID:               job.ID,
		SourceFile:       job.SourceFile,
		Score:            analysis.Score,
		TotalTokens:      analysis.Summary.TotalTokens,
		IssuesCount:      analysis.Summary.IssuesCount,
		EstimatedSavings: analysis.Summary.EstimatedSavings,
		Strategy:         string(strategy),
		CreatedAt:        time.Now(),
	}
	if err := w.db.SaveAnalysis(rec); err != nil {
		log.Error("saving analysis failed", "error", err)
		job.Fail("applying", err.Error())
		return
	}

	job.Complete(&JobResult{
		ScoreBefore:  analysis.Score,
		ScoreAfter:   scoreAfter,
		LinesRemoved: outcome.Result.LinesRemoved,
		TokensSaved:  outcome.Result.TokensSaved,
		Actions:      outcome.Result.Applied,
		ArchiveIDs:   archiveIDs,
		Content:      outcome.Result.Content,
	})
	log.Info("optimization complete",
		"strategy", strategy,
		"score_before", analysis.Score,
		"score_after", scoreAfter,
		"tokens_saved", outcome.Result.TokensSaved,
		"archives", len(archiveIDs),
	)
}

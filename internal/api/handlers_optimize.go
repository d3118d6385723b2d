package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ctxslim/ctxslim/internal/pipeline"
	"github.com/ctxslim/ctxslim/internal/plan"
)

type optimizeRequest struct {
	Content    string `json:"content"`
	SourceFile string `json:"source_file"`
	Strategy   string `json:"strategy,omitempty"`
}

// handleOptimize submits an asynchronous optimization job.
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if err := decodeJSON(w, r, &req, s.cfg.MaxUploadBytes); err != nil {
		return
	}
	if req.SourceFile == "" {
		jsonError(w, "source_file is required", http.StatusBadRequest)
		return
	}

	strategy := plan.Strategy(req.Strategy)
	if req.Strategy != "" && !strategy.Valid() {
		jsonError(w, fmt.Sprintf("unknown strategy %q", req.Strategy), http.StatusBadRequest)
		return
	}

	now := time.Now()
	job := &pipeline.Job{
		ID:         pipeline.NewJobID(),
		SourceFile: req.SourceFile,
		Strategy:   strategy,
		Status:     pipeline.StatusQueued,
		Phase:      "queued",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	job.SetContent(req.Content)

	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   job.ID,
		"status":   pipeline.StatusQueued,
		"poll_url": fmt.Sprintf("/api/optimize/%s", job.ID),
	})
}

func (s *Server) handleOptimizeStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	writeJSON(w, http.StatusOK, snap)
}

package pipeline

import (
	"sync"
	"time"

	"github.com/ctxslim/ctxslim/internal/apply"
	"github.com/ctxslim/ctxslim/internal/plan"
)

// JobStatus represents the state of an optimization job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusAnalyzing JobStatus = "analyzing"
	StatusPlanning  JobStatus = "planning"
	StatusApplying  JobStatus = "applying"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// JobResult is the completed job's summary, shaped for JSON polling.
type JobResult struct {
	ScoreBefore  int                   `json:"score_before"`
	ScoreAfter   int                   `json:"score_after"`
	LinesRemoved int                   `json:"lines_removed"`
	TokensSaved  int                   `json:"tokens_saved"`
	Actions      []apply.AppliedAction `json:"actions"`
	ArchiveIDs   []string              `json:"archive_ids"`
	Content      string                `json:"content"`
}

// Job tracks the state of a single asynchronous optimization.
type Job struct {
	mu sync.Mutex

	ID         string        `json:"job_id"`
	SourceFile string        `json:"source_file"`
	Strategy   plan.Strategy `json:"strategy"`

	Status JobStatus  `json:"status"`
	Phase  string     `json:"phase"`
	Error  string     `json:"error,omitempty"`
	Result *JobResult `json:"result,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	content string
}

// SetContent attaches the document content the worker will process.
func (j *Job) SetContent(content string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.content = content
}

// Content returns the attached document content.
func (j *Job) Content() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.content
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// Fail marks the job failed with an error message.
func (j *Job) Fail(phase, msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = StatusFailed
	j.Phase = phase
	j.Error = msg
	j.UpdatedAt = time.Now()
}

// Complete records the result and marks the job done. The content is
// dropped from the internal field once the result carries it.
func (j *Job) Complete(res *JobResult) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = StatusCompleted
	j.Phase = "done"
	j.Result = res
	j.content = ""
	j.UpdatedAt = time.Now()
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID         string        `json:"job_id"`
	SourceFile string        `json:"source_file"`
	Strategy   plan.Strategy `json:"strategy"`
	Status     JobStatus     `json:"status"`
	Phase      string        `json:"phase"`
	Error      string        `json:"error,omitempty"`
	Result     *JobResult    `json:"result,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state. Result is set
// once by Complete and never mutated after, so sharing the pointer is
// safe.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return JobSnapshot{
		ID:         j.ID,
		SourceFile: j.SourceFile,
		Strategy:   j.Strategy,
		Status:     j.Status,
		Phase:      j.Phase,
		Error:      j.Error,
		Result:     j.Result,
		CreatedAt:  j.CreatedAt,
		UpdatedAt:  j.UpdatedAt,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.UpdatedAt) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

package drive

import (
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Status is an upload job's lifecycle state.
type Status string

const (
	StatusPreparing Status = "preparing"
	StatusUploading Status = "uploading"
	StatusComplete  Status = "complete"
	StatusError     Status = "error"
)

// Snapshot is one observable point of an upload's progress.
type Snapshot struct {
	JobID     string  `json:"job_id"`
	Filename  string  `json:"filename"`
	Folder    string  `json:"folder"`
	Status    Status  `json:"status"`
	Total     int64   `json:"total_bytes"`
	Sent      int64   `json:"sent_bytes"`
	Percent   float64 `json:"percent"`
	Rate      float64 `json:"rate_bytes_per_sec"`
	ShareLink string  `json:"share_link,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// Job is session-scoped upload state. It lives only in the registry; nothing
// is persisted and a restart forgets all jobs.
type Job struct {
	mu       sync.Mutex
	snapshot Snapshot
	events   chan Snapshot
}

// Snapshot returns a copy of the job's current state.
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snapshot
}

// Events is the coalesced stream of progress snapshots.
func (j *Job) Events() <-chan Snapshot {
	return j.events
}

func (j *Job) update(fn func(*Snapshot)) {
	j.mu.Lock()
	fn(&j.snapshot)
	snap := j.snapshot
	j.mu.Unlock()

	// Drop the event rather than block the transfer on a slow consumer.
	select {
	case j.events <- snap:
	default:
	}
}

func (j *Job) terminal() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snapshot.Status == StatusComplete || j.snapshot.Status == StatusError
}

// Registry tracks in-flight jobs. Entries expire an hour after their last
// write and are removed by the cache sweep.
type Registry struct {
	mu   sync.Mutex
	jobs *gocache.Cache
}

func NewRegistry() *Registry {
	return &Registry{jobs: gocache.New(time.Hour, 10*time.Minute)}
}

// Start registers a new job. A second start for a live job id is rejected;
// uploads are single-flight per id.
func (r *Registry) Start(id, filename, folder string, total int64) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.jobs.Get(id); ok {
		if job := existing.(*Job); !job.terminal() {
			return nil, fmt.Errorf("upload %s already in flight", id)
		}
	}

	job := &Job{
		snapshot: Snapshot{
			JobID:    id,
			Filename: filename,
			Folder:   folder,
			Status:   StatusPreparing,
			Total:    total,
		},
		events: make(chan Snapshot, 16),
	}
	r.jobs.SetDefault(id, job)
	return job, nil
}

// Get returns a live job by id.
func (r *Registry) Get(id string) (*Job, bool) {
	v, ok := r.jobs.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*Job), true
}

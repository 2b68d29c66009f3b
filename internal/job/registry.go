package job

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/paperforge/paperforge/constants"
)

// Registry is the process-wide job table. It is the single writer for all job
// state: workers never mutate a job directly, they report through the
// controller which calls into these methods. Every method takes the lock, so
// Snapshot is always safe to call concurrently with pipeline execution.
type Registry struct {
	mu         sync.Mutex
	jobs       map[uuid.UUID]*record
	retention  time.Duration
	maxEntries int
	logger     *slog.Logger
	now        func() time.Time
}

func NewRegistry(retention time.Duration, maxEntries int, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	if maxEntries <= 0 {
		maxEntries = 2_000
	}
	return &Registry{
		jobs:       make(map[uuid.UUID]*record),
		retention:  retention,
		maxEntries: maxEntries,
		logger:     logger,
		now:        time.Now,
	}
}

// Create registers a new queued job and returns its id.
func (r *Registry) Create(title string, fileCount, questionCount int) uuid.UUID {
	id := uuid.New()
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[id] = &record{
		id:            id,
		title:         title,
		status:        constants.JobStatusQueued,
		label:         "Queued",
		fileCount:     fileCount,
		questionCount: questionCount,
		createdAt:     now,
		updatedAt:     now,
		polledAt:      now,
	}
	return id
}

// Snapshot returns the latest known view of a job. The only mutation is the
// poll timestamp, kept for retention bookkeeping.
func (r *Registry) Snapshot(id uuid.UUID) (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.jobs[id]
	if !ok {
		return Snapshot{}, false
	}
	rec.polledAt = r.now()
	return rec.snapshot(), true
}

// Exists reports whether the job is known. Unlike Snapshot it does not touch
// the poll timestamp, so retention bookkeeping is unaffected.
func (r *Registry) Exists(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.jobs[id]
	return ok
}

// Cancel sets the cooperative cancellation flag. It returns false for unknown
// or already-terminal jobs. The pipeline observes the flag at stage boundaries
// and before dispatching each unit of parallel work.
func (r *Registry) Cancel(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.jobs[id]
	if !ok || rec.status.Terminal() {
		return false
	}
	rec.cancelled = true
	rec.updatedAt = r.now()
	return true
}

// Cancelled reports the cooperative flag for a job.
func (r *Registry) Cancelled(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.jobs[id]
	return ok && rec.cancelled
}

// Start moves a queued job to running.
func (r *Registry) Start(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.jobs[id]
	if !ok || rec.status != constants.JobStatusQueued {
		return
	}
	rec.status = constants.JobStatusRunning
	rec.updatedAt = r.now()
}

// SetStage records the stage a running job entered.
func (r *Registry) SetStage(id uuid.UUID, stage constants.Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.jobs[id]
	if !ok || rec.status.Terminal() {
		return
	}
	rec.stage = stage
	rec.updatedAt = r.now()
}

// SetProgress updates percent (monotonic), step and label. Safe to call often.
func (r *Registry) SetProgress(id uuid.UUID, percent, step int, label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.jobs[id]
	if !ok || rec.status.Terminal() {
		return
	}
	if percent > rec.percent {
		rec.percent = percent
	}
	if step > 0 {
		rec.step = step
	}
	if label != "" {
		rec.label = label
	}
	rec.updatedAt = r.now()
}

// AddWarning appends a user-visible warning to the job.
func (r *Registry) AddWarning(id uuid.UUID, warning string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.jobs[id]; ok {
		rec.warnings = append(rec.warnings, warning)
		rec.updatedAt = r.now()
	}
}

// SetTiming records how long a stage took.
func (r *Registry) SetTiming(id uuid.UUID, stage constants.Stage, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.jobs[id]; ok {
		if rec.timings == nil {
			rec.timings = make(map[constants.Stage]time.Duration)
		}
		rec.timings[stage] = d
		rec.updatedAt = r.now()
	}
}

// SetArtifact records the path of a produced artifact.
func (r *Registry) SetArtifact(id uuid.UUID, kind ArtifactKind, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.jobs[id]; ok {
		if rec.artifacts == nil {
			rec.artifacts = make(map[ArtifactKind]string)
		}
		rec.artifacts[kind] = path
		rec.updatedAt = r.now()
	}
}

// Succeed marks a job terminally successful.
func (r *Registry) Succeed(id uuid.UUID) {
	r.finish(id, constants.JobStatusSucceeded, 100, "Ready to download", nil)
}

// Fail marks a job terminally failed with a typed reason.
func (r *Registry) Fail(id uuid.UUID, code, message, diagnostic string) {
	r.finish(id, constants.JobStatusFailed, 98, "An error occurred", &Failure{
		Code:       code,
		Message:    message,
		Diagnostic: diagnostic,
	})
}

// MarkCancelled marks a job terminally cancelled.
func (r *Registry) MarkCancelled(id uuid.UUID) {
	r.finish(id, constants.JobStatusCancelled, 0, "Cancelled", nil)
}

func (r *Registry) finish(id uuid.UUID, status constants.JobStatus, percent int, label string, f *Failure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.jobs[id]
	if !ok || rec.status.Terminal() {
		return
	}
	rec.status = status
	if percent > rec.percent {
		rec.percent = percent
	}
	rec.label = label
	rec.failure = f
	rec.updatedAt = r.now()
}

// MostRecentCompleted returns the newest successfully finished job, for
// clients that lost track of their job id.
func (r *Registry) MostRecentCompleted() (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *record
	for _, rec := range r.jobs {
		if rec.status != constants.JobStatusSucceeded {
			continue
		}
		if best == nil || rec.updatedAt.After(best.updatedAt) {
			best = rec
		}
	}
	if best == nil {
		return Snapshot{}, false
	}
	return best.snapshot(), true
}

// Prune drops jobs past the retention window, and when the table outgrows
// maxEntries, the least recently polled half of it. Returns how many jobs
// were removed.
func (r *Registry) Prune() int {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, rec := range r.jobs {
		if now.Sub(rec.polledAt) > r.retention && rec.status.Terminal() {
			delete(r.jobs, id)
			removed++
		}
	}
	if len(r.jobs) > r.maxEntries {
		ids := make([]uuid.UUID, 0, len(r.jobs))
		for id := range r.jobs {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool {
			return r.jobs[ids[i]].polledAt.Before(r.jobs[ids[j]].polledAt)
		})
		for _, id := range ids[:len(ids)/2] {
			delete(r.jobs, id)
			removed++
		}
	}
	if removed > 0 {
		r.logger.Debug("registry pruned", "removed", removed, "remaining", len(r.jobs))
	}
	return removed
}

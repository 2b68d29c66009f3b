package job

import (
	"time"

	"github.com/google/uuid"

	"github.com/paperforge/paperforge/constants"
)

// ArtifactKind names a downloadable result of a finished job.
type ArtifactKind string

const (
	ArtifactQuestions ArtifactKind = "questions"
	ArtifactAnswers   ArtifactKind = "answers"
	ArtifactManifest  ArtifactKind = "manifest"
)

// Failure carries the typed reason and diagnostic text for a failed job.
type Failure struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Diagnostic string `json:"diagnostic,omitempty"`
}

// Snapshot is the immutable view returned to pollers. It is copied out of the
// registry under the lock, so callers can hold it without racing the pipeline.
type Snapshot struct {
	ID            uuid.UUID                         `json:"id"`
	Title         string                            `json:"title"`
	Status        constants.JobStatus               `json:"status"`
	Stage         constants.Stage                   `json:"stage,omitempty"`
	Percent       int                               `json:"percent"`
	Step          int                               `json:"step"`
	Label         string                            `json:"label"`
	FileCount     int                               `json:"file_count"`
	QuestionCount int                               `json:"question_count"`
	Warnings      []string                          `json:"warnings,omitempty"`
	Artifacts     map[ArtifactKind]string           `json:"artifacts,omitempty"`
	Timings       map[constants.Stage]time.Duration `json:"timings,omitempty"`
	Failure       *Failure                          `json:"failure,omitempty"`
	CreatedAt     time.Time                         `json:"created_at"`
	UpdatedAt     time.Time                         `json:"updated_at"`
}

// Done reports whether the job reached a terminal state.
func (s Snapshot) Done() bool {
	return s.Status.Terminal()
}

// record is the registry-owned mutable state for one job.
type record struct {
	id            uuid.UUID
	title         string
	status        constants.JobStatus
	stage         constants.Stage
	percent       int
	step          int
	label         string
	fileCount     int
	questionCount int
	warnings      []string
	artifacts     map[ArtifactKind]string
	timings       map[constants.Stage]time.Duration
	failure       *Failure
	cancelled     bool
	createdAt     time.Time
	updatedAt     time.Time
	polledAt      time.Time
}

func (r *record) snapshot() Snapshot {
	s := Snapshot{
		ID:            r.id,
		Title:         r.title,
		Status:        r.status,
		Stage:         r.stage,
		Percent:       r.percent,
		Step:          r.step,
		Label:         r.label,
		FileCount:     r.fileCount,
		QuestionCount: r.questionCount,
		Failure:       r.failure,
		CreatedAt:     r.createdAt,
		UpdatedAt:     r.updatedAt,
	}
	if len(r.warnings) > 0 {
		s.Warnings = append([]string(nil), r.warnings...)
	}
	if len(r.artifacts) > 0 {
		s.Artifacts = make(map[ArtifactKind]string, len(r.artifacts))
		for k, v := range r.artifacts {
			s.Artifacts[k] = v
		}
	}
	if len(r.timings) > 0 {
		s.Timings = make(map[constants.Stage]time.Duration, len(r.timings))
		for k, v := range r.timings {
			s.Timings[k] = v
		}
	}
	return s
}

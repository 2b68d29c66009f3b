package constants

// JobStatus is the canonical lifecycle status for a job in the registry.
type JobStatus string

// Stable values (serialized in status snapshots).
const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded" // terminal, artifacts available
	JobStatusFailed    JobStatus = "failed"    // terminal failure
	JobStatusCancelled JobStatus = "cancelled" // terminal, cooperative cancel observed
)

// Terminal reports whether the status can no longer change.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed || s == JobStatusCancelled
}

// Stage identifies which pipeline stage a running job is in.
type Stage string

const (
	StageExtract   Stage = "extract"
	StageSummarize Stage = "summarize"
	StageGenerate  Stage = "generate"
	StageCompile   Stage = "compile"
)

// StageOrder is the one-directional stage sequence; no stage is re-entered.
var StageOrder = []Stage{StageExtract, StageSummarize, StageGenerate, StageCompile}

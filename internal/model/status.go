package model

import "fmt"

// ProjectStatus is the coarse lifecycle of a project.
type ProjectStatus string

const (
	ProjectDraft      ProjectStatus = "draft"
	ProjectProcessing ProjectStatus = "processing"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectFailed     ProjectStatus = "failed"
)

// ProcessingStatus tracks a project's position inside the pipeline,
// independent of the coarse status.
type ProcessingStatus string

const (
	ProcessingIdle             ProcessingStatus = "idle"
	ProcessingAnalyzing        ProcessingStatus = "analyzing"
	ProcessingGeneratingScript ProcessingStatus = "generating_script"
	ProcessingRendering        ProcessingStatus = "rendering"
	ProcessingCompleted        ProcessingStatus = "completed"
	ProcessingFailed           ProcessingStatus = "failed"
)

// JobStatus is the lifecycle of a render job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRendering JobStatus = "rendering"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Terminal reports whether a job status can no longer change.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// CanStartStage reports whether a new pipeline stage may begin from the
// given processing status. Terminal states are re-enterable: a completed
// or failed project can start a fresh analyze/script/render cycle.
func CanStartStage(from, stage ProcessingStatus) bool {
	switch stage {
	case ProcessingAnalyzing, ProcessingGeneratingScript, ProcessingRendering:
	default:
		return false
	}
	switch from {
	case ProcessingIdle, ProcessingCompleted, ProcessingFailed:
		return true
	}
	return false
}

// CanTransition reports whether a processing status may move to the next.
func CanTransition(from, to ProcessingStatus) bool {
	switch from {
	case ProcessingIdle, ProcessingCompleted, ProcessingFailed:
		return CanStartStage(from, to)
	case ProcessingAnalyzing, ProcessingGeneratingScript, ProcessingRendering:
		return to == ProcessingCompleted || to == ProcessingFailed
	}
	return false
}

// ValidateTransition returns ErrInvalidTransition when the move is illegal.
func ValidateTransition(from, to ProcessingStatus) error {
	if from == to {
		return nil
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// CanTransitionJob reports whether a render job status may move to the next.
func CanTransitionJob(from, to JobStatus) bool {
	switch from {
	case JobQueued:
		return to == JobRendering || to == JobFailed
	case JobRendering:
		return to == JobCompleted || to == JobFailed
	}
	return false
}

// ValidateJobTransition returns ErrInvalidTransition when the move is illegal.
func ValidateJobTransition(from, to JobStatus) error {
	if from == to {
		return nil
	}
	if !CanTransitionJob(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// CoarseFor projects a processing status onto the coarse project status
// used by listings. Keeping the mapping in one place makes the illegal
// pair "completed project with failed pipeline" unrepresentable.
func CoarseFor(s ProcessingStatus) ProjectStatus {
	switch s {
	case ProcessingAnalyzing, ProcessingGeneratingScript, ProcessingRendering:
		return ProjectProcessing
	case ProcessingCompleted:
		return ProjectCompleted
	case ProcessingFailed:
		return ProjectFailed
	}
	return ProjectDraft
}

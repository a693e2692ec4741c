package entities

// RunState is the lifecycle of one script run.
type RunState string

const (
	// RunStateIdle means Run has not been called yet.
	RunStateIdle RunState = "idle"

	// RunStateRunning covers linking, evaluation and draining.
	RunStateRunning RunState = "running"

	// RunStateCompleted means the entry evaluated and no work is left.
	RunStateCompleted RunState = "completed"

	// RunStateFailed is terminal and carries the originating error.
	RunStateFailed RunState = "failed"
)

// Terminal reports whether no further transition is possible.
func (s RunState) Terminal() bool {
	return s == RunStateCompleted || s == RunStateFailed
}

package models

import "time"

type StepStatus string

const (
	PendingStepStatus   StepStatus = "pending"
	RunningStepStatus   StepStatus = "running"
	CompletedStepStatus StepStatus = "completed"
	FailedStepStatus    StepStatus = "failed"
	SkippedStepStatus   StepStatus = "skipped"
)

// Step is one named unit of work within a workflow. A step belongs to
// exactly one workflow and is never shared.
type Step struct {
	ID         string     `json:"id"`                    // Stable identifier within the workflow (e.g. "gather_sources")
	Name       string     `json:"name"`                  // Human-readable name surfaced to the UI
	Status     StepStatus `json:"status"`                // "pending", "running", "completed", "failed", "skipped"
	StartedAt  *time.Time `json:"started_at,omitempty"`  // Nullable start time
	FinishedAt *time.Time `json:"finished_at,omitempty"` // Nullable end time
	Output     string     `json:"output,omitempty"`      // Step output consumed by later steps
	Error      string     `json:"error,omitempty"`       // Failure message (optional)
	Logs       []string   `json:"logs,omitempty"`        // Ordered execution log lines
}

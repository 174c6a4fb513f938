package models

import "time"

type WorkflowStatus string

const (
	PendingWorkflowStatus   WorkflowStatus = "pending"
	RunningWorkflowStatus   WorkflowStatus = "running"
	CompletedWorkflowStatus WorkflowStatus = "completed"
	FailedWorkflowStatus    WorkflowStatus = "failed"
)

// AgentType names a pipeline configuration: which steps run for a task
// and how each step's content is produced.
type AgentType string

const (
	ResearchAgent     AgentType = "research"
	NotesAgent        AgentType = "notes"
	DocumentAgent     AgentType = "document"
	ResumeAgent       AgentType = "resume"
	PresentationAgent AgentType = "presentation"
)

// AgentTypes lists every registered agent type. Order matters for
// keyword-based detection: earlier entries win ties.
var AgentTypes = []AgentType{
	ResearchAgent, NotesAgent, DocumentAgent, ResumeAgent, PresentationAgent,
}

// ValidAgentType reports whether s names a known agent type.
func ValidAgentType(s string) bool {
	for _, at := range AgentTypes {
		if string(at) == s {
			return true
		}
	}
	return false
}

// Workflow is a single task's end-to-end execution record. It is created
// at task submission, mutated only by the pipeline executing it, and
// terminal once status is completed or failed.
type Workflow struct {
	ID               string         `json:"id" db:"id"`                                 // UUID
	SessionID        string         `json:"session_id" db:"session_id"`                 // Owning chat session (may be empty for CLI runs)
	AgentType        AgentType      `json:"agent_type" db:"agent_type"`                 // Pipeline configuration that ran this task
	Task             string         `json:"task" db:"task"`                             // User-submitted task text
	Status           WorkflowStatus `json:"status" db:"status"`                         // "pending", "running", "completed", "failed"
	Steps            []Step         `json:"steps" db:"steps"`                           // Ordered step records
	CurrentStepIndex int            `json:"current_step_index" db:"current_step_index"` // Index of the step being executed
	Progress         float64        `json:"progress" db:"progress"`                     // completedSteps/totalSteps*100
	Result           *TaskResult    `json:"result,omitempty" db:"result"`               // Final synthesized result, nil until terminal
	Confidence       float64        `json:"confidence" db:"confidence"`                 // Heuristic confidence of the final result
	StartedAt        time.Time      `json:"started_at" db:"started_at"`                 // Creation timestamp
	CompletedAt      *time.Time     `json:"completed_at,omitempty" db:"completed_at"`   // Nullable terminal timestamp
}

// Terminal reports whether the workflow has reached a final status.
func (w Workflow) Terminal() bool {
	return w.Status == CompletedWorkflowStatus || w.Status == FailedWorkflowStatus
}

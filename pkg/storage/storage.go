package storage

import (
	"github.com/pkg/errors"

	"github.com/Dhuruvm/brevia/pkg/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the persistence operations for Brevia. Both the
// postgres-backed store and the in-memory store implement it with an
// identical shape. Begin returns a transactional view of the store;
// the in-memory implementation treats transactions as no-ops.
type Store interface {
	Begin() (Store, error)
	Commit() error
	Rollback() error
	Close() error

	// Workflow operations
	SaveWorkflow(w models.Workflow) error
	GetWorkflow(id string) (models.Workflow, error)
	UpdateWorkflowStatus(id string, status models.WorkflowStatus) error
	UpdateWorkflowSteps(id string, steps []models.Step, currentStep int, progress float64) error
	UpdateWorkflowResult(id string, result models.TaskResult, confidence float64) error
	ListActiveWorkflows() ([]models.Workflow, error)

	// Session operations
	SaveSession(s models.Session) error
	GetSession(id string) (models.Session, error)
	ListSessions() ([]models.Session, error)

	// Message operations
	SaveMessage(m models.Message) error
	ListMessages(sessionID string) ([]models.Message, error)

	// Source operations
	SaveSource(src models.Source) error
	ListSources(workflowID string) ([]models.Source, error)
}

package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/Dhuruvm/brevia/pkg/models"
	"github.com/Dhuruvm/brevia/pkg/storage"
)

type DBInterface interface {
	Get(dest interface{}, query string, args ...interface{}) error
	Select(dest interface{}, query string, args ...interface{}) error
	QueryRowx(query string, args ...interface{}) *sqlx.Row
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// PostgresStore implements storage.Store on top of sqlx. Step lists,
// results and message metadata are stored as JSONB columns.
type PostgresStore struct {
	db DBInterface
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Begin() (storage.Store, error) {
	if db, ok := s.db.(*sqlx.DB); ok {
		tx, err := db.Beginx()
		if err != nil {
			return nil, err
		}
		return &PostgresStore{db: tx}, nil
	}
	return nil, errors.New("cannot begin transaction on unknown type")
}

func (s *PostgresStore) Commit() error {
	if tx, ok := s.db.(*sqlx.Tx); ok {
		return tx.Commit()
	}
	return errors.New("cannot commit: not a transaction")
}

func (s *PostgresStore) Rollback() error {
	if tx, ok := s.db.(*sqlx.Tx); ok {
		return tx.Rollback()
	}
	return errors.New("cannot rollback: not a transaction")
}

func (s *PostgresStore) Close() error {
	if db, ok := s.db.(*sqlx.DB); ok {
		return db.Close()
	}
	return nil // No-op for *sqlx.Tx
}

type workflowRow struct {
	ID               string     `db:"id"`
	SessionID        string     `db:"session_id"`
	AgentType        string     `db:"agent_type"`
	Task             string     `db:"task"`
	Status           string     `db:"status"`
	Steps            []byte     `db:"steps"`
	CurrentStepIndex int        `db:"current_step_index"`
	Progress         float64    `db:"progress"`
	Result           []byte     `db:"result"`
	Confidence       float64    `db:"confidence"`
	StartedAt        time.Time  `db:"started_at"`
	CompletedAt      *time.Time `db:"completed_at"`
}

func (r workflowRow) toModel() (models.Workflow, error) {
	wf := models.Workflow{
		ID:               r.ID,
		SessionID:        r.SessionID,
		AgentType:        models.AgentType(r.AgentType),
		Task:             r.Task,
		Status:           models.WorkflowStatus(r.Status),
		CurrentStepIndex: r.CurrentStepIndex,
		Progress:         r.Progress,
		Confidence:       r.Confidence,
		StartedAt:        r.StartedAt,
		CompletedAt:      r.CompletedAt,
	}
	if len(r.Steps) > 0 {
		if err := json.Unmarshal(r.Steps, &wf.Steps); err != nil {
			return models.Workflow{}, fmt.Errorf("decode steps for workflow %s: %w", r.ID, err)
		}
	}
	if len(r.Result) > 0 {
		var result models.TaskResult
		if err := json.Unmarshal(r.Result, &result); err != nil {
			return models.Workflow{}, fmt.Errorf("decode result for workflow %s: %w", r.ID, err)
		}
		wf.Result = &result
	}
	return wf, nil
}

// SaveWorkflow creates a new workflow record.
func (s *PostgresStore) SaveWorkflow(w models.Workflow) error {
	steps, err := json.Marshal(w.Steps)
	if err != nil {
		return fmt.Errorf("encode steps: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO workflows (id, session_id, agent_type, task, status, steps, current_step_index, progress, confidence, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		w.ID, w.SessionID, w.AgentType, w.Task, w.Status, steps, w.CurrentStepIndex, w.Progress, w.Confidence, w.StartedAt)
	if err != nil {
		return fmt.Errorf("save workflow: %w", err)
	}
	return nil
}

// GetWorkflow retrieves a workflow by ID, including its step records.
func (s *PostgresStore) GetWorkflow(id string) (models.Workflow, error) {
	var row workflowRow
	err := s.db.Get(&row, "SELECT * FROM workflows WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return models.Workflow{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Workflow{}, err
	}
	return row.toModel()
}

func (s *PostgresStore) UpdateWorkflowStatus(id string, status models.WorkflowStatus) error {
	_, err := s.db.Exec(`
		UPDATE workflows
		SET status = $1,
		completed_at = CASE WHEN $2 IN ('completed', 'failed') THEN CURRENT_TIMESTAMP ELSE completed_at END
		WHERE id = $3`,
		status, status, id)
	return err
}

func (s *PostgresStore) UpdateWorkflowSteps(id string, steps []models.Step, currentStep int, progress float64) error {
	encoded, err := json.Marshal(steps)
	if err != nil {
		return fmt.Errorf("encode steps: %w", err)
	}
	_, err = s.db.Exec("UPDATE workflows SET steps = $1, current_step_index = $2, progress = $3 WHERE id = $4",
		encoded, currentStep, progress, id)
	return err
}

func (s *PostgresStore) UpdateWorkflowResult(id string, result models.TaskResult, confidence float64) error {
	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = s.db.Exec("UPDATE workflows SET result = $1, confidence = $2 WHERE id = $3",
		encoded, confidence, id)
	return err
}

func (s *PostgresStore) ListActiveWorkflows() ([]models.Workflow, error) {
	var rows []workflowRow
	err := s.db.Select(&rows, "SELECT * FROM workflows WHERE status IN ('pending', 'running') ORDER BY started_at")
	if err != nil {
		return nil, err
	}
	workflows := make([]models.Workflow, 0, len(rows))
	for _, row := range rows {
		wf, err := row.toModel()
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, wf)
	}
	return workflows, nil
}

func (s *PostgresStore) SaveSession(sess models.Session) error {
	_, err := s.db.Exec("INSERT INTO sessions (id, title, created_at) VALUES ($1, $2, $3)",
		sess.ID, sess.Title, sess.CreatedAt)
	return err
}

func (s *PostgresStore) GetSession(id string) (models.Session, error) {
	var sess models.Session
	err := s.db.Get(&sess, "SELECT * FROM sessions WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return models.Session{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Session{}, err
	}
	return sess, nil
}

func (s *PostgresStore) ListSessions() ([]models.Session, error) {
	sessions := []models.Session{}
	err := s.db.Select(&sessions, "SELECT * FROM sessions ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

type messageRow struct {
	ID        string    `db:"id"`
	SessionID string    `db:"session_id"`
	Role      string    `db:"role"`
	Content   string    `db:"content"`
	Metadata  []byte    `db:"metadata"`
	CreatedAt time.Time `db:"created_at"`
}

func (s *PostgresStore) SaveMessage(m models.Message) error {
	if _, err := s.GetSession(m.SessionID); err != nil {
		return err
	}
	var metadata []byte
	if m.Metadata != nil {
		var err error
		metadata, err = json.Marshal(m.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
	}
	_, err := s.db.Exec("INSERT INTO messages (id, session_id, role, content, metadata, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
		m.ID, m.SessionID, m.Role, m.Content, metadata, m.CreatedAt)
	return err
}

func (s *PostgresStore) ListMessages(sessionID string) ([]models.Message, error) {
	if _, err := s.GetSession(sessionID); err != nil {
		return nil, err
	}
	var rows []messageRow
	err := s.db.Select(&rows, "SELECT * FROM messages WHERE session_id = $1 ORDER BY created_at, id", sessionID)
	if err != nil {
		return nil, err
	}
	msgs := make([]models.Message, 0, len(rows))
	for _, row := range rows {
		msg := models.Message{
			ID:        row.ID,
			SessionID: row.SessionID,
			Role:      row.Role,
			Content:   row.Content,
			CreatedAt: row.CreatedAt,
		}
		if len(row.Metadata) > 0 {
			if err := json.Unmarshal(row.Metadata, &msg.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata for message %s: %w", row.ID, err)
			}
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (s *PostgresStore) SaveSource(src models.Source) error {
	_, err := s.db.Exec(`
		INSERT INTO sources (id, workflow_id, title, url, credibility_score, relevance_score, content)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		src.ID, src.WorkflowID, src.Title, src.URL, src.CredibilityScore, src.RelevanceScore, src.Content)
	return err
}

func (s *PostgresStore) ListSources(workflowID string) ([]models.Source, error) {
	sources := []models.Source{}
	err := s.db.Select(&sources, "SELECT * FROM sources WHERE workflow_id = $1 ORDER BY credibility_score DESC", workflowID)
	if err != nil {
		return nil, err
	}
	return sources, nil
}

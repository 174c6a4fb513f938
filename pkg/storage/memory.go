package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/Dhuruvm/brevia/pkg/models"
)

// MemoryStore implements Store with mutex-guarded maps. It backs unit
// tests and API-key-free local runs. Each workflow record is owned by a
// single pipeline invocation, so read-modify-write per record is
// sufficient; the mutex only protects the maps themselves.
type MemoryStore struct {
	mu        sync.RWMutex
	workflows map[string]models.Workflow
	sessions  map[string]models.Session
	messages  map[string][]models.Message // keyed by session ID, append-only
	sources   map[string][]models.Source  // keyed by workflow ID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		workflows: make(map[string]models.Workflow),
		sessions:  make(map[string]models.Session),
		messages:  make(map[string][]models.Message),
		sources:   make(map[string][]models.Source),
	}
}

// Begin returns the store itself: the in-memory implementation is not
// transactional, matching the non-transactional read-modify-write
// semantics the service layer is written against.
func (m *MemoryStore) Begin() (Store, error) { return m, nil }

func (m *MemoryStore) Commit() error   { return nil }
func (m *MemoryStore) Rollback() error { return nil }
func (m *MemoryStore) Close() error    { return nil }

func (m *MemoryStore) SaveWorkflow(w models.Workflow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workflows[w.ID] = cloneWorkflow(w)
	return nil
}

func (m *MemoryStore) GetWorkflow(id string) (models.Workflow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.workflows[id]
	if !ok {
		return models.Workflow{}, ErrNotFound
	}
	return cloneWorkflow(w), nil
}

func (m *MemoryStore) UpdateWorkflowStatus(id string, status models.WorkflowStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workflows[id]
	if !ok {
		return ErrNotFound
	}
	w.Status = status
	if w.Terminal() {
		now := time.Now()
		w.CompletedAt = &now
	}
	m.workflows[id] = w
	return nil
}

func (m *MemoryStore) UpdateWorkflowSteps(id string, steps []models.Step, currentStep int, progress float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workflows[id]
	if !ok {
		return ErrNotFound
	}
	w.Steps = cloneSteps(steps)
	w.CurrentStepIndex = currentStep
	w.Progress = progress
	m.workflows[id] = w
	return nil
}

func (m *MemoryStore) UpdateWorkflowResult(id string, result models.TaskResult, confidence float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workflows[id]
	if !ok {
		return ErrNotFound
	}
	r := result
	w.Result = &r
	w.Confidence = confidence
	m.workflows[id] = w
	return nil
}

func (m *MemoryStore) ListActiveWorkflows() ([]models.Workflow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var active []models.Workflow
	for _, w := range m.workflows {
		if !w.Terminal() {
			active = append(active, cloneWorkflow(w))
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].StartedAt.Before(active[j].StartedAt) })
	return active, nil
}

func (m *MemoryStore) SaveSession(s models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *MemoryStore) GetSession(id string) (models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return models.Session{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) ListSessions() ([]models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sessions := make([]models.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].CreatedAt.Before(sessions[j].CreatedAt) })
	return sessions, nil
}

func (m *MemoryStore) SaveMessage(msg models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[msg.SessionID]; !ok {
		return ErrNotFound
	}
	m.messages[msg.SessionID] = append(m.messages[msg.SessionID], msg)
	return nil
}

func (m *MemoryStore) ListMessages(sessionID string) ([]models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.sessions[sessionID]; !ok {
		return nil, ErrNotFound
	}
	msgs := make([]models.Message, len(m.messages[sessionID]))
	copy(msgs, m.messages[sessionID])
	return msgs, nil
}

func (m *MemoryStore) SaveSource(src models.Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[src.WorkflowID] = append(m.sources[src.WorkflowID], src)
	return nil
}

func (m *MemoryStore) ListSources(workflowID string) ([]models.Source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	srcs := make([]models.Source, len(m.sources[workflowID]))
	copy(srcs, m.sources[workflowID])
	return srcs, nil
}

// cloneWorkflow deep-copies the slices so callers never share step
// backing arrays with the store.
func cloneWorkflow(w models.Workflow) models.Workflow {
	w.Steps = cloneSteps(w.Steps)
	if w.Result != nil {
		r := *w.Result
		w.Result = &r
	}
	return w
}

func cloneSteps(steps []models.Step) []models.Step {
	out := make([]models.Step, len(steps))
	copy(out, steps)
	for i := range out {
		logs := make([]string, len(steps[i].Logs))
		copy(logs, steps[i].Logs)
		out[i].Logs = logs
	}
	return out
}

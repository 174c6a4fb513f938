package orchestrator_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/Dhuruvm/brevia/pkg/agent"
	"github.com/Dhuruvm/brevia/pkg/completion"
	"github.com/Dhuruvm/brevia/pkg/models"
	"github.com/Dhuruvm/brevia/pkg/orchestrator"
	"github.com/Dhuruvm/brevia/pkg/storage"
)

type logger struct{}

func (l logger) Infof(format string, args ...interface{}) {
	// no-op
}

func (l logger) Errorf(format string, args ...interface{}) {
	// no-op
}

// stubClient fakes the completion endpoint.
type stubClient struct {
	response string
	err      error
}

func (s stubClient) Complete(ctx context.Context, prompt string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s stubClient) Model() string { return "stub-model" }

func newOrchestrator(store storage.Store, client completion.Client) *orchestrator.Orchestrator {
	registry := agent.NewRegistry(client, store, logger{})
	return orchestrator.New(store, registry, client, logger{}, 0, 0)
}

// unavailable mimics a missing API key: every call fails with
// ErrUnavailable so all template fallback paths are taken.
var unavailable = stubClient{err: completion.ErrUnavailable}

func newSession(t *testing.T, store storage.Store) string {
	t.Helper()
	id := uuid.NewString()
	assert.NoError(t, store.SaveSession(models.Session{ID: id, Title: "test", CreatedAt: time.Now()}))
	return id
}

func TestDetectAgentType(t *testing.T) {
	store := storage.NewMemoryStore()

	t.Run("KeywordFallbackWhenUnavailable", func(t *testing.T) {
		orch := newOrchestrator(store, unavailable)
		assert.Equal(t, models.ResearchAgent, orch.DetectAgentType(context.Background(), "please research the history of X"))
		assert.Equal(t, models.NotesAgent, orch.DetectAgentType(context.Background(), "Take notes on photosynthesis"))
		assert.Equal(t, models.ResumeAgent, orch.DetectAgentType(context.Background(), "polish my resume for a backend role"))
		assert.Equal(t, models.PresentationAgent, orch.DetectAgentType(context.Background(), "make slides about Q3 results"))
	})

	t.Run("DefaultsToResearch", func(t *testing.T) {
		orch := newOrchestrator(store, unavailable)
		assert.Equal(t, models.ResearchAgent, orch.DetectAgentType(context.Background(), "something entirely unmatched"))
	})

	t.Run("UsesCompletionLabel", func(t *testing.T) {
		orch := newOrchestrator(store, stubClient{response: "presentation"})
		assert.Equal(t, models.PresentationAgent, orch.DetectAgentType(context.Background(), "anything at all"))
	})

	t.Run("UnknownLabelFallsBackToKeywords", func(t *testing.T) {
		orch := newOrchestrator(store, stubClient{response: "poetry"})
		assert.Equal(t, models.NotesAgent, orch.DetectAgentType(context.Background(), "Take notes on photosynthesis"))
	})
}

func TestExecuteTask(t *testing.T) {
	t.Run("NotesEndToEndWithoutAPIKey", func(t *testing.T) {
		store := storage.NewMemoryStore()
		orch := newOrchestrator(store, unavailable)
		sessionID := newSession(t, store)

		wf, err := orch.ExecuteTask(context.Background(), "Take notes on photosynthesis", "", sessionID)
		assert.NoError(t, err)
		assert.Equal(t, models.NotesAgent, wf.AgentType)
		assert.Equal(t, models.CompletedWorkflowStatus, wf.Status)
		assert.Equal(t, 100.0, wf.Progress)
		assert.NotNil(t, wf.CompletedAt)
		assert.NotNil(t, wf.Result)
		assert.True(t, wf.Result.Success)
		assert.NotEmpty(t, wf.Result.Content)
		assert.Contains(t, wf.Result.Content, "Notes")
		assert.Contains(t, wf.Result.Metadata.ModelsUsed, "template")

		msgs, err := store.ListMessages(sessionID)
		assert.NoError(t, err)
		assert.Len(t, msgs, 1)
		assert.Equal(t, "assistant", msgs[0].Role)
		assert.Equal(t, wf.Result.Content, msgs[0].Content)
		assert.Equal(t, wf.ID, msgs[0].Metadata["workflow_id"])
	})

	t.Run("ResearchPersistsScoredSources", func(t *testing.T) {
		store := storage.NewMemoryStore()
		orch := newOrchestrator(store, unavailable)

		wf, err := orch.ExecuteTask(context.Background(), "research the history of aviation", "research", "")
		assert.NoError(t, err)
		assert.Equal(t, models.CompletedWorkflowStatus, wf.Status)

		sources, err := store.ListSources(wf.ID)
		assert.NoError(t, err)
		assert.NotEmpty(t, sources)
		for _, s := range sources {
			assert.Equal(t, wf.ID, s.WorkflowID)
			assert.Greater(t, s.CredibilityScore, 0.0)
			assert.LessOrEqual(t, s.CredibilityScore, 1.0)
			assert.Greater(t, s.RelevanceScore, 0.0)
			assert.LessOrEqual(t, s.RelevanceScore, 1.0)
		}
		assert.Contains(t, wf.Result.Content, "Research Report")
	})

	t.Run("EveryAgentTypeCompletes", func(t *testing.T) {
		for _, at := range models.AgentTypes {
			store := storage.NewMemoryStore()
			orch := newOrchestrator(store, unavailable)

			wf, err := orch.ExecuteTask(context.Background(), "handle this task", string(at), "")
			assert.NoError(t, err, "agent %s", at)
			assert.Equal(t, models.CompletedWorkflowStatus, wf.Status, "agent %s", at)
			assert.NotNil(t, wf.Result, "agent %s", at)
			assert.NotEmpty(t, wf.Result.Content, "agent %s", at)
		}
	})

	t.Run("EmptyTaskRejected", func(t *testing.T) {
		store := storage.NewMemoryStore()
		orch := newOrchestrator(store, unavailable)
		_, err := orch.ExecuteTask(context.Background(), "   ", "", "")
		assert.Error(t, err)
	})

	t.Run("UnknownAgentTypeRejected", func(t *testing.T) {
		store := storage.NewMemoryStore()
		orch := newOrchestrator(store, unavailable)
		_, err := orch.ExecuteTask(context.Background(), "do something", "poetry", "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unknown agent type")
	})

	t.Run("TimeoutYieldsFailedWorkflowAndErrorMessage", func(t *testing.T) {
		store := storage.NewMemoryStore()
		registry := agent.NewRegistry(unavailable, store, logger{})
		orch := orchestrator.New(store, registry, unavailable, logger{}, time.Nanosecond, 0)
		sessionID := newSession(t, store)

		wf, err := orch.ExecuteTask(context.Background(), "Take notes on photosynthesis", "notes", sessionID)
		assert.Error(t, err)
		assert.Equal(t, models.FailedWorkflowStatus, wf.Status)

		msgs, msgErr := store.ListMessages(sessionID)
		assert.NoError(t, msgErr)
		assert.Len(t, msgs, 1)
		assert.Contains(t, msgs[0].Content, "Error: ")
	})
}

func TestCancelWorkflow(t *testing.T) {
	t.Run("PendingWorkflowForcedToFailed", func(t *testing.T) {
		store := storage.NewMemoryStore()
		orch := newOrchestrator(store, unavailable)

		id := uuid.NewString()
		assert.NoError(t, store.SaveWorkflow(models.Workflow{
			ID:        id,
			AgentType: models.NotesAgent,
			Task:      "stuck task",
			Status:    models.PendingWorkflowStatus,
			StartedAt: time.Now(),
		}))

		assert.NoError(t, orch.CancelWorkflow(id))
		wf, err := store.GetWorkflow(id)
		assert.NoError(t, err)
		assert.Equal(t, models.FailedWorkflowStatus, wf.Status)
	})

	t.Run("TerminalWorkflowRejected", func(t *testing.T) {
		store := storage.NewMemoryStore()
		orch := newOrchestrator(store, unavailable)

		wf, err := orch.ExecuteTask(context.Background(), "Take notes on photosynthesis", "notes", "")
		assert.NoError(t, err)

		err = orch.CancelWorkflow(wf.ID)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "already")
	})

	t.Run("UnknownWorkflowNotFound", func(t *testing.T) {
		store := storage.NewMemoryStore()
		orch := newOrchestrator(store, unavailable)
		err := orch.CancelWorkflow(uuid.NewString())
		assert.True(t, errors.Is(err, storage.ErrNotFound))
	})
}

func TestActiveWorkflows(t *testing.T) {
	store := storage.NewMemoryStore()
	orch := newOrchestrator(store, unavailable)

	wf, err := orch.ExecuteTask(context.Background(), "Take notes on photosynthesis", "notes", "")
	assert.NoError(t, err)

	active, err := orch.ActiveWorkflows()
	assert.NoError(t, err)
	for _, a := range active {
		assert.NotEqual(t, wf.ID, a.ID, "completed workflow must not be listed as active")
	}
}

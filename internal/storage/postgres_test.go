package storage_test

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalstorage "github.com/Dhuruvm/brevia/internal/storage"
	"github.com/Dhuruvm/brevia/internal/testutil"
	"github.com/Dhuruvm/brevia/pkg/models"
	"github.com/Dhuruvm/brevia/pkg/storage"
)

func setupStore(t *testing.T) (*internalstorage.PostgresStore, *testutil.TestDB) {
	t.Helper()
	td := testutil.SetupTestDB(t)
	store, err := internalstorage.NewPostgresStore(td.ConnStr)
	require.NoError(t, err)
	return store, td
}

func saveSession(t *testing.T, store *internalstorage.PostgresStore) models.Session {
	t.Helper()
	s := models.Session{ID: uuid.NewString(), Title: "New chat", CreatedAt: time.Now().UTC()}
	require.NoError(t, store.SaveSession(s))
	return s
}

func TestInitStore(t *testing.T) {
	td := testutil.SetupTestDB(t)
	defer td.Teardown(t)

	t.Run("MigratedSchemaAccepted", func(t *testing.T) {
		store, err := internalstorage.InitStore(td.ConnStr)
		require.NoError(t, err)
		defer store.Close()

		_, err = store.ListSessions()
		assert.NoError(t, err)
	})

	t.Run("UnmigratedDatabaseRejected", func(t *testing.T) {
		// the container's default "postgres" database never saw migrations
		connStr := strings.Replace(td.ConnStr, "/brevia_test?", "/postgres?", 1)
		_, err := internalstorage.InitStore(connStr)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "brevia-migrate")
	})
}

func TestPostgresWorkflowLifecycle(t *testing.T) {
	store, td := setupStore(t)
	defer td.Teardown(t)
	defer store.Close()

	session := saveSession(t, store)
	wf := models.Workflow{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		AgentType: models.NotesAgent,
		Task:      "Take notes on photosynthesis",
		Status:    models.PendingWorkflowStatus,
		StartedAt: time.Now().UTC(),
	}
	require.NoError(t, store.SaveWorkflow(wf))

	got, err := store.GetWorkflow(wf.ID)
	require.NoError(t, err)
	assert.Equal(t, wf.Task, got.Task)
	assert.Equal(t, models.PendingWorkflowStatus, got.Status)
	assert.Empty(t, got.Steps)
	assert.Nil(t, got.Result)
	assert.Nil(t, got.CompletedAt)

	// running: steps and progress persisted as JSONB
	require.NoError(t, store.UpdateWorkflowStatus(wf.ID, models.RunningWorkflowStatus))
	steps := []models.Step{
		{ID: "parse_topic", Name: "Parse topic", Status: models.CompletedStepStatus, Output: "topic"},
		{ID: "outline_notes", Name: "Outline notes", Status: models.RunningStepStatus},
		{ID: "compose_notes", Name: "Compose notes", Status: models.PendingStepStatus},
	}
	require.NoError(t, store.UpdateWorkflowSteps(wf.ID, steps, 1, 100.0/3))

	got, err = store.GetWorkflow(wf.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunningWorkflowStatus, got.Status)
	require.Len(t, got.Steps, 3)
	assert.Equal(t, "parse_topic", got.Steps[0].ID)
	assert.Equal(t, models.CompletedStepStatus, got.Steps[0].Status)
	assert.Equal(t, 1, got.CurrentStepIndex)
	assert.InDelta(t, 100.0/3, got.Progress, 0.001)
	assert.Nil(t, got.CompletedAt)

	// completion: result JSONB and completed_at stamp
	result := models.TaskResult{
		Success: true,
		Content: "# Notes: photosynthesis",
		Metadata: models.ResultMetadata{
			Confidence: 0.95,
			ModelsUsed: []string{"template"},
		},
	}
	require.NoError(t, store.UpdateWorkflowResult(wf.ID, result, 0.95))
	require.NoError(t, store.UpdateWorkflowStatus(wf.ID, models.CompletedWorkflowStatus))

	got, err = store.GetWorkflow(wf.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CompletedWorkflowStatus, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, "# Notes: photosynthesis", got.Result.Content)
	assert.Equal(t, []string{"template"}, got.Result.Metadata.ModelsUsed)
	assert.Equal(t, 0.95, got.Confidence)
	assert.NotNil(t, got.CompletedAt)

	_, err = store.GetWorkflow(uuid.NewString())
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestPostgresListActiveWorkflows(t *testing.T) {
	store, td := setupStore(t)
	defer td.Teardown(t)
	defer store.Close()

	base := time.Now().UTC()
	mk := func(status models.WorkflowStatus, started time.Time) string {
		id := uuid.NewString()
		require.NoError(t, store.SaveWorkflow(models.Workflow{
			ID: id, AgentType: models.ResearchAgent, Task: "t", Status: status, StartedAt: started,
		}))
		return id
	}
	oldID := mk(models.RunningWorkflowStatus, base.Add(-time.Hour))
	newID := mk(models.PendingWorkflowStatus, base)
	doneID := mk(models.PendingWorkflowStatus, base.Add(-2*time.Hour))
	require.NoError(t, store.UpdateWorkflowStatus(doneID, models.CompletedWorkflowStatus))

	active, err := store.ListActiveWorkflows()
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, oldID, active[0].ID)
	assert.Equal(t, newID, active[1].ID)
}

func TestPostgresSessionsAndMessages(t *testing.T) {
	store, td := setupStore(t)
	defer td.Teardown(t)
	defer store.Close()

	session := saveSession(t, store)

	got, err := store.GetSession(session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.Title, got.Title)

	_, err = store.GetSession(uuid.NewString())
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	first := models.Message{
		ID: uuid.NewString(), SessionID: session.ID, Role: "user",
		Content: "Take notes on photosynthesis", CreatedAt: time.Now().UTC(),
	}
	second := models.Message{
		ID: uuid.NewString(), SessionID: session.ID, Role: "assistant",
		Content:  "# Notes: photosynthesis",
		Metadata: map[string]string{"agent_type": "notes"},
		CreatedAt: time.Now().UTC().Add(time.Second),
	}
	require.NoError(t, store.SaveMessage(first))
	require.NoError(t, store.SaveMessage(second))

	msgs, err := store.ListMessages(session.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, first.Content, msgs[0].Content)
	assert.Nil(t, msgs[0].Metadata)
	assert.Equal(t, "assistant", msgs[1].Role)
	assert.Equal(t, "notes", msgs[1].Metadata["agent_type"])

	err = store.SaveMessage(models.Message{ID: uuid.NewString(), SessionID: uuid.NewString(), Role: "user", Content: "x", CreatedAt: time.Now().UTC()})
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	_, err = store.ListMessages(uuid.NewString())
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	sessions, err := store.ListSessions()
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestPostgresSources(t *testing.T) {
	store, td := setupStore(t)
	defer td.Teardown(t)
	defer store.Close()

	wf := models.Workflow{
		ID: uuid.NewString(), AgentType: models.ResearchAgent, Task: "research aviation",
		Status: models.RunningWorkflowStatus, StartedAt: time.Now().UTC(),
	}
	require.NoError(t, store.SaveWorkflow(wf))

	low := models.Source{
		ID: uuid.NewString(), WorkflowID: wf.ID, Title: "Aviation blog",
		URL: "https://aviationfan.blogspot.com/post", CredibilityScore: 0.35, RelevanceScore: 0.6,
	}
	high := models.Source{
		ID: uuid.NewString(), WorkflowID: wf.ID, Title: "Official data on aviation",
		URL: "https://www.data.gov/datasets/aviation", CredibilityScore: 0.95, RelevanceScore: 0.8,
		Content: "Government datasets on aviation.",
	}
	require.NoError(t, store.SaveSource(low))
	require.NoError(t, store.SaveSource(high))

	sources, err := store.ListSources(wf.ID)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	// ordered by credibility, best first
	assert.Equal(t, high.ID, sources[0].ID)
	assert.Equal(t, low.ID, sources[1].ID)

	sources, err = store.ListSources(uuid.NewString())
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func TestPostgresTransaction(t *testing.T) {
	store, td := setupStore(t)
	defer td.Teardown(t)
	defer store.Close()

	wf := models.Workflow{
		ID: uuid.NewString(), AgentType: models.NotesAgent, Task: "t",
		Status: models.RunningWorkflowStatus, StartedAt: time.Now().UTC(),
	}
	require.NoError(t, store.SaveWorkflow(wf))

	t.Run("CommitPersists", func(t *testing.T) {
		tx, err := store.Begin()
		require.NoError(t, err)
		steps := []models.Step{{ID: "s1", Name: "First", Status: models.CompletedStepStatus}}
		require.NoError(t, tx.UpdateWorkflowSteps(wf.ID, steps, 0, 100.0))
		require.NoError(t, tx.Commit())

		got, err := store.GetWorkflow(wf.ID)
		require.NoError(t, err)
		assert.Equal(t, 100.0, got.Progress)
	})

	t.Run("RollbackDiscards", func(t *testing.T) {
		tx, err := store.Begin()
		require.NoError(t, err)
		require.NoError(t, tx.UpdateWorkflowSteps(wf.ID, nil, 0, 0.0))
		require.NoError(t, tx.Rollback())

		got, err := store.GetWorkflow(wf.ID)
		require.NoError(t, err)
		assert.Equal(t, 100.0, got.Progress)
	})
}

// Package orchestrator routes a submitted task to the matching agent
// pipeline and manages the workflow's lifecycle. All collaborators are
// injected; the orchestrator holds no package-level state.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Dhuruvm/brevia/pkg/agent"
	"github.com/Dhuruvm/brevia/pkg/completion"
	"github.com/Dhuruvm/brevia/pkg/models"
	"github.com/Dhuruvm/brevia/pkg/pipeline"
	"github.com/Dhuruvm/brevia/pkg/storage"
)

const (
	// default workflow timeout is 5m
	DefaultWorkflowTimeout = 5 * time.Minute
)

// Orchestrator coordinates task execution. Each workflow runs in the
// calling goroutine; concurrent workflows share only the store, which
// is safe because every workflow owns a disjoint record.
type Orchestrator struct {
	store           storage.Store
	registry        *agent.Registry
	client          completion.Client
	logger          pipeline.Logger
	workflowTimeout time.Duration
	stepTimeout     time.Duration

	mu     sync.RWMutex
	active map[string]context.CancelFunc
}

func New(store storage.Store, registry *agent.Registry, client completion.Client, logger pipeline.Logger, workflowTimeout, stepTimeout time.Duration) *Orchestrator {
	if workflowTimeout <= 0 {
		workflowTimeout = DefaultWorkflowTimeout
	}
	return &Orchestrator{
		store:           store,
		registry:        registry,
		client:          client,
		logger:          logger,
		workflowTimeout: workflowTimeout,
		stepTimeout:     stepTimeout,
		active:          make(map[string]context.CancelFunc),
	}
}

// ExecuteTask creates a workflow for the task and runs its agent
// pipeline to completion under the workflow timeout. The returned
// workflow is always the persisted final state; err is non-nil when the
// workflow failed. Pipeline errors and panics are converted into a
// failed workflow, never propagated as a crash.
func (o *Orchestrator) ExecuteTask(ctx context.Context, task, agentType, sessionID string) (wf models.Workflow, err error) {
	task = strings.TrimSpace(task)
	if task == "" {
		return models.Workflow{}, errors.New("task cannot be empty")
	}

	at := models.AgentType(agentType)
	if agentType == "" {
		at = o.DetectAgentType(ctx, task)
	} else if !models.ValidAgentType(agentType) {
		return models.Workflow{}, fmt.Errorf("unknown agent type '%s'", agentType)
	}

	wf = models.Workflow{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		AgentType: at,
		Task:      task,
		Status:    models.PendingWorkflowStatus,
		StartedAt: time.Now(),
	}
	if err := o.store.SaveWorkflow(wf); err != nil {
		return models.Workflow{}, errors.Wrap(err, "failed to create workflow")
	}
	o.logger.Infof("Created workflow %s (agent=%s) for task %q", wf.ID, at, task)

	steps, err := o.registry.Steps(at, wf.ID)
	if err != nil {
		return o.finalizeFailed(wf.ID, sessionID, err)
	}

	runCtx, cancel := context.WithTimeout(ctx, o.workflowTimeout)
	o.register(wf.ID, cancel)
	defer func() {
		o.unregister(wf.ID)
		cancel()
		if r := recover(); r != nil {
			o.logger.Errorf("Workflow %s panicked: %v", wf.ID, r)
			wf, err = o.finalizeFailed(wf.ID, sessionID, fmt.Errorf("workflow panicked: %v", r))
		}
	}()

	if err := o.store.UpdateWorkflowStatus(wf.ID, models.RunningWorkflowStatus); err != nil {
		return o.finalizeFailed(wf.ID, sessionID, err)
	}

	result, err := pipeline.New(wf.ID, task, steps, o.store, o.logger, o.stepTimeout).Execute(runCtx)
	if err != nil {
		return o.finalizeFailed(wf.ID, sessionID, err)
	}

	if err := o.store.UpdateWorkflowResult(wf.ID, result, result.Metadata.Confidence); err != nil {
		return o.finalizeFailed(wf.ID, sessionID, err)
	}
	if err := o.store.UpdateWorkflowStatus(wf.ID, models.CompletedWorkflowStatus); err != nil {
		return o.finalizeFailed(wf.ID, sessionID, err)
	}
	o.appendMessage(sessionID, "assistant", result.Content, map[string]string{
		"agent_type":  string(at),
		"workflow_id": wf.ID,
	})
	o.logger.Infof("Workflow %s completed (confidence=%.2f)", wf.ID, result.Metadata.Confidence)

	return o.store.GetWorkflow(wf.ID)
}

// DetectAgentType classifies a task into one of the registered agent
// types. The completion endpoint is tried first; on any failure the
// keyword-containment fallback decides.
func (o *Orchestrator) DetectAgentType(ctx context.Context, task string) models.AgentType {
	prompt := fmt.Sprintf("Classify this task into exactly one label of: research, notes, document, resume, presentation. Reply with the label only.\nTask: %s", task)
	out, err := o.client.Complete(ctx, prompt)
	if err == nil {
		label := strings.ToLower(strings.TrimSpace(out))
		if fields := strings.Fields(label); len(fields) > 0 {
			label = strings.Trim(fields[0], ".,\"'")
		}
		if models.ValidAgentType(label) {
			return models.AgentType(label)
		}
		o.logger.Errorf("Completion returned unknown agent label %q, using keyword fallback", label)
	} else if !errors.Is(err, completion.ErrUnavailable) {
		o.logger.Errorf("Completion classification failed, using keyword fallback: %v", err)
	}
	return agent.KeywordDetect(task)
}

// CancelWorkflow cancels a running workflow and force-marks it failed.
// Cancellation is cooperative: the pipeline observes it at the next
// step boundary, so an in-flight completion call is not interrupted.
func (o *Orchestrator) CancelWorkflow(id string) error {
	o.mu.Lock()
	cancel, running := o.active[id]
	delete(o.active, id)
	o.mu.Unlock()
	if running {
		cancel()
	}

	wf, err := o.store.GetWorkflow(id)
	if err != nil {
		return err
	}
	if wf.Terminal() {
		return fmt.Errorf("workflow %s already %s", id, wf.Status)
	}
	if err := o.store.UpdateWorkflowStatus(id, models.FailedWorkflowStatus); err != nil {
		return errors.Wrapf(err, "failed to cancel workflow %s", id)
	}
	o.logger.Infof("Cancelled workflow %s", id)
	return nil
}

// GetWorkflow fetches a workflow with its step records.
func (o *Orchestrator) GetWorkflow(id string) (models.Workflow, error) {
	return o.store.GetWorkflow(id)
}

// ActiveWorkflows lists workflows that have not reached a terminal
// status, backed by the store rather than the in-memory handle map so
// the answer holds across instances.
func (o *Orchestrator) ActiveWorkflows() ([]models.Workflow, error) {
	return o.store.ListActiveWorkflows()
}

func (o *Orchestrator) register(id string, cancel context.CancelFunc) {
	o.mu.Lock()
	o.active[id] = cancel
	o.mu.Unlock()
}

func (o *Orchestrator) unregister(id string) {
	o.mu.Lock()
	delete(o.active, id)
	o.mu.Unlock()
}

// finalizeFailed marks the workflow failed and surfaces the error to
// the session as a chat message of the form "Error: <message>".
func (o *Orchestrator) finalizeFailed(id, sessionID string, cause error) (models.Workflow, error) {
	o.logger.Errorf("Workflow %s failed: %v", id, cause)
	if err := o.store.UpdateWorkflowStatus(id, models.FailedWorkflowStatus); err != nil {
		o.logger.Errorf("Failed to mark workflow %s as failed: %v", id, err)
	}
	o.appendMessage(sessionID, "assistant", "Error: "+cause.Error(), map[string]string{"workflow_id": id})

	wf, err := o.store.GetWorkflow(id)
	if err != nil {
		return models.Workflow{}, cause
	}
	return wf, cause
}

func (o *Orchestrator) appendMessage(sessionID, role, content string, metadata map[string]string) {
	if sessionID == "" {
		return
	}
	msg := models.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
	if err := o.store.SaveMessage(msg); err != nil {
		o.logger.Errorf("Failed to append %s message to session %s: %v", role, sessionID, err)
	}
}

package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/Dhuruvm/brevia/pkg/models"
	"github.com/Dhuruvm/brevia/pkg/storage"
)

const (
	// default step timeout is 1m
	DefaultStepTimeout = 60 * time.Second

	baseConfidence   = 0.95
	failurePenalty   = 0.15
	minConfidence    = 0.3
	charsPerTokenEst = 4
)

// Logger defines the logging interface for the pipeline.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// StepFunc produces a step's output from the accumulated context of all
// prior steps.
type StepFunc func(ctx context.Context, sc *StepContext) (string, error)

// StepDef declares one step of an agent pipeline. A step whose name
// contains "critical" or "required" (or with Critical set) aborts the
// whole pipeline on failure; any other failing step is replaced by a
// fallback output and execution continues.
type StepDef struct {
	ID       string
	Name     string
	Critical bool
	Run      StepFunc
}

func (d StepDef) critical() bool {
	name := strings.ToLower(d.Name)
	return d.Critical || strings.Contains(name, "critical") || strings.Contains(name, "required")
}

// Pipeline executes an ordered list of steps for one workflow, strictly
// sequentially, persisting every step transition together with the
// recomputed progress percentage.
type Pipeline struct {
	workflowID  string
	task        string
	steps       []StepDef
	store       storage.Store
	logger      Logger
	stepTimeout time.Duration
}

func New(workflowID, task string, steps []StepDef, store storage.Store, logger Logger, stepTimeout time.Duration) *Pipeline {
	if stepTimeout <= 0 {
		stepTimeout = DefaultStepTimeout
	}
	return &Pipeline{
		workflowID:  workflowID,
		task:        task,
		steps:       steps,
		store:       store,
		logger:      logger,
		stepTimeout: stepTimeout,
	}
}

// Execute runs every step in declared order exactly once. It returns
// the synthesized TaskResult, or an error when a critical step failed
// or the context was cancelled. The caller finalizes workflow status.
func (p *Pipeline) Execute(ctx context.Context) (models.TaskResult, error) {
	if len(p.steps) == 0 {
		return models.TaskResult{}, errors.New("pipeline has no steps")
	}
	start := time.Now()
	sc := NewStepContext(p.task)

	records := make([]models.Step, len(p.steps))
	for i, def := range p.steps {
		records[i] = models.Step{ID: def.ID, Name: def.Name, Status: models.PendingStepStatus}
	}
	if err := p.persist(records, 0); err != nil {
		return models.TaskResult{}, err
	}

	failures := 0
	for i, def := range p.steps {
		// Cancellation is cooperative: checked at every step boundary.
		if err := ctx.Err(); err != nil {
			p.skipFrom(records, i, "workflow cancelled")
			if persistErr := p.persist(records, i); persistErr != nil {
				p.logger.Errorf("Failed to persist cancelled steps for workflow %s: %v", p.workflowID, persistErr)
			}
			return models.TaskResult{}, errors.Wrapf(err, "workflow %s cancelled before step '%s'", p.workflowID, def.ID)
		}

		now := time.Now()
		records[i].Status = models.RunningStepStatus
		records[i].StartedAt = &now
		records[i].Logs = append(records[i].Logs, fmt.Sprintf("step '%s' started", def.ID))
		if err := p.persist(records, i); err != nil {
			return models.TaskResult{}, err
		}
		p.logger.Infof("Workflow %s: running step '%s' (%d/%d)", p.workflowID, def.ID, i+1, len(p.steps))

		output, err := p.runStep(ctx, def, sc)
		finished := time.Now()
		records[i].FinishedAt = &finished

		if err != nil {
			records[i].Status = models.FailedStepStatus
			records[i].Error = err.Error()
			records[i].Logs = append(records[i].Logs, "step failed: "+err.Error())
			p.logger.Errorf("Workflow %s: step '%s' failed: %v", p.workflowID, def.ID, err)

			if def.critical() {
				p.skipFrom(records, i+1, fmt.Sprintf("critical step '%s' failed", def.ID))
				if persistErr := p.persist(records, i); persistErr != nil {
					p.logger.Errorf("Failed to persist aborted steps for workflow %s: %v", p.workflowID, persistErr)
				}
				return models.TaskResult{}, errors.Wrapf(err, "critical step '%s' failed", def.ID)
			}

			// Non-critical failure: synthesize a fallback output so later
			// steps still find an entry for this step ID, then continue.
			failures++
			fallback := fmt.Sprintf("_%s produced no output; continuing with partial results._", def.Name)
			sc.record(def.ID, def.Name, fallback)
			if err := p.persist(records, i); err != nil {
				return models.TaskResult{}, err
			}
			continue
		}

		records[i].Status = models.CompletedStepStatus
		records[i].Output = output
		records[i].Logs = append(records[i].Logs, fmt.Sprintf("step '%s' completed", def.ID))
		sc.record(def.ID, def.Name, output)
		if err := p.persist(records, i); err != nil {
			return models.TaskResult{}, err
		}
	}

	return p.synthesize(sc, failures, time.Since(start)), nil
}

// runStep executes one step under the per-step timeout. The step runs
// in its own goroutine so a step function that ignores its context
// still cannot stall the pipeline past the deadline. Timeout and step
// error are treated identically by the caller.
func (p *Pipeline) runStep(ctx context.Context, def StepDef, sc *StepContext) (string, error) {
	stepCtx, cancel := context.WithTimeout(ctx, p.stepTimeout)
	defer cancel()

	type stepResult struct {
		out string
		err error
	}
	resultCh := make(chan stepResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- stepResult{err: fmt.Errorf("step panicked: %v", r)}
			}
		}()
		out, err := def.Run(stepCtx, sc)
		resultCh <- stepResult{out: out, err: err}
	}()

	select {
	case r := <-resultCh:
		return r.out, r.err
	case <-stepCtx.Done():
		return "", stepCtx.Err()
	}
}

func (p *Pipeline) skipFrom(records []models.Step, from int, reason string) {
	for i := from; i < len(records); i++ {
		if records[i].Status != models.PendingStepStatus && records[i].Status != models.RunningStepStatus {
			continue
		}
		records[i].Status = models.SkippedStepStatus
		records[i].Logs = append(records[i].Logs, "step skipped: "+reason)
	}
}

// persist writes the full step list and recomputed progress after every
// transition so pollers always see a consistent snapshot.
func (p *Pipeline) persist(records []models.Step, currentStep int) (err error) {
	txStore, err := p.store.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			if rollbackErr := txStore.Rollback(); rollbackErr != nil {
				p.logger.Errorf("Failed to rollback: %v", rollbackErr)
			}
			return
		}
		if commitErr := txStore.Commit(); commitErr != nil {
			p.logger.Errorf("Failed to commit: %v", commitErr)
			err = commitErr
		}
	}()

	if err = txStore.UpdateWorkflowSteps(p.workflowID, records, currentStep, Progress(records)); err != nil {
		return errors.Wrapf(err, "failed to persist steps for workflow %s", p.workflowID)
	}
	return nil
}

// Progress computes completedSteps/totalSteps*100. Failed and skipped
// steps never count as completed, so the value is monotonically
// non-decreasing while a workflow runs.
func Progress(steps []models.Step) float64 {
	if len(steps) == 0 {
		return 0
	}
	completed := 0
	for _, s := range steps {
		if s.Status == models.CompletedStepStatus {
			completed++
		}
	}
	return float64(completed) / float64(len(steps)) * 100
}

func (p *Pipeline) synthesize(sc *StepContext, failures int, elapsed time.Duration) models.TaskResult {
	var parts []string
	for _, out := range sc.Outputs() {
		parts = append(parts, out.Output)
	}
	content := strings.Join(parts, "\n\n")

	confidence := baseConfidence - failurePenalty*float64(failures)
	if confidence < minConfidence {
		confidence = minConfidence
	}
	return models.TaskResult{
		Success: true,
		Content: content,
		Metadata: models.ResultMetadata{
			Confidence:       confidence,
			ProcessingTimeMs: elapsed.Milliseconds(),
			TokensUsed:       len(content) / charsPerTokenEst,
			ModelsUsed:       sc.ModelsUsed(),
		},
	}
}

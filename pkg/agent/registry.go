// Package agent defines the registered agent personas: the ordered
// steps each one runs and the generators producing each step's content.
// Generators prefer the external completion endpoint when configured
// and otherwise emit deterministic markdown templates, so a pipeline
// always produces content.
package agent

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/Dhuruvm/brevia/pkg/completion"
	"github.com/Dhuruvm/brevia/pkg/models"
	"github.com/Dhuruvm/brevia/pkg/pipeline"
	"github.com/Dhuruvm/brevia/pkg/storage"
)

// Registry resolves agent types to pipeline step definitions. It is
// dependency-injected into the orchestrator rather than held in a
// package-level singleton.
type Registry struct {
	client completion.Client
	store  storage.Store
	logger pipeline.Logger
}

func NewRegistry(client completion.Client, store storage.Store, logger pipeline.Logger) *Registry {
	return &Registry{client: client, store: store, logger: logger}
}

// Steps returns the step definitions for an agent type, bound to the
// workflow that will execute them.
func (r *Registry) Steps(agentType models.AgentType, workflowID string) ([]pipeline.StepDef, error) {
	switch agentType {
	case models.ResearchAgent:
		return r.researchSteps(workflowID), nil
	case models.NotesAgent:
		return r.notesSteps(), nil
	case models.DocumentAgent:
		return r.documentSteps(), nil
	case models.ResumeAgent:
		return r.resumeSteps(), nil
	case models.PresentationAgent:
		return r.presentationSteps(), nil
	default:
		return nil, fmt.Errorf("unknown agent type '%s'", agentType)
	}
}

// generate tries the completion endpoint first and falls back to the
// deterministic template on any failure. External-call failures are
// never surfaced to the pipeline.
func (r *Registry) generate(ctx context.Context, sc *pipeline.StepContext, prompt string, fallback func() string) string {
	out, err := r.client.Complete(ctx, prompt)
	if err == nil {
		sc.RecordModel(r.client.Model())
		return out
	}
	if !errors.Is(err, completion.ErrUnavailable) {
		r.logger.Errorf("Completion call failed, falling back to template: %v", err)
	}
	sc.RecordModel("template")
	return fallback()
}

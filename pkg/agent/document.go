package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/Dhuruvm/brevia/pkg/pipeline"
)

func (r *Registry) documentSteps() []pipeline.StepDef {
	return []pipeline.StepDef{
		{ID: "analyze_requirements", Name: "Analyze requirements", Run: r.analyzeRequirements},
		{ID: "draft_sections", Name: "Draft sections", Run: r.draftSections},
		{ID: "finalize_document", Name: "Finalize document", Run: r.finalizeDocument},
	}
}

func (r *Registry) analyzeRequirements(ctx context.Context, sc *pipeline.StepContext) (string, error) {
	task := sc.Task()
	prompt := fmt.Sprintf("State the audience, tone, and required sections for the document task %q.", task)
	return r.generate(ctx, sc, prompt, func() string {
		return fmt.Sprintf("**Document brief:** %s\n\nAudience: general readers. Tone: clear and factual. Sections: introduction, body, conclusion.", strings.TrimSpace(task))
	}), nil
}

func (r *Registry) draftSections(ctx context.Context, sc *pipeline.StepContext) (string, error) {
	task := sc.Task()
	brief, _ := sc.Output("analyze_requirements")
	prompt := fmt.Sprintf("Draft the body sections for %q given this brief:\n%s", task, brief)
	return r.generate(ctx, sc, prompt, func() string {
		topic := strings.TrimSpace(task)
		return fmt.Sprintf(`## Introduction

This document addresses %s.

## Body

The main discussion of %s, organized from background to specifics.`, topic, topic)
	}), nil
}

func (r *Registry) finalizeDocument(ctx context.Context, sc *pipeline.StepContext) (string, error) {
	task := sc.Task()
	draft, _ := sc.Output("draft_sections")
	prompt := fmt.Sprintf("Polish and conclude this draft for %q:\n%s", task, draft)
	return r.generate(ctx, sc, prompt, func() string {
		return fmt.Sprintf(`# Document: %s

%s

## Conclusion

This concludes the document; revise the body sections with
domain-specific details before publishing.`, strings.TrimSpace(task), draft)
	}), nil
}

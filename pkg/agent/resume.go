package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/Dhuruvm/brevia/pkg/pipeline"
)

func (r *Registry) resumeSteps() []pipeline.StepDef {
	return []pipeline.StepDef{
		{ID: "collect_details", Name: "Collect details", Run: r.collectDetails},
		{ID: "structure_resume", Name: "Structure resume", Run: r.structureResume},
		{ID: "polish_resume", Name: "Polish resume", Run: r.polishResume},
	}
}

func (r *Registry) collectDetails(ctx context.Context, sc *pipeline.StepContext) (string, error) {
	task := sc.Task()
	prompt := fmt.Sprintf("Extract the candidate details and target role from the resume task %q.", task)
	return r.generate(ctx, sc, prompt, func() string {
		return fmt.Sprintf("**Resume request:** %s\n\nDetails inferred from the task; missing fields left as placeholders.", strings.TrimSpace(task))
	}), nil
}

func (r *Registry) structureResume(ctx context.Context, sc *pipeline.StepContext) (string, error) {
	task := sc.Task()
	details, _ := sc.Output("collect_details")
	prompt := fmt.Sprintf("Lay out resume sections for %q using:\n%s", task, details)
	return r.generate(ctx, sc, prompt, func() string {
		return `## Summary

Experienced professional aligned with the target role.

## Experience

- Most recent position, with measurable outcomes
- Earlier positions in reverse chronological order

## Skills

- Core competencies relevant to the role

## Education

- Degrees and certifications`
	}), nil
}

func (r *Registry) polishResume(ctx context.Context, sc *pipeline.StepContext) (string, error) {
	task := sc.Task()
	structured, _ := sc.Output("structure_resume")
	prompt := fmt.Sprintf("Tighten the wording of this resume for %q:\n%s", task, structured)
	return r.generate(ctx, sc, prompt, func() string {
		return fmt.Sprintf(`# Resume

%s

---
_Tailor each bullet to the job description for %s before sending._`, structured, strings.TrimSpace(task))
	}), nil
}

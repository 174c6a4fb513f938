package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/Dhuruvm/brevia/pkg/pipeline"
)

func (r *Registry) notesSteps() []pipeline.StepDef {
	return []pipeline.StepDef{
		{ID: "parse_topic", Name: "Parse topic", Run: r.parseTopic},
		{ID: "outline_notes", Name: "Outline notes", Run: r.outlineNotes},
		{ID: "compose_notes", Name: "Compose notes", Run: r.composeNotes},
	}
}

func (r *Registry) parseTopic(ctx context.Context, sc *pipeline.StepContext) (string, error) {
	task := sc.Task()
	prompt := fmt.Sprintf("Identify the core topic and scope of the note-taking task %q. One short paragraph.", task)
	return r.generate(ctx, sc, prompt, func() string {
		return fmt.Sprintf("**Topic:** %s\n\nScope: capture the essential concepts, definitions, and takeaways.", strings.TrimSpace(task))
	}), nil
}

func (r *Registry) outlineNotes(ctx context.Context, sc *pipeline.StepContext) (string, error) {
	task := sc.Task()
	prompt := fmt.Sprintf("Produce a three-section outline for notes on %q.", task)
	return r.generate(ctx, sc, prompt, func() string {
		return `## Outline

1. Overview and definitions
2. Key points
3. Takeaways`
	}), nil
}

func (r *Registry) composeNotes(ctx context.Context, sc *pipeline.StepContext) (string, error) {
	task := sc.Task()
	outline, _ := sc.Output("outline_notes")
	prompt := fmt.Sprintf("Write concise markdown notes for %q following this outline:\n%s", task, outline)
	return r.generate(ctx, sc, prompt, func() string {
		topic := strings.TrimSpace(task)
		return fmt.Sprintf(`# Notes: %s

## Overview

These notes summarize %s at a glance.

## Key Points

- Core concept and definition of the topic
- How it works and why it matters
- Common misconceptions to avoid

## Takeaways

Review the key points above; they cover the essentials of %s.`, topic, topic, topic)
	}), nil
}

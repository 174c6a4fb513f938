package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/Dhuruvm/brevia/pkg/pipeline"
)

func (r *Registry) presentationSteps() []pipeline.StepDef {
	return []pipeline.StepDef{
		{ID: "outline_slides", Name: "Outline slides", Run: r.outlineSlides},
		{ID: "draft_slides", Name: "Draft slides", Run: r.draftSlides},
		{ID: "finalize_deck", Name: "Finalize deck", Run: r.finalizeDeck},
	}
}

func (r *Registry) outlineSlides(ctx context.Context, sc *pipeline.StepContext) (string, error) {
	task := sc.Task()
	prompt := fmt.Sprintf("Outline a five-slide deck for %q: one line per slide.", task)
	return r.generate(ctx, sc, prompt, func() string {
		return `## Slide Outline

1. Title and hook
2. Context and problem
3. Main content
4. Evidence and examples
5. Summary and call to action`
	}), nil
}

func (r *Registry) draftSlides(ctx context.Context, sc *pipeline.StepContext) (string, error) {
	task := sc.Task()
	outline, _ := sc.Output("outline_slides")
	prompt := fmt.Sprintf("Draft slide content for %q following:\n%s", task, outline)
	return r.generate(ctx, sc, prompt, func() string {
		topic := strings.TrimSpace(task)
		return fmt.Sprintf(`### Slide 1 — %s

Opening hook introducing %s.

### Slide 2 — Context

Why %s matters now.

### Slide 3 — Main Content

The three points the audience should remember.

### Slide 4 — Evidence

Supporting examples and data.

### Slide 5 — Summary

Recap and call to action.`, topic, topic, topic)
	}), nil
}

func (r *Registry) finalizeDeck(ctx context.Context, sc *pipeline.StepContext) (string, error) {
	task := sc.Task()
	draft, _ := sc.Output("draft_slides")
	prompt := fmt.Sprintf("Add speaker notes and finalize this deck for %q:\n%s", task, draft)
	return r.generate(ctx, sc, prompt, func() string {
		return fmt.Sprintf(`# Presentation: %s

%s

---
_Speaker notes: keep each slide under 30 seconds; close with the call
to action._`, strings.TrimSpace(task), draft)
	}), nil
}

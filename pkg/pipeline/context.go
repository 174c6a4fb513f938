package pipeline

import (
	"sort"
	"sync"
)

// StepOutput is one prior step's output, keyed by the step that
// produced it.
type StepOutput struct {
	StepID string
	Name   string
	Output string
}

// StepContext is the typed, ordered record of accumulated step outputs
// handed to each step. Every step sees the output of every step that
// ran before it, looked up by step ID or iterated in execution order.
// Access is synchronized: a step abandoned by its timeout keeps running
// in its goroutine and may still touch the context while the pipeline
// has moved on to the next step.
type StepContext struct {
	task string

	mu      sync.Mutex
	outputs []StepOutput
	index   map[string]int
	models  map[string]struct{}
}

func NewStepContext(task string) *StepContext {
	return &StepContext{
		task:   task,
		index:  make(map[string]int),
		models: make(map[string]struct{}),
	}
}

// Task returns the original task text the workflow was submitted with.
func (c *StepContext) Task() string { return c.task }

// Output returns the output of a prior step by ID.
func (c *StepContext) Output(stepID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.index[stepID]
	if !ok {
		return "", false
	}
	return c.outputs[i].Output, true
}

// Outputs returns all prior step outputs in execution order.
func (c *StepContext) Outputs() []StepOutput {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]StepOutput, len(c.outputs))
	copy(out, c.outputs)
	return out
}

// RecordModel notes a generation model used while producing output, so
// the final result metadata can report it. Generators call this with
// the completion model name or "template" for the fallback path.
func (c *StepContext) RecordModel(model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.models[model] = struct{}{}
}

func (c *StepContext) record(stepID, name, output string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index[stepID] = len(c.outputs)
	c.outputs = append(c.outputs, StepOutput{StepID: stepID, Name: name, Output: output})
}

// ModelsUsed returns the sorted set of recorded model names.
func (c *StepContext) ModelsUsed() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	models := make([]string, 0, len(c.models))
	for m := range c.models {
		models = append(models, m)
	}
	sort.Strings(models)
	return models
}

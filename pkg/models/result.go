package models

// ResultMetadata carries execution statistics attached to a TaskResult.
type ResultMetadata struct {
	Confidence       float64  `json:"confidence"`         // 0..1
	ProcessingTimeMs int64    `json:"processing_time_ms"` // Wall-clock pipeline duration
	TokensUsed       int      `json:"tokens_used"`        // Rough estimate over generated content
	ModelsUsed       []string `json:"models_used"`        // Completion models invoked, or "template"
}

// TaskResult is the final payload synthesized from a workflow's step
// outputs once the pipeline finishes.
type TaskResult struct {
	Success  bool           `json:"success"`
	Content  string         `json:"content"`
	Metadata ResultMetadata `json:"metadata"`
}

package models

// Source is a reference surfaced by the research agent. Scores are
// heuristic estimates computed from static lookup tables, not the
// output of any retrieval or ranking system.
type Source struct {
	ID               string  `json:"id" db:"id"`                             // UUID
	WorkflowID       string  `json:"workflow_id" db:"workflow_id"`           // Workflow that produced this source
	Title            string  `json:"title" db:"title"`                       // Display title
	URL              string  `json:"url" db:"url"`                           // Source location
	CredibilityScore float64 `json:"credibility_score" db:"credibility_score"` // 0..1, from the domain lookup table
	RelevanceScore   float64 `json:"relevance_score" db:"relevance_score"`   // 0..1, keyword overlap with the task
	Content          string  `json:"content" db:"content"`                   // Excerpt shown in the report
}

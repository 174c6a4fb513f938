package agent

import (
	"strings"

	"github.com/Dhuruvm/brevia/pkg/models"
)

// detectKeywords is the containment-matching fallback used when the
// completion endpoint cannot classify a task. Checked in AgentTypes
// order, so research keywords win over later types.
var detectKeywords = map[models.AgentType][]string{
	models.ResearchAgent:     {"research", "investigate", "find sources", "history of", "study", "explore"},
	models.NotesAgent:        {"notes", "note", "summarize", "summary", "key points"},
	models.DocumentAgent:     {"document", "write a report", "draft", "essay", "article"},
	models.ResumeAgent:       {"resume", "cv", "curriculum vitae", "cover letter"},
	models.PresentationAgent: {"presentation", "slides", "slide deck", "pitch deck"},
}

// KeywordDetect classifies a task by keyword containment. Unmatched
// tasks default to the research agent, the most general persona.
func KeywordDetect(task string) models.AgentType {
	lower := strings.ToLower(task)
	for _, at := range models.AgentTypes {
		for _, kw := range detectKeywords[at] {
			if strings.Contains(lower, kw) {
				return at
			}
		}
	}
	return models.ResearchAgent
}

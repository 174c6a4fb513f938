package agent_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Dhuruvm/brevia/pkg/agent"
	"github.com/Dhuruvm/brevia/pkg/completion"
	"github.com/Dhuruvm/brevia/pkg/models"
	"github.com/Dhuruvm/brevia/pkg/pipeline"
	"github.com/Dhuruvm/brevia/pkg/storage"
)

type logger struct{}

func (l logger) Infof(format string, args ...interface{}) {
	// no-op
}

func (l logger) Errorf(format string, args ...interface{}) {
	// no-op
}

type stubClient struct {
	response string
	err      error
}

func (s stubClient) Complete(ctx context.Context, prompt string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s stubClient) Model() string { return "stub-model" }

var unavailable = stubClient{err: completion.ErrUnavailable}

func TestCredibilityScore(t *testing.T) {
	cases := []struct {
		url  string
		want float64
	}{
		{"https://www.data.gov/datasets/aviation", 0.95},
		{"https://scholar.mit.edu/collections/aviation", 0.9},
		{"https://www.nature.com/articles/aviation", 0.9},
		{"https://arxiv.org/abs/2401.00001", 0.85},
		{"https://en.wikipedia.org/wiki/Aviation", 0.8},
		{"https://github.com/someone/aviation", 0.7},
		{"https://stackoverflow.com/questions/1", 0.65},
		{"https://medium.com/@someone/aviation", 0.5},
		{"https://aviationfan.blogspot.com/post", 0.35},
		{"https://www.reddit.com/r/aviation", 0.35},
		{"https://example.com/aviation", 0.55},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, agent.CredibilityScore(c.url), c.url)
	}
}

func TestRelevanceScore(t *testing.T) {
	t.Run("FullOverlapCapsAtOne", func(t *testing.T) {
		score := agent.RelevanceScore("history aviation", "The history of aviation in detail")
		assert.Equal(t, 1.0, score)
	})

	t.Run("NoOverlapKeepsBaseline", func(t *testing.T) {
		score := agent.RelevanceScore("quantum entanglement", "gardening tips for spring")
		assert.InDelta(t, 0.4, score, 0.001)
	})

	t.Run("ShortWordsIgnored", func(t *testing.T) {
		// every task word is three letters or fewer
		assert.Equal(t, 0.5, agent.RelevanceScore("a an the", "anything"))
	})
}

func TestKeywordDetect(t *testing.T) {
	cases := map[string]models.AgentType{
		"research the history of aviation":  models.ResearchAgent,
		"Take notes on photosynthesis":      models.NotesAgent,
		"draft an essay about climate":      models.DocumentAgent,
		"improve my cv for a backend role":  models.ResumeAgent,
		"build a slide deck on Q3 results":  models.PresentationAgent,
		"something completely unclassified": models.ResearchAgent,
	}
	for task, want := range cases {
		assert.Equal(t, want, agent.KeywordDetect(task), task)
	}
}

func TestRegistrySteps(t *testing.T) {
	registry := agent.NewRegistry(unavailable, storage.NewMemoryStore(), logger{})

	t.Run("KnownTypesReturnOrderedSteps", func(t *testing.T) {
		want := map[models.AgentType][]string{
			models.ResearchAgent:     {"analyze_query", "gather_sources", "evaluate_credibility", "extract_insights", "synthesize_report"},
			models.NotesAgent:        {"parse_topic", "outline_notes", "compose_notes"},
			models.DocumentAgent:     {"analyze_requirements", "draft_sections", "finalize_document"},
			models.ResumeAgent:       {"collect_details", "structure_resume", "polish_resume"},
			models.PresentationAgent: {"outline_slides", "draft_slides", "finalize_deck"},
		}
		for at, ids := range want {
			steps, err := registry.Steps(at, "wf-1")
			assert.NoError(t, err, "agent %s", at)
			got := make([]string, 0, len(steps))
			for _, s := range steps {
				got = append(got, s.ID)
				assert.NotEmpty(t, s.Name)
				assert.NotNil(t, s.Run)
			}
			assert.Equal(t, ids, got, "agent %s", at)
		}
	})

	t.Run("UnknownTypeRejected", func(t *testing.T) {
		_, err := registry.Steps(models.AgentType("poetry"), "wf-1")
		assert.Error(t, err)
	})
}

func TestGatherSources(t *testing.T) {
	t.Run("TemplateFallbackPersistsScoredSources", func(t *testing.T) {
		store := storage.NewMemoryStore()
		registry := agent.NewRegistry(unavailable, store, logger{})

		steps, err := registry.Steps(models.ResearchAgent, "wf-fallback")
		assert.NoError(t, err)

		sc := pipeline.NewStepContext("history of aviation")
		out, err := steps[1].Run(context.Background(), sc)
		assert.NoError(t, err)
		assert.Contains(t, out, "## Sources (4)")

		sources, err := store.ListSources("wf-fallback")
		assert.NoError(t, err)
		assert.Len(t, sources, 4)
		for _, s := range sources {
			assert.NotEmpty(t, s.ID)
			assert.Equal(t, "wf-fallback", s.WorkflowID)
			assert.NotEmpty(t, s.URL)
			assert.Greater(t, s.CredibilityScore, 0.0)
			assert.Greater(t, s.RelevanceScore, 0.0)
		}
	})

	t.Run("CompletionJSONParsed", func(t *testing.T) {
		store := storage.NewMemoryStore()
		client := stubClient{response: `Here you go: {"sources":[{"title":"Aviation at NASA","url":"https://www.nasa.gov/aviation","content":"history of flight research"}]}`}
		registry := agent.NewRegistry(client, store, logger{})

		steps, err := registry.Steps(models.ResearchAgent, "wf-json")
		assert.NoError(t, err)

		sc := pipeline.NewStepContext("history of aviation")
		_, err = steps[1].Run(context.Background(), sc)
		assert.NoError(t, err)

		sources, err := store.ListSources("wf-json")
		assert.NoError(t, err)
		assert.Len(t, sources, 1)
		assert.Equal(t, "Aviation at NASA", sources[0].Title)
		assert.Equal(t, 0.95, sources[0].CredibilityScore)
	})
}

func TestEvaluateCredibility(t *testing.T) {
	store := storage.NewMemoryStore()
	registry := agent.NewRegistry(unavailable, store, logger{})
	assert.NoError(t, store.SaveSource(models.Source{
		ID: "s1", WorkflowID: "wf-table", Title: "Aviation - Wikipedia",
		URL: "https://en.wikipedia.org/wiki/Aviation", CredibilityScore: 0.8, RelevanceScore: 1.0,
	}))

	steps, err := registry.Steps(models.ResearchAgent, "wf-table")
	assert.NoError(t, err)

	out, err := steps[2].Run(context.Background(), pipeline.NewStepContext("aviation"))
	assert.NoError(t, err)
	assert.Contains(t, out, "## Source Credibility")
	assert.Contains(t, out, "| Aviation - Wikipedia | 0.80 | 1.00 |")
}

func TestComposeNotesFallback(t *testing.T) {
	registry := agent.NewRegistry(unavailable, storage.NewMemoryStore(), logger{})
	steps, err := registry.Steps(models.NotesAgent, "wf-notes")
	assert.NoError(t, err)

	sc := pipeline.NewStepContext("Take notes on photosynthesis")
	out, err := steps[2].Run(context.Background(), sc)
	assert.NoError(t, err)
	assert.Contains(t, out, "# Notes: Take notes on photosynthesis")
	assert.Contains(t, sc.ModelsUsed(), "template")
}

func TestGeneratePrefersCompletion(t *testing.T) {
	registry := agent.NewRegistry(stubClient{response: "generated body"}, storage.NewMemoryStore(), logger{})
	steps, err := registry.Steps(models.NotesAgent, "wf-gen")
	assert.NoError(t, err)

	sc := pipeline.NewStepContext("Take notes on photosynthesis")
	out, err := steps[0].Run(context.Background(), sc)
	assert.NoError(t, err)
	assert.Equal(t, "generated body", out)
	assert.Contains(t, sc.ModelsUsed(), "stub-model")
}

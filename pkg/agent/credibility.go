package agent

import "strings"

// domainScores maps URL substrings to trust scores. This is a static
// heuristic table, not the output of any ranking system: institutional
// domains score high, user-generated platforms score low.
var domainScores = []struct {
	substr string
	score  float64
}{
	{".gov", 0.95},
	{".edu", 0.9},
	{"nature.com", 0.9},
	{"arxiv.org", 0.85},
	{"britannica.com", 0.85},
	{"wikipedia.org", 0.8},
	{"github.com", 0.7},
	{"stackoverflow.com", 0.65},
	{"medium.com", 0.5},
	{"blogspot.", 0.35},
	{"reddit.com", 0.35},
}

const defaultCredibility = 0.55

// CredibilityScore returns the heuristic trust score for a source URL.
// The first matching table entry wins; unknown domains score 0.55.
func CredibilityScore(url string) float64 {
	lower := strings.ToLower(url)
	for _, d := range domainScores {
		if strings.Contains(lower, d.substr) {
			return d.score
		}
	}
	return defaultCredibility
}

// RelevanceScore estimates how relevant a source is to the task by the
// fraction of significant task words that appear in the source text.
func RelevanceScore(task, text string) float64 {
	words := significantWords(task)
	if len(words) == 0 {
		return 0.5
	}
	lower := strings.ToLower(text)
	hits := 0
	for _, w := range words {
		if strings.Contains(lower, w) {
			hits++
		}
	}
	score := 0.4 + 0.6*float64(hits)/float64(len(words))
	if score > 1 {
		score = 1
	}
	return score
}

func significantWords(s string) []string {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,!?:;\"'()")
		if len(w) > 3 {
			words = append(words, w)
		}
	}
	return words
}

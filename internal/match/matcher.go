package match

import (
	"sort"
	"strings"

	"github.com/studykit/study-companion/internal/calendar"
)

// Candidate is a calendar event that passed the acceptance filter,
// carrying its ranking score. Only ordering matters, not the absolute
// value.
type Candidate struct {
	Event calendar.Event `json:"event"`
	Score float64        `json:"score"`
}

// SearchResult is the uniform contract the dialog controller consumes.
// Found is false iff Events is empty; callers must branch on Found.
type SearchResult struct {
	Found  bool        `json:"found"`
	Events []Candidate `json:"events"`
}

// examKeywords raise the score of events that look like assessments.
var examKeywords = []string{
	"exam", "test", "midterm", "final", "viva",
	"quiz", "paper", "assessment", "evaluation",
}

// Match filters and ranks events against a subject. An event is kept
// when its summary shares at least one word-token with the subject, or
// contains a normalized subject variant, or contains the subject itself.
// Events without a summary are always dropped. Accepted events score
// 0.5*token_overlap + 0.5*similarity + 0.2 per exam keyword, and are
// returned in descending score order; equal scores keep their original
// relative order.
func Match(subject string, events []calendar.Event) SearchResult {
	subjectLower := strings.ToLower(subject)
	subjectTokens := tokenSet(subjectLower)
	variants := Normalize(subject)

	accepted := make([]Candidate, 0, len(events))
	for _, e := range events {
		summary := strings.ToLower(strings.TrimSpace(e.Summary))
		if summary == "" {
			continue
		}

		overlap := 0
		for tok := range tokenSet(summary) {
			if _, ok := subjectTokens[tok]; ok {
				overlap++
			}
		}

		normalizedMatch := false
		for _, variant := range variants {
			if variant != "" && strings.Contains(summary, variant) {
				normalizedMatch = true
				break
			}
		}
		directMatch := strings.Contains(summary, subjectLower) || normalizedMatch

		if overlap < 1 && !normalizedMatch && !directMatch {
			continue
		}

		score := 0.5*float64(overlap) + 0.5*similarityRatio(subjectLower, summary) + keywordBonus(summary)
		accepted = append(accepted, Candidate{Event: e, Score: score})
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		return accepted[i].Score > accepted[j].Score
	})

	if len(accepted) == 0 {
		return SearchResult{Found: false, Events: []Candidate{}}
	}
	return SearchResult{Found: true, Events: accepted}
}

func keywordBonus(summary string) float64 {
	bonus := 0.0
	for _, kw := range examKeywords {
		if strings.Contains(summary, kw) {
			bonus += 0.2
		}
	}
	return bonus
}

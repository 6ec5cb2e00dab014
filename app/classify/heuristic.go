package classify

import (
	"context"
	"strings"
	"unicode"

	"github.com/pattayaone/tidal/app/content"
)

// Heuristic is the fallback classifier used when no Gemini API key is
// configured. It is intentionally conservative: it only flags what it can
// establish from the text itself and defaults to safe/relevant otherwise.
type Heuristic struct {
	unsafeTerms   []string
	relevantTerms []string
	entities      []string
}

// NewHeuristic builds a heuristic classifier. relevantTerms of zero length
// disables the relevance check (everything is relevant); entities are
// first-party handles whose mention triggers the notification side channel.
func NewHeuristic(unsafeTerms, relevantTerms, entities []string) *Heuristic {
	return &Heuristic{
		unsafeTerms:   lowerAll(unsafeTerms),
		relevantTerms: lowerAll(relevantTerms),
		entities:      entities,
	}
}

func (h *Heuristic) Classify(_ context.Context, record *content.Record) (content.Classification, error) {
	text := strings.ToLower(record.Title + " " + record.Summary + " " + record.Body)

	result := content.Classification{
		Safe:      true,
		Relevant:  true,
		English:   looksEnglish(record.Title + " " + record.Summary),
		Sentiment: "neutral",
	}

	for _, term := range h.unsafeTerms {
		if strings.Contains(text, term) {
			result.Safe = false
			break
		}
	}

	if len(h.relevantTerms) > 0 {
		result.Relevant = false
		for _, term := range h.relevantTerms {
			if strings.Contains(text, term) {
				result.Relevant = true
				break
			}
		}
	}

	for _, entity := range h.entities {
		if entity != "" && strings.Contains(text, strings.ToLower(entity)) {
			result.Mention = entity
			break
		}
	}

	return result, nil
}

func lowerAll(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// looksEnglish is a cheap Latin-script ratio check, good enough to separate
// English posts from Thai, Russian or Chinese ones without a language model.
func looksEnglish(text string) bool {
	var letters, latin int
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if r < unicode.MaxLatin1 {
				latin++
			}
		}
	}
	if letters == 0 {
		return true
	}
	return float64(latin)/float64(letters) >= 0.8
}

// Package nlp provides a self-contained keyword/intent extractor. It stands
// in for an external NLP service behind core.KeywordExtractor, so a heavier
// backend can be swapped in without touching the router.
package nlp

import (
	"regexp"
	"strings"

	"github.com/sandevgo/gronkbot/internal/core"
)

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

var (
	quotedRe = regexp.MustCompile(`"([^"]+)"|'([^']+)'` + "|`([^`]+)`")
	// "about X", "regarding X", "mentioning X" introduce the query topic.
	topicRe  = regexp.MustCompile(`\b(?:about|regarding|mentioning|concerning|on the topic of)\s+([a-zA-Z0-9][a-zA-Z0-9_\-]*(?:\s+[a-zA-Z0-9][a-zA-Z0-9_\-]*){0,2})`)
	wordRe   = regexp.MustCompile(`[A-Za-z0-9_\-]+`)
	whoVerbRe = regexp.MustCompile(`\bwho\s+(talks?|mentions?|discusses?|posts?|says?)`)
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "this": {}, "that": {}, "these": {}, "those": {},
	"i": {}, "me": {}, "my": {}, "we": {}, "us": {}, "our": {}, "you": {}, "your": {},
	"he": {}, "she": {}, "it": {}, "they": {}, "them": {}, "their": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {}, "do": {}, "does": {}, "did": {},
	"have": {}, "has": {}, "had": {}, "what": {}, "who": {}, "when": {}, "where": {}, "why": {}, "how": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "of": {}, "for": {}, "with": {}, "by": {}, "from": {},
	"and": {}, "or": {}, "not": {}, "no": {}, "so": {}, "if": {}, "then": {},
	"recently": {}, "lately": {}, "here": {}, "there": {}, "about": {},
	"most": {}, "least": {}, "top": {}, "bottom": {}, "more": {}, "less": {},
	"day": {}, "week": {}, "month": {}, "year": {}, "today": {}, "yesterday": {},
}

// Extract pulls entities, topics and a coarse intent label from free text.
// The input is typically already lower-cased by the router; capitalization
// cues are used only when present.
func (e *Extractor) Extract(text string) core.Extraction {
	var ex core.Extraction

	for _, m := range quotedRe.FindAllStringSubmatch(text, -1) {
		for _, g := range m[1:] {
			if g != "" {
				ex.Entities = append(ex.Entities, core.Entity{Text: g, Label: "QUOTED"})
			}
		}
	}

	// Mid-sentence capitalized words read as proper nouns.
	words := wordRe.FindAllStringIndex(text, -1)
	for i, span := range words {
		w := text[span[0]:span[1]]
		if i == 0 || len(w) < 2 {
			continue
		}
		if w[0] >= 'A' && w[0] <= 'Z' && strings.ToLower(w[1:]) == w[1:] {
			if _, stop := stopwords[strings.ToLower(w)]; !stop {
				ex.Entities = append(ex.Entities, core.Entity{Text: w, Label: "PROPN"})
			}
		}
	}

	for _, m := range topicRe.FindAllStringSubmatch(text, -1) {
		if topic := trimStopwords(m[1]); topic != "" {
			ex.Topics = append(ex.Topics, topic)
		}
	}

	ex.Intent = classifyIntent(strings.ToLower(text))
	return ex
}

func trimStopwords(phrase string) string {
	tokens := strings.Fields(phrase)
	for len(tokens) > 0 {
		if _, stop := stopwords[strings.ToLower(tokens[0])]; !stop {
			break
		}
		tokens = tokens[1:]
	}
	for len(tokens) > 0 {
		if _, stop := stopwords[strings.ToLower(tokens[len(tokens)-1])]; !stop {
			break
		}
		tokens = tokens[:len(tokens)-1]
	}
	return strings.Join(tokens, " ")
}

func classifyIntent(lower string) string {
	switch {
	case strings.Contains(lower, "summarize") || strings.Contains(lower, "summary") || strings.Contains(lower, "overview"):
		return "topic_summary"
	case whoVerbRe.MatchString(lower):
		return "user_search"
	case strings.HasPrefix(lower, "we ") || strings.Contains(lower, " we ") || strings.Contains(lower, " our "):
		return "history_query"
	default:
		return ""
	}
}

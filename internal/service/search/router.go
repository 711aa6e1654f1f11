// Package search implements the history-retrieval pipeline: deciding whether
// a query needs a channel-history scan, streaming and filtering the history
// under a budget, rendering a numbered context for the model, and re-linking
// citation markers in the model's answer back to the source messages.
package search

import (
	"context"
	"regexp"
	"strings"

	"github.com/sandevgo/gronkbot/internal/core"
	"github.com/sandevgo/gronkbot/pkg/log"
)

// Decision is the scope router's verdict for one query. Budget and Keyword
// are zero-valued when the query does not constrain them.
type Decision struct {
	Search  bool
	Budget  int    // 0 = caller picks the default
	Keyword string // "" = no pre-filter
}

// Router decides whether a query is about this room's chat history or about
// general knowledge. Cheap checks run before expensive ones; the external
// classifier is consulted only for genuinely ambiguous queries.
type Router struct {
	extractor     core.KeywordExtractor
	classifier    core.ScopeClassifier
	defaultBudget int
}

func NewRouter(extractor core.KeywordExtractor, classifier core.ScopeClassifier, defaultBudget int) *Router {
	return &Router{
		extractor:     extractor,
		classifier:    classifier,
		defaultBudget: defaultBudget,
	}
}

// Conversational pings must not trigger a history scan even when the bot is
// mentioned.
var pingPhrases = []string{
	"are you there", "are you working", "are you online", "are you up",
	"are you alive", "yo", "ping", "test", "hello", "hi", "hey", "you here",
	"up?", "working?", "online?", "alive?", "present?", "awake?",
}

var scopePhrases = []string{
	"in here", "this channel", "this server",
	"on this server", "in this chat", "in chat",
	"this discord", "on this discord", "in this discord", "in the discord", "in discord",
	"of this discord", "of this server", "of this channel",
	"the discord", "the server", "the channel",
}

// "here" counts as a scope word only when it is not part of a ping.
var herePingPhrases = []string{
	"you here", "are you here", "yo here", "here?", "here.", "here!",
}

var generalIndicators = []string{
	"in history", "in the world", "on twitter", "on x.com",
	"in the news", "globally", "worldwide", "scientists say",
	"researchers found", "studies show", "according to",
	"what is", "what are", "what was", "what were",
	"how does", "how do", "how did", "how can", "how much", "how many", "how high", "how low", "how far",
	"why does", "why do", "why did", "why is", "why are",
	"where is", "where are", "where does", "where do",
	"when is", "when are", "when does", "when do", "when did",
}

var activityVerbs = []string{
	"posted", "sent", "messaged", "said here", "mentioned in", "talked in",
}

var (
	pronounRe  = regexp.MustCompile(`\b(we|us|our)\b`)
	temporalRe = []*regexp.Regexp{
		regexp.MustCompile(`(past|last|over the|in the|during the)\s*(month|week|day|year|30 days)`),
		regexp.MustCompile(`recently`),
		regexp.MustCompile(`this\s*(week|month|year)`),
	}
	analysisRe = []*regexp.Regexp{
		regexp.MustCompile(`who\s+(talks?|mentions?|discusses?|posts?|says?|chats?)`),
		regexp.MustCompile(`what\s+(have|has|did|do)\s+(we|users?|people)`),
		regexp.MustCompile(`(summarize|summary|overview)`),
		regexp.MustCompile(`(most|least|top|bottom)\s+`),
		regexp.MustCompile(`how (often|many|much)`),
		regexp.MustCompile(`rank\s+(members?|users?|people)`),
	}
	timeBudgetRe = []*regexp.Regexp{
		regexp.MustCompile(`past\s*month|last\s*month|30\s*days`),
		regexp.MustCompile(`past\s*week|last\s*week|7\s*days`),
		regexp.MustCompile(`past\s*day|last\s*day|24\s*hours|today`),
		regexp.MustCompile(`past\s*year|last\s*year`),
		regexp.MustCompile(`this\s*(week|month|year)`),
		regexp.MustCompile(`recently`),
	}
	hereRe = regexp.MustCompile(`\bhere\b`)
)

// Extracted terms that say nothing about the topic and must not become a
// keyword filter.
var nonMeaningful = map[string]struct{}{
	"we": {}, "us": {}, "our": {}, "discord": {}, "chat": {}, "talking": {},
	"about": {}, "in": {}, "the": {}, "what": {}, "are": {}, "is": {}, "on": {},
	"this": {}, "server": {}, "channel": {}, "here": {},
}

// Classify decides whether text needs a history search. It is total: no
// error escapes, and the only external call (the scope classifier) swallows
// its own failures.
func (r *Router) Classify(ctx context.Context, text string, hasMention bool) Decision {
	logger := log.FromCtx(ctx)
	lower := strings.ToLower(text)

	// 1. Ping/status check: a mention alone must not force a search when the
	// message is phatic.
	if hasMention && containsAny(lower, pingPhrases) {
		logger.Debug().Msg("router: ping detected, not a history search")
		return Decision{}
	}

	// 2. A user mention is the strongest signal.
	if hasMention {
		logger.Debug().Msg("router: user mention forces search")
		return r.searchDecision(lower)
	}

	// 3. Explicit in-room scope phrase.
	isPingHere := containsAny(lower, herePingPhrases)
	if containsAny(lower, scopePhrases) || (hereRe.MatchString(lower) && !isPingHere) {
		logger.Debug().Msg("router: explicit scope phrase")
		return r.searchDecision(lower)
	}

	// 4. Obvious general-knowledge phrasing. Checked only after the stronger
	// room-scoped signals so "what have we discussed" is not misrouted.
	if containsAny(lower, generalIndicators) {
		logger.Debug().Msg("router: general indicator")
		return Decision{}
	}

	// 5. Heuristic score for everything else.
	score := 0
	if pronounRe.MatchString(lower) {
		score += 2
	}
	if matchesAny(lower, temporalRe) && matchesAny(lower, analysisRe) {
		score += 2
	}
	if containsAny(lower, activityVerbs) {
		score++
	}

	switch {
	case score >= 3:
		logger.Debug().Int("score", score).Msg("router: heuristic score forces search")
		return r.searchDecision(lower)
	case score >= 1:
		logger.Debug().Int("score", score).Msg("router: ambiguous, asking classifier")
		if r.classifier != nil && r.classifier.ClassifyScope(ctx, text) {
			return r.searchDecision(lower)
		}
		return Decision{}
	default:
		return Decision{}
	}
}

func (r *Router) searchDecision(lower string) Decision {
	return Decision{
		Search:  true,
		Budget:  r.timeBudget(lower),
		Keyword: r.keyword(lower),
	}
}

// timeBudget returns the default scan budget when the query mentions a time
// period, 0 otherwise. Chat volume is not time-uniform, so no attempt is made
// to convert the phrase into an exact message count.
func (r *Router) timeBudget(lower string) int {
	if matchesAny(lower, timeBudgetRe) {
		return r.defaultBudget
	}
	return 0
}

// keyword picks the best extracted term to pre-filter the scan with,
// suppressed when the sole extracted term carries no topical meaning.
func (r *Router) keyword(lower string) string {
	ex := r.extractor.Extract(lower)

	var candidates []string
	for _, ent := range ex.Entities {
		candidates = append(candidates, ent.Text)
	}
	candidates = append(candidates, ex.Topics...)

	for _, c := range candidates {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if _, skip := nonMeaningful[c]; skip {
			continue
		}
		return c
	}
	return ""
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func matchesAny(s string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

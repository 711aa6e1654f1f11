package search

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sandevgo/gronkbot/internal/core"
	"github.com/sandevgo/gronkbot/pkg/log"
	"github.com/sandevgo/gronkbot/pkg/retry"
)

// StatusFunc edits the request's "searching..." status message. Best-effort
// and advisory: implementations must not block the pipeline on failure.
type StatusFunc func(text string)

// Config bounds one pipeline instance.
type Config struct {
	MaxKeywordScan   int
	EnableWebSearch  bool
	MaxSearchResults int
}

// Result is the outcome of one successful scan-build-complete-resolve run.
type Result struct {
	Text     string // resolved answer with citation links
	Cited    []int  // distinct message numbers the model referenced
	Found    int    // messages matched by the scan
	Analyzed int    // messages handed to the model
	Scanned  int    // messages examined by the scan
	Oldest   time.Time
	Usage    core.Usage
	Model    string
}

// Pipeline runs one history query end to end: scan the channel under the
// request's budget, render the numbered context, call the model, and rewrite
// its citations into links. Strictly sequential within one request; the host
// runs one Pipeline.Run per incoming message, concurrently across requests.
type Pipeline struct {
	scanner   *Scanner
	builder   *ContextBuilder
	completer core.Completer
	retrier   *retry.Retrier
	cache     *FollowUpCache
	cfg       Config
}

func NewPipeline(scanner *Scanner, builder *ContextBuilder, completer core.Completer, retrier *retry.Retrier, cache *FollowUpCache, cfg Config) *Pipeline {
	return &Pipeline{
		scanner:   scanner,
		builder:   builder,
		completer: completer,
		retrier:   retrier,
		cache:     cache,
		cfg:       cfg,
	}
}

// Run executes the pipeline for one request. userID is the asking user, used
// only as the follow-up cache key. Returns core.ErrNoMessages when the scan
// matched nothing; any other error has already been categorized by the
// providers.
func (p *Pipeline) Run(ctx context.Context, channelID, userID string, req core.SearchRequest, link core.LinkBuilder, status StatusFunc) (Result, error) {
	logger := log.FromCtx(ctx)

	maxScan := req.Budget
	if req.Filtered() {
		maxScan = min(req.Budget, p.cfg.MaxKeywordScan)
	}
	progress := func(scanned, matched int) {
		if status != nil {
			status(progressText(req, scanned, matched, maxScan))
		}
	}

	scan, err := p.scanner.Scan(ctx, channelID, req, progress)
	if err != nil {
		if len(scan.Messages) == 0 {
			return Result{}, err
		}
		// Partial results are still worth answering from.
		logger.Warn().Err(err).Int("matched", scan.Matched).Msg("stream failed, answering from partial scan")
	}
	if len(scan.Messages) == 0 {
		return Result{}, core.ErrNoMessages
	}

	prompt := p.builder.Build(scan, req)
	logger.Info().
		Int("found", scan.Matched).
		Int("analyzed", prompt.Analyzed).
		Int("prompt_tokens_est", prompt.Tokens).
		Msg("context built")
	if status != nil {
		status(fmt.Sprintf("🤔 Analyzing %s messages...", comma(prompt.Analyzed)))
	}

	completion, err := p.complete(ctx, prompt.Text)
	if err != nil {
		return Result{}, err
	}

	resolved := Resolve(completion.Text, prompt.Numbers, link)
	cited := CitedNumbers(completion.Text)

	p.cache.Put(channelID, userID, FollowUp{
		Query:          req.Query,
		TargetUserID:   req.TargetUserID,
		TargetUserName: req.TargetUserName,
		Messages:       scan.Messages,
	})

	return Result{
		Text:     resolved,
		Cited:    cited,
		Found:    scan.Matched,
		Analyzed: prompt.Analyzed,
		Scanned:  scan.Scanned,
		Oldest:   prompt.Numbers[1].CreatedAt,
		Usage:    completion.Usage,
		Model:    completion.Model,
	}, nil
}

// RunFollowUp answers a follow-up question against the user's cached last
// scan instead of re-scanning the channel. The second return is false when
// there is nothing cached for this (channel, user), in which case the caller
// should treat the message as a fresh query.
func (p *Pipeline) RunFollowUp(ctx context.Context, channelID, userID, query string, link core.LinkBuilder) (Result, bool, error) {
	fu, ok := p.cache.Get(channelID, userID)
	if !ok {
		return Result{}, false, nil
	}
	log.FromCtx(ctx).Info().
		Str("previous_query", fu.Query).
		Int("cached", len(fu.Messages)).
		Msg("answering follow-up from cached scan")

	scan := core.ScanResult{
		Messages: fu.Messages,
		Scanned:  len(fu.Messages),
		Matched:  len(fu.Messages),
	}
	req := core.SearchRequest{
		Query:          query,
		TargetUserID:   fu.TargetUserID,
		TargetUserName: fu.TargetUserName,
		Budget:         len(fu.Messages),
	}

	prompt := p.builder.Build(scan, req)
	completion, err := p.complete(ctx, prompt.Text)
	if err != nil {
		return Result{}, true, err
	}

	// Keep the cache alive under the new question.
	fu.Query = query
	p.cache.Put(channelID, userID, fu)

	return Result{
		Text:     Resolve(completion.Text, prompt.Numbers, link),
		Cited:    CitedNumbers(completion.Text),
		Found:    scan.Matched,
		Analyzed: prompt.Analyzed,
		Scanned:  scan.Scanned,
		Oldest:   prompt.Numbers[1].CreatedAt,
		Usage:    completion.Usage,
		Model:    completion.Model,
	}, true, nil
}

// complete calls the model with retries. Auth failures are not retried: a
// rejected key will not start working on the second attempt.
func (p *Pipeline) complete(ctx context.Context, promptText string) (core.Completion, error) {
	opts := core.CompleteOptions{
		WebSearch:        p.cfg.EnableWebSearch,
		MaxSearchResults: p.cfg.MaxSearchResults,
	}
	messages := []core.Message{{Role: core.RoleUser, Content: promptText}}

	var (
		completion core.Completion
		authErr    error
	)
	err := p.retrier.Do(ctx, func() error {
		c, cerr := p.completer.Complete(ctx, messages, opts)
		if cerr != nil {
			if core.CategoryOf(cerr) == core.ErrorAuth {
				authErr = cerr
				return nil
			}
			return cerr
		}
		completion = c
		return nil
	})
	if err == nil && authErr != nil {
		err = authErr
	}
	return completion, err
}

func progressText(req core.SearchRequest, scanned, matched, maxScan int) string {
	who := "channel message history"
	if req.TargetUserName != "" {
		who = req.TargetUserName + "'s message history"
	}
	if req.Filtered() {
		pct := 0
		if maxScan > 0 {
			pct = scanned * 100 / maxScan
		}
		return fmt.Sprintf("🔍 Searching %s for keyword `%s`... (%d%% - scanned %s, found %s)",
			who, req.Keyword, pct, comma(scanned), comma(matched))
	}
	return fmt.Sprintf("🔍 Searching %s... (scanned %s, found %s)", who, comma(scanned), comma(matched))
}

// comma renders n with thousands separators for status messages.
func comma(n int) string {
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	return string(out)
}

package search

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/sandevgo/gronkbot/internal/core"
	"github.com/sandevgo/gronkbot/pkg/retry"
)

type fakeCompleter struct {
	text  string
	err   error
	calls int
}

func (f *fakeCompleter) Complete(_ context.Context, _ []core.Message, _ core.CompleteOptions) (core.Completion, error) {
	f.calls++
	if f.err != nil {
		return core.Completion{}, f.err
	}
	return core.Completion{
		Text:  f.text,
		Usage: core.Usage{PromptTokens: 10, CompletionTokens: 5},
		Model: "grok-4-fast",
	}, nil
}

func fastRetrier() *retry.Retrier {
	return retry.NewRetrier(&retry.Config{
		MaxRetries:    2,
		BackoffFactor: 1,
		InitialDelay:  time.Millisecond,
		MaxDelay:      time.Millisecond,
	})
}

func newTestPipeline(opener core.HistoryOpener, completer core.Completer) (*Pipeline, *FollowUpCache) {
	cache := NewFollowUpCache(time.Hour, 16, nil)
	p := NewPipeline(
		NewScanner(opener, 10000, 0),
		NewContextBuilder(500, time.UTC, "UTC"),
		completer,
		fastRetrier(),
		cache,
		Config{MaxKeywordScan: 10000},
	)
	return p, cache
}

func TestPipeline_Run(t *testing.T) {
	opener := &fakeOpener{msgs: userMessages(20)}
	completer := &fakeCompleter{text: "they argued a lot [#1] and then settled it [#3]"}
	p, cache := newTestPipeline(opener, completer)

	got, err := p.Run(context.Background(), "chan1", "asker", core.SearchRequest{
		Query:  "what happened",
		Budget: 20,
	}, testLink, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !strings.Contains(got.Text, "[#1](https://x/m1)") || !strings.Contains(got.Text, "[#3](https://x/m3)") {
		t.Errorf("citations not resolved: %q", got.Text)
	}
	if !reflect.DeepEqual(got.Cited, []int{1, 3}) {
		t.Errorf("Cited = %v, want [1 3]", got.Cited)
	}
	if got.Found != 20 || got.Analyzed != 20 || got.Scanned != 20 {
		t.Errorf("counters = %d/%d/%d, want 20/20/20", got.Found, got.Analyzed, got.Scanned)
	}
	if got.Model != "grok-4-fast" || got.Usage.PromptTokens != 10 {
		t.Errorf("usage not propagated: %+v", got)
	}

	// Success populates the follow-up cache for this (channel, user).
	fu, ok := cache.Get("chan1", "asker")
	if !ok || fu.Query != "what happened" || len(fu.Messages) != 20 {
		t.Errorf("follow-up cache = %+v, %v", fu, ok)
	}
}

func TestPipeline_NoMatches(t *testing.T) {
	opener := &fakeOpener{} // empty channel
	completer := &fakeCompleter{text: "unused"}
	p, cache := newTestPipeline(opener, completer)

	_, err := p.Run(context.Background(), "chan1", "asker", core.SearchRequest{
		Query:  "anything",
		Budget: 20,
	}, testLink, nil)

	if !errors.Is(err, core.ErrNoMessages) {
		t.Fatalf("error = %v, want ErrNoMessages", err)
	}
	if completer.calls != 0 {
		t.Error("model called despite empty scan")
	}
	if _, ok := cache.Get("chan1", "asker"); ok {
		t.Error("cache written despite failure")
	}
}

func TestPipeline_CompleterFailure(t *testing.T) {
	opener := &fakeOpener{msgs: userMessages(5)}
	completer := &fakeCompleter{err: core.NewServiceError(core.ErrorRateLimited, errors.New("429"))}
	p, cache := newTestPipeline(opener, completer)

	_, err := p.Run(context.Background(), "chan1", "asker", core.SearchRequest{
		Query:  "q",
		Budget: 5,
	}, testLink, nil)

	if core.CategoryOf(err) != core.ErrorRateLimited {
		t.Fatalf("category = %v, want rate-limited", core.CategoryOf(err))
	}
	if completer.calls != 3 {
		t.Errorf("calls = %d, want 3 (retried)", completer.calls)
	}
	if _, ok := cache.Get("chan1", "asker"); ok {
		t.Error("cache written despite failure")
	}
}

func TestPipeline_AuthFailureNotRetried(t *testing.T) {
	opener := &fakeOpener{msgs: userMessages(5)}
	completer := &fakeCompleter{err: core.NewServiceError(core.ErrorAuth, errors.New("401"))}
	p, _ := newTestPipeline(opener, completer)

	_, err := p.Run(context.Background(), "chan1", "asker", core.SearchRequest{
		Query:  "q",
		Budget: 5,
	}, testLink, nil)

	if core.CategoryOf(err) != core.ErrorAuth {
		t.Fatalf("category = %v, want auth", core.CategoryOf(err))
	}
	if completer.calls != 1 {
		t.Errorf("calls = %d, want 1 (auth is not retriable)", completer.calls)
	}
}

func TestPipeline_PartialScanStillAnswers(t *testing.T) {
	opener := &fakeOpener{msgs: userMessages(50), failAt: 11}
	completer := &fakeCompleter{text: "partial answer [#2]"}
	p, _ := newTestPipeline(opener, completer)

	got, err := p.Run(context.Background(), "chan1", "asker", core.SearchRequest{
		Query:  "q",
		Budget: 50,
	}, testLink, nil)
	if err != nil {
		t.Fatalf("Run() error = %v, want partial results to answer", err)
	}
	if got.Found != 10 {
		t.Errorf("Found = %d, want 10 partial matches", got.Found)
	}
	if !strings.Contains(got.Text, "[#2](https://x/m42)") {
		t.Errorf("citation not resolved against partial map: %q", got.Text)
	}
}

func TestPipeline_RunFollowUp(t *testing.T) {
	opener := &fakeOpener{msgs: userMessages(10)}
	completer := &fakeCompleter{text: "first answer [#1]"}
	p, cache := newTestPipeline(opener, completer)

	_, err := p.Run(context.Background(), "chan1", "asker", core.SearchRequest{
		Query:  "original question",
		Budget: 10,
	}, testLink, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	completer.text = "follow-up answer [#5]"
	got, handled, err := p.RunFollowUp(context.Background(), "chan1", "asker", "and then what?", testLink)
	if err != nil || !handled {
		t.Fatalf("RunFollowUp() = handled %v, err %v", handled, err)
	}
	if !strings.Contains(got.Text, "[#5](https://x/m5)") {
		t.Errorf("follow-up citation not resolved against cached map: %q", got.Text)
	}

	// Cache stays warm under the new query.
	fu, ok := cache.Get("chan1", "asker")
	if !ok || fu.Query != "and then what?" {
		t.Errorf("cache after follow-up = %+v, %v", fu, ok)
	}

	// No cache entry means the caller should fall through.
	if _, handled, _ := p.RunFollowUp(context.Background(), "chan1", "stranger", "q", testLink); handled {
		t.Error("RunFollowUp handled a user with no cached scan")
	}
}

func TestProgressText(t *testing.T) {
	filtered := core.SearchRequest{Keyword: "deploy", Budget: 10000}
	got := progressText(filtered, 4000, 12, 10000)
	if got != "🔍 Searching channel message history for keyword `deploy`... (40% - scanned 4,000, found 12)" {
		t.Errorf("filtered progress = %q", got)
	}

	targeted := core.SearchRequest{TargetUserName: "alice", Budget: 5000}
	got = progressText(targeted, 2000, 150, 5000)
	if got != "🔍 Searching alice's message history... (scanned 2,000, found 150)" {
		t.Errorf("unfiltered progress = %q", got)
	}
}

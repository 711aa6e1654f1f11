package search

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sandevgo/gronkbot/internal/core"
)

func scanOf(msgs ...core.HistoryMessage) core.ScanResult {
	return core.ScanResult{Messages: msgs, Scanned: len(msgs), Matched: len(msgs)}
}

func TestContextBuilder_Build(t *testing.T) {
	b := NewContextBuilder(500, time.UTC, "UTC")
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Newest first, as the scanner produces them.
	scan := scanOf(
		core.HistoryMessage{ID: "m3", AuthorName: "carol", Content: "third", CreatedAt: base.Add(2 * time.Hour)},
		core.HistoryMessage{ID: "m2", AuthorName: "bob", Content: "second", CreatedAt: base.Add(time.Hour)},
		core.HistoryMessage{ID: "m1", AuthorName: "alice", Content: "first", CreatedAt: base},
	)

	got := b.Build(scan, core.SearchRequest{Query: "what happened?"})

	if got.Analyzed != 3 {
		t.Fatalf("Analyzed = %d, want 3", got.Analyzed)
	}
	// Oldest message gets number 1.
	if got.Numbers[1].ID != "m1" || got.Numbers[3].ID != "m3" {
		t.Errorf("numbering wrong: 1=%s 3=%s", got.Numbers[1].ID, got.Numbers[3].ID)
	}
	for n := 1; n <= 3; n++ {
		if _, ok := got.Numbers[n]; !ok {
			t.Errorf("number map has a gap at %d", n)
		}
	}

	for _, want := range []string{
		"Search query: what happened?",
		"Channel messages (showing 3 of 3 found, from oldest to newest):",
		"[1] [2026-03-01 12:00 UTC] alice: first",
		"[2] [2026-03-01 13:00 UTC] bob: second",
		"[3] [2026-03-01 14:00 UTC] carol: third",
		"Based on these messages, what happened?",
		"IMPORTANT CITATION GUIDELINES",
		"NEVER use ranges like [#5-#10]",
		"Note: All timestamps are in UTC timezone.",
	} {
		if !strings.Contains(got.Text, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	// Chronological order within the prompt.
	if strings.Index(got.Text, "[1]") > strings.Index(got.Text, "[3]") {
		t.Error("prompt lines not in chronological order")
	}
}

func TestContextBuilder_AnalysisCap(t *testing.T) {
	b := NewContextBuilder(3, time.UTC, "UTC")
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var msgs []core.HistoryMessage
	for i := 5; i >= 1; i-- { // newest (m5) first
		msgs = append(msgs, core.HistoryMessage{
			ID:        fmt.Sprintf("m%d", i),
			Content:   fmt.Sprintf("content %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	got := b.Build(scanOf(msgs...), core.SearchRequest{Query: "q"})

	if got.Analyzed != 3 {
		t.Fatalf("Analyzed = %d, want 3", got.Analyzed)
	}
	// The three most recent survive; the oldest of those is number 1.
	if got.Numbers[1].ID != "m3" || got.Numbers[3].ID != "m5" {
		t.Errorf("cap took wrong prefix: 1=%s 3=%s", got.Numbers[1].ID, got.Numbers[3].ID)
	}
	if !strings.Contains(got.Text, "showing 3 of 5 found") {
		t.Error("prompt does not report the cap")
	}
}

func TestContextBuilder_TargetedOmitsAuthor(t *testing.T) {
	b := NewContextBuilder(500, time.UTC, "UTC")

	got := b.Build(scanOf(core.HistoryMessage{
		ID:         "m1",
		AuthorName: "alice",
		Content:    "hello world",
		CreatedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}), core.SearchRequest{
		Query:          "what did alice say",
		TargetUserID:   "u1",
		TargetUserName: "alice",
	})

	if !strings.Contains(got.Text, "User alice's recent messages") {
		t.Error("targeted header missing")
	}
	if !strings.Contains(got.Text, "[1] [2026-03-01 12:00 UTC] hello world") {
		t.Error("targeted line should omit the author name")
	}
}

func TestContextBuilder_Truncation(t *testing.T) {
	b := NewContextBuilder(500, time.UTC, "UTC")
	long := strings.Repeat("x", 400)

	got := b.Build(scanOf(core.HistoryMessage{
		ID:        "m1",
		Content:   long,
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}), core.SearchRequest{Query: "q"})

	if strings.Contains(got.Text, long) {
		t.Error("content not truncated")
	}
	if !strings.Contains(got.Text, strings.Repeat("x", 300)+"...") {
		t.Error("truncated content missing ellipsis marker")
	}
	// The untruncated message stays in the map for linking.
	if len(got.Numbers[1].Content) != 400 {
		t.Error("number map must keep the full message")
	}
}

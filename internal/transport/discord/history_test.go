package discord

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sandevgo/gronkbot/internal/core"
)

type fakeFetcher struct {
	msgs  []*discordgo.Message // newest first
	calls int
	err   error
}

func (f *fakeFetcher) ChannelMessages(_ string, limit int, beforeID, _, _ string, _ ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}

	start := 0
	if beforeID != "" {
		for i, m := range f.msgs {
			if m.ID == beforeID {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	if end > len(f.msgs) {
		end = len(f.msgs)
	}
	return f.msgs[start:end], nil
}

func fakeMessages(n int) []*discordgo.Message {
	msgs := make([]*discordgo.Message, n)
	for i := range msgs {
		msgs[i] = &discordgo.Message{
			ID:        fmt.Sprintf("m%d", n-i),
			Content:   "hello",
			Author:    &discordgo.User{ID: "u1", Username: "alice"},
			Timestamp: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		}
	}
	return msgs
}

func drain(t *testing.T, s core.HistoryStream) []core.HistoryMessage {
	t.Helper()
	var out []core.HistoryMessage
	for {
		msg, ok, err := s.Next(context.Background())
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if !ok {
			return out
		}
		out = append(out, msg)
	}
}

func TestHistoryStream_PagesThroughChannel(t *testing.T) {
	fetcher := &fakeFetcher{msgs: fakeMessages(250)}
	h := NewHistory(fetcher)

	got := drain(t, h.OpenHistory("c1", 1000))

	if len(got) != 250 {
		t.Fatalf("drained %d messages, want 250", len(got))
	}
	if got[0].ID != "m250" || got[249].ID != "m1" {
		t.Errorf("order broken: first %s last %s", got[0].ID, got[249].ID)
	}
	// 100-message pages: two full, one short.
	if fetcher.calls != 3 {
		t.Errorf("fetch calls = %d, want 3", fetcher.calls)
	}
}

func TestHistoryStream_RespectsMax(t *testing.T) {
	fetcher := &fakeFetcher{msgs: fakeMessages(250)}
	h := NewHistory(fetcher)

	got := drain(t, h.OpenHistory("c1", 150))

	if len(got) != 150 {
		t.Fatalf("drained %d messages, want max 150", len(got))
	}
	if fetcher.calls != 2 {
		t.Errorf("fetch calls = %d, want 2 (second page trimmed to 50)", fetcher.calls)
	}
}

func TestHistoryStream_SurfacesFetchError(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("HTTP 503")}
	h := NewHistory(fetcher)

	_, ok, err := h.OpenHistory("c1", 100).Next(context.Background())
	if ok || err == nil {
		t.Fatalf("Next() = ok %v, err %v; want surfaced error", ok, err)
	}
}

func TestToHistoryMessage(t *testing.T) {
	msg := &discordgo.Message{
		ID:      "m1",
		Content: "look at this",
		Author:  &discordgo.User{ID: "u2", Username: "bob", Bot: true},
		Attachments: []*discordgo.MessageAttachment{
			{URL: "https://cdn/pic.png", ContentType: "image/png"},
			{URL: "https://cdn/notes.pdf", ContentType: "application/pdf"},
		},
		Embeds: []*discordgo.MessageEmbed{
			{Image: &discordgo.MessageEmbedImage{URL: "https://img"}},
		},
	}

	got := toHistoryMessage("c7", msg)

	if got.ChannelID != "c7" || got.AuthorID != "u2" || !got.AuthorIsBot {
		t.Errorf("fields wrong: %+v", got)
	}
	if len(got.AttachmentURLs) != 1 || got.AttachmentURLs[0] != "https://cdn/pic.png" {
		t.Errorf("AttachmentURLs = %v, want only the image", got.AttachmentURLs)
	}
	if len(got.EmbedMediaURLs) != 1 || got.EmbedMediaURLs[0] != "https://img" {
		t.Errorf("EmbedMediaURLs = %v", got.EmbedMediaURLs)
	}
}

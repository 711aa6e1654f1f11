package discord

import (
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/sandevgo/gronkbot/internal/core"
)

func TestNormalizePrompt(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "leading_mention", in: "<@42> what happened here", want: "what happened here"},
		{name: "nickname_mention", in: "<@!42> are you there", want: "are you there"},
		{name: "mid_sentence", in: "hey <@42> summarize this channel", want: "hey  summarize this channel"},
		{name: "other_mentions_kept", in: "<@42> what did <@77> say", want: "what did <@77> say"},
		{name: "no_mention", in: "plain text", want: "plain text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizePrompt(tt.in, "42"); got != tt.want {
				t.Errorf("normalizePrompt(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTargetMention(t *testing.T) {
	bot := &discordgo.User{ID: "42"}
	alice := &discordgo.User{ID: "77", Username: "alice"}

	if got := targetMention([]*discordgo.User{bot, alice}, "42"); got != alice {
		t.Errorf("targetMention = %v, want alice", got)
	}
	if got := targetMention([]*discordgo.User{bot}, "42"); got != nil {
		t.Errorf("targetMention = %v, want nil when only the bot is mentioned", got)
	}
}

func TestSearchErrorText(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target string
		want   string
	}{
		{
			name: "no_messages",
			err:  core.ErrNoMessages,
			want: "❌ No messages found in this channel.",
		},
		{
			name:   "no_messages_targeted",
			err:    core.ErrNoMessages,
			target: "alice",
			want:   "❌ No messages found from alice in this channel.",
		},
		{
			name: "stream_failure",
			err:  &core.StreamError{Err: errors.New("503")},
			want: "❌ Error reading channel history, try again.",
		},
		{
			name: "rate_limited",
			err:  core.NewServiceError(core.ErrorRateLimited, errors.New("429")),
			want: "⏳ The model backend is rate limiting us, try again in a moment.",
		},
		{
			name: "unknown",
			err:  errors.New("boom"),
			want: "❌ Something went wrong answering that.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := searchErrorText(tt.err, tt.target); got != tt.want {
				t.Errorf("searchErrorText = %q, want %q", got, tt.want)
			}
		})
	}
}

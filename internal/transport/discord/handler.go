package discord

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/sandevgo/gronkbot/internal/core"
	"github.com/sandevgo/gronkbot/internal/service/search"
	"github.com/sandevgo/gronkbot/pkg/log"
)

const systemPrompt = "You are Gronk, a witty and uncensored assistant. Be direct, honest, and don't hold back. " +
	"Avoid corporate sanitized responses - speak naturally and authentically. " +
	"Keep responses concise - aim for tweet length (~280 characters) unless the user explicitly asks for more detail."

// onMessageCreate is the gateway entry point. It filters out everything that
// is not addressed to the bot and hands the rest to a per-request goroutine,
// so slow scans never stall the event loop.
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.Author.ID == s.State.User.ID {
		return
	}

	mentioned := false
	for _, u := range m.Mentions {
		if u.ID == s.State.User.ID {
			mentioned = true
			break
		}
	}

	replyToBot := false
	if m.MessageReference != nil && m.MessageReference.MessageID != "" {
		if ref, err := s.ChannelMessage(m.ChannelID, m.MessageReference.MessageID); err == nil {
			replyToBot = ref.Author != nil && ref.Author.ID == s.State.User.ID
		}
	}

	if !mentioned && !replyToBot {
		return
	}
	go b.handle(b.baseCtx, m, replyToBot)
}

// handle runs one request pipeline. No failure may escape to the gateway
// event loop; everything ends as a user-facing message.
func (b *Bot) handle(ctx context.Context, m *discordgo.MessageCreate, replyToBot bool) {
	logger := log.FromCtx(ctx).With().
		Str("channel_id", m.ChannelID).
		Str("author", m.Author.Username).
		Logger()
	ctx = logger.WithContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("request handler panicked")
			b.replyError(m, core.ErrorGeneric)
		}
	}()

	prompt := normalizePrompt(m.Content, b.session.State.User.ID)
	logger.Info().Str("prompt", prompt).Bool("reply_to_bot", replyToBot).Msg("handling request")

	// A reply to one of our search answers continues against the cached scan.
	if replyToBot {
		result, handled, err := b.deps.Pipeline.RunFollowUp(ctx, m.ChannelID, m.Author.ID, prompt, RequestLink(m.GuildID))
		if handled {
			if err != nil {
				b.replyError(m, core.CategoryOf(err))
				return
			}
			b.replyResult(ctx, m, prompt, result)
			return
		}
	}

	if b.deps.App.EnableNLSearch {
		target := targetMention(m.Mentions, b.session.State.User.ID)
		decision := b.deps.Router.Classify(ctx, prompt, target != nil)
		if decision.Search {
			b.runSearch(ctx, m, prompt, decision, target)
			return
		}
	}

	b.runChat(ctx, m, prompt, replyToBot)
}

func (b *Bot) runSearch(ctx context.Context, m *discordgo.MessageCreate, prompt string, decision search.Decision, target *discordgo.User) {
	logger := log.FromCtx(ctx)

	req := core.SearchRequest{
		Query:     prompt,
		TriggerID: m.ID,
		Keyword:   decision.Keyword,
		Budget:    decision.Budget,
	}
	if req.Budget <= 0 {
		req.Budget = b.deps.App.DefaultSearchLimit
	}
	if target != nil {
		req.TargetUserID = target.ID
		req.TargetUserName = target.Username
	}

	status, _ := b.session.ChannelMessageSend(m.ChannelID, "🔍 Searching message history...")
	edit := func(text string) {
		if status == nil {
			return
		}
		if _, err := b.session.ChannelMessageEdit(m.ChannelID, status.ID, text); err != nil {
			logger.Debug().Err(err).Msg("status edit failed")
		}
	}

	result, err := b.deps.Pipeline.Run(ctx, m.ChannelID, m.Author.ID, req, RequestLink(m.GuildID), edit)
	if err != nil {
		edit(searchErrorText(err, req.TargetUserName))
		return
	}
	if status != nil {
		_ = b.session.ChannelMessageDelete(m.ChannelID, status.ID)
	}
	b.replyResult(ctx, m, prompt, result)
}

// runChat answers without a history scan, pulling prior turns from the
// conversation store when the user replied to an earlier answer.
func (b *Bot) runChat(ctx context.Context, m *discordgo.MessageCreate, prompt string, replyToBot bool) {
	messages := []core.Message{{Role: core.RoleSystem, Content: systemPrompt}}
	if replyToBot && m.MessageReference != nil {
		if conv, ok, err := b.deps.Conversations.Get(ctx, m.MessageReference.MessageID); err == nil && ok {
			messages = append(messages,
				core.Message{Role: core.RoleUser, Content: conv.UserQuery},
				core.Message{Role: core.RoleAssistant, Content: conv.Response},
			)
		}
	}
	messages = append(messages, core.Message{Role: core.RoleUser, Content: prompt})

	opts := core.CompleteOptions{
		WebSearch:        b.deps.App.EnableWebSearch,
		MaxSearchResults: b.deps.App.MaxSearchResults,
	}
	var completion core.Completion
	err := b.deps.Retrier.Do(ctx, func() error {
		var cerr error
		completion, cerr = b.deps.Completer.Complete(ctx, messages, opts)
		return cerr
	})
	if err != nil {
		b.replyError(m, core.CategoryOf(err))
		return
	}

	text := convertUsernames(completion.Text, b.memberResolver(m.GuildID))
	text += "\n\n-# " + b.deps.Pricing.Summary(completion.Usage)
	b.reply(ctx, m, prompt, text, completion.Model)
}

// replyResult renders a pipeline result: resolved answer, scan counters and
// cost footer, split across messages when long.
func (b *Bot) replyResult(ctx context.Context, m *discordgo.MessageCreate, prompt string, result search.Result) {
	text := convertUsernames(result.Text, b.memberResolver(m.GuildID))
	text += fmt.Sprintf("\n\n-# 📊 %d found, %d analyzed, %d scanned • %s",
		result.Found, result.Analyzed, result.Scanned, b.deps.Pricing.Summary(result.Usage))
	b.reply(ctx, m, prompt, text, result.Model)
}

// reply sends text in as many chunks as needed and records each sent message
// in the conversation store so replies to any chunk can follow up.
func (b *Bot) reply(ctx context.Context, m *discordgo.MessageCreate, prompt, text, model string) {
	logger := log.FromCtx(ctx)

	for _, chunk := range splitMessage(text, messageLimit) {
		sent, err := b.session.ChannelMessageSendReply(m.ChannelID, chunk, m.Reference())
		if err != nil {
			logger.Error().Err(err).Msg("failed to send reply")
			return
		}
		if err := b.deps.Conversations.Store(ctx, core.Conversation{
			MessageID: sent.ID,
			ChannelID: m.ChannelID,
			AuthorID:  m.Author.ID,
			UserQuery: prompt,
			Response:  text,
			Model:     model,
		}); err != nil {
			logger.Warn().Err(err).Msg("failed to store conversation")
		}
	}
}

func (b *Bot) replyError(m *discordgo.MessageCreate, category core.ErrorCategory) {
	_, _ = b.session.ChannelMessageSendReply(m.ChannelID, categoryText(category), m.Reference())
}

// memberResolver builds a name-to-ID lookup from the state cache. Best
// effort: with an empty cache no conversion happens.
func (b *Bot) memberResolver(guildID string) memberResolver {
	guild, err := b.session.State.Guild(guildID)
	if err != nil {
		return func(string) (string, bool) { return "", false }
	}
	names := make(map[string]string, 2*len(guild.Members))
	for _, member := range guild.Members {
		if member.User == nil {
			continue
		}
		names[strings.ToLower(member.User.Username)] = member.User.ID
		if member.Nick != "" {
			names[strings.ToLower(member.Nick)] = member.User.ID
		}
	}
	return func(name string) (string, bool) {
		id, ok := names[name]
		return id, ok
	}
}

var mentionRe = regexp.MustCompile(`<@!?(\d+)>`)

// normalizePrompt strips the bot's own mention tokens and surrounding
// whitespace so intent detection sees only the user's words.
func normalizePrompt(content, botID string) string {
	cleaned := mentionRe.ReplaceAllStringFunc(content, func(tok string) string {
		if mentionRe.FindStringSubmatch(tok)[1] == botID {
			return ""
		}
		return tok
	})
	return strings.TrimSpace(cleaned)
}

// targetMention returns the first mentioned user other than the bot, the
// "what did @alice say" case.
func targetMention(mentions []*discordgo.User, botID string) *discordgo.User {
	for _, u := range mentions {
		if u.ID != botID {
			return u
		}
	}
	return nil
}

func searchErrorText(err error, targetName string) string {
	if errors.Is(err, core.ErrNoMessages) {
		if targetName != "" {
			return fmt.Sprintf("❌ No messages found from %s in this channel.", targetName)
		}
		return "❌ No messages found in this channel."
	}
	var se *core.StreamError
	if errors.As(err, &se) {
		return "❌ Error reading channel history, try again."
	}
	return categoryText(core.CategoryOf(err))
}

func categoryText(category core.ErrorCategory) string {
	switch category {
	case core.ErrorAuth:
		return "❌ Authentication with the model backend failed."
	case core.ErrorRateLimited:
		return "⏳ The model backend is rate limiting us, try again in a moment."
	case core.ErrorTimeout:
		return "⌛ The model backend timed out, try again."
	default:
		return "❌ Something went wrong answering that."
	}
}

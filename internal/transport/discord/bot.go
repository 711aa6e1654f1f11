package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/sandevgo/gronkbot/internal/config"
	"github.com/sandevgo/gronkbot/internal/core"
	"github.com/sandevgo/gronkbot/internal/providers/llm"
	"github.com/sandevgo/gronkbot/internal/service/search"
	"github.com/sandevgo/gronkbot/pkg/log"
	"github.com/sandevgo/gronkbot/pkg/retry"
)

// Deps are the collaborators one bot instance needs.
type Deps struct {
	App           *config.AppConfig
	Router        *search.Router
	Pipeline      *search.Pipeline
	Completer     core.Completer
	Pricing       *llm.Pricing
	Conversations core.ConversationStore
	Retrier       *retry.Retrier
}

// Bot owns the gateway session. Implements srv.Service.
type Bot struct {
	session *discordgo.Session
	deps    Deps

	// Root context for handler goroutines; carries the process logger.
	baseCtx context.Context
}

// NewSession builds a configured but unopened gateway session. The session
// is created separately from the Bot because the history opener needs it
// before the rest of the dependency graph exists.
func NewSession(cfg *config.DiscordConfig) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentMessageContent
	return s, nil
}

func NewBot(ctx context.Context, session *discordgo.Session, deps Deps) *Bot {
	b := &Bot{
		session: session,
		deps:    deps,
		baseCtx: ctx,
	}
	session.AddHandler(b.onReady)
	session.AddHandler(b.onMessageCreate)
	return b
}

func (b *Bot) Start(_ context.Context) error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord gateway: %w", err)
	}
	return nil
}

func (b *Bot) Shutdown(_ context.Context) error {
	return b.session.Close()
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	log.FromCtx(b.baseCtx).Info().
		Str("user", r.User.Username).
		Int("guilds", len(r.Guilds)).
		Msg("discord gateway ready")
}

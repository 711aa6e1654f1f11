package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/gronkbot/pkg/log"
)

type AppConfig struct {
	RuntimePath string `env:"GRONK_RUNTIME_PATH" envDefault:".gronkbot"`

	// History search
	EnableNLSearch      bool `env:"ENABLE_NL_HISTORY_SEARCH" envDefault:"true"`
	MaxKeywordScan      int  `env:"MAX_KEYWORD_SCAN" envDefault:"10000"`
	MaxMessagesAnalyzed int  `env:"MAX_MESSAGES_ANALYZED" envDefault:"500"`
	DefaultSearchLimit  int  `env:"DEFAULT_SEARCH_LIMIT" envDefault:"5000"`
	ProgressInterval    int  `env:"PROGRESS_INTERVAL" envDefault:"2000"`

	// Web search pass-through to the completion backend
	EnableWebSearch  bool `env:"ENABLE_WEB_SEARCH" envDefault:"true"`
	MaxSearchResults int  `env:"MAX_SEARCH_RESULTS" envDefault:"3"`

	// Display timezone for context timestamps
	Timezone string `env:"TIMEZONE" envDefault:"America/Chicago"`

	// Follow-up cache bounds
	FollowUpTTL        time.Duration `env:"FOLLOWUP_TTL" envDefault:"30m"`
	FollowUpMaxEntries int           `env:"FOLLOWUP_MAX_ENTRIES" envDefault:"256"`

	// Conversation store retention
	RetentionHours  int           `env:"CONVERSATION_RETENTION_HOURS" envDefault:"24"`
	CleanupInterval time.Duration `env:"CONVERSATION_CLEANUP_INTERVAL" envDefault:"6h"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	return c
}

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.RuntimePath, "gronkbot.db")
}

// Location resolves the display timezone, falling back to UTC when the zone
// name is unknown.
func (c AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

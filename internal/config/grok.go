package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/gronkbot/pkg/log"
)

type GrokConfig struct {
	APIKey    string `env:"XAI_API_KEY,required,notEmpty"`
	BaseURL   string `env:"XAI_BASE_URL" envDefault:"https://api.x.ai"`
	TextModel string `env:"GROK_TEXT_MODEL" envDefault:"grok-4-fast"`

	// $ per million tokens; search is $ per thousand sources.
	TextInputCost  float64 `env:"GROK_TEXT_INPUT_COST" envDefault:"0.20"`
	TextOutputCost float64 `env:"GROK_TEXT_OUTPUT_COST" envDefault:"0.50"`
	TextCachedCost float64 `env:"GROK_TEXT_CACHED_COST" envDefault:"0.05"`
	SearchCost     float64 `env:"GROK_SEARCH_COST" envDefault:"25.00"`
}

func NewGrokConfig(ctx context.Context) *GrokConfig {
	c := &GrokConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Grok config")
	}
	return c
}

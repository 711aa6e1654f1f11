package llm

import (
	"fmt"

	"github.com/sandevgo/gronkbot/internal/config"
	"github.com/sandevgo/gronkbot/internal/core"
)

const perMillion = 1_000_000

// Pricing converts token usage into dollars using the configured rates.
type Pricing struct {
	cfg *config.GrokConfig
}

func NewPricing(cfg *config.GrokConfig) *Pricing {
	return &Pricing{cfg: cfg}
}

// Cost returns the total request cost in dollars. Cached prompt tokens are
// billed at the cached rate; web-search sources at the per-thousand rate.
func (p *Pricing) Cost(u core.Usage) float64 {
	uncached := u.PromptTokens - u.CachedTokens
	if uncached < 0 {
		uncached = 0
	}
	inputCost := float64(uncached)/perMillion*p.cfg.TextInputCost +
		float64(u.CachedTokens)/perMillion*p.cfg.TextCachedCost
	outputCost := float64(u.CompletionTokens) / perMillion * p.cfg.TextOutputCost
	searchCost := float64(u.SourcesUsed) / 1000 * p.cfg.SearchCost
	return inputCost + outputCost + searchCost
}

// Summary renders the footer usage line shown to the requester.
func (p *Pricing) Summary(u core.Usage) string {
	cost := fmt.Sprintf("💵 $%.6f", p.Cost(u))
	if search := float64(u.SourcesUsed) / 1000 * p.cfg.SearchCost; search > 0 {
		cost += fmt.Sprintf(" (🔍 $%.6f search)", search)
	}
	return fmt.Sprintf("%s • %d in / %d out", cost, u.PromptTokens, u.CompletionTokens)
}

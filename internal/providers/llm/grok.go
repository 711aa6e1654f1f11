package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/sandevgo/gronkbot/internal/config"
	"github.com/sandevgo/gronkbot/internal/core"
)

// Grok talks to the xAI chat completions API. It implements both
// core.Completer and core.ScopeClassifier.
type Grok struct {
	baseProvider
}

func NewGrok(cfg *config.GrokConfig) *Grok {
	return &Grok{
		baseProvider: newBaseProvider(cfg.BaseURL, cfg.APIKey, cfg.TextModel),
	}
}

func (g *Grok) Model() string {
	return g.model
}

func (g *Grok) Complete(ctx context.Context, messages []core.Message, opts core.CompleteOptions) (core.Completion, error) {
	payload := map[string]any{
		"model":    g.model,
		"messages": messages,
	}
	if opts.MaxTokens > 0 {
		payload["max_tokens"] = opts.MaxTokens
	}
	if opts.HasTemperature {
		payload["temperature"] = opts.Temperature
	}
	if opts.WebSearch {
		payload["search_parameters"] = map[string]any{
			"mode":               "auto",
			"max_search_results": opts.MaxSearchResults,
		}
	}

	headers := map[string]string{
		"Authorization": "Bearer " + g.apiKey,
		"User-Agent":    core.GronkUserAgent,
	}

	resp, err := g.doRequest(ctx, http.MethodPost, "/v1/chat/completions", payload, headers)
	if err != nil {
		return core.Completion{}, core.NewServiceError(categorizeTransport(err), err)
	}
	defer resp.Body.Close()

	return parseCompletion(resp)
}

// ClassifyScope asks the backend whether text is about this room's history.
// One cheap call: a fixed two-label prompt, tiny output budget, low
// temperature. Any failure means false.
func (g *Grok) ClassifyScope(ctx context.Context, text string) bool {
	prompt := fmt.Sprintf(scopePromptTemplate, text)

	completion, err := g.Complete(ctx, []core.Message{
		{Role: core.RoleUser, Content: prompt},
	}, core.CompleteOptions{
		MaxTokens:      10,
		Temperature:    0.3,
		HasTemperature: true,
	})
	if err != nil {
		return false
	}

	return strings.Contains(strings.ToUpper(completion.Text), "DISCORD")
}

const scopePromptTemplate = `You are analyzing a Discord bot query. Determine if the user is asking about:

A) DISCORD: The Discord server's chat history, messages, or users in THIS server
B) GENERAL: General knowledge, news, history, or topics outside this Discord server

Examples of DISCORD queries:
- "who talks about Python the most?"
- "what have we discussed about AI recently?"
- "summarize our conversations from last week"
- "who mentions crypto the most?"
- "what are the main topics discussed here?"

Examples of GENERAL queries:
- "who was the smartest person in history?"
- "what have scientists discussed about climate change?"
- "summarize news from last week"
- "what did Elon Musk say recently?"
- "who is the best programmer in the world?"

User query: "%s"

Respond with ONLY one word: "DISCORD" or "GENERAL"
`

func parseCompletion(resp *http.Response) (core.Completion, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.Completion{}, core.NewServiceError(core.ErrorGeneric, fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("http %d: %s", resp.StatusCode, string(data))
		return core.Completion{}, core.NewServiceError(categorizeStatus(resp.StatusCode), err)
	}

	var result struct {
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens        int `json:"prompt_tokens"`
			CompletionTokens    int `json:"completion_tokens"`
			PromptTokensDetails struct {
				CachedTokens int `json:"cached_tokens"`
			} `json:"prompt_tokens_details"`
			NumSourcesUsed int `json:"num_sources_used"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return core.Completion{}, core.NewServiceError(core.ErrorGeneric, fmt.Errorf("decode: %w", err))
	}
	if len(result.Choices) == 0 {
		return core.Completion{}, core.NewServiceError(core.ErrorGeneric, fmt.Errorf("empty choices: %s", string(data)))
	}

	return core.Completion{
		Text:  result.Choices[0].Message.Content,
		Model: result.Model,
		Usage: core.Usage{
			PromptTokens:     result.Usage.PromptTokens,
			CompletionTokens: result.Usage.CompletionTokens,
			CachedTokens:     result.Usage.PromptTokensDetails.CachedTokens,
			SourcesUsed:      result.Usage.NumSourcesUsed,
		},
	}, nil
}

func categorizeStatus(status int) core.ErrorCategory {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return core.ErrorAuth
	case http.StatusTooManyRequests:
		return core.ErrorRateLimited
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return core.ErrorTimeout
	default:
		return core.ErrorGeneric
	}
}

func categorizeTransport(err error) core.ErrorCategory {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return core.ErrorTimeout
	}
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) && ne.Timeout() {
		return core.ErrorTimeout
	}
	return core.ErrorGeneric
}

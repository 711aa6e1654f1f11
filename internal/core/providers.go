package core

import "context"

// CompleteOptions tunes a single completion call.
type CompleteOptions struct {
	MaxTokens        int     // 0 = backend default
	Temperature      float64 // used only when HasTemperature is set
	HasTemperature   bool
	WebSearch        bool // let the backend decide when to search the web
	MaxSearchResults int
}

// Completer is the language-model backend.
type Completer interface {
	Complete(ctx context.Context, messages []Message, opts CompleteOptions) (Completion, error)
}

// ScopeClassifier answers whether an ambiguous query is about this room's
// chat history. Implementations must return false on any failure.
type ScopeClassifier interface {
	ClassifyScope(ctx context.Context, text string) bool
}

// Entity is one extracted named entity.
type Entity struct {
	Text  string
	Label string
}

// Extraction is the output of the keyword/intent extractor.
type Extraction struct {
	Entities []Entity
	Topics   []string
	Intent   string
}

// KeywordExtractor wraps an NLP capability producing entities, topics and an
// intent label from free text.
type KeywordExtractor interface {
	Extract(text string) Extraction
}

// HistoryStream is a lazy, newest-first, finite, single-pass sequence of
// channel messages. Next returns ok=false when the stream is exhausted; a
// non-nil error terminates the stream.
type HistoryStream interface {
	Next(ctx context.Context) (HistoryMessage, bool, error)
}

// HistoryOpener opens a history stream for a channel, bounded to max
// messages.
type HistoryOpener interface {
	OpenHistory(channelID string, max int) HistoryStream
}

// ConversationStore persists one exchange per bot reply so that reply-chain
// follow-ups can recover the prior context.
type ConversationStore interface {
	Store(ctx context.Context, c Conversation) error
	Get(ctx context.Context, messageID string) (Conversation, bool, error)
}

// Conversation is one stored user-query/bot-response exchange, keyed by the
// bot's reply message ID.
type Conversation struct {
	MessageID string
	ChannelID string
	AuthorID  string
	UserQuery string
	Response  string
	Model     string
}

package core

import "time"

const (
	GronkName          = "gronkbot"
	GronkUserAgent     = "GronkBot/0.1"
	GronkRepositoryURL = "https://github.com/sandevgo/gronkbot"
	GronkVersion       = "0.1.0"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged entry in a completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage holds the token accounting returned by the completion backend.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	CachedTokens     int
	SourcesUsed      int
}

// Completion is the result of one completion call.
type Completion struct {
	Text  string
	Usage Usage
	Model string
}

// HistoryMessage is a read-only view of one message fetched from a channel's
// history. It is owned by the platform collaborator; the pipeline only holds
// transient references.
type HistoryMessage struct {
	ID             string
	ChannelID      string
	GuildID        string
	AuthorID       string
	AuthorName     string
	AuthorIsBot    bool
	Content        string
	CreatedAt      time.Time // UTC
	AttachmentURLs []string
	EmbedMediaURLs []string
}

// SearchRequest is the parsed intent of a single history query.
// Immutable after creation by the scope router.
type SearchRequest struct {
	Query          string
	TriggerID      string // the command/mention message itself, always skipped
	TargetUserID   string // empty = all users
	TargetUserName string
	Keyword        string // lowercased; empty = no pre-filter
	Budget         int    // always > 0
}

// Filtered reports whether this is a pre-filtered deep scan rather than a
// bounded recent scan.
func (r SearchRequest) Filtered() bool {
	return r.Keyword != ""
}

// ScanResult holds the messages discovered by one scan, newest first in
// encounter order, plus the scan counters.
type ScanResult struct {
	Messages []HistoryMessage // newest first
	Scanned  int
	Matched  int
}

// NumberMap maps the 1-based chronological message number assigned by the
// context builder back to the originating message. Numbers are contiguous
// starting at 1 with no gaps.
type NumberMap map[int]HistoryMessage

// LinkBuilder renders a platform deep link for a message. Pure string
// formatting, supplied by the transport.
type LinkBuilder func(m HistoryMessage) string

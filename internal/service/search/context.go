package search

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"github.com/sandevgo/gronkbot/internal/core"
)

// Message content is truncated in the prompt; the model cites, the link
// carries the full text.
const contentTruncateAt = 300

// Prompt is the rendered model input for one history query.
type Prompt struct {
	Text     string
	Numbers  core.NumberMap
	Analyzed int // messages included in the prompt
	Tokens   int // rough token estimate, 0 when the encoder is unavailable
}

// ContextBuilder renders a scan result into a numbered evidence prompt and
// the number map the citation resolver needs afterwards.
type ContextBuilder struct {
	analysisCap int
	loc         *time.Location
	tzName      string
	encoder     *tiktoken.Tiktoken
}

func NewContextBuilder(analysisCap int, loc *time.Location, tzName string) *ContextBuilder {
	// Token estimation is advisory; run without it if the encoding cannot
	// be loaded (e.g. no network for the BPE files).
	encoder, _ := tiktoken.GetEncoding("cl100k_base")
	return &ContextBuilder{
		analysisCap: analysisCap,
		loc:         loc,
		tzName:      tzName,
		encoder:     encoder,
	}
}

// Build numbers the analysisCap most-recent matches chronologically and
// renders them as one prompt. The returned map is keyed 1..Analyzed with no
// gaps; the caller resolves citations against it.
func (b *ContextBuilder) Build(scan core.ScanResult, req core.SearchRequest) Prompt {
	analyzed := min(len(scan.Messages), b.analysisCap)
	recent := scan.Messages[:analyzed] // newest first

	var sb strings.Builder
	if req.TargetUserID != "" {
		fmt.Fprintf(&sb, "Search query: %s\n\nUser %s's recent messages (showing %d of %d found, from oldest to newest):\n",
			req.Query, req.TargetUserName, analyzed, len(scan.Messages))
	} else {
		fmt.Fprintf(&sb, "Search query: %s\n\nChannel messages (showing %d of %d found, from oldest to newest):\n",
			req.Query, analyzed, len(scan.Messages))
	}

	numbers := make(core.NumberMap, analyzed)
	for i := analyzed - 1; i >= 0; i-- {
		msg := recent[i]
		n := analyzed - i // oldest = 1
		numbers[n] = msg

		ts := msg.CreatedAt.In(b.loc).Format("2006-01-02 15:04 MST")
		if req.TargetUserID != "" {
			// Author omitted: every line is the target user, spend the
			// tokens on content instead.
			fmt.Fprintf(&sb, "\n[%d] [%s] %s", n, ts, truncate(msg.Content))
		} else {
			fmt.Fprintf(&sb, "\n[%d] [%s] %s: %s", n, ts, msg.AuthorName, truncate(msg.Content))
		}
	}

	fmt.Fprintf(&sb, "\n\n\nBased on these messages, %s", req.Query)
	sb.WriteString(citationInstructions)
	fmt.Fprintf(&sb, "\n\n\nNote: All timestamps are in %s timezone.", b.tzName)

	text := sb.String()
	return Prompt{
		Text:     text,
		Numbers:  numbers,
		Analyzed: analyzed,
		Tokens:   b.estimate(text),
	}
}

// The wording is a contract with the model: the resolver expects individual
// [#N] markers and tolerates, but should rarely see, ranges.
const citationInstructions = "\n\n\nIMPORTANT CITATION GUIDELINES:" +
	"\n- Cite key messages that support your main points (aim for 3-6 total citations)" +
	"\n- Be selective - don't cite every message, but DO cite your evidence" +
	"\n- NEVER use ranges like [#5-#10] - only cite individual messages: [#5], [#7], [#10]" +
	"\n- Use EXACTLY this format: [#N] where N is the message number" +
	"\n- Examples: [#5] or [#12]. Multiple: [#3], [#7], and [#12]" +
	"\n- Do NOT add any extra text or context inside the brackets" +
	"\n\n\nNote: Custom emojis appear as <:emoji_name:emoji_id>. When quoting messages with emojis, preserve this exact format."

func (b *ContextBuilder) estimate(text string) int {
	if b.encoder == nil {
		return 0
	}
	return len(b.encoder.Encode(text, nil, nil))
}

func truncate(content string) string {
	runes := []rune(content)
	if len(runes) <= contentTruncateAt {
		return content
	}
	return string(runes[:contentTruncateAt]) + "..."
}

package discord

import (
	"strings"
	"unicode/utf8"
)

// Discord caps plain messages at 2000 characters and embed descriptions at
// 4096. Splitting must never land inside a markdown citation link or the
// link renders as garbage.
const messageLimit = 2000

// splitMessage breaks text into chunks of at most limit bytes, preferring
// paragraph then sentence boundaries, and never cutting inside a markdown
// link.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
	}

	for _, para := range strings.Split(text, "\n\n") {
		if current.Len()+len(para)+2 <= limit {
			current.WriteString(para)
			current.WriteString("\n\n")
			continue
		}
		flush()

		if len(para) <= limit {
			current.WriteString(para)
			current.WriteString("\n\n")
			continue
		}

		// Paragraph alone is too long: go sentence by sentence, hard-cutting
		// only as a last resort.
		for _, sentence := range strings.SplitAfter(para, ". ") {
			if current.Len()+len(sentence) > limit {
				flush()
			}
			for len(sentence) > limit {
				cut := safeCut(sentence, limit)
				chunks = append(chunks, strings.TrimSpace(sentence[:cut]))
				sentence = strings.TrimSpace(sentence[cut:])
			}
			current.WriteString(sentence)
		}
		flush()
	}
	flush()
	return chunks
}

// safeCut picks a cut position at or before limit that is outside any
// markdown link and on a rune boundary.
func safeCut(s string, limit int) int {
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	chunk := s[:cut]

	// An opener after its closer means the cut lands mid-link.
	openBracket := strings.LastIndex(chunk, "[")
	closeBracket := strings.LastIndex(chunk, "]")
	openParen := strings.LastIndex(chunk, "(")
	closeParen := strings.LastIndex(chunk, ")")

	if openBracket > closeBracket || openParen > closeParen {
		start := openBracket
		if openParen > start {
			start = openParen
		}
		if sp := strings.LastIndex(chunk[:start], " "); sp > 0 {
			return sp
		}
		if start > 0 {
			return start
		}
	}
	return cut
}

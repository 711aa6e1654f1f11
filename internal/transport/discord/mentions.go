package discord

import (
	"regexp"
	"strings"
)

// memberResolver maps a lowercased username or display name to a user ID.
type memberResolver func(name string) (string, bool)

var (
	atNameRe     = regexp.MustCompile(`@([a-zA-Z0-9_]{2,32})`)
	quotedNameRe = regexp.MustCompile(`"([a-zA-Z0-9_]{2,32})"`)
	capNameRe    = regexp.MustCompile(`[A-Z][a-zA-Z0-9_]{1,31}`)
)

// convertUsernames rewrites usernames the model wrote as plain text into
// real <@id> mentions. Three passes, most to least confident: @name, "name",
// then a conservative capitalized word between whitespace and punctuation.
// Existing <@id> mentions are left alone.
func convertUsernames(text string, resolve memberResolver) string {
	text = replaceNames(text, atNameRe, resolve, func(s string, start, end int) bool {
		return (start == 0 || s[start-1] != '<') && (end >= len(s) || s[end] != '>')
	})
	text = replaceNames(text, quotedNameRe, resolve, func(string, int, int) bool {
		return true
	})
	return replaceNames(text, capNameRe, resolve, func(s string, start, end int) bool {
		if start == 0 || s[start-1] != ' ' {
			return false
		}
		return end < len(s) && strings.ContainsRune(" ,.'", rune(s[end]))
	})
}

// replaceNames substitutes each eligible match whose captured (or whole)
// name resolves to a member. eligible sees the full text plus the match
// bounds so callers can inspect adjacent characters.
func replaceNames(text string, re *regexp.Regexp, resolve memberResolver, eligible func(s string, start, end int) bool) string {
	matches := re.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var sb strings.Builder
	prev := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		nameStart, nameEnd := start, end
		if len(m) >= 4 && m[2] >= 0 {
			nameStart, nameEnd = m[2], m[3]
		}
		name := strings.ToLower(text[nameStart:nameEnd])

		if !eligible(text, start, end) {
			continue
		}
		id, ok := resolve(name)
		if !ok {
			continue
		}
		sb.WriteString(text[prev:start])
		sb.WriteString("<@" + id + ">")
		prev = end
	}
	sb.WriteString(text[prev:])
	return sb.String()
}

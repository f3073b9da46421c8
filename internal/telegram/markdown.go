package telegram

import (
	"strings"
	"unicode/utf8"
)

var markdownEscaper = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"`", "\\`",
	"[", "\\[",
)

// EscapeMarkdown escapes user text such as track titles for legacy Markdown.
func EscapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}

// SplitMessage splits a message into chunks of maxLen characters,
// preferring newline boundaries.
func SplitMessage(text string, maxLen int) []string {
	if utf8.RuneCountInString(text) <= maxLen {
		return []string{text}
	}

	var parts []string
	runes := []rune(text)
	for len(runes) > 0 {
		if len(runes) <= maxLen {
			parts = append(parts, string(runes))
			break
		}

		splitAt := maxLen
		chunk := string(runes[:maxLen])
		if i := strings.LastIndex(chunk, "\n"); i >= 0 {
			if n := utf8.RuneCountInString(chunk[:i]); n > maxLen/2 {
				splitAt = n + 1
			}
		}

		parts = append(parts, string(runes[:splitAt]))
		runes = runes[splitAt:]
	}

	return parts
}

// Truncate cuts text to maxLen runes, marking the cut.
func Truncate(text string, maxLen int) string {
	if utf8.RuneCountInString(text) <= maxLen {
		return text
	}
	return string([]rune(text)[:maxLen-1]) + "…"
}

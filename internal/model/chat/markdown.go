package chat

import (
	"regexp"
	"strings"
)

const snippetRunes = 200

var (
	reCodeBlock  = regexp.MustCompile("(?s)```.*?```")
	reInlineCode = regexp.MustCompile("`([^`]+)`")
	reBold       = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	reItalic     = regexp.MustCompile(`\*([^*]+)\*`)
	reBoldUnder  = regexp.MustCompile(`__([^_]+)__`)
	reUnder      = regexp.MustCompile(`_([^_]+)_`)
	reHeader     = regexp.MustCompile(`(?m)^#+\s+`)
	reLink       = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	reBullet     = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	reNumbered   = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	reQuote      = regexp.MustCompile(`(?m)^>\s+`)
	reRule       = regexp.MustCompile(`(?m)^\s*[-*_]{3,}\s*$`)
	reBlankRuns  = regexp.MustCompile(`\n\s*\n\s*\n`)
)

// StripMarkdown removes markdown formatting while keeping the readable
// text, producing the plain-text rendering of an answer.
func StripMarkdown(text string) string {
	if text == "" {
		return ""
	}

	text = reCodeBlock.ReplaceAllString(text, "")
	text = reInlineCode.ReplaceAllString(text, "$1")
	text = reBold.ReplaceAllString(text, "$1")
	text = reItalic.ReplaceAllString(text, "$1")
	text = reBoldUnder.ReplaceAllString(text, "$1")
	text = reUnder.ReplaceAllString(text, "$1")
	text = reHeader.ReplaceAllString(text, "")
	text = reLink.ReplaceAllString(text, "$1")
	text = reBullet.ReplaceAllString(text, "")
	text = reNumbered.ReplaceAllString(text, "")
	text = reQuote.ReplaceAllString(text, "")
	text = reRule.ReplaceAllString(text, "")
	text = reBlankRuns.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

// Snippet bounds attribution text to a display-friendly length.
func Snippet(content string) string {
	runes := []rune(content)
	if len(runes) <= snippetRunes {
		return content
	}
	return string(runes[:snippetRunes]) + "..."
}

// Package textnorm prepares raw evidence text for analysis. Both the
// sentiment scorer and the legal case extractor run their inputs through
// Normalize before doing anything else.
package textnorm

import (
	"regexp"
	"strings"
)

var (
	urlRe  = regexp.MustCompile(`http[s]?://\S+`)
	junkRe = regexp.MustCompile(`[^\p{L}\p{N}_\s.,\-]`)
	wsRe   = regexp.MustCompile(`\s+`)
)

// Normalize strips URLs, collapses whitespace runs to single spaces, and
// removes characters outside letters, digits, whitespace, and `. , -`.
// Non-ASCII letters (diacritics, non-Latin scripts) survive. Empty input
// yields empty output.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = urlRe.ReplaceAllString(text, "")
	text = wsRe.ReplaceAllString(text, " ")
	text = junkRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// StripMarkdown removes the markdown syntax search providers sprinkle over
// their answers: bold/italic markers, links, headers, and code fences.
func StripMarkdown(text string) string {
	if text == "" {
		return text
	}
	text = fenceRe.ReplaceAllString(text, "")
	text = boldRe.ReplaceAllString(text, "$1")
	text = boldUnderRe.ReplaceAllString(text, "$1")
	text = italicRe.ReplaceAllString(text, "$1")
	text = italicUnderRe.ReplaceAllString(text, "$1")
	text = linkRe.ReplaceAllString(text, "$1")
	text = headerRe.ReplaceAllString(text, "")
	text = codeRe.ReplaceAllString(text, "$1")
	return strings.TrimSpace(wsRe.ReplaceAllString(text, " "))
}

var (
	boldRe        = regexp.MustCompile(`\*\*(.+?)\*\*`)
	boldUnderRe   = regexp.MustCompile(`__(.+?)__`)
	italicRe      = regexp.MustCompile(`\*(.+?)\*`)
	italicUnderRe = regexp.MustCompile(`_(.+?)_`)
	linkRe        = regexp.MustCompile(`\[([^\]]+)\]\([^\)]+\)`)
	headerRe      = regexp.MustCompile(`(?m)^#+\s+`)
	codeRe        = regexp.MustCompile("`([^`]+)`")
	fenceRe       = regexp.MustCompile("(?s)```.*?```")
)

package ingestion

import (
	"regexp"
	"strings"
)

var (
	markdownHeader     = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	markdownBold       = regexp.MustCompile(`\*\*(.*?)\*\*`)
	markdownItalic     = regexp.MustCompile(`\*(.*?)\*`)
	markdownInlineCode = regexp.MustCompile("`(.*?)`")
	markdownLink       = regexp.MustCompile(`\[([^\]]+)\]\([^\)]+\)`)
	blankLineRun       = regexp.MustCompile(`\n\s*\n`)
	spaceRun           = regexp.MustCompile(`[ \t]+`)
)

// Normalize strips markdown decoration from document text and canonicalizes
// whitespace. Chunking, fingerprinting, and storage all operate on the
// normalized form, so decoration-only edits to a source never change the
// document's identity.
func Normalize(text string) string {
	text = markdownHeader.ReplaceAllString(text, "")
	text = markdownBold.ReplaceAllString(text, "$1")
	text = markdownItalic.ReplaceAllString(text, "$1")
	text = markdownInlineCode.ReplaceAllString(text, "$1")
	text = markdownLink.ReplaceAllString(text, "$1")
	text = blankLineRun.ReplaceAllString(text, "\n\n")
	text = spaceRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

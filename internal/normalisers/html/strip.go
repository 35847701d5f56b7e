package html

import (
	"html"
	"regexp"
)

// Pre-compiled regular expressions for the last-resort tag stripper.
var (
	scriptTag     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag   = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	htmlComments  = regexp.MustCompile(`(?s)<!--.*?-->`)
	cellBoundary  = regexp.MustCompile(`(?i)</t[dh]>\s*<t[dh][^>]*>`)
	blockElements = regexp.MustCompile(`(?i)</?(p|div|br|hr|h[1-6]|li|tr|blockquote|pre|table|section|article)[^>]*>`)
	allTags       = regexp.MustCompile(`<[^>]+>`)
)

// stripHTML removes tags with regular expressions. It is used only when
// no parser accepted the input.
func stripHTML(content string) string {
	content = scriptTag.ReplaceAllString(content, "")
	content = styleTag.ReplaceAllString(content, "")
	content = noscriptTag.ReplaceAllString(content, "")
	content = htmlComments.ReplaceAllString(content, "")

	// Keep table cells apart and rows on their own line
	content = cellBoundary.ReplaceAllString(content, CellSeparator)
	content = blockElements.ReplaceAllString(content, "\n")

	content = allTags.ReplaceAllString(content, "")
	return html.UnescapeString(content)
}

// Package article implements the summarization collaborators: URL detection
// in chat messages, page fetching, and main-text extraction from HTML.
package article

import "regexp"

// urlPattern matches http(s) URLs up to the first character that cannot be
// part of one. The excluded set intentionally keeps trailing sentence
// punctuation like ">" or "]" out of the match.
var urlPattern = regexp.MustCompile(`https?://[^\s<>"{}|\\^` + "`" + `\[\]]+`)

// ExtractURLs returns every http(s) URL found in text, in order of
// appearance. Returns nil when text contains none.
func ExtractURLs(text string) []string {
	return urlPattern.FindAllString(text, -1)
}

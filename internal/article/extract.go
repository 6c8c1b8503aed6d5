package article

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// maxTextLen caps the extracted text to keep the summarization prompt within
// token limits. Longer texts are cut and marked with truncationMark.
const (
	maxTextLen     = 8000
	truncationMark = "..."
)

// skipElements are subtrees dropped entirely during extraction — chrome and
// code rather than article prose.
var skipElements = map[string]bool{
	"script": true,
	"style":  true,
	"nav":    true,
	"header": true,
	"footer": true,
	"aside":  true,
}

// ExtractText parses page as HTML and returns its main textual content:
// the text of the first <article> element, else <main>, else <body>, with
// chrome subtrees removed and one line per text node. The result is
// truncated to maxTextLen characters with a truncation marker appended.
func ExtractText(page string) (string, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	root := findFirst(doc, "article")
	if root == nil {
		root = findFirst(doc, "main")
	}
	if root == nil {
		root = findFirst(doc, "body")
	}
	if root == nil {
		return "", fmt.Errorf("no article, main, or body element")
	}

	var lines []string
	collectText(root, &lines)
	text := strings.Join(lines, "\n")

	if len(text) > maxTextLen {
		text = text[:maxTextLen] + truncationMark
	}
	return text, nil
}

// findFirst returns the first element named tag in a depth-first walk of n,
// or nil.
func findFirst(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// collectText appends the trimmed text of every text node under n to lines,
// skipping the subtrees listed in skipElements.
func collectText(n *html.Node, lines *[]string) {
	if n.Type == html.ElementNode && skipElements[n.Data] {
		return
	}
	if n.Type == html.TextNode {
		if t := strings.TrimSpace(n.Data); t != "" {
			*lines = append(*lines, t)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, lines)
	}
}

package extractor

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// Summary is the readability view of a page, reported next to the
// heuristic extraction.
type Summary struct {
	Title   string
	Byline  string
	Excerpt string
	Length  int
}

// Summarize runs readability over the document.
func Summarize(doc *goquery.Document, pageURL string) (*Summary, error) {
	html, err := doc.Html()
	if err != nil {
		return nil, fmt.Errorf("failed to render document: %w", err)
	}

	var base *url.URL
	if u, err := url.Parse(pageURL); err == nil && u.IsAbs() {
		base = u
	}

	article, err := readability.FromReader(strings.NewReader(html), base)
	if err != nil {
		return nil, fmt.Errorf("failed to process with readability: %w", err)
	}

	return &Summary{
		Title:   strings.TrimSpace(article.Title),
		Byline:  strings.TrimSpace(article.Byline),
		Excerpt: strings.TrimSpace(article.Excerpt),
		Length:  article.Length,
	}, nil
}

package extractor

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var bylinePrefix = regexp.MustCompile(`(?i)^by\s+`)

// ExtractMultipleArticles finds independent articles on the page. Elements
// are visited in ArticleSelectors order, then document order; each element is
// considered once, and at most MaxArticles candidates are returned.
func (e *Extractor) ExtractMultipleArticles(doc *goquery.Document, pageURL string) []ArticleCandidate {
	articles := []ArticleCandidate{}
	seen := make(map[*html.Node]bool)

	for _, sel := range ArticleSelectors {
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			node := s.Get(0)
			if seen[node] {
				return true
			}
			seen[node] = true

			cleaned := e.CleanText(s)
			if runeLen(cleaned.Text) < MinArticleLength {
				return true
			}

			author := bylinePrefix.ReplaceAllString(firstValue(s, ArticleAuthorRules), "")
			articles = append(articles, ArticleCandidate{
				Index:        len(articles),
				Text:         cleaned.Text,
				Title:        firstValue(s, ArticleTitleRules),
				Author:       author,
				PublishDate:  firstValue(s, ArticleDateRules),
				URL:          articleURL(s, pageURL),
				WordCount:    len(strings.Fields(cleaned.Text)),
				SelectorUsed: sel,
			})
			return len(articles) < MaxArticles
		})
		if len(articles) >= MaxArticles {
			break
		}
	}

	if len(articles) > 0 {
		e.logger.Debug().Int("count", len(articles)).Msg("article candidates found")
	}
	return articles
}

// articleURL returns the first link inside the article resolved against the
// page, or the page URL when the article has no usable link.
func articleURL(s *goquery.Selection, pageURL string) string {
	href := strings.TrimSpace(s.Find("a[href]").First().AttrOr("href", ""))
	if href == "" || strings.HasPrefix(href, "#") {
		return pageURL
	}
	if strings.HasPrefix(href, "http") {
		return href
	}
	return resolve(pageURL, href)
}

// resolve makes ref absolute against base. Unparseable input is returned
// as is.
func resolve(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

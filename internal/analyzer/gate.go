package analyzer

import (
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// Content kinds reported by DetectContentType.
const (
	ContentArticle = "article"
	ContentBlog    = "blog"
)

var gateArticleSelectors = []string{
	"article",
	`[role="article"]`,
	".article",
	".post",
	".entry-content",
	"main article",
	".story-body",
	".article-body",
}

const gateBlogSelector = ".post-content, .blog-post, .entry"

// DetectContentType reports whether the document looks worth analyzing
// automatically: an article-like element with more than minText characters,
// or blog markup.
func DetectContentType(doc *goquery.Document, minText int) (string, bool) {
	if doc == nil {
		return "", false
	}
	for _, sel := range gateArticleSelectors {
		el := doc.Find(sel).First()
		if el.Length() > 0 && utf8.RuneCountInString(el.Text()) > minText {
			return ContentArticle, true
		}
	}
	if doc.Find(gateBlogSelector).Length() > 0 {
		return ContentBlog, true
	}
	return "", false
}

// Package extractor pulls article text, metadata and images out of a parsed
// document using ordered selector rule tables.
package extractor

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/byteowlz/factscan/internal/pagetype"
)

// Extractor holds no per-document state; one instance can be shared.
type Extractor struct {
	logger zerolog.Logger
}

func New(logger zerolog.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract runs every extraction step over doc. pageURL is the document
// location and pageType the result of page classification.
func (e *Extractor) Extract(doc *goquery.Document, pageURL string, pageType pagetype.Type) *Content {
	content := &Content{
		Source:   hostname(pageURL),
		PageType: pageType,
		Articles: []ArticleCandidate{},
		Images:   []ImageRef{},
	}

	content.Title = e.ExtractTitle(doc)
	content.Author, content.PublishDate = e.ExtractMetadata(doc)

	cleaned := e.ExtractText(doc)
	content.Text = cleaned.Text
	content.AdBlockedCount = cleaned.AdsBlocked

	content.Articles = e.ExtractMultipleArticles(doc, pageURL)
	content.Images = e.ExtractImages(doc, pageURL)
	content.Language = DetectLanguage(content.Text)

	if summary, err := Summarize(doc, pageURL); err != nil {
		e.logger.Debug().Err(err).Str("url", pageURL).Msg("readability summary unavailable")
	} else {
		content.Excerpt = summary.Excerpt
		if content.Author == "" {
			content.Author = summary.Byline
		}
		if content.Title == "" {
			content.Title = summary.Title
		}
	}

	content.Confidence = CalculateConfidence(content)

	e.logger.Debug().
		Str("url", pageURL).
		Str("page_type", string(pageType)).
		Int("text_length", utf8.RuneCountInString(content.Text)).
		Int("articles", len(content.Articles)).
		Int("images", len(content.Images)).
		Int("ads_blocked", content.AdBlockedCount).
		Int("confidence", content.Confidence).
		Msg("content extracted")

	return content
}

// ExtractTitle returns the first non-empty title from TitleRules.
func (e *Extractor) ExtractTitle(doc *goquery.Document) string {
	return firstValue(doc.Selection, TitleRules)
}

// ExtractMetadata returns the author and publish date. Missing values are
// empty strings.
func (e *Extractor) ExtractMetadata(doc *goquery.Document) (author, publishDate string) {
	return firstValue(doc.Selection, AuthorRules), firstValue(doc.Selection, DateRules)
}

// firstValue evaluates rules in order within scope and returns the first
// non-empty value.
func firstValue(scope *goquery.Selection, rules []ValueRule) string {
	for _, r := range rules {
		el := scope.Find(r.Selector).First()
		if el.Length() == 0 {
			continue
		}
		if v := ruleValue(el, r); v != "" && runeLen(v) >= r.MinLen {
			return v
		}
	}
	return ""
}

func ruleValue(el *goquery.Selection, r ValueRule) string {
	for _, attr := range r.Attrs {
		if v, ok := el.Attr(attr); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	if r.Text {
		return strings.TrimSpace(el.Text())
	}
	return ""
}

// CalculateConfidence scores how complete an extraction is on a 0..100
// scale.
func CalculateConfidence(c *Content) int {
	score := 0
	textLen := runeLen(c.Text)

	if runeLen(c.Title) > 10 {
		score += 15
	}
	if c.Author != "" {
		score += 10
	}
	if c.PublishDate != "" {
		score += 10
	}
	if textLen > 300 {
		score += 15
	}
	if textLen > 800 {
		score += 10
	}
	if textLen > 1500 {
		score += 10
	}
	if c.PageType != "" && c.PageType != pagetype.Unknown {
		score += 15
	}
	if len(c.Articles) > 0 {
		score += 10
	}
	if c.AdBlockedCount > 0 {
		score += 10
	}
	return min(score, 100)
}

// DetectLanguage guesses the language from the script used in the first 100
// characters. Latin text is reported as English.
func DetectLanguage(text string) string {
	var hi, zh, ar bool
	n := 0
	for _, r := range text {
		if n == 100 {
			break
		}
		n++
		switch {
		case unicode.Is(unicode.Devanagari, r):
			hi = true
		case unicode.Is(unicode.Han, r):
			zh = true
		case unicode.Is(unicode.Arabic, r):
			ar = true
		}
	}
	switch {
	case hi:
		return "hi"
	case zh:
		return "zh"
	case ar:
		return "ar"
	}
	return "en"
}

func hostname(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

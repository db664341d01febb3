package extractor

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

// ExtractText selects the main content container and returns its cleaned
// text.
func (e *Extractor) ExtractText(doc *goquery.Document) CleanResult {
	container := e.SelectContainer(doc)
	return e.CleanText(container)
}

// SelectContainer returns the element most likely to hold the article body.
// The longest ContentSelectors match above MinContainerText wins; when that
// is missing or short, the longest div with at least three paragraphs and
// more than GoodContainerText characters replaces it. The body is the last
// resort.
func (e *Extractor) SelectContainer(doc *goquery.Document) *goquery.Selection {
	var best *goquery.Selection
	bestLen := 0

	for _, sel := range ContentSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			n := runeLen(strings.TrimSpace(s.Text()))
			if n > bestLen && n > MinContainerText {
				best, bestLen = s, n
			}
		})
	}

	if best == nil || bestLen < GoodContainerText {
		var dense *goquery.Selection
		denseLen := 0
		doc.Find("div").Each(func(_ int, s *goquery.Selection) {
			if s.Find("p").Length() < 3 {
				return
			}
			n := runeLen(strings.TrimSpace(s.Text()))
			if n > GoodContainerText && n > denseLen {
				dense, denseLen = s, n
			}
		})
		if dense != nil {
			e.logger.Debug().Int("length", denseLen).Msg("using paragraph-dense div as content container")
			best = dense
		}
	}

	if best == nil {
		e.logger.Debug().Msg("no content container found, using document body")
		body := doc.Find("body").First()
		if body.Length() == 0 {
			return doc.Selection
		}
		return body
	}
	return best
}

// CleanText extracts readable paragraph text from a detached copy of
// container. The container itself is never modified.
func (e *Extractor) CleanText(container *goquery.Selection) CleanResult {
	clone := container.Clone()
	blocked := 0

	for _, sel := range BoilerplateSelectors {
		found := clone.Find(sel)
		blocked += found.Length()
		found.Remove()
	}

	var paragraphs *goquery.Selection
	minLen := 20
	if dense := clone.Find(DenseBodySelector).First(); dense.Length() > 0 {
		paragraphs = dense.Find("p")
	} else {
		for _, sel := range DirectParagraphSelectors {
			if found := clone.Find(sel); found.Length() > 0 {
				paragraphs = found
				break
			}
		}
	}
	if paragraphs == nil || paragraphs.Length() == 0 {
		paragraphs = clone.Find("p")
		minLen = 10
	}

	var body strings.Builder
	paragraphs.Each(func(_ int, p *goquery.Selection) {
		if text, ok := keepParagraph(p, minLen); ok {
			body.WriteString(text)
			body.WriteString("\n\n")
		}
	})

	var headings strings.Builder
	clone.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, h *goquery.Selection) {
		text := strings.TrimSpace(h.Text())
		if runeLen(text) > 5 && !IsAdText(text) {
			headings.WriteString(text)
			headings.WriteString("\n\n")
		}
	})

	text := headings.String() + body.String()
	if runeLen(text) < MinCleanedText {
		clone.Find("p").Each(func(_ int, p *goquery.Selection) {
			if IsAdText(p.Text()) {
				p.Remove()
			}
		})
		text = clone.Text()
	}

	text = Normalize(text)
	e.logger.Debug().Int("blocked", blocked).Int("length", runeLen(text)).Msg("cleaned container text")
	return CleanResult{Text: text, AdsBlocked: blocked}
}

// keepParagraph applies the paragraph filters and returns the trimmed text
// when it survives them.
func keepParagraph(p *goquery.Selection, minLen int) (string, bool) {
	text := strings.TrimSpace(p.Text())
	n := runeLen(text)
	if n < minLen || IsAdText(text) {
		return "", false
	}

	lower := strings.ToLower(text)
	for _, phrase := range uiPhrases {
		if strings.Contains(lower, phrase) {
			return "", false
		}
	}

	linkLen := 0
	p.Find("a").Each(func(_ int, a *goquery.Selection) {
		linkLen += runeLen(a.Text())
	})
	if float64(linkLen)/float64(n) > MaxLinkDensity {
		return "", false
	}
	return text, true
}

// IsAdText reports whether text looks like promotional boilerplate.
func IsAdText(text string) bool {
	text = strings.TrimSpace(text)
	for _, re := range adPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

var whitespaceRun = regexp.MustCompile(`[\s\p{Z}]+`)

// Normalize collapses every whitespace run, line breaks included, to one
// space, trims the result and converts it to NFC. Text that differs only in
// layout fingerprints the same.
func Normalize(text string) string {
	text = whitespaceRun.ReplaceAllString(text, " ")
	return norm.NFC.String(strings.TrimSpace(text))
}

package extractor

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	pixelAttr   = regexp.MustCompile(`(?i)^\s*(\d+)\s*(?:px)?\s*$`)
	styleWidth  = regexp.MustCompile(`(?i)(?:^|[;\s])width\s*:\s*(\d+)px`)
	styleHeight = regexp.MustCompile(`(?i)(?:^|[;\s])height\s*:\s*(\d+)px`)
)

// ExtractImages collects up to MaxImages sizeable content images from the
// content container chosen by SelectContainer. Images without declared
// pixel dimensions are skipped.
func (e *Extractor) ExtractImages(doc *goquery.Document, pageURL string) []ImageRef {
	container := e.SelectContainer(doc)

	images := []ImageRef{}
	seen := make(map[string]bool)

	container.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src := strings.TrimSpace(img.AttrOr("src", ""))
		if src == "" {
			src = strings.TrimSpace(img.AttrOr("data-src", ""))
		}
		if src == "" {
			return true
		}
		src = resolve(pageURL, src)

		width, height := dimensions(img)
		if width < MinImageDimension || height < MinImageDimension {
			return true
		}
		if seen[src] || isTracking(src) {
			return true
		}

		alt := strings.TrimSpace(img.AttrOr("alt", ""))
		images = append(images, ImageRef{
			URL:     src,
			Alt:     alt,
			Caption: caption(img, alt),
			Width:   width,
			Height:  height,
		})
		seen[src] = true
		return len(images) < MaxImages
	})

	return images
}

// caption prefers the enclosing figure's figcaption, then a caption sibling,
// then the alt text.
func caption(img *goquery.Selection, alt string) string {
	if fig := img.Closest("figure"); fig.Length() > 0 {
		if text := strings.TrimSpace(fig.Find("figcaption").First().Text()); text != "" {
			return text
		}
	}
	if next := img.Next(); next.HasClass("caption") || next.HasClass("image-caption") {
		if text := strings.TrimSpace(next.Text()); text != "" {
			return text
		}
	}
	return alt
}

func dimensions(img *goquery.Selection) (int, int) {
	style := img.AttrOr("style", "")
	return dimension(img.AttrOr("width", ""), style, styleWidth),
		dimension(img.AttrOr("height", ""), style, styleHeight)
}

// dimension reads a pixel size from the attribute (plain integer or px) or
// the inline style. Percentages and other units count as undeclared.
func dimension(attr, style string, re *regexp.Regexp) int {
	if m := pixelAttr.FindStringSubmatch(attr); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	if m := re.FindStringSubmatch(style); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return 0
}

func isTracking(src string) bool {
	lower := strings.ToLower(src)
	for _, p := range trackingPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

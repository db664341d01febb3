package extractor

import "github.com/byteowlz/factscan/internal/pagetype"

// Content is everything extracted from one page.
type Content struct {
	Text           string             `json:"text"`
	Title          string             `json:"title"`
	Author         string             `json:"author"`
	PublishDate    string             `json:"publishDate"`
	Source         string             `json:"source"`
	PageType       pagetype.Type      `json:"pageType"`
	Articles       []ArticleCandidate `json:"articles"`
	Images         []ImageRef         `json:"images"`
	Confidence     int                `json:"confidence"`
	AdBlockedCount int                `json:"adBlockedCount"`
	Language       string             `json:"language"`
	Excerpt        string             `json:"excerpt,omitempty"`
}

// ArticleCandidate is one of several independent articles found on a page.
type ArticleCandidate struct {
	Index        int    `json:"index"`
	Text         string `json:"text"`
	Title        string `json:"title"`
	Author       string `json:"author"`
	PublishDate  string `json:"publishDate"`
	URL          string `json:"url"`
	WordCount    int    `json:"wordCount"`
	SelectorUsed string `json:"selectorUsed"`
}

type ImageRef struct {
	URL     string `json:"url"`
	Alt     string `json:"alt"`
	Caption string `json:"caption"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

// CleanResult is the output of CleanText.
type CleanResult struct {
	Text       string
	AdsBlocked int
}

// Limits.
const (
	MaxArticles       = 10
	MaxImages         = 3
	MinArticleLength  = 200
	MinContainerText  = 200
	GoodContainerText = 500
	MinCleanedText    = 300
	MinImageDimension = 100
	MaxLinkDensity    = 0.7
)

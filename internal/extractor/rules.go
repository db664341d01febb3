package extractor

import "regexp"

// ContentSelectors are tried in order when looking for the main content
// container. The element with the most text wins.
var ContentSelectors = []string{
	// semantic markup
	"article",
	`[role="article"]`,
	`[itemtype*="Article"]`,

	// news sites
	".story-element-text",
	".sp-cn",
	"#ins_storybody",
	".article-content",
	".post-content",
	".entry-content",
	".story-body",
	".article-body",
	".story-content",
	".main-content",

	// generic content areas
	"main article",
	"main .content",
	"#content article",
	".content",
	`[itemprop="articleBody"]`,

	"div.story", "div.article", "div.post",
	"section.story", "section.article",
}

// BoilerplateSelectors are stripped from a container before its text is
// read. Every removed element counts towards the blocked total.
var BoilerplateSelectors = []string{
	"script", "style", "noscript", "link",
	"nav",
	"header:not(article header)",
	"footer:not(article footer)",
	"aside:not(article aside)",
	"menu",
	".comments", ".comment-section", "#disqus_thread",
}

// DenseBodySelector finds a known high density article body whose
// paragraphs are read directly.
const DenseBodySelector = ".sp-cn, #ins_storybody, .story__content, .article__content"

// DirectParagraphSelectors are tried in order when no dense body exists.
// The first selector with any match is used.
var DirectParagraphSelectors = []string{
	".story-element-text",
	"#ins_storybody p",
	".article__content p",
	".story__content p",
	`div[itemprop="articleBody"] p`,
	".content_text p",
}

// ArticleSelectors locate independent articles on a page, in priority
// order.
var ArticleSelectors = []string{
	"article",
	`[itemtype*="Article"]`,
	".article",
	".post",
	".story",
	".news-item",
	`[role="article"]`,
}

var adPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^advertisement\b`),
	regexp.MustCompile(`(?i)^sponsored by`),
	regexp.MustCompile(`(?i)^promoted content`),
	regexp.MustCompile(`(?i)^click here to`),
	regexp.MustCompile(`(?i)^buy now`),
	regexp.MustCompile(`(?i)^subscribe to`),
	regexp.MustCompile(`(?i)^sign up for`),
	regexp.MustCompile(`(?i)^ad\s*:`),
}

// uiPhrases mark sharing and app promotion blocks.
var uiPhrases = []string{"share via", "follow us", "download app"}

// trackingPatterns exclude pixels, beacons and social icons from images.
var trackingPatterns = []string{"pixel", "tracker", "beacon", "facebook", "twitter", "linkedin"}

// ValueRule reads a value from the first element matching Selector. Attrs
// are checked in order before falling back to the element text when Text is
// set. Values shorter than MinLen runes are rejected.
type ValueRule struct {
	Selector string
	Attrs    []string
	Text     bool
	MinLen   int
}

var TitleRules = []ValueRule{
	{Selector: `meta[property="og:title"]`, Attrs: []string{"content"}},
	{Selector: `meta[name="twitter:title"]`, Attrs: []string{"content"}},
	{Selector: "article h1, .article h1, h1.title, h1.headline", Text: true},
	{Selector: "title", Text: true},
}

var AuthorRules = []ValueRule{
	{Selector: `meta[name="author"]`, Attrs: []string{"content"}, Text: true},
	{Selector: `meta[property="article:author"]`, Attrs: []string{"content"}, Text: true},
	{Selector: `[rel="author"]`, Attrs: []string{"content"}, Text: true},
	{Selector: ".author", Attrs: []string{"content"}, Text: true},
	{Selector: ".byline", Attrs: []string{"content"}, Text: true},
	{Selector: ".author-name", Attrs: []string{"content"}, Text: true},
	{Selector: `[itemprop="author"]`, Attrs: []string{"content"}, Text: true},
}

var DateRules = []ValueRule{
	{Selector: `meta[property="article:published_time"]`, Attrs: []string{"content", "datetime"}, Text: true},
	{Selector: `meta[name="publish-date"]`, Attrs: []string{"content", "datetime"}, Text: true},
	{Selector: "time[datetime]", Attrs: []string{"content", "datetime"}, Text: true},
	{Selector: ".publish-date", Attrs: []string{"content", "datetime"}, Text: true},
	{Selector: ".date", Attrs: []string{"content", "datetime"}, Text: true},
	{Selector: `[itemprop="datePublished"]`, Attrs: []string{"content", "datetime"}, Text: true},
}

// Rules scoped to a single article candidate.
var (
	ArticleTitleRules = []ValueRule{
		{Selector: "h1", Text: true, MinLen: 11},
		{Selector: "h2", Text: true, MinLen: 11},
		{Selector: "h3", Text: true, MinLen: 11},
		{Selector: ".title", Text: true, MinLen: 11},
		{Selector: ".headline", Text: true, MinLen: 11},
		{Selector: `[itemprop="headline"]`, Text: true, MinLen: 11},
	}
	ArticleAuthorRules = []ValueRule{
		{Selector: `[rel="author"]`, Text: true},
		{Selector: ".author", Text: true},
		{Selector: ".byline", Text: true},
		{Selector: `[itemprop="author"]`, Text: true},
	}
	ArticleDateRules = []ValueRule{
		{Selector: "time[datetime]", Attrs: []string{"datetime"}, Text: true},
		{Selector: ".publish-date", Attrs: []string{"datetime"}, Text: true},
		{Selector: `[itemprop="datePublished"]`, Attrs: []string{"datetime"}, Text: true},
	}
)

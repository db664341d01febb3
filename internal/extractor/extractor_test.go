package extractor

import (
	"fmt"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/byteowlz/factscan/internal/fingerprint"
	"github.com/byteowlz/factscan/internal/pagetype"
)

const pageURL = "https://news.example.com/world/story-1"

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parsing html: %v", err)
	}
	return doc
}

func newExtractor() *Extractor {
	return New(zerolog.Nop())
}

// sentence returns a readable paragraph of exactly n characters.
func sentence(n int) string {
	base := "The committee reviewed the budget proposal in detail and voted on it. "
	s := strings.Repeat(base, n/len(base)+1)
	return strings.TrimSpace(s[:n-1]) + "."
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"open graph", `<html><head><meta property="og:title" content="OG Title"><title>Doc</title></head></html>`, "OG Title"},
		{"twitter", `<html><head><meta name="twitter:title" content="Tw Title"><title>Doc</title></head></html>`, "Tw Title"},
		{"empty og skipped", `<html><head><meta property="og:title" content=" "><title>Doc</title></head></html>`, "Doc"},
		{"article heading", `<html><head><title>Doc</title></head><body><article><h1> Heading </h1></article></body></html>`, "Heading"},
		{"document title", `<html><head><title>Doc</title></head><body></body></html>`, "Doc"},
		{"nothing", `<html><body></body></html>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := newExtractor().ExtractTitle(parse(t, tt.html)); got != tt.want {
				t.Errorf("ExtractTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractMetadata(t *testing.T) {
	doc := parse(t, `<html><head>
		<meta property="article:author" content="Jane Roe">
		</head><body>
		<span class="author">Someone Else</span>
		<time datetime="2024-05-01T10:00:00Z">May 1</time>
		</body></html>`)

	author, date := newExtractor().ExtractMetadata(doc)
	if author != "Jane Roe" {
		t.Errorf("expected meta author, got %q", author)
	}
	if date != "2024-05-01T10:00:00Z" {
		t.Errorf("expected datetime attribute, got %q", date)
	}

	author, date = newExtractor().ExtractMetadata(parse(t, `<html><body><p>x</p></body></html>`))
	if author != "" || date != "" {
		t.Errorf("expected empty metadata, got %q %q", author, date)
	}
}

func TestCleanText_AdParagraphExcluded(t *testing.T) {
	doc := parse(t, `<html><body><div id="c"><p>AD: buy now! `+strings.Repeat("A", 30)+`</p></div></body></html>`)
	got := newExtractor().CleanText(doc.Find("#c"))
	if strings.Contains(got.Text, "buy now") {
		t.Errorf("expected ad paragraph to be excluded, got %q", got.Text)
	}
}

func TestCleanText_ShortParagraphs(t *testing.T) {
	p1, p2, p3 := sentence(50), sentence(60), sentence(70)
	doc := parse(t, fmt.Sprintf(`<html><body><div id="c">
		<nav><a href="/">Home</a></nav>
		<p>%s</p>
		<p>%s</p>
		<p>%s</p>
		<script>var x = 1;</script>
		</div></body></html>`, p1, p2, p3))

	got := newExtractor().CleanText(doc.Find("#c"))

	want := len(p1) + len(p2) + len(p3)
	if len(got.Text) < want || len(got.Text) > want+6 {
		t.Errorf("expected about %d characters, got %d: %q", want, len(got.Text), got.Text)
	}
	for _, p := range []string{p1, p2, p3} {
		if !strings.Contains(got.Text, p) {
			t.Errorf("missing paragraph %q", p)
		}
	}
	if got.AdsBlocked != 2 {
		t.Errorf("expected 2 boilerplate elements removed, got %d", got.AdsBlocked)
	}
	if strings.Contains(got.Text, "Home") || strings.Contains(got.Text, "var x") {
		t.Errorf("boilerplate leaked into text: %q", got.Text)
	}
}

func TestCleanText_DoesNotModifyDocument(t *testing.T) {
	doc := parse(t, `<html><body><div id="c"><nav>menu</nav><p>`+sentence(40)+`</p></div></body></html>`)
	newExtractor().CleanText(doc.Find("#c"))
	if doc.Find("#c nav").Length() != 1 {
		t.Error("CleanText removed elements from the live document")
	}
}

func TestCleanText_Filters(t *testing.T) {
	long := sentence(400)
	linky := `<p><a href="/a">A very long link text that dominates</a> ok.</p>`
	doc := parse(t, `<html><body><div id="c">
		<h2>Budget talks</h2>
		<h3>Ad</h3>
		<p>`+long+`</p>
		<p>Sponsored by Acme Corporation and friends everywhere</p>
		<p>Share via email or follow us on every network</p>
		`+linky+`
		<p>tiny</p>
		</div></body></html>`)

	got := newExtractor().CleanText(doc.Find("#c")).Text
	if !strings.HasPrefix(got, "Budget talks "+long[:10]) {
		t.Errorf("expected heading prefix, got %q", got[:min(40, len(got))])
	}
	for _, unwanted := range []string{"Sponsored", "Share via", "dominates", "tiny", "Ad "} {
		if strings.Contains(got, unwanted) {
			t.Errorf("expected %q to be filtered, got %q", unwanted, got)
		}
	}
	if !strings.Contains(got, long) {
		t.Error("expected main paragraph in output")
	}
}

func TestCleanText_DenseBody(t *testing.T) {
	inside := sentence(320)
	outside := sentence(150)
	doc := parse(t, `<html><body><div id="c">
		<p>Outside `+outside+`</p>
		<div class="sp-cn"><p>`+inside+`</p><p>short one</p></div>
		</div></body></html>`)

	got := newExtractor().CleanText(doc.Find("#c")).Text
	if got != inside {
		t.Errorf("expected only dense body text, got %q", got)
	}
}

func TestCleanText_KeepsArticleHeader(t *testing.T) {
	text := sentence(350)
	doc := parse(t, `<html><body><div id="c">
		<header>Site banner</header>
		<article><header><h1>Article headline here</h1></header><p>`+text+`</p></article>
		</div></body></html>`)

	got := newExtractor().CleanText(doc.Find("#c"))
	if strings.Contains(got.Text, "Site banner") {
		t.Error("site header should be removed")
	}
	if !strings.Contains(got.Text, "Article headline here") {
		t.Errorf("article header should survive, got %q", got.Text)
	}
	if got.AdsBlocked != 1 {
		t.Errorf("expected 1 removed element, got %d", got.AdsBlocked)
	}
}

func TestIsAdText(t *testing.T) {
	tests := map[string]bool{
		"Advertisement":               true,
		"  sponsored by Acme":         true,
		"CLICK HERE TO win":           true,
		"Subscribe to our newsletter": true,
		"AD: buy now!":                true,
		"The advertisement industry":  false,
		"Readers may subscribe to it": false,
	}
	for text, want := range tests {
		if got := IsAdText(text); got != want {
			t.Errorf("IsAdText(%q) = %v, want %v", text, got, want)
		}
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize("  First\t\tline  \r\n\n\n\n  second   line \n")
	want := "First line second line"
	if got != want {
		t.Errorf("Normalize() = %q, want %q", got, want)
	}
	// NFC: e + combining acute becomes a single rune.
	if Normalize("e\u0301") != "\u00e9" {
		t.Error("expected NFC composition")
	}
}

func TestNormalize_LayoutDoesNotChangeFingerprint(t *testing.T) {
	tests := [][2]string{
		{"a b.\nc", "a b. c"},
		{"Alpha beta gamma.\nDelta epsilon.", "Alpha beta gamma. Delta epsilon."},
		{"One.\n\n\tTwo.\r\nThree.", "One. Two. Three."},
		{"non\u00a0breaking", "non breaking"},
	}
	for _, tt := range tests {
		if a, b := fingerprint.Of(Normalize(tt[0])), fingerprint.Of(Normalize(tt[1])); a != b {
			t.Errorf("fingerprints differ for %q and %q", tt[0], tt[1])
		}
	}
}

func TestSelectContainer(t *testing.T) {
	e := newExtractor()

	long := sentence(900)
	doc := parse(t, `<html><body>
		<div class="content">`+sentence(250)+`</div>
		<article id="a">`+long+`</article>
		</body></html>`)
	if id, _ := e.SelectContainer(doc).Attr("id"); id != "a" {
		t.Errorf("expected longest container, got %q", id)
	}

	doc = parse(t, `<html><body>
		<div id="d"><p>`+sentence(200)+`</p><p>`+sentence(200)+`</p><p>`+sentence(200)+`</p></div>
		</body></html>`)
	if id, _ := e.SelectContainer(doc).Attr("id"); id != "d" {
		t.Errorf("expected paragraph-dense div, got %q", id)
	}

	doc = parse(t, `<html><body><span>nothing here</span></body></html>`)
	if got := goquery.NodeName(e.SelectContainer(doc)); got != "body" {
		t.Errorf("expected body fallback, got %q", got)
	}
}

func TestExtractMultipleArticles(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < 3; i++ {
		fmt.Fprintf(&b, `<article><h2>Headline number %d today</h2><span class="author">By Reporter %d</span><a href="/story/%d">more</a><p>%s</p></article>`, i, i, i, sentence(300))
	}
	b.WriteString(`<article><p>too short</p></article></body></html>`)

	articles := newExtractor().ExtractMultipleArticles(parse(t, b.String()), pageURL)
	if len(articles) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(articles))
	}
	for i, a := range articles {
		if a.Index != i {
			t.Errorf("candidate %d has index %d", i, a.Index)
		}
		if a.Title != fmt.Sprintf("Headline number %d today", i) {
			t.Errorf("candidate %d title %q", i, a.Title)
		}
		if a.Author != fmt.Sprintf("Reporter %d", i) {
			t.Errorf("candidate %d author %q", i, a.Author)
		}
		if a.URL != fmt.Sprintf("https://news.example.com/story/%d", i) {
			t.Errorf("candidate %d url %q", i, a.URL)
		}
		if a.SelectorUsed != "article" || a.WordCount == 0 {
			t.Errorf("candidate %d unexpected %+v", i, a)
		}
	}
}

func TestExtractMultipleArticles_Cap(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < 14; i++ {
		fmt.Fprintf(&b, `<article class="post"><p>%d %s</p></article>`, i, sentence(250))
	}
	b.WriteString("</body></html>")

	articles := newExtractor().ExtractMultipleArticles(parse(t, b.String()), pageURL)
	if len(articles) != MaxArticles {
		t.Fatalf("expected %d candidates, got %d", MaxArticles, len(articles))
	}
	if !strings.HasPrefix(articles[9].Text, "9 ") {
		t.Errorf("expected document order, last candidate starts %q", articles[9].Text[:10])
	}
	if articles[0].URL != pageURL {
		t.Errorf("expected page URL without links, got %q", articles[0].URL)
	}
}

func TestExtractImages(t *testing.T) {
	doc := parse(t, `<html><body><article>
		<figure><img src="/img/a.jpg" width="640" height="480" alt="alt a"><figcaption>Caption A</figcaption></figure>
		<img src="/img/b.jpg" style="width: 300px; height: 200px" alt="alt b"><p class="caption">Caption B</p>
		<img src="/img/icon.png" width="32" height="32">
		<img src="/img/nodims.jpg">
		<img src="https://cdn.example.com/pixel.gif" width="200" height="200">
		<img src="/img/a.jpg" width="640" height="480">
		<img src="/img/c.jpg" width="150" height="150" alt="alt c">
		<img src="/img/d.jpg" width="150" height="150" alt="alt d">
		</article></body></html>`)

	images := newExtractor().ExtractImages(doc, pageURL)
	if len(images) != MaxImages {
		t.Fatalf("expected %d images, got %d: %+v", MaxImages, len(images), images)
	}

	want := []ImageRef{
		{URL: "https://news.example.com/img/a.jpg", Alt: "alt a", Caption: "Caption A", Width: 640, Height: 480},
		{URL: "https://news.example.com/img/b.jpg", Alt: "alt b", Caption: "Caption B", Width: 300, Height: 200},
		{URL: "https://news.example.com/img/c.jpg", Alt: "alt c", Caption: "alt c", Width: 150, Height: 150},
	}
	for i, w := range want {
		if images[i] != w {
			t.Errorf("image %d = %+v, want %+v", i, images[i], w)
		}
	}
}

func TestExtractImages_UsesContentContainer(t *testing.T) {
	doc := parse(t, `<html><body>
		<aside><img src="/img/promo.jpg" width="400" height="300"></aside>
		<article>
		<p>`+sentence(900)+`</p>
		<img src="/img/story.jpg" width="500px" height="300">
		</article></body></html>`)

	images := newExtractor().ExtractImages(doc, pageURL)
	if len(images) != 1 || images[0].URL != "https://news.example.com/img/story.jpg" {
		t.Fatalf("expected only the article image, got %+v", images)
	}
	if images[0].Width != 500 {
		t.Errorf("expected px width to parse, got %d", images[0].Width)
	}
}

func TestDimension(t *testing.T) {
	tests := []struct {
		attr  string
		style string
		want  int
	}{
		{"640", "", 640},
		{" 320px ", "", 320},
		{"100%", "", 0},
		{"50em", "", 0},
		{"100%", "width: 250px", 250},
		{"", "", 0},
	}
	for _, tt := range tests {
		if got := dimension(tt.attr, tt.style, styleWidth); got != tt.want {
			t.Errorf("dimension(%q, %q) = %d, want %d", tt.attr, tt.style, got, tt.want)
		}
	}
}

func TestCalculateConfidence(t *testing.T) {
	c := &Content{
		Title:          strings.Repeat("X", 12),
		Author:         "Y",
		PublishDate:    "2024",
		Text:           strings.Repeat("Z", 1600),
		PageType:       pagetype.NewsPortal,
		Articles:       []ArticleCandidate{{}},
		AdBlockedCount: 1,
	}
	if got := CalculateConfidence(c); got != 100 {
		t.Errorf("expected 100, got %d", got)
	}

	c = &Content{Text: strings.Repeat("Z", 400), PageType: pagetype.Unknown}
	if got := CalculateConfidence(c); got != 15 {
		t.Errorf("expected 15, got %d", got)
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := map[string]string{
		"Plain English text":      "en",
		"यह एक परीक्षण है":        "hi",
		"这是一个测试":                  "zh",
		"هذا اختبار":              "ar",
		strings.Repeat("a", 100) + "这": "en",
	}
	for text, want := range tests {
		if got := DetectLanguage(text); got != want {
			t.Errorf("DetectLanguage(%q) = %q, want %q", text, got, want)
		}
	}
}

func TestExtract(t *testing.T) {
	body := strings.Repeat("<p>"+sentence(120)+"</p>", 8)
	doc := parse(t, `<html><head>
		<title>Fallback</title>
		<meta property="og:title" content="Council approves new budget">
		<meta name="author" content="Jane Roe">
		<meta property="article:published_time" content="2024-05-01">
		</head><body>
		<nav>Home | World</nav>
		<article>`+body+`</article>
		</body></html>`)

	c := newExtractor().Extract(doc, pageURL, pagetype.ArticlePage)
	if c.Source != "news.example.com" {
		t.Errorf("unexpected source %q", c.Source)
	}
	if c.Title != "Council approves new budget" || c.Author != "Jane Roe" || c.PublishDate != "2024-05-01" {
		t.Errorf("unexpected metadata %q %q %q", c.Title, c.Author, c.PublishDate)
	}
	if runeLen(c.Text) < 900 {
		t.Errorf("expected article text, got %d chars", runeLen(c.Text))
	}
	if strings.Contains(c.Text, "Home | World") {
		t.Error("navigation outside the container leaked into text")
	}
	if len(c.Articles) != 1 {
		t.Errorf("expected 1 article candidate, got %d", len(c.Articles))
	}
	if c.Language != "en" {
		t.Errorf("unexpected language %q", c.Language)
	}
	// title, author, date, >300, >800, page type, articles
	if c.Confidence != 85 {
		t.Errorf("expected confidence 85, got %d", c.Confidence)
	}
}

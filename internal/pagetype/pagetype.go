// Package pagetype decides what kind of page a document is before any
// extraction work happens.
package pagetype

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Type is the editorial kind of a page. Social platforms are encoded as
// "social-<platform>".
type Type string

const (
	Skip        Type = "skip"
	NewsPortal  Type = "news-portal"
	Blog        Type = "blog"
	ArticlePage Type = "article-page"
	Unknown     Type = "unknown"

	socialPrefix = "social-"
)

// Social returns the page type for a social platform.
func Social(platform string) Type {
	return Type(socialPrefix + platform)
}

func (t Type) IsSocial() bool {
	return strings.HasPrefix(string(t), socialPrefix)
}

// Platform returns the platform part of a social page type, or "" for any
// other type.
func (t Type) Platform() string {
	if !t.IsSocial() {
		return ""
	}
	return strings.TrimPrefix(string(t), socialPrefix)
}

func (t Type) String() string { return string(t) }

// Page is what a rule sees: the location split into its parts plus the
// parsed document, which may be nil.
type Page struct {
	URL  string
	Host string
	Doc  *goquery.Document
}

// Rule inspects a page and reports a type when it matches.
type Rule struct {
	Name  string
	Apply func(p Page) (Type, bool)
}

// Classifier evaluates its rules in order; the first match wins.
type Classifier struct {
	Rules []Rule
}

// Default returns a classifier with the built-in rule tables.
func Default() *Classifier {
	return &Classifier{Rules: DefaultRules()}
}

// Classify maps a location and document to a page type. Documents without
// any matching rule are Unknown.
func (c *Classifier) Classify(locationURL string, doc *goquery.Document) Type {
	p := Page{URL: locationURL, Host: hostname(locationURL), Doc: doc}
	for _, r := range c.Rules {
		if t, ok := r.Apply(p); ok {
			return t
		}
	}
	return Unknown
}

// Classify runs the default rules.
func Classify(locationURL string, doc *goquery.Document) Type {
	return Default().Classify(locationURL, doc)
}

func hostname(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// SkipPatterns match locations that are never analyzed: browser internals,
// local files and sign-in flows.
var SkipPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^chrome:`),
	regexp.MustCompile(`^about:`),
	regexp.MustCompile(`^file:`),
	regexp.MustCompile(`chrome\.google\.com`),
	regexp.MustCompile(`accounts\.google\.com`),
	regexp.MustCompile(`login`),
	regexp.MustCompile(`signin`),
}

// Domain maps a hostname fragment to a value.
type Domain struct {
	Match string
	Value string
}

var SocialDomains = []Domain{
	{"facebook.com", "facebook"},
	{"fb.com", "facebook"},
	{"twitter.com", "twitter"},
	{"x.com", "twitter"},
	{"instagram.com", "instagram"},
	{"linkedin.com", "linkedin"},
	{"reddit.com", "reddit"},
	{"tiktok.com", "tiktok"},
	{"youtube.com", "youtube"},
	{"pinterest.com", "pinterest"},
	{"snapchat.com", "snapchat"},
	{"whatsapp.com", "whatsapp"},
	{"telegram.org", "telegram"},
	{"discord.com", "discord"},
	{"mastodon", "mastodon"},
}

var NewsDomains = []string{
	// US and international
	"bbc.com", "bbc.co.uk", "cnn.com", "nytimes.com", "theguardian.com", "reuters.com",
	"apnews.com", "bloomberg.com", "wsj.com", "washingtonpost.com",
	"forbes.com", "time.com", "newsweek.com", "usatoday.com",
	"nbcnews.com", "abcnews.go.com", "cbsnews.com", "foxnews.com",
	"aljazeera.com", "economist.com", "politico.com", "thehill.com",
	"axios.com", "vice.com", "vox.com", "buzzfeednews.com", "huffpost.com",

	// India
	"timesofindia.indiatimes.com", "hindustantimes.com", "indianexpress.com",
	"ndtv.com", "thehindu.com", "news18.com", "dnaindia.com", "india.com",
	"firstpost.com", "thequint.com", "scroll.in", "thenewsminute.com",

	// Other regions
	"dw.com", "france24.com", "rt.com", "sputniknews.com",
	"scmp.com", "japantimes.co.jp", "straitstimes.com",
}

var BlogHosts = []string{
	"blog", "wordpress", "blogspot", "medium.com", "substack.com",
	"ghost.io", "tumblr.com", "blogger.com", "squarespace.com", "weebly.com",
}

const BlogSelector = ".blog, .post, article.entry, .blog-post"

// hostMatches reports whether host belongs to the table entry. Entries with
// a dot are domains and match on label boundaries so that "netflix.com" is
// not taken for "x.com". Bare words match anywhere in the host.
func hostMatches(host, entry string) bool {
	if host == "" {
		return false
	}
	if !strings.Contains(entry, ".") {
		return strings.Contains(host, entry)
	}
	return host == entry || strings.HasSuffix(host, "."+entry)
}

// DefaultRules returns the ordered rule table used by Default.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "skip", Apply: func(p Page) (Type, bool) {
			for _, re := range SkipPatterns {
				if re.MatchString(p.URL) {
					return Skip, true
				}
			}
			return "", false
		}},
		{Name: "social", Apply: func(p Page) (Type, bool) {
			for _, d := range SocialDomains {
				if hostMatches(p.Host, d.Match) {
					return Social(d.Value), true
				}
			}
			return "", false
		}},
		{Name: "news", Apply: func(p Page) (Type, bool) {
			for _, d := range NewsDomains {
				if hostMatches(p.Host, d) {
					return NewsPortal, true
				}
			}
			return "", false
		}},
		{Name: "blog", Apply: func(p Page) (Type, bool) {
			if strings.Contains(strings.ToLower(p.URL), "/blog/") {
				return Blog, true
			}
			for _, h := range BlogHosts {
				if strings.Contains(p.Host, h) {
					return Blog, true
				}
			}
			if p.Doc != nil && p.Doc.Find(BlogSelector).Length() > 0 {
				return Blog, true
			}
			return "", false
		}},
		{Name: "article", Apply: func(p Page) (Type, bool) {
			if p.Doc != nil && p.Doc.Find("article").Length() > 0 {
				return ArticlePage, true
			}
			return "", false
		}},
	}
}

var socialNames = map[string]string{
	"facebook":  "Facebook",
	"twitter":   "Twitter/X",
	"instagram": "Instagram",
	"linkedin":  "LinkedIn",
	"reddit":    "Reddit",
	"tiktok":    "TikTok",
	"youtube":   "YouTube",
}

// DisplayName returns a human readable platform name for a social page
// type.
func DisplayName(t Type) string {
	p := t.Platform()
	if name, ok := socialNames[p]; ok {
		return name
	}
	if p == "" {
		return "social media"
	}
	return strings.ToUpper(p[:1]) + p[1:]
}

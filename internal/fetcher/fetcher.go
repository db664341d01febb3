// Package fetcher loads document snapshots for analysis over plain HTTP,
// through headless Chrome or a remote reader for script-built pages, or from
// disk.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
	"golang.org/x/net/html/charset"
)

type FetchMode string

const (
	FetchModeAuto   FetchMode = "auto"
	FetchModeStatic FetchMode = "static"
	FetchModeJS     FetchMode = "javascript"
	FetchModeReader FetchMode = "reader"
)

// MaxBodySize caps how much of a response is read.
const MaxBodySize = 5 << 20

type FetchOptions struct {
	Mode            FetchMode
	Timeout         time.Duration
	UserAgent       string
	BrowserAgent    string
	Cookies         []*http.Cookie
	WaitForSelector string
}

// FetchResult is a fetched document. URL is the final location after
// redirects.
type FetchResult struct {
	HTML   string
	URL    string
	UsedJS bool
}

type ContentFetcher struct {
	client          *http.Client
	userAgentSelect *UserAgentSelector
	logger          zerolog.Logger

	readerURL string
	readerKey string
}

func NewContentFetcher(timeout time.Duration, followRedirects bool, maxRedirects int, logger zerolog.Logger) *ContentFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &http.Client{Timeout: timeout}
	if !followRedirects {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	} else if maxRedirects > 0 {
		client.CheckRedirect = func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		}
	}
	return &ContentFetcher{
		client:          client,
		userAgentSelect: NewUserAgentSelector(),
		logger:          logger,
	}
}

func (cf *ContentFetcher) Fetch(ctx context.Context, url string, opts FetchOptions) (*FetchResult, error) {
	switch opts.Mode {
	case FetchModeStatic:
		return cf.fetchStatic(ctx, url, opts)
	case FetchModeJS:
		return cf.fetchWithJS(ctx, url, opts)
	case FetchModeReader:
		return cf.fetchViaReader(ctx, url, opts)
	}

	// Auto mode: try static first, then JS if needed
	result, err := cf.fetchStatic(ctx, url, opts)
	if err != nil {
		return nil, err
	}

	if NeedsJSRendering(result.HTML) {
		cf.logger.Debug().Str("url", url).Msg("static page looks script-built, rendering with chrome")
		return cf.fetchWithJS(ctx, url, opts)
	}

	return result, nil
}

// FetchFile reads a saved document. The page URL defaults to a file:// URL
// for path.
func (cf *ContentFetcher) FetchFile(path, pageURL string) (*FetchResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	r, err := charset.NewReader(f, "text/html")
	if err != nil {
		return nil, fmt.Errorf("failed to detect charset: %w", err)
	}
	body, err := io.ReadAll(io.LimitReader(r, MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if pageURL == "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		pageURL = (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
	}
	return &FetchResult{HTML: string(body), URL: pageURL}, nil
}

func (cf *ContentFetcher) fetchStatic(ctx context.Context, url string, opts FetchOptions) (*FetchResult, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set user agent (custom takes precedence, then browser agent, then random)
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = cf.userAgentSelect.GetUserAgent(opts.BrowserAgent)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")

	for _, cookie := range opts.Cookies {
		req.AddCookie(cookie)
	}

	resp, err := cf.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	body, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("failed to detect charset: %w", err)
	}
	data, err := io.ReadAll(io.LimitReader(body, MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &FetchResult{
		HTML: string(data),
		URL:  resp.Request.URL.String(),
	}, nil
}

func (cf *ContentFetcher) fetchWithJS(ctx context.Context, url string, opts FetchOptions) (*FetchResult, error) {
	chromeCtx, cancel := chromedp.NewContext(ctx)
	defer cancel()

	if opts.Timeout > 0 {
		chromeCtx, cancel = context.WithTimeout(chromeCtx, opts.Timeout)
		defer cancel()
	}

	var html, location string
	var tasks chromedp.Tasks

	if len(opts.Cookies) > 0 {
		tasks = append(tasks, network.Enable(), chromedp.ActionFunc(func(ctx context.Context) error {
			for _, c := range opts.Cookies {
				err := network.SetCookie(c.Name, c.Value).
					WithURL(url).
					WithPath(c.Path).
					WithSecure(c.Secure).
					WithHTTPOnly(c.HttpOnly).
					Do(ctx)
				if err != nil {
					return fmt.Errorf("failed to set cookie %s: %w", c.Name, err)
				}
			}
			return nil
		}))
	}

	tasks = append(tasks, chromedp.Navigate(url))
	if opts.WaitForSelector != "" {
		tasks = append(tasks, chromedp.WaitVisible(opts.WaitForSelector))
	} else {
		tasks = append(tasks, chromedp.WaitReady("body"))
	}
	tasks = append(tasks,
		chromedp.OuterHTML("html", &html),
		chromedp.Location(&location),
	)

	if err := chromedp.Run(chromeCtx, tasks); err != nil {
		return nil, fmt.Errorf("failed to run Chrome tasks: %w", err)
	}
	if location == "" {
		location = url
	}

	return &FetchResult{HTML: html, URL: location, UsedJS: true}, nil
}

var jsFrameworkMarkers = []string{
	"data-reactroot", "ng-app", "ng-version", "v-app", "data-v-app",
	"__next_data__", "__nuxt", "ember-application",
}

// NeedsJSRendering reports whether a statically fetched page is likely an
// empty shell filled in by scripts.
func NeedsJSRendering(html string) bool {
	lower := strings.ToLower(html)
	for _, marker := range jsFrameworkMarkers {
		if strings.Contains(lower, marker) {
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
			if err != nil {
				return true
			}
			return bodyTextLength(doc) < 1000
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	text := bodyTextLength(doc)
	if strings.Contains(lower, "loading") && text < 200 {
		return true
	}
	return doc.Find("script").Length() > 5 && text < 1000
}

func bodyTextLength(doc *goquery.Document) int {
	body := doc.Find("body").Clone()
	body.Find("script, style, noscript").Remove()
	return len(strings.TrimSpace(body.Text()))
}

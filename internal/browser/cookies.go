// Package browser reads cookies from locally installed browsers so that
// pages behind a login can be fetched the way the user sees them.
package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/browserutils/kooky"
	_ "github.com/browserutils/kooky/browser/all" // Import all browser support
	"github.com/rs/zerolog"
)

type BrowserType string

const (
	BrowserAuto    BrowserType = "auto"
	BrowserChrome  BrowserType = "chrome"
	BrowserFirefox BrowserType = "firefox"
	BrowserSafari  BrowserType = "safari"
	BrowserZen     BrowserType = "zen"
)

// autoOrder is the preference order when no browser is configured.
var autoOrder = []BrowserType{BrowserChrome, BrowserFirefox, BrowserZen, BrowserSafari}

// Cookie is the subset of a stored browser cookie the extractor inspects.
type Cookie struct {
	Browser  string
	FilePath string
	Name     string
	Value    string
	Domain   string
	Path     string
	Expires  time.Time
	Secure   bool
	HttpOnly bool
}

// Source yields every readable cookie. Read errors for individual stores
// are reported through the error value and skipped.
type Source func(ctx context.Context) func(yield func(*Cookie, error) bool)

// KookySource reads cookies from all browser stores kooky can find.
func KookySource(ctx context.Context) func(yield func(*Cookie, error) bool) {
	return func(yield func(*Cookie, error) bool) {
		for c, err := range kooky.TraverseCookies(ctx) {
			if err != nil {
				if !yield(nil, err) {
					return
				}
				continue
			}
			cookie := &Cookie{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				Expires:  c.Expires,
				Secure:   c.Secure,
				HttpOnly: c.HttpOnly,
			}
			if c.Browser != nil {
				cookie.Browser = c.Browser.Browser()
				cookie.FilePath = c.Browser.FilePath()
			}
			if !yield(cookie, nil) {
				return
			}
		}
	}
}

type CookieExtractor struct {
	browserType BrowserType
	customPaths map[string]string
	source      Source
	logger      zerolog.Logger
}

func NewCookieExtractor(browserType BrowserType, customPaths map[string]string, logger zerolog.Logger) *CookieExtractor {
	if browserType == "" {
		browserType = BrowserAuto
	}
	return &CookieExtractor{
		browserType: browserType,
		customPaths: customPaths,
		source:      KookySource,
		logger:      logger,
	}
}

// WithSource replaces the cookie source.
func (ce *CookieExtractor) WithSource(src Source) *CookieExtractor {
	ce.source = src
	return ce
}

// ExtractCookies returns the cookies that a browser would send to
// targetURL. In auto mode the first browser with matching cookies wins.
func (ce *CookieExtractor) ExtractCookies(ctx context.Context, targetURL string) ([]*http.Cookie, error) {
	parsedURL, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	host := parsedURL.Hostname()

	byBrowser := make(map[BrowserType][]*http.Cookie)
	now := time.Now()
	skipped := 0

	for c, err := range ce.source(ctx) {
		if err != nil {
			skipped++
			continue
		}
		if !c.Expires.IsZero() && c.Expires.Before(now) {
			continue
		}
		if !MatchesDomain(c.Domain, host) {
			continue
		}
		for _, bt := range autoOrder {
			if ce.browserType != BrowserAuto && bt != ce.browserType {
				continue
			}
			if matchesBrowserType(c, bt) {
				byBrowser[bt] = append(byBrowser[bt], &http.Cookie{
					Name:     c.Name,
					Value:    c.Value,
					Path:     c.Path,
					Domain:   c.Domain,
					Expires:  c.Expires,
					Secure:   c.Secure,
					HttpOnly: c.HttpOnly,
				})
				break
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if skipped > 0 {
		ce.logger.Debug().Int("stores", skipped).Msg("skipped unreadable cookie stores")
	}

	if ce.browserType != BrowserAuto {
		return byBrowser[ce.browserType], nil
	}
	for _, bt := range autoOrder {
		if cookies := byBrowser[bt]; len(cookies) > 0 {
			ce.logger.Debug().Str("browser", string(bt)).Int("cookies", len(cookies)).Str("host", host).Msg("using browser cookies")
			return cookies, nil
		}
	}
	return nil, nil
}

func matchesBrowserType(c *Cookie, browserType BrowserType) bool {
	browserName := strings.ToLower(c.Browser)
	path := strings.ToLower(c.FilePath)
	switch browserType {
	case BrowserChrome:
		return strings.Contains(browserName, "chrome") || strings.Contains(browserName, "chromium")
	case BrowserFirefox:
		return strings.Contains(browserName, "firefox") && !strings.Contains(path, "zen")
	case BrowserSafari:
		return strings.Contains(browserName, "safari")
	case BrowserZen:
		return strings.Contains(browserName, "zen") ||
			(strings.Contains(browserName, "firefox") && strings.Contains(path, "zen"))
	}
	return false
}

// MatchesDomain reports whether a cookie set for cookieDomain is sent to
// targetHost.
func MatchesDomain(cookieDomain, targetHost string) bool {
	if cookieDomain == "" || targetHost == "" {
		return false
	}
	cookieDomain = strings.ToLower(strings.TrimPrefix(cookieDomain, "."))
	targetHost = strings.ToLower(targetHost)

	return cookieDomain == targetHost || strings.HasSuffix(targetHost, "."+cookieDomain)
}

func (ce *CookieExtractor) DetectAvailableBrowsers() []BrowserType {
	var available []BrowserType
	for _, browser := range []BrowserType{BrowserChrome, BrowserFirefox, BrowserSafari, BrowserZen} {
		if ce.isBrowserAvailable(browser) {
			available = append(available, browser)
		}
	}
	return available
}

func (ce *CookieExtractor) isBrowserAvailable(browserType BrowserType) bool {
	switch browserType {
	case BrowserChrome:
		return ce.checkBrowserPath("chrome", []string{
			"~/.config/google-chrome",
			"~/.config/chromium",
			"~/Library/Application Support/Google/Chrome",
			"%LOCALAPPDATA%/Google/Chrome/User Data",
		})
	case BrowserFirefox:
		return ce.checkBrowserPath("firefox", []string{
			"~/.mozilla/firefox",
			"~/Library/Application Support/Firefox",
			"%APPDATA%/Mozilla/Firefox",
		})
	case BrowserSafari:
		if runtime.GOOS != "darwin" {
			return false
		}
		return ce.checkBrowserPath("safari", []string{"~/Library/Cookies"})
	case BrowserZen:
		return ce.checkBrowserPath("zen", []string{
			"~/.zen",
			"~/Library/Application Support/Zen",
			"%APPDATA%/Zen",
		})
	}
	return false
}

func (ce *CookieExtractor) checkBrowserPath(browserName string, defaultPaths []string) bool {
	if customPath, exists := ce.customPaths[browserName]; exists && customPath != "" {
		if _, err := os.Stat(ExpandPath(customPath)); err == nil {
			return true
		}
	}
	for _, path := range defaultPaths {
		if _, err := os.Stat(ExpandPath(path)); err == nil {
			return true
		}
	}
	return false
}

// ExpandPath resolves a leading ~/ and Windows app data variables.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	if strings.Contains(path, "%LOCALAPPDATA%") {
		return strings.Replace(path, "%LOCALAPPDATA%", os.Getenv("LOCALAPPDATA"), 1)
	}
	if strings.Contains(path, "%APPDATA%") {
		return strings.Replace(path, "%APPDATA%", os.Getenv("APPDATA"), 1)
	}
	return path
}

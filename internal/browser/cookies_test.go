package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func staticSource(cookies ...*Cookie) Source {
	return func(ctx context.Context) func(yield func(*Cookie, error) bool) {
		return func(yield func(*Cookie, error) bool) {
			if !yield(nil, errors.New("locked store")) {
				return
			}
			for _, c := range cookies {
				if !yield(c, nil) {
					return
				}
			}
		}
	}
}

func TestMatchesDomain(t *testing.T) {
	tests := []struct {
		cookie, host string
		want         bool
	}{
		{"example.com", "example.com", true},
		{".example.com", "www.example.com", true},
		{"Example.COM", "news.example.com", true},
		{"example.com", "notexample.com", false},
		{"www.example.com", "example.com", false},
		{"", "example.com", false},
		{"example.com", "", false},
	}
	for _, tt := range tests {
		if got := MatchesDomain(tt.cookie, tt.host); got != tt.want {
			t.Errorf("MatchesDomain(%q, %q) = %v, want %v", tt.cookie, tt.host, got, tt.want)
		}
	}
}

func TestExtractCookies_Auto(t *testing.T) {
	src := staticSource(
		&Cookie{Browser: "firefox", Name: "ff", Value: "1", Domain: ".example.com"},
		&Cookie{Browser: "chrome", Name: "session", Value: "2", Domain: ".example.com"},
		&Cookie{Browser: "chrome", Name: "other", Value: "3", Domain: "other.org"},
		&Cookie{Browser: "chrome", Name: "stale", Value: "4", Domain: "example.com", Expires: time.Now().Add(-time.Hour)},
	)
	ce := NewCookieExtractor(BrowserAuto, nil, zerolog.Nop()).WithSource(src)

	cookies, err := ce.ExtractCookies(context.Background(), "https://www.example.com/story")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cookies) != 1 || cookies[0].Name != "session" {
		t.Fatalf("expected only the chrome session cookie, got %+v", cookies)
	}
}

func TestExtractCookies_SpecificBrowser(t *testing.T) {
	src := staticSource(
		&Cookie{Browser: "chrome", Name: "session", Value: "2", Domain: "example.com"},
		&Cookie{Browser: "firefox", Name: "ff", Value: "1", Domain: "example.com", FilePath: "/home/u/.mozilla/firefox/x/cookies.sqlite"},
		&Cookie{Browser: "firefox", Name: "zen", Value: "z", Domain: "example.com", FilePath: "/home/u/.zen/y/cookies.sqlite"},
	)

	tests := []struct {
		browser BrowserType
		want    string
	}{
		{BrowserFirefox, "ff"},
		{BrowserZen, "zen"},
		{BrowserChrome, "session"},
	}
	for _, tt := range tests {
		ce := NewCookieExtractor(tt.browser, nil, zerolog.Nop()).WithSource(src)
		cookies, err := ce.ExtractCookies(context.Background(), "https://example.com/")
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.browser, err)
		}
		if len(cookies) != 1 || cookies[0].Name != tt.want {
			t.Errorf("%s: expected cookie %q, got %+v", tt.browser, tt.want, cookies)
		}
	}

	ce := NewCookieExtractor(BrowserSafari, nil, zerolog.Nop()).WithSource(src)
	cookies, err := ce.ExtractCookies(context.Background(), "https://example.com/")
	if err != nil || len(cookies) != 0 {
		t.Errorf("expected no safari cookies, got %+v (%v)", cookies, err)
	}
}

func TestExtractCookies_BadURL(t *testing.T) {
	ce := NewCookieExtractor(BrowserAuto, nil, zerolog.Nop()).WithSource(staticSource())
	if _, err := ce.ExtractCookies(context.Background(), "://bad"); err == nil {
		t.Error("expected parse error")
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("APPDATA", "/appdata")
	if got := ExpandPath("%APPDATA%/Zen"); got != "/appdata/Zen" {
		t.Errorf("unexpected expansion %q", got)
	}
	if got := ExpandPath("/abs/path"); got != "/abs/path" {
		t.Errorf("absolute path changed: %q", got)
	}
}

package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultReaderURL is the public Jina Reader proxy. It works without a key
// but is rate limited.
const DefaultReaderURL = "https://r.jina.ai/"

// SetReader configures the remote reader used by FetchModeReader.
func (cf *ContentFetcher) SetReader(baseURL, apiKey string) {
	if baseURL == "" {
		baseURL = DefaultReaderURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	cf.readerURL = baseURL
	cf.readerKey = apiKey
}

// fetchViaReader asks the reader proxy to render the page and return its
// HTML. Browser cookies are never forwarded to the proxy.
func (cf *ContentFetcher) fetchViaReader(ctx context.Context, url string, opts FetchOptions) (*FetchResult, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	base := cf.readerURL
	if base == "" {
		base = DefaultReaderURL
	}
	if len(opts.Cookies) > 0 {
		cf.logger.Debug().Int("cookies", len(opts.Cookies)).Msg("reader mode ignores browser cookies")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+url, nil)
	if err != nil {
		return nil, fmt.Errorf("reader: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/html")
	req.Header.Set("X-Return-Format", "html")
	if opts.WaitForSelector != "" {
		req.Header.Set("X-Wait-For-Selector", opts.WaitForSelector)
	}
	if cf.readerKey != "" {
		req.Header.Set("Authorization", "Bearer "+cf.readerKey)
	}

	resp, err := cf.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reader: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reader: failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("reader: authentication error: %s", strings.TrimSpace(string(body)))
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("reader: rate limited - consider setting fetch.reader_api_key")
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("reader: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return &FetchResult{HTML: string(body), URL: url, UsedJS: true}, nil
}

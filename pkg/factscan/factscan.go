// Package factscan wires fetching, extraction and classification into a
// single scanner usable from other programs.
package factscan

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/byteowlz/factscan/internal/analyzer"
	"github.com/byteowlz/factscan/internal/browser"
	"github.com/byteowlz/factscan/internal/cache"
	"github.com/byteowlz/factscan/internal/classifier"
	"github.com/byteowlz/factscan/internal/config"
	"github.com/byteowlz/factscan/internal/fetcher"
	"github.com/byteowlz/factscan/internal/settings"
)

// Mode selects the automatic (page load) or manual analysis path.
type Mode string

const (
	ModeAuto   Mode = "auto"
	ModeManual Mode = "manual"
)

type Scanner struct {
	config       *config.Config
	logger       zerolog.Logger
	client       *classifier.Client
	backend      classifier.Backend
	presenter    analyzer.Presenter
	fetcher      *fetcher.ContentFetcher
	cookies      *browser.CookieExtractor
	store        settings.Store
	loader       *settings.Loader
	orchestrator *analyzer.Orchestrator
}

type Option func(*Scanner)

// WithBackend replaces the HTTP classification client used for analysis.
// Health and feedback still go to the configured endpoint.
func WithBackend(b classifier.Backend) Option {
	return func(s *Scanner) { s.backend = b }
}

// WithSettingsStore replaces the settings file.
func WithSettingsStore(st settings.Store) Option {
	return func(s *Scanner) { s.store = st }
}

func WithPresenter(p analyzer.Presenter) Option {
	return func(s *Scanner) { s.presenter = p }
}

// WithCookieSource replaces the browser cookie reader.
func WithCookieSource(src browser.Source) Option {
	return func(s *Scanner) {
		if s.cookies != nil {
			s.cookies.WithSource(src)
		}
	}
}

func New(cfg *config.Config, logger zerolog.Logger, opts ...Option) (*Scanner, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := classifier.NewClient(cfg.Classifier.Endpoint, cfg.Classifier.Timeout(), cfg.Classifier.MaxConcurrent, logger)
	if cfg.Classifier.HealthTimeoutMS > 0 {
		client.HealthTimeout = cfg.Classifier.HealthTimeout()
	}
	client.Origin = cfg.Classifier.Origin

	s := &Scanner{
		config:    cfg,
		logger:    logger,
		client:    client,
		backend:   client,
		presenter: analyzer.NopPresenter{},
		fetcher:   fetcher.NewContentFetcher(cfg.Fetch.TimeoutDuration(), cfg.Fetch.FollowRedirects, cfg.Fetch.MaxRedirects, logger),
	}
	readerKey := cfg.Fetch.ReaderAPIKey
	if readerKey == "" {
		readerKey = os.Getenv("JINA_API_KEY")
	}
	s.fetcher.SetReader(cfg.Fetch.ReaderURL, readerKey)
	if cfg.Browser.Cookies != "none" {
		s.cookies = browser.NewCookieExtractor(browser.BrowserType(cfg.Browser.Cookies), cfg.Browser.Paths, logger)
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		path := cfg.Settings.Path
		if path == "" {
			dir, err := config.Dir()
			if err != nil {
				return nil, err
			}
			path = filepath.Join(dir, "settings.yaml")
		}
		s.store = settings.NewFileStore(browser.ExpandPath(path))
	}
	s.loader = settings.NewLoader(s.store, cfg.Settings.RetryAttempts, cfg.Settings.RetryDelay(), logger)

	workers := cfg.Analysis.MultiArticleWorkers
	if workers > cfg.Classifier.MaxConcurrent {
		workers = cfg.Classifier.MaxConcurrent
	}
	s.orchestrator = analyzer.New(s.backend, cache.New(cfg.Analysis.CacheSize), s.presenter, analyzer.Options{
		MinTextLength:       cfg.Analysis.MinTextLength,
		ManualMinTextLength: cfg.Analysis.ManualMinTextLength,
		MaxMultiArticles:    cfg.Analysis.MaxMultiArticles,
		Workers:             workers,
		HistorySize:         cfg.Analysis.HistorySize,
	}, logger)

	return s, nil
}

func (s *Scanner) Orchestrator() *analyzer.Orchestrator { return s.orchestrator }

func (s *Scanner) Client() *classifier.Client { return s.client }

// LoadSettings reads stored preferences and applies them to the
// orchestrator. On first use the store is seeded with analysis.auto_analyze.
// When the store stays unreadable the defaults are applied and the error
// returned.
func (s *Scanner) LoadSettings(ctx context.Context) (settings.Settings, error) {
	if values, err := s.store.Get(ctx, []string{settings.KeyAutoAnalyze}); err == nil {
		if _, ok := values[settings.KeyAutoAnalyze]; !ok {
			seed := map[string]any{settings.KeyAutoAnalyze: s.config.Analysis.AutoAnalyze}
			if err := s.store.Set(ctx, seed); err != nil {
				s.logger.Warn().Err(err).Msg("could not seed settings")
			}
		}
	}

	loaded, err := s.loader.Load(ctx)
	s.orchestrator.SetSettings(loaded)
	if err != nil {
		s.logger.Warn().Err(err).Msg("using default settings")
		return loaded, err
	}
	return loaded, nil
}

// SaveSettings persists prefs and applies them.
func (s *Scanner) SaveSettings(ctx context.Context, prefs settings.Settings) error {
	if err := s.loader.Save(ctx, prefs); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	s.orchestrator.SetSettings(prefs)
	return nil
}

// AnalyzeURL fetches pageURL and analyzes it. The returned error covers
// fetching only; analysis failures are reported in the outcome.
func (s *Scanner) AnalyzeURL(ctx context.Context, pageURL string, mode Mode) (analyzer.Outcome, error) {
	opts := fetcher.FetchOptions{
		Mode:            fetcher.FetchMode(s.config.Fetch.Mode),
		Timeout:         s.config.Fetch.TimeoutDuration(),
		UserAgent:       s.config.Fetch.UserAgent,
		BrowserAgent:    s.config.Fetch.BrowserAgent,
		WaitForSelector: s.config.Fetch.WaitForSelector,
	}
	if s.cookies != nil && opts.Mode != fetcher.FetchModeReader {
		cookies, err := s.cookies.ExtractCookies(ctx, pageURL)
		if err != nil {
			s.logger.Warn().Err(err).Str("url", pageURL).Msg("cookie extraction failed, continuing without cookies")
		}
		opts.Cookies = cookies
	}

	start := time.Now()
	result, err := s.fetcher.Fetch(ctx, pageURL, opts)
	if err != nil {
		return analyzer.Outcome{}, fmt.Errorf("failed to fetch content: %w", err)
	}
	s.logger.Debug().
		Str("url", result.URL).
		Bool("javascript", result.UsedJS).
		Dur("elapsed", time.Since(start)).
		Msg("page fetched")

	return s.AnalyzeHTML(ctx, result.URL, result.HTML, mode)
}

// AnalyzeFile analyzes a saved page. When pageURL is empty the document's
// canonical URL is used, falling back to a file:// URL, which is never
// analyzed. The URL used is returned alongside the outcome.
func (s *Scanner) AnalyzeFile(ctx context.Context, path, pageURL string, mode Mode) (analyzer.Outcome, string, error) {
	result, err := s.fetcher.FetchFile(path, pageURL)
	if err != nil {
		return analyzer.Outcome{}, "", err
	}
	page, err := analyzer.NewPage(result.URL, result.HTML)
	if err != nil {
		return analyzer.Outcome{}, "", err
	}
	if pageURL == "" {
		if canonical := CanonicalURL(page.Doc); canonical != "" {
			page.URL = canonical
		} else {
			s.logger.Warn().Str("path", path).Msg("no canonical URL in document, pass a page URL to analyze it")
		}
	}
	return s.analyze(ctx, page, mode), page.URL, nil
}

// AnalyzeHTML analyzes html as the document found at pageURL.
func (s *Scanner) AnalyzeHTML(ctx context.Context, pageURL, html string, mode Mode) (analyzer.Outcome, error) {
	page, err := analyzer.NewPage(pageURL, html)
	if err != nil {
		return analyzer.Outcome{}, err
	}
	return s.analyze(ctx, page, mode), nil
}

func (s *Scanner) analyze(ctx context.Context, page analyzer.Page, mode Mode) analyzer.Outcome {
	if mode == ModeManual {
		return s.orchestrator.AnalyzeManual(ctx, page)
	}
	return s.orchestrator.AnalyzeAuto(ctx, page)
}

// Health checks that the classification service is reachable.
func (s *Scanner) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *Scanner) Feedback(ctx context.Context, fb classifier.Feedback) error {
	return s.client.SubmitFeedback(ctx, fb)
}

func (s *Scanner) History() []analyzer.HistoryEntry {
	return s.orchestrator.History()
}

// CanonicalURL returns the absolute http(s) URL a document declares for
// itself, from link rel=canonical or og:url.
func CanonicalURL(doc *goquery.Document) string {
	candidates := []string{
		doc.Find(`link[rel="canonical"]`).AttrOr("href", ""),
		doc.Find(`meta[property="og:url"]`).AttrOr("content", ""),
	}
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		u, err := url.Parse(c)
		if err != nil || u.Host == "" {
			continue
		}
		if u.Scheme == "http" || u.Scheme == "https" {
			return c
		}
	}
	return ""
}

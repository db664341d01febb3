// Package analyzer drives a page through classification, extraction and
// dispatch to the classification service.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/byteowlz/factscan/internal/cache"
	"github.com/byteowlz/factscan/internal/classifier"
	"github.com/byteowlz/factscan/internal/extractor"
	"github.com/byteowlz/factscan/internal/fingerprint"
	"github.com/byteowlz/factscan/internal/pagetype"
	"github.com/byteowlz/factscan/internal/settings"
)

type State string

const (
	StateIdle                State = "idle"
	StateClassifying         State = "classifying"
	StateSkipped             State = "skipped"
	StateExtracting          State = "extracting"
	StateInsufficientContent State = "insufficient-content"
	StateSingleArticle       State = "single-article"
	StateMultiArticle        State = "multi-article"
	StateFetching            State = "fetching"
	StateSuccess             State = "success"
	StateFailed              State = "failed"
)

// Status is the terminal outcome of one analysis.
type Status string

const (
	StatusSkipped          Status = "skipped"
	StatusDisabled         Status = "disabled"
	StatusBlocked          Status = "blocked"
	StatusSocial           Status = "social"
	StatusNoContent        Status = "no-content"
	StatusInsufficient     Status = "insufficient-content"
	StatusAlreadyAnalyzing Status = "already-analyzing"
	StatusInProgress       Status = "in-progress"
	StatusSuccess          Status = "success"
	StatusMultiArticle     Status = "multi-article"
	StatusFailed           Status = "failed"
)

// Page is a document snapshot together with its location.
type Page struct {
	URL string
	Doc *goquery.Document
}

// NewPage parses html as the document found at pageURL.
func NewPage(pageURL, html string) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Page{}, fmt.Errorf("failed to parse document: %w", err)
	}
	return Page{URL: pageURL, Doc: doc}, nil
}

// ArticleResult is the verdict for one article of a multi-article page.
type ArticleResult struct {
	ArticleIndex int                `json:"articleIndex"`
	Title        string             `json:"title"`
	URL          string             `json:"url"`
	Fingerprint  string             `json:"fingerprint"`
	Cached       bool               `json:"cached"`
	Result       *classifier.Result `json:"result"`
}

// Outcome reports how an analysis ended. Only StatusFailed carries Err.
type Outcome struct {
	Status      Status             `json:"status"`
	PageType    pagetype.Type      `json:"pageType,omitempty"`
	Fingerprint string             `json:"fingerprint,omitempty"`
	Cached      bool               `json:"cached,omitempty"`
	Result      *classifier.Result `json:"result,omitempty"`
	Articles    []ArticleResult    `json:"articles,omitempty"`
	Content     *extractor.Content `json:"content,omitempty"`
	ErrorKind   classifier.Kind    `json:"errorKind,omitempty"`
	Err         error              `json:"-"`
}

type Options struct {
	// MinTextLength is the shortest extracted text analyzed automatically.
	MinTextLength int
	// ManualMinTextLength applies to manual analysis and to the content
	// gate.
	ManualMinTextLength int
	MaxMultiArticles    int
	// Workers above one dispatch multi-article candidates concurrently.
	Workers     int
	HistorySize int
}

func DefaultOptions() Options {
	return Options{
		MinTextLength:       50,
		ManualMinTextLength: 100,
		MaxMultiArticles:    5,
		Workers:             1,
		HistorySize:         50,
	}
}

// Orchestrator owns the result cache and in-flight guard for one browsing
// context. It is safe for concurrent use.
type Orchestrator struct {
	backend   classifier.Backend
	cache     *cache.ResultCache
	presenter Presenter
	pages     *pagetype.Classifier
	extractor *extractor.Extractor
	opts      Options
	logger    zerolog.Logger
	now       func() time.Time

	mu       sync.Mutex
	state    State
	inFlight map[string]bool
	settings settings.Settings
	history  []HistoryEntry
}

func New(backend classifier.Backend, results *cache.ResultCache, presenter Presenter, opts Options, logger zerolog.Logger) *Orchestrator {
	def := DefaultOptions()
	if opts.MinTextLength <= 0 {
		opts.MinTextLength = def.MinTextLength
	}
	if opts.ManualMinTextLength <= 0 {
		opts.ManualMinTextLength = def.ManualMinTextLength
	}
	if opts.MaxMultiArticles <= 0 {
		opts.MaxMultiArticles = def.MaxMultiArticles
	}
	if opts.Workers <= 0 {
		opts.Workers = def.Workers
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = def.HistorySize
	}
	if results == nil {
		results = cache.New(cache.DefaultCapacity)
	}
	if presenter == nil {
		presenter = NopPresenter{}
	}
	return &Orchestrator{
		backend:   backend,
		cache:     results,
		presenter: presenter,
		pages:     pagetype.Default(),
		extractor: extractor.New(logger),
		opts:      opts,
		logger:    logger,
		now:       time.Now,
		state:     StateIdle,
		inFlight:  make(map[string]bool),
		settings:  settings.Defaults(),
	}
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	o.logger.Trace().Str("state", string(s)).Msg("state change")
}

func (o *Orchestrator) Settings() settings.Settings {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.settings
}

func (o *Orchestrator) SetSettings(s settings.Settings) {
	o.mu.Lock()
	o.settings = s
	o.mu.Unlock()
}

// Cache exposes the result cache for inspection.
func (o *Orchestrator) Cache() *cache.ResultCache { return o.cache }

// Reset clears the cache, in-flight guard and history.
func (o *Orchestrator) Reset() {
	o.cache.Clear()
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = StateIdle
	o.inFlight = make(map[string]bool)
	o.history = nil
}

// AnalyzeAuto is the page-load path. It honors the autoAnalyze setting,
// stops at social platforms and requires the page to pass the content gate
// unless the domain is whitelisted.
func (o *Orchestrator) AnalyzeAuto(ctx context.Context, page Page) Outcome {
	return o.analyze(ctx, page, false)
}

// AnalyzeManual analyzes the page on explicit request with the stricter
// minimum text length.
func (o *Orchestrator) AnalyzeManual(ctx context.Context, page Page) Outcome {
	return o.analyze(ctx, page, true)
}

func (o *Orchestrator) analyze(ctx context.Context, page Page, manual bool) Outcome {
	defer o.setState(StateIdle)

	log := o.logger.With().Str("url", page.URL).Bool("manual", manual).Logger()
	prefs := o.Settings()

	if !manual && !prefs.AutoAnalyze {
		log.Debug().Msg("automatic analysis disabled")
		return Outcome{Status: StatusDisabled}
	}

	o.setState(StateClassifying)
	pt := o.pages.Classify(page.URL, page.Doc)
	log = log.With().Str("page_type", string(pt)).Logger()

	if pt == pagetype.Skip {
		o.setState(StateSkipped)
		log.Debug().Msg("page skipped")
		return Outcome{Status: StatusSkipped, PageType: pt}
	}

	host := hostname(page.URL)
	if prefs.Blacklisted(host) {
		log.Info().Msg("domain is blacklisted")
		return Outcome{Status: StatusBlocked, PageType: pt}
	}

	if !manual && pt.IsSocial() {
		log.Info().Msg("social media page, manual analysis required")
		o.presenter.OnSocialNotice(pagetype.DisplayName(pt))
		return Outcome{Status: StatusSocial, PageType: pt}
	}

	if page.Doc == nil {
		log.Debug().Msg("no document")
		return Outcome{Status: StatusNoContent, PageType: pt}
	}

	if !manual && !prefs.Whitelisted(host) {
		if _, ok := DetectContentType(page.Doc, o.opts.ManualMinTextLength); !ok {
			log.Debug().Msg("no analyzable content detected")
			return Outcome{Status: StatusNoContent, PageType: pt}
		}
	}

	o.setState(StateExtracting)
	content := o.extractor.Extract(page.Doc, page.URL, pt)

	minLen := o.opts.MinTextLength
	if manual {
		minLen = o.opts.ManualMinTextLength
	}
	if n := utf8.RuneCountInString(content.Text); n < minLen {
		o.setState(StateInsufficientContent)
		log.Info().Int("length", n).Int("required", minLen).Msg("insufficient content for analysis")
		return Outcome{Status: StatusInsufficient, PageType: pt, Content: content}
	}

	if len(content.Articles) > 1 {
		return o.analyzeArticles(ctx, page, content, log)
	}
	return o.analyzeSingle(ctx, page, content, log)
}

func (o *Orchestrator) analyzeSingle(ctx context.Context, page Page, content *extractor.Content, log zerolog.Logger) Outcome {
	o.setState(StateSingleArticle)
	fp := fingerprint.Of(content.Text)
	log = log.With().Str("fingerprint", fingerprint.Short(fp)).Logger()
	out := Outcome{PageType: content.PageType, Fingerprint: fp, Content: content}

	if !o.claim(fp) {
		log.Debug().Msg("already analyzing this content")
		out.Status = StatusAlreadyAnalyzing
		return out
	}
	defer o.release(fp)

	if cached, ok := o.cache.Get(fp); ok {
		log.Debug().Msg("using cached result")
		o.presenter.OnResult(cached, content)
		o.setState(StateSuccess)
		out.Status, out.Result, out.Cached = StatusSuccess, cached, true
		return out
	}

	o.presenter.OnLoading(LoadingLabel(content.PageType))
	o.setState(StateFetching)

	result, err := o.backend.Classify(ctx, o.request(page, content, content.Text))
	if err != nil {
		return o.fail(out, err, log)
	}

	o.cache.Set(fp, result)
	o.record(page.URL, content.Title, fp, content.PageType, result)
	o.presenter.OnResult(result, content)
	o.setState(StateSuccess)
	log.Info().
		Str("classification", result.Classification).
		Float64("confidence", result.Confidence).
		Msg("analysis complete")

	out.Status, out.Result = StatusSuccess, result
	return out
}

// fail turns a dispatch error into an outcome. Connection failures are only
// logged so that a missing backend does not produce user-facing noise.
func (o *Orchestrator) fail(out Outcome, err error, log zerolog.Logger) Outcome {
	if errors.Is(err, classifier.ErrInProgress) {
		log.Info().Msg("analysis already in progress or max requests reached")
		out.Status = StatusInProgress
		return out
	}

	kind := classifier.KindOf(err)
	o.setState(StateFailed)
	log.Error().Err(err).Str("kind", string(kind)).Msg("analysis failed")

	if kind != classifier.KindConnection {
		o.presenter.OnError(errorMessage(kind, err), kind)
	}
	out.Status, out.ErrorKind, out.Err = StatusFailed, kind, err
	return out
}

func (o *Orchestrator) analyzeArticles(ctx context.Context, page Page, content *extractor.Content, log zerolog.Logger) Outcome {
	o.setState(StateMultiArticle)

	candidates := content.Articles
	if len(candidates) > o.opts.MaxMultiArticles {
		candidates = candidates[:o.opts.MaxMultiArticles]
	}
	log.Info().Int("articles", len(content.Articles)).Int("analyzing", len(candidates)).Msg("multiple articles detected")

	o.presenter.OnLoading(fmt.Sprintf("%d articles", len(candidates)))
	o.setState(StateFetching)

	slots := make([]*ArticleResult, len(candidates))
	analyzeOne := func(i int) {
		r, err := o.analyzeArticle(ctx, page, content, candidates[i], i)
		if err != nil {
			log.Warn().Err(err).Int("article", i).Str("kind", string(classifier.KindOf(err))).Msg("article analysis failed")
			return
		}
		slots[i] = r
	}

	if o.opts.Workers <= 1 {
		for i := range candidates {
			analyzeOne(i)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(o.opts.Workers)
		for i := range candidates {
			g.Go(func() error {
				analyzeOne(i)
				return nil
			})
		}
		g.Wait()
	}

	results := make([]ArticleResult, 0, len(slots))
	for _, r := range slots {
		if r != nil {
			results = append(results, *r)
		}
	}

	o.presenter.OnMultiArticleResult(results)
	o.setState(StateSuccess)
	log.Info().Int("results", len(results)).Msg("multi-article analysis complete")

	return Outcome{
		Status:   StatusMultiArticle,
		PageType: content.PageType,
		Articles: results,
		Content:  content,
	}
}

func (o *Orchestrator) analyzeArticle(ctx context.Context, page Page, content *extractor.Content, a extractor.ArticleCandidate, i int) (*ArticleResult, error) {
	fp := fingerprint.Of(a.Text)
	r := &ArticleResult{ArticleIndex: i, Title: a.Title, URL: a.URL, Fingerprint: fp}

	if cached, ok := o.cache.Get(fp); ok {
		r.Result, r.Cached = cached, true
		return r, nil
	}

	req := o.request(page, content, a.Text)
	req.Title, req.Author, req.PublishDate = a.Title, a.Author, a.PublishDate

	result, err := o.backend.Classify(ctx, req)
	if err != nil {
		return nil, err
	}
	o.cache.Set(fp, result)
	o.record(a.URL, a.Title, fp, content.PageType, result)
	r.Result = result
	return r, nil
}

func (o *Orchestrator) request(page Page, content *extractor.Content, text string) classifier.Request {
	return classifier.Request{
		Text:        text,
		URL:         page.URL,
		Title:       content.Title,
		Author:      content.Author,
		PublishDate: content.PublishDate,
		PageType:    string(content.PageType),
		Source:      content.Source,
		Language:    extractor.DetectLanguage(text),
	}
}

func (o *Orchestrator) claim(fp string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inFlight[fp] {
		return false
	}
	o.inFlight[fp] = true
	return true
}

func (o *Orchestrator) release(fp string) {
	o.mu.Lock()
	delete(o.inFlight, fp)
	o.mu.Unlock()
}

func hostname(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

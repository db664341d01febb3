package factscan

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/byteowlz/factscan/internal/analyzer"
	"github.com/byteowlz/factscan/internal/classifier"
	"github.com/byteowlz/factscan/internal/config"
	"github.com/byteowlz/factscan/internal/settings"
)

func storyHTML(canonical string) string {
	sentence := "Officials confirmed the figures at a briefing on Tuesday afternoon. "
	head := "<title>Council approves the new budget</title>"
	if canonical != "" {
		head += `<link rel="canonical" href="` + canonical + `">`
	}
	return `<html><head>` + head + `</head><body>
		<article><h1>Council approves the new budget</h1>
		<p>` + strings.Repeat(sentence, 5) + `</p><p>` + strings.Repeat(sentence, 4) + `</p>
		</article></body></html>`
}

type classifierServer struct {
	*httptest.Server
	analyzeCalls  atomic.Int32
	feedbackCalls atomic.Int32
	lastRequest   atomic.Value
}

func newClassifierServer(t *testing.T) *classifierServer {
	t.Helper()
	cs := &classifierServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/analyze", func(w http.ResponseWriter, r *http.Request) {
		cs.analyzeCalls.Add(1)
		var req classifier.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		cs.lastRequest.Store(req)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"classification":"verified","confidence":0.9,"explanation":"ok"}`))
	})
	mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/v1/feedback", func(w http.ResponseWriter, r *http.Request) {
		cs.feedbackCalls.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})
	cs.Server = httptest.NewServer(mux)
	t.Cleanup(cs.Close)
	return cs
}

func testConfig(endpoint string) *config.Config {
	cfg := config.Default()
	cfg.Classifier.Endpoint = endpoint
	cfg.Fetch.Mode = "static"
	return cfg
}

func TestAnalyzeURL(t *testing.T) {
	cs := newClassifierServer(t)
	pages := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(storyHTML("")))
	}))
	defer pages.Close()

	s, err := New(testConfig(cs.URL+"/api/v1/analyze"), zerolog.Nop(), WithSettingsStore(settings.NewMemoryStore(nil)))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadSettings(context.Background()); err != nil {
		t.Fatal(err)
	}

	out, err := s.AnalyzeURL(context.Background(), pages.URL+"/story", ModeAuto)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != analyzer.StatusSuccess {
		t.Fatalf("expected success, got %s (%v)", out.Status, out.Err)
	}
	if out.Result.Classification != "verified" {
		t.Errorf("unexpected result %+v", out.Result)
	}

	req := cs.lastRequest.Load().(classifier.Request)
	if req.Title != "Council approves the new budget" || req.Language != "en" {
		t.Errorf("unexpected request %+v", req)
	}

	// Same content again comes from the cache.
	out, err = s.AnalyzeURL(context.Background(), pages.URL+"/story", ModeAuto)
	if err != nil || !out.Cached {
		t.Errorf("expected cached outcome, got %+v (%v)", out, err)
	}
	if n := cs.analyzeCalls.Load(); n != 1 {
		t.Errorf("expected one classification call, got %d", n)
	}
	if h := s.History(); len(h) != 1 {
		t.Errorf("expected one history entry, got %d", len(h))
	}
}

func TestAnalyzeURL_FetchError(t *testing.T) {
	cs := newClassifierServer(t)
	pages := httptest.NewServer(http.NotFoundHandler())
	defer pages.Close()

	s, err := New(testConfig(cs.URL+"/api/v1/analyze"), zerolog.Nop(), WithSettingsStore(settings.NewMemoryStore(nil)))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AnalyzeURL(context.Background(), pages.URL+"/gone", ModeManual); err == nil {
		t.Error("expected fetch error")
	}
	if n := cs.analyzeCalls.Load(); n != 0 {
		t.Errorf("expected no classification calls, got %d", n)
	}
}

func TestLoadSettings_SeedsAutoAnalyze(t *testing.T) {
	cs := newClassifierServer(t)
	cfg := testConfig(cs.URL + "/api/v1/analyze")
	cfg.Analysis.AutoAnalyze = false
	store := settings.NewMemoryStore(nil)

	s, err := New(cfg, zerolog.Nop(), WithSettingsStore(store))
	if err != nil {
		t.Fatal(err)
	}
	prefs, err := s.LoadSettings(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if prefs.AutoAnalyze {
		t.Error("expected auto analysis to be seeded off")
	}

	out, err := s.AnalyzeHTML(context.Background(), "https://news.example.com/story", storyHTML(""), ModeAuto)
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != analyzer.StatusDisabled {
		t.Errorf("expected disabled, got %s", out.Status)
	}

	// A stored preference wins over the config seed.
	store2 := settings.NewMemoryStore(map[string]any{settings.KeyAutoAnalyze: true})
	s2, err := New(cfg, zerolog.Nop(), WithSettingsStore(store2))
	if err != nil {
		t.Fatal(err)
	}
	if prefs, _ := s2.LoadSettings(context.Background()); !prefs.AutoAnalyze {
		t.Error("stored autoAnalyze=true was overwritten")
	}
}

func TestSaveSettings_Blacklist(t *testing.T) {
	cs := newClassifierServer(t)
	s, err := New(testConfig(cs.URL+"/api/v1/analyze"), zerolog.Nop(), WithSettingsStore(settings.NewMemoryStore(nil)))
	if err != nil {
		t.Fatal(err)
	}
	prefs := settings.Defaults()
	prefs.BlacklistedDomains = []string{"example.com"}
	if err := s.SaveSettings(context.Background(), prefs); err != nil {
		t.Fatal(err)
	}

	out, err := s.AnalyzeHTML(context.Background(), "https://news.example.com/story", storyHTML(""), ModeManual)
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != analyzer.StatusBlocked {
		t.Errorf("expected blocked, got %s", out.Status)
	}
}

func TestAnalyzeFile_CanonicalURL(t *testing.T) {
	cs := newClassifierServer(t)
	s, err := New(testConfig(cs.URL+"/api/v1/analyze"), zerolog.Nop(), WithSettingsStore(settings.NewMemoryStore(nil)))
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	withCanonical := filepath.Join(dir, "story.html")
	os.WriteFile(withCanonical, []byte(storyHTML("https://news.example.com/story")), 0o644)
	bare := filepath.Join(dir, "bare.html")
	os.WriteFile(bare, []byte(storyHTML("")), 0o644)

	out, used, err := s.AnalyzeFile(context.Background(), withCanonical, "", ModeManual)
	if err != nil {
		t.Fatal(err)
	}
	if used != "https://news.example.com/story" || out.Status != analyzer.StatusSuccess {
		t.Errorf("expected success at canonical URL, got %s at %q", out.Status, used)
	}

	out, used, err = s.AnalyzeFile(context.Background(), bare, "", ModeManual)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(used, "file://") || out.Status != analyzer.StatusSkipped {
		t.Errorf("expected skipped file URL, got %s at %q", out.Status, used)
	}
}

func TestHealthAndFeedback(t *testing.T) {
	cs := newClassifierServer(t)
	s, err := New(testConfig(cs.URL+"/api/v1/analyze"), zerolog.Nop(), WithSettingsStore(settings.NewMemoryStore(nil)))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Health(context.Background()); err != nil {
		t.Errorf("expected healthy service: %v", err)
	}
	if err := s.Feedback(context.Background(), classifier.Feedback{URL: "https://news.example.com/story", Classification: "verified", Correct: true}); err != nil {
		t.Errorf("unexpected feedback error: %v", err)
	}
	if n := cs.feedbackCalls.Load(); n != 1 {
		t.Errorf("expected one feedback call, got %d", n)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Fetch.Mode = "turbo"
	if _, err := New(cfg, zerolog.Nop()); err == nil {
		t.Error("expected validation error")
	}
}

func TestCanonicalURL(t *testing.T) {
	tests := []struct {
		head string
		want string
	}{
		{`<link rel="canonical" href="https://a.example.com/x">`, "https://a.example.com/x"},
		{`<meta property="og:url" content="http://b.example.com/y">`, "http://b.example.com/y"},
		{`<link rel="canonical" href="/relative">`, ""},
		{``, ""},
	}
	for _, tt := range tests {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><head>" + tt.head + "</head><body></body></html>"))
		if err != nil {
			t.Fatal(err)
		}
		if got := CanonicalURL(doc); got != tt.want {
			t.Errorf("CanonicalURL(%q) = %q, want %q", tt.head, got, tt.want)
		}
	}
}

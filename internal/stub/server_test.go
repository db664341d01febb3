package stub

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/byteowlz/factscan/internal/classifier"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(zerolog.Nop())
	ts := httptest.NewServer(s.SetupRoutes())
	t.Cleanup(ts.Close)
	return s, ts
}

func TestRate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"attributed", "Officials said the bridge reopens Monday. The figures were confirmed by the agency.", "verified"},
		{"sensational", "SHOCKING miracle cure exposed! The secret they don't want you to know. It is a hoax!!", "misinformation"},
		{"satire", "This satirical piece imagines a city run by pigeons.", "satire"},
		{"plain", "The weather was mild and the market was busy.", "questionable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Rate(classifier.Request{Text: tt.text})
			if res.Classification != tt.want {
				t.Errorf("Rate() = %s, want %s", res.Classification, tt.want)
			}
			if res.Confidence < 0.5 || res.Confidence > 1 {
				t.Errorf("confidence out of range: %v", res.Confidence)
			}
		})
	}
}

func TestRate_SuspiciousSentences(t *testing.T) {
	res := Rate(classifier.Request{Text: "A calm opening. Then a shocking claim appears. Another calm line."})
	if len(res.SuspiciousSentences) != 1 {
		t.Fatalf("expected one suspicious sentence, got %+v", res.SuspiciousSentences)
	}
	if got := res.SuspiciousSentences[0].Sentence; got != "Then a shocking claim appears." {
		t.Errorf("unexpected sentence %q", got)
	}
}

func TestAnalyzeHandler(t *testing.T) {
	_, ts := newTestServer(t)

	body, _ := json.Marshal(classifier.Request{Text: "Officials said the numbers were confirmed.", URL: "https://news.example.com/a"})
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/analyze", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "factscan-cli")
	req.Header.Set("X-Request-ID", "req-1")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "factscan-cli" {
		t.Errorf("origin not echoed: %q", got)
	}
	if got := resp.Header.Get("X-Request-ID"); got != "req-1" {
		t.Errorf("request id not echoed: %q", got)
	}
	var res classifier.Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res.Classification != "verified" {
		t.Errorf("unexpected classification %q", res.Classification)
	}
	if _, ok := res.Extra["engine"]; !ok {
		t.Errorf("expected engine field, got %v", res.Extra)
	}
}

func TestAnalyzeHandler_BadRequests(t *testing.T) {
	_, ts := newTestServer(t)
	for _, body := range []string{"not json", `{"text":"   "}`} {
		resp, err := http.Post(ts.URL+"/api/v1/analyze", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, resp.StatusCode)
		}
	}

	resp, err := http.Get(ts.URL + "/api/v1/analyze")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET, got %d", resp.StatusCode)
	}
}

func TestPreflight(t *testing.T) {
	_, ts := newTestServer(t)
	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/v1/analyze", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("unexpected preflight response %d %v", resp.StatusCode, resp.Header)
	}
}

func TestFeedbackHandler(t *testing.T) {
	s, ts := newTestServer(t)
	body := `{"url":"https://news.example.com/a","classification":"verified","correct":true}`
	resp, err := http.Post(ts.URL+"/api/v1/feedback", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	fb := s.Feedback()
	if len(fb) != 1 || fb[0].URL != "https://news.example.com/a" || !fb[0].Correct {
		t.Errorf("unexpected feedback %+v", fb)
	}
}

// The real client talks to the stub without errors.
func TestClientRoundTrip(t *testing.T) {
	_, ts := newTestServer(t)
	c := classifier.NewClient(ts.URL+"/api/v1/analyze", 2*time.Second, 1, zerolog.Nop())
	c.Origin = "factscan-cli"

	ctx := context.Background()
	if err := c.Health(ctx); err != nil {
		t.Fatalf("health: %v", err)
	}
	res, err := c.Classify(ctx, classifier.Request{Text: "Miracle cure exposed!! Shocking secret hoax."})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if res.Classification != "misinformation" {
		t.Errorf("unexpected classification %q", res.Classification)
	}
	if err := c.SubmitFeedback(ctx, classifier.Feedback{URL: "https://news.example.com/a", Classification: res.Classification}); err != nil {
		t.Errorf("feedback: %v", err)
	}
}

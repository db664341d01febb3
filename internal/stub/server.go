// Package stub is a small stand-in for the classification service. It rates
// text with keyword heuristics so that the CLI can be tried end to end
// without the real model.
package stub

import (
	"encoding/json"
	"math"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/byteowlz/factscan/internal/classifier"
)

const version = "stub-1"

var (
	sensationalMarkers = []string{
		"shocking", "you won't believe", "miracle", "cure", "they don't want you to know",
		"secret", "hoax", "exposed", "cover-up", "100%", "wake up", "mainstream media",
	}
	attributionMarkers = []string{
		"according to", "officials said", "confirmed", "study published", "reported by",
		"data from", "spokesperson", "peer-reviewed",
	}
	satireMarkers = []string{"satire", "satirical", "parody"}

	sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]+`)
)

// Server holds the handlers and the feedback received so far.
type Server struct {
	logger zerolog.Logger
	now    func() time.Time

	mu       sync.Mutex
	feedback []classifier.Feedback
}

func NewServer(logger zerolog.Logger) *Server {
	return &Server{logger: logger, now: time.Now}
}

// SetupRoutes configures HTTP routes
func (s *Server) SetupRoutes() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(s.corsMiddleware)
	api.Use(s.loggingMiddleware)

	api.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	api.HandleFunc("/analyze", s.analyzeHandler).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/feedback", s.feedbackHandler).Methods(http.MethodPost, http.MethodOptions)

	return r
}

// Feedback returns the reports received so far.
func (s *Server) Feedback() []classifier.Feedback {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]classifier.Feedback, len(s.feedback))
	copy(out, s.feedback)
	return out
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.now().Unix(),
		"version":   version,
	})
}

func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	var req classifier.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}
	writeJSON(w, http.StatusOK, Rate(req))
}

func (s *Server) feedbackHandler(w http.ResponseWriter, r *http.Request) {
	var fb classifier.Feedback
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&fb); err != nil || fb.URL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "url is required"})
		return
	}
	s.mu.Lock()
	s.feedback = append(s.feedback, fb)
	s.mu.Unlock()
	s.logger.Info().Str("url", fb.URL).Str("classification", fb.Classification).Bool("correct", fb.Correct).Msg("feedback received")
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "received"})
}

// Rate scores text by counting sensational and attribution phrases.
func Rate(req classifier.Request) classifier.Result {
	lower := strings.ToLower(req.Text)
	sensational := countMarkers(lower, sensationalMarkers)
	attribution := countMarkers(lower, attributionMarkers)
	exclamations := strings.Count(req.Text, "!!")

	score := 20 + 15*sensational + 5*exclamations - 8*attribution
	score = max(0, min(100, score))
	misinfo := float64(score)

	res := classifier.Result{
		MisinformationScore: &misinfo,
		Extra:               map[string]json.RawMessage{"engine": json.RawMessage(`"` + version + `"`)},
	}
	switch {
	case countMarkers(lower, satireMarkers) > 0:
		res.Classification = "satire"
		res.Explanation = "The text describes itself as satire or parody."
	case score >= 70:
		res.Classification = "misinformation"
		res.Explanation = "The text relies heavily on sensational claims without attribution."
	case score >= 45:
		res.Classification = "misleading"
		res.Explanation = "Several sensational phrases appear with little sourcing."
	case attribution >= 2 && sensational == 0:
		res.Classification = "verified"
		res.Explanation = "Claims are attributed to named sources and contain no sensational language."
	default:
		res.Classification = "questionable"
		res.Explanation = "Not enough sourcing to confirm the claims."
	}
	res.Confidence = math.Round((0.5+math.Abs(float64(score)-50)/100)*100) / 100

	for _, sentence := range sentencePattern.FindAllString(req.Text, -1) {
		sentence = strings.TrimSpace(sentence)
		for _, m := range sensationalMarkers {
			if strings.Contains(strings.ToLower(sentence), m) {
				res.SuspiciousSentences = append(res.SuspiciousSentences, classifier.SuspiciousSentence{
					Sentence: sentence,
					Reason:   "sensational language: " + m,
					Score:    0.7,
				})
				res.HighlightedPhrases = append(res.HighlightedPhrases, m)
				break
			}
		}
		if len(res.SuspiciousSentences) == 5 {
			break
		}
	}
	return res
}

func countMarkers(lower string, markers []string) int {
	n := 0
	for _, m := range markers {
		n += strings.Count(lower, m)
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// corsMiddleware echoes the request origin so that origin-checking clients
// accept the response.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		if id := r.Header.Get("X-Request-ID"); id != "" {
			w.Header().Set("X-Request-ID", id)
		}

		next.ServeHTTP(wrapped, r)

		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapped.statusCode).
			Str("request_id", r.Header.Get("X-Request-ID")).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

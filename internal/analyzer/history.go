package analyzer

import (
	"time"

	"github.com/byteowlz/factscan/internal/classifier"
	"github.com/byteowlz/factscan/internal/pagetype"
)

// HistoryEntry records one completed classification.
type HistoryEntry struct {
	URL         string             `json:"url"`
	Title       string             `json:"title"`
	Fingerprint string             `json:"fingerprint"`
	PageType    pagetype.Type      `json:"pageType"`
	Result      *classifier.Result `json:"result"`
	Timestamp   time.Time          `json:"timestamp"`
}

// History returns completed analyses, newest first.
func (o *Orchestrator) History() []HistoryEntry {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]HistoryEntry, len(o.history))
	copy(out, o.history)
	return out
}

func (o *Orchestrator) record(url, title, fp string, pt pagetype.Type, result *classifier.Result) {
	entry := HistoryEntry{
		URL:         url,
		Title:       title,
		Fingerprint: fp,
		PageType:    pt,
		Result:      result,
		Timestamp:   o.now().UTC(),
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.history = append([]HistoryEntry{entry}, o.history...)
	if len(o.history) > o.opts.HistorySize {
		o.history = o.history[:o.opts.HistorySize]
	}
}

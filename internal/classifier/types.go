package classifier

import (
	"bytes"
	"encoding/json"
)

// Request is the JSON body posted to the classification service.
type Request struct {
	Text        string `json:"text"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	PublishDate string `json:"publishDate"`
	PageType    string `json:"pageType"`
	Source      string `json:"source"`
	Language    string `json:"language"`
}

// FactCheckSource is a reference returned alongside a verdict.
type FactCheckSource struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Verdict string `json:"verdict"`
}

// SuspiciousSentence is a flagged sentence. The service may send either an
// object or a bare string; both decode into this type.
type SuspiciousSentence struct {
	Sentence string  `json:"sentence"`
	Reason   string  `json:"reason,omitempty"`
	Score    float64 `json:"score,omitempty"`
}

func (s *SuspiciousSentence) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &s.Sentence)
	}
	type plain SuspiciousSentence
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = SuspiciousSentence(p)
	return nil
}

// Result is the verdict payload returned by the classification service.
// Fields the core does not understand (crisis, official source, bias and
// image verification blocks) are kept verbatim in Extra and written back
// out by MarshalJSON.
type Result struct {
	Classification      string               `json:"classification"`
	Confidence          float64              `json:"confidence"`
	MisinformationScore *float64             `json:"misinformation_score,omitempty"`
	Explanation         string               `json:"explanation"`
	HighlightedPhrases  []string             `json:"highlighted_phrases,omitempty"`
	FactCheckSources    []FactCheckSource    `json:"fact_check_sources,omitempty"`
	SuspiciousSentences []SuspiciousSentence `json:"suspicious_sentences,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var resultFields = []string{
	"classification",
	"confidence",
	"misinformation_score",
	"explanation",
	"highlighted_phrases",
	"fact_check_sources",
	"suspicious_sentences",
}

func (r *Result) UnmarshalJSON(data []byte) error {
	type plain Result
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range resultFields {
		delete(all, k)
	}
	*r = Result(p)
	if len(all) > 0 {
		r.Extra = all
	}
	return nil
}

func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	base, err := json.Marshal(plain(r))
	if err != nil || len(r.Extra) == 0 {
		return base, err
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range r.Extra {
		if _, known := merged[k]; !known {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// Feedback is a user report about a verdict.
type Feedback struct {
	URL            string `json:"url"`
	Classification string `json:"classification"`
	Correct        bool   `json:"correct"`
	Comment        string `json:"comment,omitempty"`
}

// Package report renders analysis outcomes for terminals and pipelines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/byteowlz/factscan/internal/analyzer"
	"github.com/byteowlz/factscan/internal/classifier"
	"github.com/byteowlz/factscan/internal/pagetype"
)

type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
)

// ParseFormat accepts a format name, with "md" and "yml" as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown output format %q (text, markdown, json, yaml)", s)
}

// Report is the serializable view of one analyzed page.
type Report struct {
	URL                  string                   `json:"url"`
	Status               analyzer.Status          `json:"status"`
	PageType             pagetype.Type            `json:"pageType,omitempty"`
	Title                string                   `json:"title,omitempty"`
	Author               string                   `json:"author,omitempty"`
	PublishDate          string                   `json:"publishDate,omitempty"`
	Language             string                   `json:"language,omitempty"`
	Excerpt              string                   `json:"excerpt,omitempty"`
	ExtractionConfidence int                      `json:"extractionConfidence,omitempty"`
	Fingerprint          string                   `json:"fingerprint,omitempty"`
	Cached               bool                     `json:"cached,omitempty"`
	Badge                string                   `json:"badge,omitempty"`
	Result               *classifier.Result       `json:"result,omitempty"`
	Articles             []analyzer.ArticleResult `json:"articles,omitempty"`
	ErrorKind            classifier.Kind          `json:"errorKind,omitempty"`
	Error                string                   `json:"error,omitempty"`
}

// New builds the report for an outcome of analyzing pageURL.
func New(pageURL string, out analyzer.Outcome) Report {
	r := Report{
		URL:         pageURL,
		Status:      out.Status,
		PageType:    out.PageType,
		Fingerprint: out.Fingerprint,
		Cached:      out.Cached,
		Result:      out.Result,
		Articles:    out.Articles,
		ErrorKind:   out.ErrorKind,
	}
	if c := out.Content; c != nil {
		r.Title = c.Title
		r.Author = c.Author
		r.PublishDate = c.PublishDate
		r.Language = c.Language
		r.Excerpt = c.Excerpt
		r.ExtractionConfidence = c.Confidence
	}
	if out.Result != nil {
		r.Badge = classifier.BadgeFor(out.Result.Classification).Text
	}
	if out.Err != nil {
		r.Error = out.Err.Error()
	}
	return r
}

type Renderer struct {
	// LineWidth wraps prose in text output; 0 disables wrapping.
	LineWidth int
}

// Render writes reports in format. Text and markdown separate reports with
// a blank line; JSON writes an array when there is more than one report.
func (rd Renderer) Render(w io.Writer, format Format, reports ...Report) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if len(reports) == 1 {
			return enc.Encode(reports[0])
		}
		return enc.Encode(reports)
	case FormatYAML:
		var v any = reports
		if len(reports) == 1 {
			v = reports[0]
		}
		return writeYAML(w, v)
	case FormatMarkdown:
		for i, r := range reports {
			if i > 0 {
				io.WriteString(w, "\n---\n\n")
			}
			if _, err := io.WriteString(w, rd.Markdown(r)); err != nil {
				return err
			}
		}
		return nil
	}
	for i, r := range reports {
		if i > 0 {
			io.WriteString(w, "\n")
		}
		if _, err := io.WriteString(w, rd.Text(r)); err != nil {
			return err
		}
	}
	return nil
}

// writeYAML goes through JSON so that field names and the pass-through
// result fields match the JSON output.
func writeYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return err
	}
	blockStyle(&node)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return err
	}
	return enc.Close()
}

func blockStyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle
	if n.Kind == yaml.ScalarNode && n.Style&yaml.DoubleQuotedStyle != 0 && n.ShortTag() == "!!str" && !needsQuotes(n.Value) {
		n.Style &^= yaml.DoubleQuotedStyle
	}
	for _, c := range n.Content {
		blockStyle(c)
	}
}

// needsQuotes reports whether an unquoted scalar would be read back as
// something other than the same string.
func needsQuotes(s string) bool {
	var probe any
	if err := yaml.Unmarshal([]byte(s), &probe); err != nil {
		return true
	}
	str, ok := probe.(string)
	return !ok || str != s
}

// Text renders a plain terminal report.
func (rd Renderer) Text(r Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", r.URL)

	switch r.Status {
	case analyzer.StatusSuccess:
		rd.writeVerdictText(&b, r)
	case analyzer.StatusMultiArticle:
		fmt.Fprintf(&b, "Analyzed %d articles on this page:\n", len(r.Articles))
		for i, a := range r.Articles {
			fmt.Fprintf(&b, "  %s %s  %s %d%%\n", articleBadge(a), articleTitle(a, i), verdictLabel(a.Result), percent(a.Result))
		}
	case analyzer.StatusFailed:
		fmt.Fprintf(&b, "Analysis failed (%s): %s\n", r.ErrorKind, r.Error)
	default:
		fmt.Fprintf(&b, "%s\n", StatusMessage(r))
	}
	return b.String()
}

func (rd Renderer) writeVerdictText(b *strings.Builder, r Report) {
	res := r.Result
	fmt.Fprintf(b, "%s %s  %d%% confident", r.Badge, verdictLabel(res), percent(res))
	if r.Cached {
		b.WriteString("  (cached)")
	}
	b.WriteString("\n")
	if r.Title != "" {
		fmt.Fprintf(b, "Title: %s\n", r.Title)
	}
	if r.Author != "" {
		fmt.Fprintf(b, "Author: %s\n", r.Author)
	}
	if res.MisinformationScore != nil {
		fmt.Fprintf(b, "Misinformation score: %.0f/100\n", *res.MisinformationScore)
	}

	explanation := res.Explanation
	if explanation == "" {
		explanation = "Analysis complete."
	}
	fmt.Fprintf(b, "\n%s\n", rd.wrapText(explanation))

	if len(res.HighlightedPhrases) > 0 {
		fmt.Fprintf(b, "\nKey phrases: %s\n", strings.Join(res.HighlightedPhrases, ", "))
	}
	if n := len(res.SuspiciousSentences); n > 0 {
		fmt.Fprintf(b, "\nFound %d suspicious sentence%s:\n", n, plural(n))
		for _, s := range res.SuspiciousSentences {
			line := "  - " + s.Sentence
			if s.Reason != "" {
				line += " (" + s.Reason + ")"
			}
			b.WriteString(line + "\n")
		}
	}
	if len(res.FactCheckSources) > 0 {
		b.WriteString("\nFact-check sources:\n")
		for _, src := range res.FactCheckSources {
			fmt.Fprintf(b, "  - %s - %s %s\n", src.Name, src.Verdict, src.URL)
		}
	}
}

// Markdown renders a report as a markdown section.
func (rd Renderer) Markdown(r Report) string {
	var md strings.Builder

	title := r.Title
	if title == "" {
		title = r.URL
	}
	md.WriteString(fmt.Sprintf("# %s\n\n", title))
	md.WriteString(fmt.Sprintf("**URL:** %s\n\n", r.URL))

	switch r.Status {
	case analyzer.StatusSuccess:
		res := r.Result
		md.WriteString(fmt.Sprintf("**Verdict:** %s %s (%d%% confident)\n\n", r.Badge, verdictLabel(res), percent(res)))
		if r.Author != "" {
			md.WriteString(fmt.Sprintf("**Author:** %s\n\n", r.Author))
		}
		if r.Excerpt != "" {
			md.WriteString(fmt.Sprintf("**Summary:** %s\n\n", r.Excerpt))
		}
		if res.Explanation != "" {
			md.WriteString(res.Explanation + "\n\n")
		}
		if len(res.SuspiciousSentences) > 0 {
			md.WriteString("## Suspicious sentences\n\n")
			for _, s := range res.SuspiciousSentences {
				md.WriteString(fmt.Sprintf("> %s\n", s.Sentence))
				if s.Reason != "" {
					md.WriteString(fmt.Sprintf(">\n> *%s*\n", s.Reason))
				}
				md.WriteString("\n")
			}
		}
		if len(res.FactCheckSources) > 0 {
			md.WriteString("## Fact-check sources\n\n")
			for _, src := range res.FactCheckSources {
				md.WriteString(fmt.Sprintf("- [%s](%s) - %s\n", src.Name, src.URL, src.Verdict))
			}
			md.WriteString("\n")
		}
	case analyzer.StatusMultiArticle:
		md.WriteString("| | Article | Verdict | Confidence |\n|---|---|---|---|\n")
		for i, a := range r.Articles {
			name := articleTitle(a, i)
			if a.URL != "" {
				name = fmt.Sprintf("[%s](%s)", name, a.URL)
			}
			md.WriteString(fmt.Sprintf("| %s | %s | %s | %d%% |\n", articleBadge(a), name, verdictLabel(a.Result), percent(a.Result)))
		}
		md.WriteString("\n")
	case analyzer.StatusFailed:
		md.WriteString(fmt.Sprintf("**Analysis failed** (%s): %s\n\n", r.ErrorKind, r.Error))
	default:
		md.WriteString(StatusMessage(r) + "\n\n")
	}
	return md.String()
}

// StatusMessage describes an outcome that produced no verdict.
func StatusMessage(r Report) string {
	switch r.Status {
	case analyzer.StatusSkipped:
		return "Skipped: this page is not analyzable."
	case analyzer.StatusDisabled:
		return "Automatic analysis is disabled."
	case analyzer.StatusBlocked:
		return "Skipped: this domain is blacklisted."
	case analyzer.StatusSocial:
		return fmt.Sprintf("%s page detected. Run a manual analysis to check a post.", pagetype.DisplayName(r.PageType))
	case analyzer.StatusNoContent:
		return "No article content found on this page."
	case analyzer.StatusInsufficient:
		return "Not enough text on this page to analyze."
	case analyzer.StatusAlreadyAnalyzing, analyzer.StatusInProgress:
		return "An analysis is already in progress. Try again shortly."
	}
	return string(r.Status)
}

func verdictLabel(res *classifier.Result) string {
	if res == nil || res.Classification == "" {
		return "Unknown"
	}
	c := []rune(strings.ToLower(res.Classification))
	return strings.ToUpper(string(c[:1])) + string(c[1:])
}

func percent(res *classifier.Result) int {
	if res == nil {
		return 0
	}
	return int(math.Round(res.Confidence * 100))
}

func articleBadge(a analyzer.ArticleResult) string {
	if a.Result == nil {
		return classifier.BadgeFor("").Text
	}
	return classifier.BadgeFor(a.Result.Classification).Text
}

func articleTitle(a analyzer.ArticleResult, i int) string {
	if a.Title != "" {
		return a.Title
	}
	return fmt.Sprintf("Article %d", i+1)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func (rd Renderer) wrapText(text string) string {
	if rd.LineWidth <= 0 {
		return text
	}

	var result strings.Builder
	paragraphs := strings.Split(text, "\n\n")

	for i, paragraph := range paragraphs {
		if i > 0 {
			result.WriteString("\n\n")
		}

		words := strings.Fields(paragraph)
		if len(words) == 0 {
			continue
		}

		currentLine := words[0]
		for _, word := range words[1:] {
			if len([]rune(currentLine))+1+len([]rune(word)) <= rd.LineWidth {
				currentLine += " " + word
			} else {
				result.WriteString(currentLine + "\n")
				currentLine = word
			}
		}
		result.WriteString(currentLine)
	}

	return result.String()
}

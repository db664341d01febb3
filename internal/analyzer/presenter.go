package analyzer

import (
	"github.com/byteowlz/factscan/internal/classifier"
	"github.com/byteowlz/factscan/internal/extractor"
	"github.com/byteowlz/factscan/internal/pagetype"
)

// Presenter receives user-facing events. Calls are made synchronously from
// the analyzing goroutine.
type Presenter interface {
	OnLoading(label string)
	OnResult(result *classifier.Result, content *extractor.Content)
	OnError(message string, kind classifier.Kind)
	OnMultiArticleResult(results []ArticleResult)
	OnSocialNotice(platform string)
}

// NopPresenter ignores every event.
type NopPresenter struct{}

func (NopPresenter) OnLoading(string) {}
func (NopPresenter) OnResult(*classifier.Result, *extractor.Content) {}
func (NopPresenter) OnError(string, classifier.Kind) {}
func (NopPresenter) OnMultiArticleResult([]ArticleResult) {}
func (NopPresenter) OnSocialNotice(string) {}

// LoadingLabel describes the kind of content being analyzed.
func LoadingLabel(t pagetype.Type) string {
	switch t {
	case pagetype.NewsPortal:
		return "news article"
	case pagetype.Blog:
		return "blog post"
	case pagetype.ArticlePage:
		return "article"
	case pagetype.Social("facebook"):
		return "Facebook post"
	case pagetype.Social("twitter"):
		return "tweet"
	case pagetype.Social("reddit"):
		return "Reddit post"
	}
	return "content"
}

// errorMessage is the text shown for a failed analysis of the given kind.
func errorMessage(kind classifier.Kind, err error) string {
	switch kind {
	case classifier.KindTimeout:
		return "The analysis server took too long to respond."
	case classifier.KindCORS:
		return "The analysis server rejected the request origin."
	case classifier.KindServer:
		return "The analysis server encountered an error."
	}
	if err != nil {
		return err.Error()
	}
	return "Unknown error"
}

package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Kind is the failure category of a classification call.
type Kind string

const (
	KindConnection Kind = "connection"
	KindTimeout    Kind = "timeout"
	KindCORS       Kind = "cors"
	KindServer     Kind = "server"
	KindUnknown    Kind = "unknown"
)

// ErrInProgress is returned when the concurrency gate is full. Calls are
// rejected, never queued.
var ErrInProgress = errors.New("classifier: analysis in progress")

// Error is the typed failure returned by Client.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("classifier: %s error: HTTP %d: %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("classifier: %s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the failure category of err. Errors that did not come from
// Client are KindUnknown.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUnknown
}

// transportError classifies a failure from http.Client.Do.
func transportError(err error) *Error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Message: "request timeout", Err: err}
	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindUnknown, Message: "request canceled", Err: err}
	default:
		return &Error{Kind: KindConnection, Message: err.Error(), Err: err}
	}
}

const maxMessageRunes = 200

// statusError classifies a non-2xx response.
func statusError(status int, body string) *Error {
	msg := strings.TrimSpace(body)
	if utf8.RuneCountInString(msg) > maxMessageRunes {
		msg = string([]rune(msg)[:maxMessageRunes])
	}
	kind := KindUnknown
	if status >= 500 || strings.Contains(strings.ToLower(body), "server error") {
		kind = KindServer
	}
	return &Error{Kind: kind, Status: status, Message: msg}
}

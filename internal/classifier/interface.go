package classifier

import (
	"context"
	"strings"
)

// Backend classifies extracted text. *Client is the production implementation.
type Backend interface {
	Classify(ctx context.Context, req Request) (*Result, error)
}

// Badge is the short marker shown next to a verdict.
type Badge struct {
	Text  string
	Color string
}

var badges = map[string]Badge{
	"verified":       {Text: "✓", Color: "#10b981"},
	"true":           {Text: "✓", Color: "#10b981"},
	"misleading":     {Text: "!", Color: "#f59e0b"},
	"questionable":   {Text: "?", Color: "#f59e0b"},
	"false":          {Text: "✗", Color: "#ef4444"},
	"misinformation": {Text: "✗", Color: "#ef4444"},
	"satire":         {Text: "😄", Color: "#8b5cf6"},
}

// BadgeFor maps a classification label to its badge. Unknown labels get a
// neutral question mark.
func BadgeFor(classification string) Badge {
	if b, ok := badges[strings.ToLower(strings.TrimSpace(classification))]; ok {
		return b
	}
	return Badge{Text: "?", Color: "#6b7280"}
}

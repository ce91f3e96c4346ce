package topic

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
)

// RenderHTML converts a topic's markdown content to HTML.
func RenderHTML(t Topic) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(t.Content), &buf); err != nil {
		return "", fmt.Errorf("render topic %q: %w", t.ID, err)
	}
	return buf.String(), nil
}

package ops

import (
	"context"
	"fmt"

	"github.com/hpungsan/scribe/internal/errors"
	"github.com/hpungsan/scribe/internal/topic"
)

// TopicsInput contains parameters for the Topics operation.
type TopicsInput struct {
	Source
	ID             string // optional: return only the first topic with this ID
	IncludeContent bool
	HTML           bool // render each topic to HTML
}

// TopicView is a topic as returned to callers.
type TopicView struct {
	Title     string `json:"title"`
	ID        string `json:"id"`
	StartLine int    `json:"start_line"`
	Chars     int    `json:"chars"`
	Content   string `json:"content,omitempty"`
	HTML      string `json:"html,omitempty"`
}

// TopicsOutput contains the result of the Topics operation.
type TopicsOutput struct {
	Document string      `json:"document,omitempty"`
	Topics   []TopicView `json:"topics"`
	// Duplicates lists IDs shared by more than one topic. Lookups return the first.
	Duplicates []string `json:"duplicates,omitempty"`
}

// Topics segments a formatted document into its level-2 topics.
func Topics(ctx context.Context, env *Env, input TopicsInput) (*TopicsOutput, error) {
	name, text, err := input.resolve(ctx, env)
	if err != nil {
		return nil, err
	}

	topics := topic.Segment(text)
	dups := topic.Duplicates(topics)

	if input.ID != "" {
		t, ok := topic.Find(topics, input.ID)
		if !ok {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("no topic with id %q", input.ID))
		}
		topics = []topic.Topic{t}
		// A single topic is always wanted in full.
		input.IncludeContent = true
	}

	views := make([]TopicView, 0, len(topics))
	for _, t := range topics {
		v := TopicView{
			Title:     t.Title,
			ID:        t.ID,
			StartLine: t.StartLine,
			Chars:     len(t.Content),
		}
		if input.IncludeContent {
			v.Content = t.Content
		}
		if input.HTML {
			html, err := topic.RenderHTML(t)
			if err != nil {
				return nil, errors.NewInternal(fmt.Errorf("render topic %s: %w", t.ID, err))
			}
			v.HTML = html
		}
		views = append(views, v)
	}

	return &TopicsOutput{Document: name, Topics: views, Duplicates: dups}, nil
}

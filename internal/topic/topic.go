// Package topic splits formatted markdown into sections addressed by slug IDs.
package topic

import (
	"regexp"
	"slices"
	"strings"
)

// IntroductionTitle names the synthesized topic holding pre-heading content.
const IntroductionTitle = "Introduction"

// Topic is a titled section of a formatted document.
type Topic struct {
	Title     string `json:"title"`
	ID        string `json:"id"`
	StartLine int    `json:"start_line"` // 1-based
	Content   string `json:"content"`
}

// headingPattern matches a level-2 heading: exactly "## " followed by the title.
var headingPattern = regexp.MustCompile(`^## (.*)$`)

// Segment parses text into topics in document order. A level-2 heading opens
// a new topic whose content starts with the heading line. Non-blank lines
// before the first heading go to a synthesized Introduction topic. A
// document with neither headings nor content yields nil.
func Segment(text string) []Topic {
	var topics []Topic
	var cur *Topic
	var buf []string

	flush := func() {
		if cur == nil {
			return
		}
		cur.Content = strings.TrimSpace(strings.Join(buf, "\n"))
		topics = append(topics, *cur)
	}

	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")

		if m := headingPattern.FindStringSubmatch(line); m != nil {
			flush()
			title := strings.TrimSpace(m[1])
			cur = &Topic{Title: title, ID: Slug(title), StartLine: i + 1}
			buf = []string{line}
			continue
		}

		if cur == nil {
			if strings.TrimSpace(line) == "" {
				buf = append(buf, line)
				continue
			}
			cur = &Topic{Title: IntroductionTitle, ID: Slug(IntroductionTitle), StartLine: 1}
		}
		buf = append(buf, line)
	}
	flush()

	return topics
}

// Find returns the first topic with the given ID. IDs are not unique when
// two headings slugify alike; earlier topics win.
func Find(topics []Topic, id string) (Topic, bool) {
	if id == "" {
		return Topic{}, false
	}
	for _, t := range topics {
		if t.ID == id {
			return t, true
		}
	}
	return Topic{}, false
}

// Filter returns the topics whose ID is in ids, in document order.
// Every topic sharing a matching ID is included. Empty IDs never match.
func Filter(topics []Topic, ids []string) []Topic {
	var out []Topic
	for _, t := range topics {
		if t.ID != "" && slices.Contains(ids, t.ID) {
			out = append(out, t)
		}
	}
	return out
}

// Titles returns the title of each topic.
func Titles(topics []Topic) []string {
	out := make([]string, len(topics))
	for i, t := range topics {
		out[i] = t.Title
	}
	return out
}

// IDs returns the ID of each topic.
func IDs(topics []Topic) []string {
	out := make([]string, len(topics))
	for i, t := range topics {
		out[i] = t.ID
	}
	return out
}

// Duplicates returns IDs that occur more than once, in first-seen order.
func Duplicates(topics []Topic) []string {
	seen := make(map[string]int)
	var dups []string
	for _, t := range topics {
		seen[t.ID]++
		if seen[t.ID] == 2 {
			dups = append(dups, t.ID)
		}
	}
	return dups
}

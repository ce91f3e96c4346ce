package assemble

import "slices"

// ScopeKind tells whether a selection entry covers a whole document or a topic subset.
type ScopeKind int

const (
	WholeDocument ScopeKind = iota
	TopicSubset
)

func (k ScopeKind) String() string {
	if k == TopicSubset {
		return "topics"
	}
	return "whole"
}

// Scope is the part of a document a selection entry includes.
type Scope struct {
	kind ScopeKind
	ids  []string
}

// Whole selects the full document.
func Whole() Scope {
	return Scope{kind: WholeDocument}
}

// Topics selects the topics with the given IDs. Empty IDs are dropped,
// duplicates collapsed, and an empty set normalizes to Whole.
func Topics(ids ...string) Scope {
	var clean []string
	for _, id := range ids {
		if id != "" && !slices.Contains(clean, id) {
			clean = append(clean, id)
		}
	}
	if len(clean) == 0 {
		return Whole()
	}
	return Scope{kind: TopicSubset, ids: clean}
}

// Kind reports the scope kind.
func (s Scope) Kind() ScopeKind {
	return s.kind
}

// IDs returns a copy of the selected topic IDs. Nil for WholeDocument.
func (s Scope) IDs() []string {
	return slices.Clone(s.ids)
}

// Entry is one document in a selection.
type Entry struct {
	Document string
	Scope    Scope
}

// Selection is an ordered set of documents to include in an assembled context.
// The zero value is empty and ready to use.
type Selection struct {
	entries []Entry
}

// Add includes doc with scope. Adding a document already present replaces
// its scope in place, keeping its original position.
func (s *Selection) Add(doc string, scope Scope) {
	for i := range s.entries {
		if s.entries[i].Document == doc {
			s.entries[i].Scope = scope
			return
		}
	}
	s.entries = append(s.entries, Entry{Document: doc, Scope: scope})
}

// Remove drops doc from the selection.
func (s *Selection) Remove(doc string) {
	s.entries = slices.DeleteFunc(s.entries, func(e Entry) bool { return e.Document == doc })
}

// Entries returns the entries in selection order.
func (s *Selection) Entries() []Entry {
	return slices.Clone(s.entries)
}

// Len returns the number of documents selected.
func (s *Selection) Len() int {
	return len(s.entries)
}

// Item is the wire form of a selection entry. No topics means the whole document.
type Item struct {
	Document string   `json:"document"`
	Topics   []string `json:"topics,omitempty"`
}

// FromItems builds a selection from wire items, in order.
func FromItems(items []Item) Selection {
	var sel Selection
	for _, it := range items {
		sel.Add(it.Document, Topics(it.Topics...))
	}
	return sel
}

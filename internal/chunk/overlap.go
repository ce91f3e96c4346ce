package chunk

import "unicode/utf8"

// Window is read-only context borrowed from a chunk's neighbours.
type Window struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

// Overlap returns up to size bytes from the end of the previous chunk and
// from the start of the next one. Strings never exceed size or the
// neighbour's length and never split a UTF-8 sequence. chunks is not modified.
func Overlap(chunks []Chunk, index, size int) Window {
	var w Window
	if size <= 0 || index < 0 || index >= len(chunks) {
		return w
	}

	if index > 0 {
		prev := chunks[index-1].Text
		start := max(len(prev)-size, 0)
		for start < len(prev) && !utf8.RuneStart(prev[start]) {
			start++
		}
		w.Before = prev[start:]
	}

	if index < len(chunks)-1 {
		next := chunks[index+1].Text
		end := min(size, len(next))
		for end > 0 && end < len(next) && !utf8.RuneStart(next[end]) {
			end--
		}
		w.After = next[:end]
	}

	return w
}

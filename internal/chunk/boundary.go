package chunk

import "regexp"

// Boundary is a cut point found by Scan. Offset sits just after the matched
// delimiter, so text[:Offset] and text[Offset:] split cleanly between units.
type Boundary struct {
	Offset int
	Type   BoundaryType
}

type boundaryRule struct {
	typ BoundaryType
	re  *regexp.Regexp
	// afterNewline cuts right after the leading newline instead of after the whole match.
	afterNewline bool
}

// boundaryRules are listed in priority order.
var boundaryRules = []boundaryRule{
	{typ: BoundaryParagraph, re: regexp.MustCompile(`\n{2,}`)},
	{typ: BoundarySpeaker, re: regexp.MustCompile(`\n\p{Lu}[\p{L}\p{N} .'_-]{0,40}:`), afterNewline: true},
	{typ: BoundaryTimestamp, re: regexp.MustCompile(`\n\[\d{1,2}:\d{2}`), afterNewline: true},
	{typ: BoundarySentence, re: regexp.MustCompile(`[.!?][ \t]*\n`)},
	{typ: BoundaryLine, re: regexp.MustCompile(`\n`)},
}

// Scan looks for the best natural cut in text[target-radius, target+radius],
// clamped to the text. The first priority level with any match wins; within
// it the offset closest to target is chosen, ties going to the earliest.
// It reports false when no pattern matches in the window.
func Scan(text string, target, radius int) (Boundary, bool) {
	if radius < 0 {
		radius = 0
	}
	lo := max(target-radius, 0)
	hi := min(target+radius, len(text))
	if lo >= hi {
		return Boundary{}, false
	}
	window := text[lo:hi]

	for _, rule := range boundaryRules {
		matches := rule.re.FindAllStringIndex(window, -1)
		if len(matches) == 0 {
			continue
		}

		best, bestDist := -1, 0
		for _, m := range matches {
			off := lo + m[1]
			if rule.afterNewline {
				off = lo + m[0] + 1
			}
			dist := abs(off - target)
			if best < 0 || dist < bestDist {
				best, bestDist = off, dist
			}
		}
		return Boundary{Offset: best, Type: rule.typ}, true
	}
	return Boundary{}, false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

package assemble

import (
	"math"
	"strings"
)

// EstimateTokens estimates the token count of text as 1.3 tokens per
// whitespace-separated word. Callers use it to budget context before
// sending it to a model; the assembler itself never truncates.
func EstimateTokens(text string) int {
	words := strings.Fields(text)
	return int(math.Ceil(float64(len(words)) * 1.3))
}

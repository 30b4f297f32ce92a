// Package quality scores a prompt's test output against the test input.
package quality

import (
	"math"
	"strings"
	"unicode/utf8"
)

const (
	baseScore        = 0.5
	lengthBonus      = 0.2
	maxRelevance     = 0.3
	minOutputLen     = 50
	maxOutputLen     = 2000
	minRelevantChars = 3
)

// Score rates output between 0.5 and 1.0. Output of a reasonable length
// earns 0.2; up to 0.3 more comes from the share of the input's longer
// words that the output mentions.
func Score(output, input string) float64 {
	score := baseScore

	if n := utf8.RuneCountInString(output); n > minOutputLen && n < maxOutputLen {
		score += lengthBonus
	}

	var words []string
	for _, w := range strings.Fields(strings.ToLower(input)) {
		if utf8.RuneCountInString(w) > minRelevantChars {
			words = append(words, w)
		}
	}

	if len(words) > 0 {
		lower := strings.ToLower(output)
		relevant := 0
		for _, w := range words {
			if strings.Contains(lower, w) {
				relevant++
			}
		}
		score += math.Min(float64(relevant)/float64(len(words)), maxRelevance)
	}

	return math.Min(score, 1.0)
}

// EstimateTokens approximates the token count of text at four characters
// per token, rounded up.
func EstimateTokens(text string) int {
	return int(math.Ceil(float64(utf8.RuneCountInString(text)) / 4))
}

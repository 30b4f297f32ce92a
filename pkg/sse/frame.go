package sse

import "strings"

const (
	// DataPrefix is the literal prefix of a data line. A line that carries
	// "data:" without the space is not treated as data.
	DataPrefix = "data: "

	// DoneSentinel is the payload that ends an OpenAI-compatible stream.
	DoneSentinel = "[DONE]"
)

// IsIgnorable reports whether line is blank or a comment.
func IsIgnorable(line string) bool {
	return line == "" || strings.HasPrefix(line, ":")
}

// Payload returns the trimmed payload of a data line.
func Payload(line string) (string, bool) {
	rest, ok := strings.CutPrefix(line, DataPrefix)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

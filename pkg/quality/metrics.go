package quality

import "time"

// Metrics describes one test run of a prompt.
type Metrics struct {
	// Latency is the upstream round trip in milliseconds.
	Latency      int64   `json:"latency"`
	TokenCount   int     `json:"tokenCount"`
	QualityScore float64 `json:"qualityScore"`
	Model        string  `json:"model"`
	Timestamp    string  `json:"timestamp"`
}

// Measure scores output produced by model for input.
func Measure(output, input, model string, latency time.Duration) Metrics {
	return Metrics{
		Latency:      latency.Milliseconds(),
		TokenCount:   EstimateTokens(output),
		QualityScore: Score(output, input),
		Model:        model,
		Timestamp:    time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// Package render turns store query results into context payloads.
//
// Two renderings exist: a compact index (progressive disclosure, cheap
// to inject) and a full rendering (every non-empty field verbatim).
// Both are pure functions of the records passed in.
package render

import "github.com/memkeep/memkeep/pkg/models"

const (
	// Fixed per-row index overhead, in estimated tokens.
	observationRowOverhead = 20
	summaryRowOverhead     = 15

	// Flat overhead for the index header and legend.
	headerOverhead = 100
)

// EstimateTokens estimates the token cost of a text as ceil(len/4).
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + 3) / 4
}

// ObservationReadTokens sums the token estimates of every text field
// of an observation.
func ObservationReadTokens(o *models.Observation) int {
	total := EstimateTokens(o.Title.String) +
		EstimateTokens(o.Subtitle.String) +
		EstimateTokens(o.Narrative.String)
	for _, fact := range o.Facts {
		total += EstimateTokens(fact)
	}
	for _, concept := range o.Concepts {
		total += EstimateTokens(concept)
	}
	return total
}

// SummaryReadTokens sums the token estimates of every text field of a
// session summary.
func SummaryReadTokens(s *models.SessionSummary) int {
	return EstimateTokens(s.Request.String) +
		EstimateTokens(s.Investigated.String) +
		EstimateTokens(s.Learned.String) +
		EstimateTokens(s.Completed.String) +
		EstimateTokens(s.NextSteps.String) +
		EstimateTokens(s.Notes.String)
}

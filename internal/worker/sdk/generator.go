// Package sdk integrates the external inference capability that turns
// raw tool transcripts into structured observations and summaries.
package sdk

import (
	"context"

	"github.com/memkeep/memkeep/pkg/models"
)

// ObservationRequest carries one raw tool invocation for distillation.
type ObservationRequest struct {
	ToolName     string
	ToolInput    string
	ToolResponse string
	CWD          string
	OccurredAt   int64
}

// SummaryRequest carries the last exchange of a session for debriefing.
type SummaryRequest struct {
	Project              string
	UserPrompt           string
	LastUserMessage      string
	LastAssistantMessage string
}

// Generator is the inference contract: given a transcript, return a
// structured candidate or nil. A nil candidate with nil error means the
// capability declined to produce a record; that is a successful no-op,
// not a failure. The returned token count prices the work that produced
// the record.
type Generator interface {
	Observe(ctx context.Context, req ObservationRequest) (*models.ParsedObservation, int64, error)
	Summarize(ctx context.Context, req SummaryRequest) (*models.ParsedSummary, int64, error)
}

// Embedder is the vector contract: given text, return a fixed-length
// vector. Implementations may be absent; callers must treat a nil
// Embedder as "no vectors available".
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Package dedup decides whether a new observation duplicates a recent one.
package dedup

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/memkeep/memkeep/internal/db/sqlite"
	"github.com/memkeep/memkeep/pkg/models"
	"github.com/memkeep/memkeep/pkg/similarity"
)

const (
	// candidateLimit bounds how many index matches are inspected.
	candidateLimit = 10

	// titleThreshold is the minimum Jaccard similarity between titles
	// for the text signal to call two observations duplicates.
	titleThreshold = 0.5

	// cosineThreshold is the maximum cosine distance between embedding
	// vectors for the vector signal to call them duplicates.
	cosineThreshold = 0.15
)

// Detector is a heuristic gate: a missed duplicate is acceptable, a
// skipped original is not retried. Vector distance decides when both
// records carry embeddings; the text signal decides otherwise.
type Detector struct {
	observations *sqlite.ObservationStore
	log          zerolog.Logger
}

// New creates a duplicate detector over the observation store.
func New(observations *sqlite.ObservationStore) *Detector {
	return &Detector{
		observations: observations,
		log:          log.With().Str("component", "dedup").Logger(),
	}
}

// FindSimilar returns the most recent observation in the same project,
// created within the given window, whose title is judged similar to the
// candidate title. Returns nil when none qualifies.
func (d *Detector) FindSimilar(ctx context.Context, project, title string, embedding []float64, within time.Duration) (*models.Observation, error) {
	if title == "" {
		return nil, nil
	}

	sinceEpoch := time.Now().Add(-within).UnixMilli()
	candidates, err := d.observations.FindRecentByTitle(ctx, project, title, sinceEpoch, candidateLimit)
	if err != nil {
		return nil, err
	}

	// Candidates come newest first, so the first hit is the most recent.
	for _, candidate := range candidates {
		if d.isDuplicate(title, embedding, candidate) {
			d.log.Debug().
				Int64("observationId", candidate.ID).
				Str("project", project).
				Str("title", title).
				Msg("Found similar recent observation")
			return candidate, nil
		}
	}
	return nil, nil
}

// isDuplicate applies the precedence rule: embedding cosine distance
// when both sides carry vectors, text similarity otherwise.
func (d *Detector) isDuplicate(title string, embedding []float64, candidate *models.Observation) bool {
	if len(embedding) > 0 && len(candidate.Embedding) > 0 {
		return similarity.CosineDistance(embedding, candidate.Embedding) <= cosineThreshold
	}
	return similarity.TitleSimilarity(title, candidate.Title.String) >= titleThreshold
}

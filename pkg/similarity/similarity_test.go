package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTerms(t *testing.T) {
	terms := ExtractTerms("The connection pool was exhausted by the retry loop")

	assert.True(t, terms["connection"])
	assert.True(t, terms["pool"])
	assert.True(t, terms["exhausted"])
	assert.True(t, terms["retry"])
	// Stopwords and short words are dropped.
	assert.False(t, terms["the"])
	assert.False(t, terms["was"])
	assert.False(t, terms["by"])
}

func TestJaccard(t *testing.T) {
	a := map[string]bool{"pool": true, "retry": true, "timeout": true}
	b := map[string]bool{"pool": true, "retry": true, "backoff": true}

	// 2 shared of 4 total.
	assert.InDelta(t, 0.5, Jaccard(a, b), 1e-9)

	assert.Equal(t, 1.0, Jaccard(nil, nil))
	assert.Equal(t, 0.0, Jaccard(a, nil))
	assert.Equal(t, 1.0, Jaccard(a, a))
}

func TestTitleSimilarity(t *testing.T) {
	same := TitleSimilarity(
		"Connection pool exhaustion root cause",
		"Connection pool exhaustion root cause",
	)
	assert.Equal(t, 1.0, same)

	related := TitleSimilarity(
		"Connection pool exhaustion root cause",
		"Connection pool tuning guide",
	)
	assert.Greater(t, related, 0.0)
	assert.Less(t, related, 1.0)

	unrelated := TitleSimilarity(
		"Connection pool exhaustion",
		"Dashboard color palette",
	)
	assert.Equal(t, 0.0, unrelated)
}

func TestCosineDistance(t *testing.T) {
	assert.InDelta(t, 0.0, CosineDistance([]float64{1, 0, 0}, []float64{1, 0, 0}), 1e-9)
	assert.InDelta(t, 1.0, CosineDistance([]float64{1, 0}, []float64{0, 1}), 1e-9)

	// Length mismatch and empties are maximally distant.
	assert.Equal(t, 1.0, CosineDistance([]float64{1, 2}, []float64{1, 2, 3}))
	assert.Equal(t, 1.0, CosineDistance(nil, []float64{1}))
}

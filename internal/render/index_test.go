package render

import (
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memkeep/memkeep/pkg/models"
)

// anchor keeps bucket boundaries away from midnight.
var anchor = time.Date(2026, 3, 10, 15, 0, 0, 0, time.Local)

func obsAt(id int64, title string, created time.Time, files ...string) *models.Observation {
	return &models.Observation{
		ID:             id,
		Type:           models.ObsTypeDiscovery,
		Title:          sql.NullString{String: title, Valid: true},
		FilesModified:  models.JSONStringArray(files),
		CreatedAtEpoch: created.UnixMilli(),
	}
}

func TestIndexBucketsByAge(t *testing.T) {
	observations := []*models.Observation{
		obsAt(1, "Fresh finding", anchor.Add(-time.Hour)),
		obsAt(2, "Yesterday finding", anchor.AddDate(0, 0, -1)),
		obsAt(3, "Midweek finding", anchor.AddDate(0, 0, -4)),
		obsAt(4, "Ancient finding", anchor.AddDate(0, 0, -30)),
	}

	result := Index("proj", observations, nil, anchor)

	text := result.Text
	require.Contains(t, text, "### Today")
	require.Contains(t, text, "### Yesterday")
	require.Contains(t, text, "### This Week")
	require.Contains(t, text, "### Older")

	// Buckets appear in display order.
	assert.Less(t, strings.Index(text, "### Today"), strings.Index(text, "### Yesterday"))
	assert.Less(t, strings.Index(text, "### Yesterday"), strings.Index(text, "### This Week"))
	assert.Less(t, strings.Index(text, "### This Week"), strings.Index(text, "### Older"))

	// Each observation lands in its bucket.
	assert.Less(t, strings.Index(text, "### Today"), strings.Index(text, "Fresh finding"))
	assert.Less(t, strings.Index(text, "Fresh finding"), strings.Index(text, "### Yesterday"))
}

func TestIndexGroupsByFileDescendingCount(t *testing.T) {
	observations := []*models.Observation{
		obsAt(1, "Touch once", anchor.Add(-time.Hour), "small.go"),
		obsAt(2, "Touch twice a", anchor.Add(-time.Hour), "big.go"),
		obsAt(3, "Touch twice b", anchor.Add(-time.Hour), "big.go"),
		obsAt(4, "No files at all", anchor.Add(-time.Hour)),
	}

	result := Index("proj", observations, nil, anchor)
	text := result.Text

	// The larger group renders first; pathless rows fall into General.
	assert.Less(t, strings.Index(text, "#### big.go"), strings.Index(text, "#### small.go"))
	assert.Contains(t, text, "#### General")
	assert.Contains(t, text, "No files at all")
}

func TestIndexSummariesFirstByDate(t *testing.T) {
	summaries := []*models.SessionSummary{
		{
			ID:              7,
			Request:         sql.NullString{String: "older work", Valid: true},
			CreatedAtEpoch:  anchor.AddDate(0, 0, -2).UnixMilli(),
			DiscoveryTokens: 30,
		},
		{
			ID:              8,
			Request:         sql.NullString{String: "recent work", Valid: true},
			CreatedAtEpoch:  anchor.Add(-time.Hour).UnixMilli(),
			DiscoveryTokens: 40,
		},
	}
	observations := []*models.Observation{
		obsAt(1, "An observation", anchor.Add(-time.Hour)),
	}

	result := Index("proj", observations, summaries, anchor)
	text := result.Text

	// Summaries section precedes observations; newest date first.
	assert.Less(t, strings.Index(text, "## Session summaries"), strings.Index(text, "## Observations"))
	assert.Less(t, strings.Index(text, "recent work"), strings.Index(text, "older work"))
	assert.Contains(t, text, "[S8]")
}

func TestIndexTokenAccounting(t *testing.T) {
	observations := []*models.Observation{
		obsAt(1, "One", anchor.Add(-time.Hour)),
		obsAt(2, "Two", anchor.Add(-time.Hour)),
	}
	summaries := []*models.SessionSummary{
		{ID: 3, CreatedAtEpoch: anchor.Add(-time.Hour).UnixMilli()},
	}

	result := Index("proj", observations, summaries, anchor)

	want := headerOverhead + 2*observationRowOverhead + summaryRowOverhead
	assert.Equal(t, want, result.EstimatedTokens)
	assert.Equal(t, 2, result.Observations)
	assert.Equal(t, 1, result.Summaries)
}

func TestIndexEmpty(t *testing.T) {
	result := Index("proj", nil, nil, anchor)

	assert.Contains(t, result.Text, "# Memory index: proj")
	assert.NotContains(t, result.Text, "## Observations")
	assert.NotContains(t, result.Text, "## Session summaries")
	assert.Equal(t, headerOverhead, result.EstimatedTokens)
}

func TestRelativeAge(t *testing.T) {
	now := anchor
	assert.Equal(t, "just now", relativeAge(now.Add(-30*time.Second).UnixMilli(), now))
	assert.Equal(t, "5m ago", relativeAge(now.Add(-5*time.Minute).UnixMilli(), now))
	assert.Equal(t, "3h ago", relativeAge(now.Add(-3*time.Hour).UnixMilli(), now))
	assert.Equal(t, "2d ago", relativeAge(now.Add(-48*time.Hour).UnixMilli(), now))
}

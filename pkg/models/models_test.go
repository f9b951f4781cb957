package models

import (
	"database/sql"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObservationType(t *testing.T) {
	for _, valid := range ObservationTypes {
		assert.Equal(t, valid, ParseObservationType(string(valid)))
	}

	assert.Equal(t, ObsTypeChange, ParseObservationType(""))
	assert.Equal(t, ObsTypeChange, ParseObservationType("epiphany"))
	assert.Equal(t, ObsTypeChange, ParseObservationType("Decision")) // case-sensitive on purpose
}

func TestSessionStatusIsTerminal(t *testing.T) {
	assert.False(t, SessionStatusActive.IsTerminal())
	assert.True(t, SessionStatusCompleted.IsTerminal())
	assert.True(t, SessionStatusFailed.IsTerminal())
}

func TestPrimaryFile(t *testing.T) {
	o := &Observation{
		FilesRead:     JSONStringArray{"read1.go", "read2.go"},
		FilesModified: JSONStringArray{"mod1.go", "mod2.go"},
	}
	assert.Equal(t, "mod1.go", o.PrimaryFile())

	o.FilesModified = nil
	assert.Equal(t, "read1.go", o.PrimaryFile())

	o.FilesRead = nil
	assert.Equal(t, "", o.PrimaryFile())
}

func TestObservationMarshalJSONFlattens(t *testing.T) {
	o := &Observation{
		ID:      1,
		Project: "proj",
		Type:    ObsTypeBugfix,
		Title:   sql.NullString{String: "Fixed it", Valid: true},
		Facts:   JSONStringArray{"a fact"},
	}

	data, err := json.Marshal(o)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))

	assert.Equal(t, "Fixed it", out["title"])
	assert.NotContains(t, out, "subtitle")
	assert.NotContains(t, out, "prompt_number")
	// The embedding never leaves the process.
	assert.NotContains(t, out, "embedding")
}

func TestJSONStringArrayRoundTrip(t *testing.T) {
	v, err := JSONStringArray{"a", "b"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["a","b"]`, v)

	// Nil serializes as an empty list, not NULL.
	v, err = JSONStringArray(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	var scanned JSONStringArray
	require.NoError(t, scanned.Scan(`["x","y"]`))
	assert.Equal(t, JSONStringArray{"x", "y"}, scanned)

	require.NoError(t, scanned.Scan(nil))
	assert.Nil(t, scanned)
}

func TestJSONFloatArrayNilMeansNoVector(t *testing.T) {
	v, err := JSONFloatArray(nil).Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = JSONFloatArray{0.5, -1}.Value()
	require.NoError(t, err)
	assert.Equal(t, `[0.5,-1]`, v)

	var scanned JSONFloatArray
	require.NoError(t, scanned.Scan([]byte(`[1,2.5]`)))
	assert.Equal(t, JSONFloatArray{1, 2.5}, scanned)
}

func TestParsedSummaryIsEmpty(t *testing.T) {
	assert.True(t, (&ParsedSummary{}).IsEmpty())
	assert.False(t, (&ParsedSummary{Notes: "something"}).IsEmpty())
}

package sdk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memkeep/memkeep/pkg/models"
)

func editRequest(input string) ObservationRequest {
	return ObservationRequest{
		ToolName:  "Edit",
		ToolInput: input,
	}
}

func TestParseObservationResponse(t *testing.T) {
	text := `Here is what I found.
<observation>
<type>bugfix</type>
<title>Fixed nil map write in config merge</title>
<subtitle>Race on first load</subtitle>
<narrative>The merge wrote into an unallocated map on cold start.</narrative>
<fact>map was never initialized in the zero-value path</fact>
<fact>only triggered on first request</fact>
<concept>concurrency</concept>
</observation>`

	parsed := ParseObservationResponse(text, editRequest(`{"file_path":"config.go"}`))
	require.NotNil(t, parsed)

	assert.Equal(t, models.ObsTypeBugfix, parsed.Type)
	assert.Equal(t, "Fixed nil map write in config merge", parsed.Title)
	assert.Equal(t, "Race on first load", parsed.Subtitle)
	assert.Contains(t, parsed.Narrative, "unallocated map")
	assert.Equal(t, []string{
		"map was never initialized in the zero-value path",
		"only triggered on first request",
	}, parsed.Facts)
	assert.Equal(t, []string{"concurrency"}, parsed.Concepts)
	assert.Empty(t, parsed.FilesRead)
	assert.Equal(t, []string{"config.go"}, parsed.FilesModified)
}

func TestParseObservationResponseSkip(t *testing.T) {
	assert.Nil(t, ParseObservationResponse("<skip/>", editRequest("{}")))
	assert.Nil(t, ParseObservationResponse("Not worth recording. <skip />", editRequest("{}")))
}

func TestParseObservationResponseNoBody(t *testing.T) {
	assert.Nil(t, ParseObservationResponse("I could not decide.", editRequest("{}")))
}

func TestParseObservationResponseMissingTitle(t *testing.T) {
	text := `<observation><type>change</type><narrative>something</narrative></observation>`
	assert.Nil(t, ParseObservationResponse(text, editRequest("{}")))
}

func TestParseObservationResponseUnknownTypeCoerced(t *testing.T) {
	text := `<observation><type>epiphany</type><title>Something new</title></observation>`
	parsed := ParseObservationResponse(text, editRequest("{}"))
	require.NotNil(t, parsed)
	assert.Equal(t, models.ObsTypeChange, parsed.Type)
}

func TestClassifyFilesReadTool(t *testing.T) {
	parsed := ParseObservationResponse(
		`<observation><title>Read the scheduler</title></observation>`,
		ObservationRequest{ToolName: "Read", ToolInput: `{"file_path":"sched.go"}`},
	)
	require.NotNil(t, parsed)
	assert.Equal(t, []string{"sched.go"}, parsed.FilesRead)
	assert.Empty(t, parsed.FilesModified)
}

func TestClassifyFilesMalformedInput(t *testing.T) {
	parsed := ParseObservationResponse(
		`<observation><title>Survives bad input</title></observation>`,
		ObservationRequest{ToolName: "Edit", ToolInput: `not json`},
	)
	require.NotNil(t, parsed)
	assert.Empty(t, parsed.FilesRead)
	assert.Empty(t, parsed.FilesModified)
}

func TestParseSummaryResponse(t *testing.T) {
	text := `<summary>
<request>hunt the flaky timeout</request>
<investigated>pool and client layers</investigated>
<learned>the pool drops deadlines</learned>
<completed>fixed deadline propagation</completed>
<next_steps>add a regression test</next_steps>
<notes>the fix is behind a flag</notes>
</summary>`

	parsed := ParseSummaryResponse(text)
	require.NotNil(t, parsed)
	assert.Equal(t, "hunt the flaky timeout", parsed.Request)
	assert.Equal(t, "pool and client layers", parsed.Investigated)
	assert.Equal(t, "the pool drops deadlines", parsed.Learned)
	assert.Equal(t, "fixed deadline propagation", parsed.Completed)
	assert.Equal(t, "add a regression test", parsed.NextSteps)
	assert.Equal(t, "the fix is behind a flag", parsed.Notes)
}

func TestParseSummaryResponseWithoutWrapper(t *testing.T) {
	// Tags without the outer wrapper still parse.
	parsed := ParseSummaryResponse(`<learned>queue drains strictly in order</learned>`)
	require.NotNil(t, parsed)
	assert.Equal(t, "queue drains strictly in order", parsed.Learned)
}

func TestParseSummaryResponseEmpty(t *testing.T) {
	assert.Nil(t, ParseSummaryResponse("nothing structured here"))
	assert.Nil(t, ParseSummaryResponse("<summary></summary>"))
}

func TestBuildObservationPromptTruncates(t *testing.T) {
	long := make([]byte, 10000)
	for i := range long {
		long[i] = 'x'
	}

	prompt := BuildObservationPrompt(ObservationRequest{
		ToolName:     "Bash",
		ToolInput:    string(long),
		ToolResponse: string(long),
	})

	assert.Less(t, len(prompt), 12000)
	assert.Contains(t, prompt, "Bash")
}

func TestCountTokensFallbackBehavior(t *testing.T) {
	// Regardless of which vocabulary loads, the count is positive and
	// roughly proportional to input size.
	short := CountTokens("hello world")
	long := CountTokens("hello world, this is a much longer sentence about token counting")
	assert.Positive(t, short)
	assert.Greater(t, long, short)
	assert.Zero(t, CountTokens(""))
}

package sdk

import (
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// validTypes and validConcepts steer the model toward the stored
// vocabulary; unknown types are coerced at parse time anyway.
var (
	validTypes    = []string{"decision", "bugfix", "feature", "refactor", "discovery", "change"}
	validConcepts = []string{
		"how-it-works", "why-it-exists", "what-changed",
		"problem-solution", "gotcha", "pattern", "trade-off",
	}
)

// BuildObservationPrompt renders one tool invocation as a transcript
// for the inference capability.
func BuildObservationPrompt(req ObservationRequest) string {
	var toolInput interface{}
	var toolResponse interface{}

	if err := json.Unmarshal([]byte(req.ToolInput), &toolInput); err != nil {
		toolInput = req.ToolInput
	}
	if err := json.Unmarshal([]byte(req.ToolResponse), &toolResponse); err != nil {
		toolResponse = req.ToolResponse
	}

	inputJSON, _ := json.MarshalIndent(toolInput, "  ", "  ")
	responseJSON, _ := json.MarshalIndent(toolResponse, "  ", "  ")

	var sb strings.Builder
	sb.WriteString("<tool_event>\n")
	fmt.Fprintf(&sb, "  <tool>%s</tool>\n", req.ToolName)
	fmt.Fprintf(&sb, "  <at>%s</at>\n", time.UnixMilli(req.OccurredAt).Format(time.RFC3339))
	if req.CWD != "" {
		fmt.Fprintf(&sb, "  <cwd>%s</cwd>\n", req.CWD)
	}
	fmt.Fprintf(&sb, "  <input>%s</input>\n", truncate(string(inputJSON), 3000))
	fmt.Fprintf(&sb, "  <response>%s</response>\n", truncate(string(responseJSON), 5000))
	sb.WriteString("</tool_event>\n\n")

	sb.WriteString("You maintain long-term memory for a coding assistant. Decide whether the tool event above contains a durable learning worth recording. Routine reads, directory listings, and trivial output are not worth recording.\n\n")
	fmt.Fprintf(&sb, "If it is worth recording, respond with exactly one observation (type is one of: %s; concepts from: %s):\n", strings.Join(validTypes, ", "), strings.Join(validConcepts, ", "))
	sb.WriteString(`<observation>
  <type>discovery</type>
  <title>[one-line headline of the learning]</title>
  <subtitle>[optional clarifying line]</subtitle>
  <narrative>[what happened and why it matters]</narrative>
  <facts>
    <fact>[one concrete fact]</fact>
  </facts>
  <concepts>
    <concept>[tag]</concept>
  </concepts>
</observation>

If nothing is worth recording, respond with exactly:
<skip/>

Output only the observation or the skip marker, nothing else.`)

	return sb.String()
}

// BuildSummaryPrompt requests a structured session debrief.
func BuildSummaryPrompt(req SummaryRequest) string {
	var sb strings.Builder

	sb.WriteString("SESSION DEBRIEF\n===============\n")
	sb.WriteString("Summarize the coding session below for future recall. Write each section from the session's content; leave a section empty when there is nothing for it.\n\n")

	if req.UserPrompt != "" {
		fmt.Fprintf(&sb, "Initial request:\n%s\n\n", truncate(req.UserPrompt, 2000))
	}
	if req.LastUserMessage != "" {
		fmt.Fprintf(&sb, "Last user message:\n%s\n\n", truncate(req.LastUserMessage, 4000))
	}
	if req.LastAssistantMessage != "" {
		fmt.Fprintf(&sb, "Last assistant message:\n%s\n\n", truncate(req.LastAssistantMessage, 4000))
	}

	sb.WriteString(`Respond in this XML format, nothing else:
<summary>
  <request>[short title capturing what the user asked for]</request>
  <investigated>[what was explored or examined]</investigated>
  <learned>[what was learned about how things work]</learned>
  <completed>[what shipped or changed]</completed>
  <next_steps>[the current trajectory of work]</next_steps>
  <notes>[additional insights]</notes>
</summary>`)

	return sb.String()
}

// truncate bounds transcript sections before they reach the model.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "... (truncated)"
}

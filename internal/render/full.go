package render

import (
	"fmt"
	"strings"

	"github.com/memkeep/memkeep/pkg/models"
)

// Full renders every non-empty field of every record verbatim. Empty
// sections are omitted entirely; there is no placeholder text.
func Full(project string, observations []*models.Observation, summaries []*models.SessionSummary) Result {
	var sb strings.Builder
	tokens := headerOverhead

	fmt.Fprintf(&sb, "# Memory: %s\n", project)

	for _, s := range summaries {
		tokens += SummaryReadTokens(s) + summaryRowOverhead
		fmt.Fprintf(&sb, "\n## Summary S%d (%s)\n", s.ID, s.CreatedAt)
		writeSection(&sb, "Request", s.Request.String)
		writeSection(&sb, "Investigated", s.Investigated.String)
		writeSection(&sb, "Learned", s.Learned.String)
		writeSection(&sb, "Completed", s.Completed.String)
		writeSection(&sb, "Next steps", s.NextSteps.String)
		writeSection(&sb, "Notes", s.Notes.String)
	}

	for _, o := range observations {
		tokens += ObservationReadTokens(o) + observationRowOverhead
		fmt.Fprintf(&sb, "\n## %s %s [%d] (%s)\n", icon(o.Type), o.Title.String, o.ID, o.CreatedAt)
		writeSection(&sb, "Subtitle", o.Subtitle.String)
		writeSection(&sb, "Narrative", o.Narrative.String)
		writeList(&sb, "Facts", o.Facts)
		writeList(&sb, "Concepts", o.Concepts)
		writeList(&sb, "Files read", o.FilesRead)
		writeList(&sb, "Files modified", o.FilesModified)
	}

	return Result{
		Text:            sb.String(),
		EstimatedTokens: tokens,
		Observations:    len(observations),
		Summaries:       len(summaries),
	}
}

// ObservationDetail renders one observation in the full style. Used by
// the by-id lookup.
func ObservationDetail(o *models.Observation) string {
	return Full(o.Project, []*models.Observation{o}, nil).Text
}

func writeSection(sb *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(sb, "**%s**: %s\n", label, value)
}

func writeList(sb *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "**%s**:\n", label)
	for _, item := range items {
		fmt.Fprintf(sb, "- %s\n", item)
	}
}

package render

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/memkeep/memkeep/pkg/models"
)

// typeIcons mark observation types in index rows.
var typeIcons = map[models.ObservationType]string{
	models.ObsTypeDecision:  "⚖️",
	models.ObsTypeBugfix:    "🐛",
	models.ObsTypeFeature:   "✨",
	models.ObsTypeRefactor:  "🔧",
	models.ObsTypeDiscovery: "🔍",
	models.ObsTypeChange:    "📝",
}

// dateBucket labels, in display order.
var bucketOrder = []string{"Today", "Yesterday", "This Week", "Older"}

// Result is a rendered context payload with its token accounting.
type Result struct {
	Text            string `json:"context"`
	EstimatedTokens int    `json:"estimated_tokens"`
	Observations    int    `json:"observation_count"`
	Summaries       int    `json:"summary_count"`
}

// Index renders the compact progressive-disclosure listing: one row per
// record with id, relative age, type icon, title, and token economics.
// Summaries come first bucketed by calendar date, then observations
// bucketed by age and grouped by primary file.
func Index(project string, observations []*models.Observation, summaries []*models.SessionSummary, now time.Time) Result {
	var sb strings.Builder
	tokens := headerOverhead

	fmt.Fprintf(&sb, "# Memory index: %s\n", project)
	sb.WriteString("Rows show [id] age · title · ~read cost / ~work cost. Fetch full records by id.\n")

	if len(summaries) > 0 {
		sb.WriteString("\n## Session summaries\n")
		for _, date := range summaryDates(summaries) {
			fmt.Fprintf(&sb, "\n### %s\n", date)
			for _, s := range summaries {
				if calendarDate(s.CreatedAtEpoch) != date {
					continue
				}
				read := SummaryReadTokens(s)
				tokens += summaryRowOverhead
				fmt.Fprintf(&sb, "- [S%d] %s 📋 %s · ~%d tok read / ~%d tok work\n",
					s.ID, relativeAge(s.CreatedAtEpoch, now), summaryTitle(s),
					read, s.DiscoveryTokens)
			}
		}
	}

	if len(observations) > 0 {
		sb.WriteString("\n## Observations\n")
		buckets := bucketObservations(observations, now)
		for _, bucket := range bucketOrder {
			group := buckets[bucket]
			if len(group) == 0 {
				continue
			}
			fmt.Fprintf(&sb, "\n### %s\n", bucket)
			for _, fg := range groupByFile(group) {
				fmt.Fprintf(&sb, "\n#### %s\n", fg.file)
				for _, o := range fg.items {
					read := ObservationReadTokens(o)
					tokens += observationRowOverhead
					fmt.Fprintf(&sb, "- [%d] %s %s %s · ~%d tok read / ~%d tok work\n",
						o.ID, relativeAge(o.CreatedAtEpoch, now), icon(o.Type),
						o.Title.String, read, o.DiscoveryTokens)
				}
			}
		}
	}

	return Result{
		Text:            sb.String(),
		EstimatedTokens: tokens,
		Observations:    len(observations),
		Summaries:       len(summaries),
	}
}

// icon returns the marker for an observation type.
func icon(t models.ObservationType) string {
	if ic, ok := typeIcons[t]; ok {
		return ic
	}
	return typeIcons[models.ObsTypeChange]
}

// summaryTitle picks the display title of a summary row.
func summaryTitle(s *models.SessionSummary) string {
	if s.Request.Valid && s.Request.String != "" {
		return s.Request.String
	}
	return "Session summary"
}

// summaryDates returns the distinct calendar dates of summaries,
// newest date first.
func summaryDates(summaries []*models.SessionSummary) []string {
	seen := make(map[string]bool)
	var dates []string
	for _, s := range summaries {
		date := calendarDate(s.CreatedAtEpoch)
		if !seen[date] {
			seen[date] = true
			dates = append(dates, date)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates
}

// calendarDate formats an epoch as a local YYYY-MM-DD date.
func calendarDate(epochMillis int64) string {
	return time.UnixMilli(epochMillis).Format("2006-01-02")
}

// relativeAge renders a compact age label relative to now.
func relativeAge(epochMillis int64, now time.Time) string {
	age := now.Sub(time.UnixMilli(epochMillis))
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(age.Hours()/24))
	}
}

// bucketObservations splits observations into age buckets relative to
// now: Today, Yesterday, This Week (past 7 days), Older.
func bucketObservations(observations []*models.Observation, now time.Time) map[string][]*models.Observation {
	buckets := make(map[string][]*models.Observation)
	today := now.Format("2006-01-02")
	yesterday := now.AddDate(0, 0, -1).Format("2006-01-02")
	weekCutoff := now.AddDate(0, 0, -7)

	for _, o := range observations {
		created := time.UnixMilli(o.CreatedAtEpoch)
		var bucket string
		switch {
		case created.Format("2006-01-02") == today:
			bucket = "Today"
		case created.Format("2006-01-02") == yesterday:
			bucket = "Yesterday"
		case created.After(weekCutoff):
			bucket = "This Week"
		default:
			bucket = "Older"
		}
		buckets[bucket] = append(buckets[bucket], o)
	}
	return buckets
}

// fileGroup is a set of observations sharing a primary file.
type fileGroup struct {
	file  string
	items []*models.Observation
}

// groupByFile groups observations by primary associated file, ordered
// by descending item count. Observations without file paths land in
// "General".
func groupByFile(observations []*models.Observation) []fileGroup {
	byFile := make(map[string][]*models.Observation)
	var order []string
	for _, o := range observations {
		file := o.PrimaryFile()
		if file == "" {
			file = "General"
		}
		if _, seen := byFile[file]; !seen {
			order = append(order, file)
		}
		byFile[file] = append(byFile[file], o)
	}

	groups := make([]fileGroup, 0, len(order))
	for _, file := range order {
		groups = append(groups, fileGroup{file: file, items: byFile[file]})
	}
	// Stable: ties keep first-seen order.
	sort.SliceStable(groups, func(i, j int) bool {
		return len(groups[i].items) > len(groups[j].items)
	})
	return groups
}

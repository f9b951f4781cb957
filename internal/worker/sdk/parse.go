package sdk

import (
	"regexp"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/memkeep/memkeep/pkg/models"
)

var (
	skipPattern    = regexp.MustCompile(`<skip\s*/?>`)
	tagPatterns    = map[string]*regexp.Regexp{}
	factPattern    = regexp.MustCompile(`(?s)<fact>(.*?)</fact>`)
	conceptPattern = regexp.MustCompile(`(?s)<concept>(.*?)</concept>`)
)

func init() {
	for _, tag := range []string{
		"observation", "summary", "type", "title", "subtitle", "narrative",
		"request", "investigated", "learned", "completed", "next_steps", "notes",
	} {
		tagPatterns[tag] = regexp.MustCompile(`(?s)<` + tag + `>(.*?)</` + tag + `>`)
	}
}

// extractTag returns the trimmed inner text of the first occurrence of
// tag, or empty. Model output is XML-shaped, not XML; a lenient scan
// beats a strict parser here.
func extractTag(text, tag string) string {
	m := tagPatterns[tag].FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// extractList returns all trimmed inner texts matched by pattern.
func extractList(text string, pattern *regexp.Regexp) []string {
	var items []string
	for _, m := range pattern.FindAllStringSubmatch(text, -1) {
		if v := strings.TrimSpace(m[1]); v != "" {
			items = append(items, v)
		}
	}
	return items
}

// ParseObservationResponse extracts a structured observation from model
// output. Returns nil when the model skipped or produced no usable
// record; that is the InferenceSkip outcome, not an error.
func ParseObservationResponse(text string, req ObservationRequest) *models.ParsedObservation {
	if skipPattern.MatchString(text) {
		return nil
	}
	body := extractTag(text, "observation")
	if body == "" {
		return nil
	}

	title := extractTag(body, "title")
	if title == "" {
		return nil
	}

	filesRead, filesModified := classifyFiles(req)

	return &models.ParsedObservation{
		Type:          models.ParseObservationType(extractTag(body, "type")),
		Title:         title,
		Subtitle:      extractTag(body, "subtitle"),
		Narrative:     extractTag(body, "narrative"),
		Facts:         extractList(body, factPattern),
		Concepts:      extractList(body, conceptPattern),
		FilesRead:     filesRead,
		FilesModified: filesModified,
	}
}

// ParseSummaryResponse extracts a structured debrief from model output.
// Returns nil when every section is empty.
func ParseSummaryResponse(text string) *models.ParsedSummary {
	body := extractTag(text, "summary")
	if body == "" {
		body = text
	}

	parsed := &models.ParsedSummary{
		Request:      extractTag(body, "request"),
		Investigated: extractTag(body, "investigated"),
		Learned:      extractTag(body, "learned"),
		Completed:    extractTag(body, "completed"),
		NextSteps:    extractTag(body, "next_steps"),
		Notes:        extractTag(body, "notes"),
	}
	if parsed.IsEmpty() {
		return nil
	}
	return parsed
}

// mutatingTools write files; everything else only reads them.
var mutatingTools = map[string]bool{
	"Write":         true,
	"Edit":          true,
	"MultiEdit":     true,
	"NotebookEdit":  true,
	"str_replace":   true,
	"create_file":   true,
	"apply_patch":   true,
	"write_to_file": true,
}

// classifyFiles pulls file paths out of the tool input and attributes
// them as read or modified depending on the tool.
func classifyFiles(req ObservationRequest) (read, modified []string) {
	var input map[string]interface{}
	if err := json.Unmarshal([]byte(req.ToolInput), &input); err != nil {
		return nil, nil
	}

	var paths []string
	for _, key := range []string{"file_path", "path", "notebook_path", "filename"} {
		if v, ok := input[key].(string); ok && v != "" {
			paths = append(paths, v)
		}
	}
	if len(paths) == 0 {
		return nil, nil
	}

	if mutatingTools[req.ToolName] {
		return nil, paths
	}
	return paths, nil
}

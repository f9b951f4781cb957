package worker

import (
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/memkeep/memkeep/internal/privacy"
	"github.com/memkeep/memkeep/internal/project"
	"github.com/memkeep/memkeep/internal/render"
	"github.com/memkeep/memkeep/internal/worker/queue"
	"github.com/memkeep/memkeep/pkg/models"
)

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.Counts(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"version":       s.version,
		"instanceId":    s.instanceID,
		"uptimeSeconds": int64(time.Since(s.startTime).Seconds()),
		"pending":       s.queue.Pending(),
		"sseClients":    s.broadcaster.ClientCount(),
		"sessions":      counts.Sessions,
		"observations":  counts.Observations,
		"summaries":     counts.Summaries,
		"prompts":       counts.Prompts,
	})
}

type observationRequest struct {
	ClaudeSessionID string          `json:"claudeSessionId"`
	ToolName        string          `json:"toolName"`
	ToolInput       json.RawMessage `json:"toolInput"`
	ToolResponse    json.RawMessage `json:"toolResponse"`
	CWD             string          `json:"cwd"`
}

func (s *Service) handleObservation(w http.ResponseWriter, r *http.Request) {
	var req observationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if req.ClaudeSessionID == "" || req.ToolName == "" ||
		len(req.ToolInput) == 0 || len(req.ToolResponse) == 0 || req.CWD == "" {
		writeError(w, http.StatusBadRequest, "claudeSessionId, toolName, toolInput, toolResponse and cwd are required")
		return
	}

	proj := s.resolver.Resolve(req.CWD)
	if _, _, err := s.sessionStore.CreateSession(r.Context(), req.ClaudeSessionID, proj, ""); err != nil {
		writeStoreError(w, err)
		return
	}

	s.queue.Enqueue(queue.Message{
		Kind:            queue.KindObservation,
		ClaudeSessionID: req.ClaudeSessionID,
		Observation: &queue.ObservationPayload{
			ToolName:     req.ToolName,
			ToolInput:    string(req.ToolInput),
			ToolResponse: string(req.ToolResponse),
			CWD:          req.CWD,
		},
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "queued"})
}

type summaryRequest struct {
	ClaudeSessionID      string `json:"claudeSessionId"`
	LastUserMessage      string `json:"lastUserMessage"`
	LastAssistantMessage string `json:"lastAssistantMessage"`
}

func (s *Service) handleSummary(w http.ResponseWriter, r *http.Request) {
	var req summaryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if req.ClaudeSessionID == "" || req.LastUserMessage == "" {
		writeError(w, http.StatusBadRequest, "claudeSessionId and lastUserMessage are required")
		return
	}

	session, err := s.sessionStore.GetSessionByClaudeID(r.Context(), req.ClaudeSessionID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if session == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	s.queue.Enqueue(queue.Message{
		Kind:            queue.KindSummarize,
		ClaudeSessionID: req.ClaudeSessionID,
		Summarize: &queue.SummarizePayload{
			LastUserMessage:      req.LastUserMessage,
			LastAssistantMessage: req.LastAssistantMessage,
		},
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "queued"})
}

type promptRequest struct {
	ClaudeSessionID string `json:"claudeSessionId"`
	Prompt          string `json:"prompt"`
	CWD             string `json:"cwd"`
}

func (s *Service) handlePrompt(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if req.ClaudeSessionID == "" || req.Prompt == "" || req.CWD == "" {
		writeError(w, http.StatusBadRequest, "claudeSessionId, prompt and cwd are required")
		return
	}

	proj := s.resolver.Resolve(req.CWD)
	prompt := privacy.Clean(req.Prompt)
	if prompt == "" {
		// The whole prompt was private or injected context. Keep the
		// session so later observations attach, but persist nothing.
		if _, _, err := s.sessionStore.CreateSession(r.Context(), req.ClaudeSessionID, proj, ""); err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "skipped"})
		return
	}

	id, isNew, err := s.sessionStore.CreateSession(r.Context(), req.ClaudeSessionID, proj, prompt)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	promptNumber := int64(1)
	if !isNew {
		promptNumber, err = s.sessionStore.IncrementPromptCounter(r.Context(), id)
		if err != nil {
			writeStoreError(w, err)
			return
		}
	}

	if _, err := s.promptStore.SaveUserPrompt(r.Context(), req.ClaudeSessionID, promptNumber, prompt); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "stored",
		"promptNumber": promptNumber,
	})
}

type completeRequest struct {
	ClaudeSessionID string `json:"claudeSessionId"`
	Reason          string `json:"reason"`
}

func (s *Service) handleComplete(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if req.ClaudeSessionID == "" {
		writeError(w, http.StatusBadRequest, "claudeSessionId is required")
		return
	}

	s.queue.Enqueue(queue.Message{
		Kind:            queue.KindComplete,
		ClaudeSessionID: req.ClaudeSessionID,
		Complete:        &queue.CompletePayload{Reason: req.Reason},
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}

func (s *Service) handleContext(w http.ResponseWriter, r *http.Request) {
	rawProject := r.URL.Query().Get("project")
	if rawProject == "" {
		writeError(w, http.StatusBadRequest, "project is required")
		return
	}
	proj := project.Sanitize(rawProject)

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "index"
	}
	if format != "index" && format != "full" {
		writeError(w, http.StatusBadRequest, "format must be index or full")
		return
	}

	limit := parseLimitDefault(r, s.config.ContextObservations)
	since := parseSince(r)

	var (
		observations []*models.Observation
		summaries    []*models.SessionSummary
		err          error
	)
	if since > 0 {
		observations, err = s.observationStore.GetObservationsSince(r.Context(), proj, since, limit)
	} else {
		observations, err = s.observationStore.GetRecentObservations(r.Context(), proj, limit)
	}
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if since > 0 {
		summaries, err = s.summaryStore.GetSummariesSince(r.Context(), proj, since, s.config.ContextSummaries)
	} else {
		summaries, err = s.summaryStore.GetRecentSummaries(r.Context(), proj, s.config.ContextSummaries)
	}
	if err != nil {
		writeStoreError(w, err)
		return
	}

	var result render.Result
	if format == "full" {
		result = render.Full(proj, observations, summaries)
	} else {
		result = render.Index(proj, observations, summaries, time.Now())
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Service) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	searchType := r.URL.Query().Get("type")
	if searchType != "observations" && searchType != "summaries" {
		writeError(w, http.StatusBadRequest, "type must be observations or summaries")
		return
	}

	proj := ""
	if raw := r.URL.Query().Get("project"); raw != "" {
		proj = project.Sanitize(raw)
	}
	limit := parseLimit(r)

	switch searchType {
	case "observations":
		concept := r.URL.Query().Get("concept")
		results, err := s.observationStore.SearchObservations(r.Context(), query, proj, concept, limit)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if results == nil {
			results = []*models.Observation{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
	case "summaries":
		results, err := s.summaryStore.SearchSummaries(r.Context(), query, proj, limit)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if results == nil {
			results = []*models.SessionSummary{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
	}
}

func (s *Service) handleTimeline(w http.ResponseWriter, r *http.Request) {
	proj := ""
	if raw := r.URL.Query().Get("project"); raw != "" {
		proj = project.Sanitize(raw)
	}
	limit := parseLimit(r)
	since := parseSince(r)

	results, err := s.observationStore.GetObservationsSince(r.Context(), proj, since, limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if results == nil {
		results = []*models.Observation{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}

func (s *Service) handleDecisions(w http.ResponseWriter, r *http.Request) {
	proj := ""
	if raw := r.URL.Query().Get("project"); raw != "" {
		proj = project.Sanitize(raw)
	}
	limit := parseLimit(r)
	since := parseSince(r)

	results, err := s.observationStore.GetObservationsByType(r.Context(), models.ObsTypeDecision, proj, since, limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if results == nil {
		results = []*models.Observation{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

func (s *Service) handleFindByFile(w http.ResponseWriter, r *http.Request) {
	file := r.URL.Query().Get("file")
	if file == "" {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	limit := parseLimit(r)

	results, err := s.observationStore.GetObservationsByFile(r.Context(), file, limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if results == nil {
		results = []*models.Observation{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

func (s *Service) handleObservationByID(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "id must be a positive integer")
		return
	}

	obs, err := s.observationStore.GetObservationByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if obs == nil {
		writeError(w, http.StatusNotFound, "observation not found")
		return
	}
	writeJSON(w, http.StatusOK, obs)
}

func (s *Service) handleProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.sessionStore.GetAllProjects(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if projects == nil {
		projects = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"projects": projects})
}

func (s *Service) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	claudeSessionID := r.URL.Query().Get("claudeSessionId")
	if claudeSessionID == "" {
		writeError(w, http.StatusBadRequest, "claudeSessionId is required")
		return
	}

	if err := s.sessionStore.DeleteSession(r.Context(), claudeSessionID); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

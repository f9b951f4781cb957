package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/memkeep/memkeep/internal/db/sqlite"
	"github.com/memkeep/memkeep/internal/dedup"
	"github.com/memkeep/memkeep/internal/privacy"
	"github.com/memkeep/memkeep/internal/worker/sdk"
	"github.com/memkeep/memkeep/pkg/models"
)

// Events receives pipeline lifecycle notifications. The SSE broadcaster
// satisfies it; a nil Events field disables notifications.
type Events interface {
	Broadcast(data interface{})
}

// Processor turns queued messages into stored records. It runs only on
// the queue's drain goroutine, so no operation here needs additional
// locking.
type Processor struct {
	sessions     *sqlite.SessionStore
	observations *sqlite.ObservationStore
	summaries    *sqlite.SummaryStore
	generator    sdk.Generator
	embedder     sdk.Embedder
	detector     *dedup.Detector
	dedupWindow  time.Duration
	events       Events
	log          zerolog.Logger
}

func NewProcessor(
	sessions *sqlite.SessionStore,
	observations *sqlite.ObservationStore,
	summaries *sqlite.SummaryStore,
	generator sdk.Generator,
	embedder sdk.Embedder,
	detector *dedup.Detector,
	dedupWindow time.Duration,
	events Events,
) *Processor {
	return &Processor{
		sessions:     sessions,
		observations: observations,
		summaries:    summaries,
		generator:    generator,
		embedder:     embedder,
		detector:     detector,
		dedupWindow:  dedupWindow,
		events:       events,
		log:          log.With().Str("component", "processor").Logger(),
	}
}

// Process handles one message. Used as the queue's Handler.
func (p *Processor) Process(ctx context.Context, msg Message) error {
	switch msg.Kind {
	case KindObservation:
		return p.processObservation(ctx, msg)
	case KindSummarize:
		return p.processSummarize(ctx, msg)
	case KindComplete:
		return p.processComplete(ctx, msg)
	default:
		return fmt.Errorf("unknown message kind %q", msg.Kind)
	}
}

func (p *Processor) processObservation(ctx context.Context, msg Message) error {
	session, err := p.sessions.GetSessionByClaudeID(ctx, msg.ClaudeSessionID)
	if err != nil {
		return fmt.Errorf("resolve session: %w", err)
	}
	if session == nil {
		return fmt.Errorf("resolve session %s: %w", msg.ClaudeSessionID, models.ErrNotFound)
	}

	parsed, tokens, err := p.generator.Observe(ctx, sdk.ObservationRequest{
		ToolName:     msg.Observation.ToolName,
		ToolInput:    msg.Observation.ToolInput,
		ToolResponse: msg.Observation.ToolResponse,
		CWD:          msg.Observation.CWD,
		OccurredAt:   msg.EnqueuedAt.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("observe: %w", err)
	}
	if parsed == nil {
		// Inference declined to produce a record. Successful no-op.
		p.log.Debug().
			Str("claudeSessionId", msg.ClaudeSessionID).
			Str("tool", msg.Observation.ToolName).
			Msg("Observation skipped by generator")
		p.broadcast("observation_skipped", session, nil)
		return nil
	}

	if p.embedder != nil {
		embedding, err := p.embedder.Embed(ctx, embeddingText(parsed))
		if err != nil {
			// Vectors only sharpen dedup; title similarity still applies.
			p.log.Warn().Err(err).Msg("Embedding failed, continuing without vector")
		} else {
			parsed.Embedding = embedding
		}
	}

	dup, err := p.detector.FindSimilar(ctx, session.Project, parsed.Title, parsed.Embedding, p.dedupWindow)
	if err != nil {
		p.log.Warn().Err(err).Msg("Duplicate check failed, storing anyway")
	} else if dup != nil {
		p.log.Info().
			Int64("duplicateOf", dup.ID).
			Str("title", parsed.Title).
			Msg("Observation skipped as near-duplicate")
		p.broadcast("observation_skipped", session, map[string]interface{}{"duplicateOf": dup.ID})
		return nil
	}

	id, err := p.observations.StoreObservation(ctx, msg.ClaudeSessionID, session.Project, parsed, int(session.PromptCounter), tokens)
	if err != nil {
		return fmt.Errorf("store observation: %w", err)
	}

	p.log.Info().
		Int64("observationId", id).
		Str("type", string(parsed.Type)).
		Str("title", parsed.Title).
		Int64("discoveryTokens", tokens).
		Msg("Observation stored")
	p.broadcast("observation_stored", session, map[string]interface{}{"observationId": id, "title": parsed.Title})
	return nil
}

func (p *Processor) processSummarize(ctx context.Context, msg Message) error {
	session, err := p.sessions.GetSessionByClaudeID(ctx, msg.ClaudeSessionID)
	if err != nil {
		return fmt.Errorf("resolve session: %w", err)
	}
	if session == nil {
		return fmt.Errorf("resolve session %s: %w", msg.ClaudeSessionID, models.ErrNotFound)
	}

	parsed, tokens, err := p.generator.Summarize(ctx, sdk.SummaryRequest{
		Project:              session.Project,
		UserPrompt:           session.UserPrompt.String,
		LastUserMessage:      privacy.Clean(msg.Summarize.LastUserMessage),
		LastAssistantMessage: privacy.Clean(msg.Summarize.LastAssistantMessage),
	})
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}
	if parsed == nil {
		p.log.Debug().
			Str("claudeSessionId", msg.ClaudeSessionID).
			Msg("Summary skipped by generator")
		return nil
	}

	id, err := p.summaries.StoreSummary(ctx, msg.ClaudeSessionID, session.Project, parsed, int(session.PromptCounter), tokens)
	if err != nil {
		return fmt.Errorf("store summary: %w", err)
	}

	p.log.Info().
		Int64("summaryId", id).
		Str("project", session.Project).
		Msg("Summary stored")
	p.broadcast("summary_stored", session, map[string]interface{}{"summaryId": id})
	return nil
}

func (p *Processor) processComplete(ctx context.Context, msg Message) error {
	session, err := p.sessions.GetSessionByClaudeID(ctx, msg.ClaudeSessionID)
	if err != nil {
		return fmt.Errorf("resolve session: %w", err)
	}
	if session == nil {
		return fmt.Errorf("resolve session %s: %w", msg.ClaudeSessionID, models.ErrNotFound)
	}

	if err := p.sessions.UpdateStatus(ctx, session.ID, models.SessionStatusCompleted); err != nil {
		return fmt.Errorf("complete session: %w", err)
	}

	reason := ""
	if msg.Complete != nil {
		reason = msg.Complete.Reason
	}
	p.log.Info().
		Str("claudeSessionId", msg.ClaudeSessionID).
		Str("reason", reason).
		Msg("Session completed")
	p.broadcast("session_completed", session, nil)
	return nil
}

func (p *Processor) broadcast(event string, session *models.Session, extra map[string]interface{}) {
	if p.events == nil {
		return
	}
	data := map[string]interface{}{
		"type":            event,
		"claudeSessionId": session.ClaudeSessionID,
		"project":         session.Project,
	}
	for k, v := range extra {
		data[k] = v
	}
	p.events.Broadcast(data)
}

// embeddingText is the text the vector is computed over. Title plus
// subtitle gives the detector enough signal without paying for the
// whole narrative.
func embeddingText(obs *models.ParsedObservation) string {
	if obs.Subtitle == "" {
		return obs.Title
	}
	return obs.Title + "\n" + obs.Subtitle
}

package sdk

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/memkeep/memkeep/pkg/models"
)

const maxResponseTokens = 2048

// AnthropicGenerator implements Generator against the Anthropic
// Messages API. The api key comes from the environment
// (ANTHROPIC_API_KEY), handled by the SDK.
type AnthropicGenerator struct {
	client anthropic.Client
	model  string
	log    zerolog.Logger
}

// NewAnthropicGenerator creates a generator using the given model.
func NewAnthropicGenerator(model string) *AnthropicGenerator {
	return &AnthropicGenerator{
		client: anthropic.NewClient(),
		model:  model,
		log:    log.With().Str("component", "sdk").Logger(),
	}
}

// Observe distills one tool invocation into an observation candidate.
// A skip from the model returns (nil, tokens, nil).
func (g *AnthropicGenerator) Observe(ctx context.Context, req ObservationRequest) (*models.ParsedObservation, int64, error) {
	prompt := BuildObservationPrompt(req)
	text, tokens, err := g.complete(ctx, prompt)
	if err != nil {
		return nil, 0, err
	}
	return ParseObservationResponse(text, req), tokens, nil
}

// Summarize debriefs a session's last exchange.
func (g *AnthropicGenerator) Summarize(ctx context.Context, req SummaryRequest) (*models.ParsedSummary, int64, error) {
	prompt := BuildSummaryPrompt(req)
	text, tokens, err := g.complete(ctx, prompt)
	if err != nil {
		return nil, 0, err
	}
	return ParseSummaryResponse(text), tokens, nil
}

// complete runs one message round-trip and returns the concatenated
// text blocks plus the token cost of the exchange.
func (g *AnthropicGenerator) complete(ctx context.Context, prompt string) (string, int64, error) {
	msg, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: maxResponseTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", 0, err
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := sb.String()

	tokens := msg.Usage.InputTokens + msg.Usage.OutputTokens
	if tokens == 0 {
		// Some gateways omit usage; fall back to local counting.
		tokens = CountTokens(prompt) + CountTokens(text)
	}

	return text, tokens, nil
}

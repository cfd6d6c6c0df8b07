package extract

import (
	"context"
	"fmt"
	"time"

	anthropic "github.com/liushuangls/go-anthropic/v2"

	"github.com/ppiankov/bookgeo/internal/model"
)

const defaultAnthropicModel = "claude-3-5-haiku-latest"

// AnthropicExtractor extracts place mentions with Anthropic Claude models.
type AnthropicExtractor struct {
	client      *anthropic.Client
	model       string
	timeout     time.Duration
	maxPerChunk int
}

// NewAnthropicExtractor creates an extractor backed by the Anthropic
// Messages API. The key comes from ANTHROPIC_API_KEY.
func NewAnthropicExtractor(cfg model.ExtractConfig) (*AnthropicExtractor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: ANTHROPIC_API_KEY is not set: %w", model.ErrInvalidConfig)
	}

	var opts []anthropic.ClientOption
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}

	name := cfg.Model
	if name == "" {
		name = defaultAnthropicModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxPerChunk := cfg.MaxPerChunk
	if maxPerChunk <= 0 {
		maxPerChunk = defaultMaxPerChunk
	}

	return &AnthropicExtractor{
		client:      anthropic.NewClient(cfg.APIKey, opts...),
		model:       name,
		timeout:     timeout,
		maxPerChunk: maxPerChunk,
	}, nil
}

// Name returns the backend name.
func (e *AnthropicExtractor) Name() string {
	return "anthropic"
}

// Extract reports the places named in one chunk. Instructions and chunk text
// travel in a single user message.
func (e *AnthropicExtractor) Extract(ctx context.Context, chunk model.TextChunk, language string) ([]model.RawMention, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	prompt := buildPrompt(language, e.maxPerChunk) + "\n\nText:\n" + chunk.Text

	resp, err := e.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model: anthropic.Model(e.model),
		Messages: []anthropic.Message{
			{
				Role: anthropic.RoleUser,
				Content: []anthropic.MessageContent{
					anthropic.NewTextMessageContent(prompt),
				},
			},
		},
		MaxTokens: maxResponseTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic completion: %w", err)
	}
	if len(resp.Content) == 0 || resp.Content[0].Text == nil {
		return nil, fmt.Errorf("anthropic: empty completion")
	}

	items := capItems(parseItems(*resp.Content[0].Text), e.maxPerChunk)
	return locateMentions(chunk, items), nil
}

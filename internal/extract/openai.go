package extract

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ppiankov/bookgeo/internal/model"
)

// OpenAIExtractor extracts place mentions with OpenAI chat models.
type OpenAIExtractor struct {
	client      *openai.Client
	model       string
	timeout     time.Duration
	maxPerChunk int
}

// NewOpenAIExtractor creates an extractor backed by the OpenAI Chat
// Completions API. The key comes from OPENAI_API_KEY.
func NewOpenAIExtractor(cfg model.ExtractConfig) (*OpenAIExtractor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: OPENAI_API_KEY is not set: %w", model.ErrInvalidConfig)
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	name := cfg.Model
	if name == "" {
		name = openai.GPT4oMini
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxPerChunk := cfg.MaxPerChunk
	if maxPerChunk <= 0 {
		maxPerChunk = defaultMaxPerChunk
	}

	return &OpenAIExtractor{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       name,
		timeout:     timeout,
		maxPerChunk: maxPerChunk,
	}, nil
}

// Name returns the backend name.
func (e *OpenAIExtractor) Name() string {
	return "openai"
}

// Extract reports the places named in one chunk.
func (e *OpenAIExtractor) Extract(ctx context.Context, chunk model.TextChunk, language string) ([]model.RawMention, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: buildPrompt(language, e.maxPerChunk),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: chunk.Text,
			},
		},
		MaxTokens:   maxResponseTokens,
		Temperature: 0.1,
	}

	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: empty completion")
	}

	items := capItems(parseItems(resp.Choices[0].Message.Content), e.maxPerChunk)
	return locateMentions(chunk, items), nil
}

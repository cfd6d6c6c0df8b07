package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ppiankov/bookgeo/internal/model"
	"github.com/ppiankov/bookgeo/internal/util"
)

const defaultOllamaBaseURL = "http://localhost:11434"

const defaultOllamaModel = "llama3.1"

// OllamaExtractor extracts place mentions with a local Ollama model. No API
// key is involved.
type OllamaExtractor struct {
	baseURL     string
	model       string
	httpClient  *http.Client
	maxPerChunk int
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type ollamaError struct {
	Error string `json:"error"`
}

// NewOllamaExtractor creates an extractor backed by an Ollama server.
func NewOllamaExtractor(cfg model.ExtractConfig, httpCfg model.HTTPConfig) (*OllamaExtractor, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}

	name := cfg.Model
	if name == "" {
		name = defaultOllamaModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxPerChunk := cfg.MaxPerChunk
	if maxPerChunk <= 0 {
		maxPerChunk = defaultMaxPerChunk
	}

	return &OllamaExtractor{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		model:       name,
		httpClient:  util.NewHTTPClient(httpCfg, timeout),
		maxPerChunk: maxPerChunk,
	}, nil
}

// Name returns the backend name.
func (e *OllamaExtractor) Name() string {
	return "ollama"
}

// Extract reports the places named in one chunk.
func (e *OllamaExtractor) Extract(ctx context.Context, chunk model.TextChunk, language string) ([]model.RawMention, error) {
	apiReq := ollamaRequest{
		Model:  e.model,
		Prompt: chunk.Text,
		System: buildPrompt(language, e.maxPerChunk),
		Stream: false,
		Options: ollamaOptions{
			Temperature: 0.1,
			NumPredict:  maxResponseTokens,
		},
	}

	resp, err := e.generate(ctx, apiReq)
	if err != nil {
		return nil, fmt.Errorf("ollama completion: %w", err)
	}

	items := capItems(parseItems(resp.Response), e.maxPerChunk)
	return locateMentions(chunk, items), nil
}

func (e *OllamaExtractor) generate(ctx context.Context, apiReq ollamaRequest) (*ollamaResponse, error) {
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/generate", e.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		var apiErr ollamaError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("API error (%d): %s", httpResp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("API error (%d): %s", httpResp.StatusCode, string(respBody))
	}

	var resp ollamaResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &resp, nil
}

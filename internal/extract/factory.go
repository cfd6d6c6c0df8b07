package extract

import (
	"fmt"
	"strings"

	"github.com/ppiankov/bookgeo/internal/model"
)

// New creates the extraction backend named by cfg.Provider. An empty
// provider means openai.
func New(cfg model.ExtractConfig, httpCfg model.HTTPConfig) (Extractor, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
		return NewOpenAIExtractor(cfg)

	case "anthropic", "claude":
		return NewAnthropicExtractor(cfg)

	case "ollama":
		return NewOllamaExtractor(cfg, httpCfg)

	default:
		return nil, fmt.Errorf("unknown extraction provider %q (supported: openai, anthropic, ollama): %w",
			cfg.Provider, model.ErrInvalidConfig)
	}
}

// Package validate reviews geocoded places for geographic outliers. Most
// books concentrate in one country; a lone match on another continent is
// usually the geocoder latching onto the wrong namesake. The review is
// advisory: flagged places stay in the real set, the report just names them.
package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ppiankov/bookgeo/internal/model"
)

const defaultReviewModel = openai.GPT4oMini

const reviewTimeout = 60 * time.Second

// Reviewer asks an LLM which geocoded places look out of context for the
// book, anchored on the dominant country across all real places.
type Reviewer struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewReviewer creates a Reviewer. The key comes from OPENAI_API_KEY; review
// always runs on OpenAI regardless of the extraction provider.
func NewReviewer(cfg model.ReviewConfig) (*Reviewer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("review: OPENAI_API_KEY is not set: %w", model.ErrInvalidConfig)
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	name := cfg.Model
	if name == "" {
		name = defaultReviewModel
	}

	return &Reviewer{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   name,
		timeout: reviewTimeout,
	}, nil
}

type placeSummary struct {
	Name     string  `json:"name"`
	Country  string  `json:"country,omitempty"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Mentions int     `json:"mentions"`
}

const reviewPrompt = `You are validating geocoded places extracted from one book. The dominant country is likely: %s.
Given the list of places, flag the ones that look far away or out of context compared to the dominant country. Only flag truly suspicious outliers.
Return ONLY a JSON array of place names to review (use the "name" field). If none, return an empty array.

Places:
%s`

// FlagOutliers returns the normalized names of real places that look
// geographically out of place. An empty slice means nothing suspicious.
func (r *Reviewer) FlagOutliers(ctx context.Context, records []model.PlaceRecord) ([]string, error) {
	if len(records) == 0 {
		return nil, nil
	}

	summaries := make([]placeSummary, 0, len(records))
	for _, rec := range records {
		s := placeSummary{
			Name:     rec.Candidate.NormalizedName,
			Mentions: rec.Candidate.MentionCount,
		}
		if rec.Geocode != nil {
			s.Country = rec.Geocode.Country
			s.Lat = rec.Geocode.Lat
			s.Lng = rec.Geocode.Lng
		}
		summaries = append(summaries, s)
	}

	placesJSON, err := json.Marshal(summaries)
	if err != nil {
		return nil, fmt.Errorf("marshal places: %w", err)
	}

	dominant := dominantCountry(records)
	if dominant == "" {
		dominant = "unknown"
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(reviewPrompt, dominant, placesJSON),
			},
		},
		MaxTokens:   500,
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("review completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("review: empty completion")
	}

	return parseNames(resp.Choices[0].Message.Content), nil
}

// dominantCountry returns the country most of the geocoded places share.
func dominantCountry(records []model.PlaceRecord) string {
	counts := make(map[string]int)
	for _, rec := range records {
		if rec.Geocode != nil && rec.Geocode.Country != "" {
			counts[rec.Geocode.Country]++
		}
	}

	var best string
	for country, n := range counts {
		if n > counts[best] || (n == counts[best] && (best == "" || country < best)) {
			best = country
		}
	}
	return best
}

var reviewFenceRE = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// parseNames pulls a JSON string array out of a completion, tolerating code
// fences and surrounding prose. Unparseable completions flag nothing.
func parseNames(content string) []string {
	content = strings.TrimSpace(content)
	if m := reviewFenceRE.FindStringSubmatch(content); m != nil {
		content = strings.TrimSpace(m[1])
	}

	var names []string
	if err := json.Unmarshal([]byte(content), &names); err == nil {
		return names
	}

	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(content[start:end+1]), &names); err == nil {
			return names
		}
	}
	return nil
}

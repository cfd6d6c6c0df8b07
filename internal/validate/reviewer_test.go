package validate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ppiankov/bookgeo/internal/model"
)

func realRecord(name, country string, mentions int) model.PlaceRecord {
	return model.PlaceRecord{
		Candidate: model.PlaceCandidate{
			NormalizedName: name,
			MentionCount:   mentions,
			Language:       "en",
		},
		Geocode: &model.GeocodeResult{
			FormattedAddress: name,
			Country:          country,
			LocationType:     model.LocationApproximate,
		},
		Classification: model.ClassReal,
	}
}

func TestReviewer_FlagOutliers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}

		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if len(req.Messages) != 1 || !strings.Contains(req.Messages[0].Content, "France") {
			t.Errorf("Expected dominant country France in prompt, got %+v", req.Messages)
		}

		resp := openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: "assistant", Content: `["springfield"]`}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	reviewer, err := NewReviewer(model.ReviewConfig{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create reviewer: %v", err)
	}

	records := []model.PlaceRecord{
		realRecord("paris", "France", 5),
		realRecord("lyon", "France", 2),
		realRecord("marseille", "France", 2),
		realRecord("springfield", "United States", 1),
	}

	flagged, err := reviewer.FlagOutliers(context.Background(), records)
	if err != nil {
		t.Fatalf("FlagOutliers failed: %v", err)
	}
	if len(flagged) != 1 || flagged[0] != "springfield" {
		t.Errorf("Expected [springfield], got %v", flagged)
	}
}

func TestReviewer_FlagOutliers_NoRecords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Expected no API call for empty input")
	}))
	defer server.Close()

	reviewer, err := NewReviewer(model.ReviewConfig{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create reviewer: %v", err)
	}

	flagged, err := reviewer.FlagOutliers(context.Background(), nil)
	if err != nil {
		t.Fatalf("FlagOutliers failed: %v", err)
	}
	if len(flagged) != 0 {
		t.Errorf("Expected nothing flagged, got %v", flagged)
	}
}

func TestNewReviewer_RequiresKey(t *testing.T) {
	_, err := NewReviewer(model.ReviewConfig{})
	if !errors.Is(err, model.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestDominantCountry(t *testing.T) {
	records := []model.PlaceRecord{
		realRecord("paris", "France", 3),
		realRecord("lyon", "France", 1),
		realRecord("london", "United Kingdom", 1),
	}
	if got := dominantCountry(records); got != "France" {
		t.Errorf("Expected France, got %q", got)
	}

	// Ties break lexicographically so the result is stable.
	tied := []model.PlaceRecord{
		realRecord("paris", "France", 1),
		realRecord("berlin", "Germany", 1),
	}
	if got := dominantCountry(tied); got != "France" {
		t.Errorf("Expected France on tie, got %q", got)
	}

	if got := dominantCountry(nil); got != "" {
		t.Errorf("Expected empty for no records, got %q", got)
	}

	noGeo := []model.PlaceRecord{{Candidate: model.PlaceCandidate{NormalizedName: "narnia"}}}
	if got := dominantCountry(noGeo); got != "" {
		t.Errorf("Expected empty without geocodes, got %q", got)
	}
}

func TestParseNames(t *testing.T) {
	if got := parseNames(`["a","b"]`); len(got) != 2 || got[0] != "a" {
		t.Errorf("Unexpected names: %v", got)
	}
	if got := parseNames("```json\n[\"x\"]\n```"); len(got) != 1 || got[0] != "x" {
		t.Errorf("Unexpected names from fenced block: %v", got)
	}
	if got := parseNames("Flagging these: [\"y\"] based on distance."); len(got) != 1 || got[0] != "y" {
		t.Errorf("Unexpected names from prose: %v", got)
	}
	if got := parseNames("nothing suspicious here"); got != nil {
		t.Errorf("Expected nil for prose, got %v", got)
	}
	if got := parseNames("[]"); len(got) != 0 {
		t.Errorf("Expected empty, got %v", got)
	}
}

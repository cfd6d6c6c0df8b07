package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/ppiankov/bookgeo/internal/model"
	"github.com/ppiankov/bookgeo/internal/util"
	"github.com/ppiankov/bookgeo/internal/worker"
)

// DefaultEndpoint is the Google Maps Geocoding API.
const DefaultEndpoint = "https://maps.googleapis.com/maps/api/geocode/json"

// maxResponseBytes bounds how much of a geocode response body gets read.
// Real answers are a few KB; anything bigger is a misbehaving proxy.
const maxResponseBytes = 1 << 20

// GoogleClient resolves place names against the Google Maps Geocoding API.
// All calls to the endpoint host pass through a shared rate limiter, so the
// resolver's worker pool cannot outrun the service quota.
type GoogleClient struct {
	httpClient *http.Client
	limiter    *worker.Limiter
	endpoint   string
	host       string
	apiKey     string
	userAgent  string
}

// NewGoogleClient validates the credentials and endpoint and returns a
// ready client. A missing API key is a configuration error, not a runtime
// one: the run must not start without it.
func NewGoogleClient(cfg model.GeocodeConfig, httpCfg model.HTTPConfig) (*GoogleClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("geocoding requires an API key (set GOOGLE_MAPS_API_KEY): %w",
			model.ErrInvalidConfig)
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("invalid geocoding endpoint %q: %w", endpoint, model.ErrInvalidConfig)
	}

	return &GoogleClient{
		httpClient: util.NewHTTPClient(httpCfg, 0),
		limiter:    worker.NewLimiter(cfg.RateLimit, cfg.RateBurst),
		endpoint:   endpoint,
		host:       parsed.Host,
		apiKey:     cfg.APIKey,
		userAgent:  httpCfg.UserAgent,
	}, nil
}

type googleResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress  string `json:"formatted_address"`
		AddressComponents []struct {
			LongName string   `json:"long_name"`
			Types    []string `json:"types"`
		} `json:"address_components"`
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
			LocationType string `json:"location_type"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocode performs one lookup. Transient failures (network errors, HTTP
// 429/5xx, OVER_QUERY_LIMIT, UNKNOWN_ERROR) return plain errors the resolver
// retries; REQUEST_DENIED and INVALID_REQUEST return a *FatalError because
// retrying a rejected key only burns quota.
func (c *GoogleClient) Geocode(ctx context.Context, name, language string) (model.GeocodeResult, error) {
	none := model.GeocodeResult{LocationType: model.LocationNone}

	if err := c.limiter.Wait(ctx, c.host); err != nil {
		return none, err
	}

	q := url.Values{}
	q.Set("address", name)
	q.Set("key", c.apiKey)
	q.Set("language", language)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return none, fmt.Errorf("build geocode request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return none, fmt.Errorf("geocode request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return none, fmt.Errorf("geocoding service returned HTTP %d", resp.StatusCode)
	default:
		return none, &FatalError{Status: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}

	var body googleResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return none, fmt.Errorf("decode geocode response: %w", err)
	}

	switch body.Status {
	case "OK":
		if len(body.Results) == 0 {
			return none, nil
		}
		first := body.Results[0]
		result := model.GeocodeResult{
			FormattedAddress: first.FormattedAddress,
			Lat:              first.Geometry.Location.Lat,
			Lng:              first.Geometry.Location.Lng,
			LocationType:     parseLocationType(first.Geometry.LocationType),
		}
		for _, comp := range first.AddressComponents {
			for _, t := range comp.Types {
				if t == "country" {
					result.Country = comp.LongName
					break
				}
			}
		}
		return result, nil
	case "ZERO_RESULTS":
		return none, nil
	case "REQUEST_DENIED", "INVALID_REQUEST":
		return none, &FatalError{Status: body.Status, Message: body.ErrorMessage}
	default:
		// OVER_QUERY_LIMIT, UNKNOWN_ERROR and anything the API grows later:
		// worth a retry.
		if body.ErrorMessage != "" {
			return none, fmt.Errorf("geocoding status %s: %s", body.Status, body.ErrorMessage)
		}
		return none, fmt.Errorf("geocoding status %s", body.Status)
	}
}

func parseLocationType(s string) model.LocationType {
	switch model.LocationType(s) {
	case model.LocationRooftop:
		return model.LocationRooftop
	case model.LocationRangeInterpolated:
		return model.LocationRangeInterpolated
	case model.LocationGeometricCenter:
		return model.LocationGeometricCenter
	default:
		return model.LocationApproximate
	}
}

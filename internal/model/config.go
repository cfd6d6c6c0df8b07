package model

import "time"

// Config is the full runtime configuration for one pipeline run. The CLI
// resolves it from flags, BOOKGEO_* environment variables and the optional
// ~/.bookgeo/config.yaml, highest priority first. A Config is run-scoped;
// nothing in it is process-global.
type Config struct {
	Chunk    ChunkConfig    `yaml:"chunk" mapstructure:"chunk"`
	Extract  ExtractConfig  `yaml:"extract" mapstructure:"extract"`
	Geocode  GeocodeConfig  `yaml:"geocode" mapstructure:"geocode"`
	Classify ClassifyConfig `yaml:"classify" mapstructure:"classify"`
	Review   ReviewConfig   `yaml:"review" mapstructure:"review"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	HTTP     HTTPConfig     `yaml:"http" mapstructure:"http"`
}

// ChunkConfig bounds the chunker.
type ChunkConfig struct {
	// MaxChars is the chunk size limit in bytes. Must be positive.
	MaxChars int `yaml:"max_chars" mapstructure:"max_chars"`
}

// ExtractConfig selects and tunes the extraction backend.
type ExtractConfig struct {
	Provider    string        `yaml:"provider" mapstructure:"provider"` // openai, anthropic or ollama
	Model       string        `yaml:"model" mapstructure:"model"`
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Concurrency int           `yaml:"concurrency" mapstructure:"concurrency"`
	MaxPerChunk int           `yaml:"max_per_chunk" mapstructure:"max_per_chunk"`

	// APIKey comes from the provider's environment variable, never from a
	// config file.
	APIKey string `yaml:"-" mapstructure:"-"`
}

// GeocodeConfig tunes the geocode resolver and its client.
type GeocodeConfig struct {
	Endpoint      string        `yaml:"endpoint" mapstructure:"endpoint"`
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"` // per lookup attempt
	MaxRetries    int           `yaml:"max_retries" mapstructure:"max_retries"`
	Concurrency   int           `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimit     float64       `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second
	RateBurst     int           `yaml:"rate_burst" mapstructure:"rate_burst"`
	MaxCandidates int           `yaml:"max_candidates" mapstructure:"max_candidates"` // 0 means unlimited
	Cache         CacheConfig   `yaml:"cache" mapstructure:"cache"`

	// APIKey comes from GOOGLE_MAPS_API_KEY, never from a config file.
	APIKey string `yaml:"-" mapstructure:"-"`
}

// CacheConfig controls the layered geocode response cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir     string        `yaml:"dir" mapstructure:"dir"` // empty means ~/.bookgeo/cache
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// ClassifyConfig holds the confidence scoring knobs. BaseScores is keyed by
// location type name so it round-trips through YAML.
type ClassifyConfig struct {
	Threshold           float64            `yaml:"threshold" mapstructure:"threshold"`
	BaseScores          map[string]float64 `yaml:"base_scores" mapstructure:"base_scores"`
	MentionBoostStep    float64            `yaml:"mention_boost_step" mapstructure:"mention_boost_step"`
	MentionBoostCap     float64            `yaml:"mention_boost_cap" mapstructure:"mention_boost_cap"`
	NameMismatchPenalty float64            `yaml:"name_mismatch_penalty" mapstructure:"name_mismatch_penalty"`
}

// ReviewConfig controls the optional LLM review that flags geographic
// outliers among the real places. The review always runs on OpenAI.
type ReviewConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Model   string `yaml:"model" mapstructure:"model"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// APIKey comes from OPENAI_API_KEY, never from a config file.
	APIKey string `yaml:"-" mapstructure:"-"`
}

// OutputConfig controls where and how run artifacts are written.
type OutputConfig struct {
	Dir     string `yaml:"dir" mapstructure:"dir"`
	CSV     bool   `yaml:"csv" mapstructure:"csv"`
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
}

// HTTPConfig applies to every outbound HTTP call the tool makes.
type HTTPConfig struct {
	UserAgent  string `yaml:"user_agent" mapstructure:"user_agent"`
	HTTPProxy  string `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy" mapstructure:"no_proxy"`
}

// DefaultConfig returns the configuration used when no flag, environment
// variable or config file overrides a value.
func DefaultConfig() *Config {
	return &Config{
		Chunk: ChunkConfig{
			MaxChars: 3000,
		},
		Extract: ExtractConfig{
			Provider:    "openai",
			Timeout:     60 * time.Second,
			Concurrency: 4,
			MaxPerChunk: 30,
		},
		Geocode: GeocodeConfig{
			Timeout:       15 * time.Second,
			MaxRetries:    3,
			Concurrency:   8,
			RateLimit:     40,
			RateBurst:     10,
			MaxCandidates: 500,
			Cache: CacheConfig{
				Enabled: true,
				TTL:     30 * 24 * time.Hour,
			},
		},
		Classify: ClassifyConfig{
			Threshold: 0.5,
			BaseScores: map[string]float64{
				string(LocationRooftop):           1.0,
				string(LocationRangeInterpolated): 0.75,
				string(LocationGeometricCenter):   0.5,
				string(LocationApproximate):       0.25,
			},
			MentionBoostStep:    0.03,
			MentionBoostCap:     0.15,
			NameMismatchPenalty: 0.2,
		},
		Output: OutputConfig{
			Dir: "outputs",
			CSV: true,
		},
		HTTP: HTTPConfig{
			UserAgent: "bookgeo/1.0 (+https://github.com/ppiankov/bookgeo)",
		},
	}
}

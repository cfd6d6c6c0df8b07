package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ppiankov/bookgeo/internal/model"
	"github.com/ppiankov/bookgeo/internal/pipeline"
)

var (
	outputDir      string
	langFlag       string
	limitChars     int
	chunkChars     int
	provider       string
	extractModel   string
	extractWorkers int
	threshold      float64
	geoConcurrency int
	geoTimeout     time.Duration
	geoRetries     int
	maxCandidates  int
	noCache        bool
	noCSV          bool
	review         bool
	userAgent      string
	httpProxy      string
	httpsProxy     string
	runTimeout     time.Duration
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <book>",
	Short: "Extract and geocode the places of a single book",
	Long: `Run processes one book end to end:
- Load the text from a .txt/.md/.pdf file or an http(s) URL
- Chunk it and extract place mentions with an LLM
- Aggregate mentions into unique candidates
- Geocode every candidate and score the match
- Partition candidates into real places and fictional or unresolved entries

Example:
  bookgeo run dracula.txt
  bookgeo run dracula.txt --lang en --output-dir ./out
  bookgeo run https://www.gutenberg.org/files/345/345-0.txt --limit-chars 200000
  bookgeo run quijote.pdf --extractor anthropic --threshold 0.6`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	def := model.DefaultConfig()

	// Run flags
	runCmd.Flags().StringVar(&outputDir, "output-dir", def.Output.Dir, "directory for run artifacts")
	runCmd.Flags().StringVar(&langFlag, "lang", "", "language code (en|es); auto-detected when omitted")
	runCmd.Flags().IntVar(&limitChars, "limit-chars", 0, "process only the first N characters (0 = whole book)")
	runCmd.Flags().IntVar(&chunkChars, "chunk-chars", def.Chunk.MaxChars, "chunk size in characters")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 30*time.Minute, "overall run timeout")

	// Extraction flags
	runCmd.Flags().StringVar(&provider, "extractor", def.Extract.Provider, "extraction provider (openai, anthropic, ollama)")
	runCmd.Flags().StringVar(&extractModel, "model", "", "extraction model name (provider default when empty)")
	runCmd.Flags().IntVar(&extractWorkers, "extract-concurrency", def.Extract.Concurrency, "concurrent extraction calls")

	// Geocoding flags
	runCmd.Flags().Float64Var(&threshold, "threshold", def.Classify.Threshold, "confidence threshold for a real place")
	runCmd.Flags().IntVar(&geoConcurrency, "geocode-concurrency", def.Geocode.Concurrency, "concurrent geocoding lookups")
	runCmd.Flags().DurationVar(&geoTimeout, "geocode-timeout", def.Geocode.Timeout, "timeout per geocoding attempt")
	runCmd.Flags().IntVar(&geoRetries, "geocode-retries", def.Geocode.MaxRetries, "retries per geocoding lookup")
	runCmd.Flags().IntVar(&maxCandidates, "max-candidates", def.Geocode.MaxCandidates, "cap on candidates sent to geocoding (0 = unlimited)")
	runCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the geocode response cache")

	// Output flags
	runCmd.Flags().BoolVar(&noCSV, "no-csv", false, "skip the real_places.csv artifact")
	runCmd.Flags().BoolVar(&review, "review", false, "flag geographic outliers with an LLM after the run")

	// HTTP flags
	runCmd.Flags().StringVar(&userAgent, "ua", def.HTTP.UserAgent, "HTTP User-Agent")
	runCmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	runCmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
}

// applyFlags overlays explicitly set flags onto cfg. Untouched flags leave
// the config file and environment values alone.
func applyFlags(cmd *cobra.Command, cfg *model.Config) {
	flags := cmd.Flags()
	set := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}

	if set("output-dir") {
		cfg.Output.Dir = outputDir
	}
	if set("chunk-chars") {
		cfg.Chunk.MaxChars = chunkChars
	}
	if set("extractor") {
		cfg.Extract.Provider = provider
	}
	if set("model") {
		cfg.Extract.Model = extractModel
	}
	if set("extract-concurrency") {
		cfg.Extract.Concurrency = extractWorkers
	}
	if set("threshold") {
		cfg.Classify.Threshold = threshold
	}
	if set("geocode-concurrency") {
		cfg.Geocode.Concurrency = geoConcurrency
	}
	if set("geocode-timeout") {
		cfg.Geocode.Timeout = geoTimeout
	}
	if set("geocode-retries") {
		cfg.Geocode.MaxRetries = geoRetries
	}
	if set("max-candidates") {
		cfg.Geocode.MaxCandidates = maxCandidates
	}
	if set("no-cache") {
		cfg.Geocode.Cache.Enabled = !noCache
	}
	if set("no-csv") {
		cfg.Output.CSV = !noCSV
	}
	if set("review") {
		cfg.Review.Enabled = review
	}
	if set("ua") {
		cfg.HTTP.UserAgent = userAgent
	}
	if set("http-proxy") {
		cfg.HTTP.HTTPProxy = httpProxy
	}
	if set("https-proxy") {
		cfg.HTTP.HTTPSProxy = httpsProxy
	}
	cfg.Output.Verbose = verbose
}

func runRun(cmd *cobra.Command, args []string) error {
	source := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	resolveAPIKeys(cfg)

	if verbose {
		fmt.Fprintf(os.Stderr, "Processing: %s\n", source)
		fmt.Fprintf(os.Stderr, "Extractor: %s\n", cfg.Extract.Provider)
		fmt.Fprintf(os.Stderr, "Cache: %v\n", cfg.Geocode.Cache.Enabled)
		fmt.Fprintln(os.Stderr)
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		return err
	}

	report, err := p.Run(ctx, source, langFlag, limitChars)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	if err := pipeline.NewRenderer(cfg.Output.CSV).Write(report, cfg.Output.Dir); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ %d chunks, %d mentions, %d candidates\n",
			report.ChunkCount, report.MentionCount, report.CandidateCount)
		fmt.Fprintf(os.Stderr, "✓ Wrote artifacts to %s\n", cfg.Output.Dir)
		fmt.Fprintln(os.Stderr)
	}

	printSummary(report)
	return nil
}

// printSummary reports the run outcome on stdout, warnings first so the
// count line always comes last.
func printSummary(report *model.Report) {
	if n := len(report.FailedChunks); n > 0 {
		color.Yellow("Extraction failed for %d of %d chunks.", n, report.ChunkCount)
	}
	if report.TruncatedCandidates > 0 {
		color.Yellow("Candidate cap dropped %d candidates.", report.TruncatedCandidates)
	}
	if report.Degraded > 0 {
		color.Yellow("Completed with %d degraded candidates (geocoding service errors).", report.Degraded)
	}
	if len(report.Flagged) > 0 {
		color.Yellow("Review flagged %d possible outliers: %s",
			len(report.Flagged), strings.Join(report.Flagged, ", "))
	}
	color.Green("Processed %d real places and %d fictional entries.",
		len(report.Real), len(report.Fictional))
}

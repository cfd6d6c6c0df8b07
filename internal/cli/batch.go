package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/bookgeo/internal/model"
	"github.com/ppiankov/bookgeo/internal/pipeline"
	"github.com/ppiankov/bookgeo/internal/worker"
)

var (
	batchConcurrency int
	batchTimeout     time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Process every book in a directory in parallel",
	Long: `Batch runs the full pipeline over every .txt/.md/.pdf file in a
directory:
- Books are processed in parallel with a configurable worker count
- Each book gets its own subdirectory of artifacts under the output dir
- One failing book never stops the others

Example:
  bookgeo batch ./books
  bookgeo batch ./books --concurrency 4 --output-dir ./reports
  bookgeo batch ./books --lang es --limit-chars 100000`,
	Args: cobra.ExactArgs(1),
	RunE: runBatchCmd,
}

func init() {
	rootCmd.AddCommand(batchCmd)
	def := model.DefaultConfig()

	// Batch flags
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 2, "number of books processed concurrently")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 2*time.Hour, "total timeout for the whole batch")
	batchCmd.Flags().DurationVar(&runTimeout, "run-timeout", 30*time.Minute, "timeout per book")

	// Inherit flags from the run command
	batchCmd.Flags().StringVar(&outputDir, "output-dir", def.Output.Dir, "directory for run artifacts")
	batchCmd.Flags().StringVar(&langFlag, "lang", "", "language code (en|es); auto-detected when omitted")
	batchCmd.Flags().IntVar(&limitChars, "limit-chars", 0, "process only the first N characters per book (0 = whole book)")
	batchCmd.Flags().IntVar(&chunkChars, "chunk-chars", def.Chunk.MaxChars, "chunk size in characters")
	batchCmd.Flags().StringVar(&provider, "extractor", def.Extract.Provider, "extraction provider (openai, anthropic, ollama)")
	batchCmd.Flags().StringVar(&extractModel, "model", "", "extraction model name (provider default when empty)")
	batchCmd.Flags().IntVar(&extractWorkers, "extract-concurrency", def.Extract.Concurrency, "concurrent extraction calls per book")
	batchCmd.Flags().Float64Var(&threshold, "threshold", def.Classify.Threshold, "confidence threshold for a real place")
	batchCmd.Flags().IntVar(&geoConcurrency, "geocode-concurrency", def.Geocode.Concurrency, "concurrent geocoding lookups per book")
	batchCmd.Flags().DurationVar(&geoTimeout, "geocode-timeout", def.Geocode.Timeout, "timeout per geocoding attempt")
	batchCmd.Flags().IntVar(&geoRetries, "geocode-retries", def.Geocode.MaxRetries, "retries per geocoding lookup")
	batchCmd.Flags().IntVar(&maxCandidates, "max-candidates", def.Geocode.MaxCandidates, "cap on candidates sent to geocoding (0 = unlimited)")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the geocode response cache")
	batchCmd.Flags().BoolVar(&noCSV, "no-csv", false, "skip the real_places.csv artifacts")
	batchCmd.Flags().BoolVar(&review, "review", false, "flag geographic outliers with an LLM after each run")
	batchCmd.Flags().StringVar(&userAgent, "ua", def.HTTP.UserAgent, "HTTP User-Agent")
	batchCmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	batchCmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
}

type batchResult struct {
	book   string
	report *model.Report
	err    error
}

func runBatchCmd(cmd *cobra.Command, args []string) error {
	dir := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	resolveAPIKeys(cfg)

	books, err := listBooks(dir)
	if err != nil {
		return err
	}
	if len(books) == 0 {
		return fmt.Errorf("no .txt, .md or .pdf books found in %s", dir)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Bookgeo Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input dir:    %s\n", dir)
	fmt.Fprintf(os.Stderr, "  Books:        %d\n", len(books))
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", batchConcurrency)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", cfg.Output.Dir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	p, err := pipeline.New(cfg)
	if err != nil {
		return err
	}
	renderer := pipeline.NewRenderer(cfg.Output.CSV)

	tasks := make([]worker.Task[batchResult], len(books))
	for i, book := range books {
		book := book
		tasks[i] = func(taskCtx context.Context) batchResult {
			bookCtx, cancelBook := context.WithTimeout(taskCtx, runTimeout)
			defer cancelBook()
			report, err := p.Run(bookCtx, book, langFlag, limitChars)
			return batchResult{book: book, report: report, err: err}
		}
	}
	results := worker.Run(ctx, batchConcurrency, tasks)
	sort.Slice(results, func(i, j int) bool { return results[i].book < results[j].book })

	successCount := 0
	failureCount := 0
	for _, result := range results {
		if result.err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.book, result.err)
			continue
		}

		bookDir := filepath.Join(cfg.Output.Dir, bookStem(result.book))
		if err := renderer.Write(result.report, bookDir); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write artifacts: %v\n", result.book, err)
			continue
		}

		successCount++
		fmt.Fprintf(os.Stderr, "✓ %s (%d real, %d fictional)\n",
			result.book, len(result.report.Real), len(result.report.Fictional))
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d books\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", cfg.Output.Dir)
	fmt.Fprintf(os.Stderr, "\n")

	if successCount == 0 {
		return fmt.Errorf("all %d books failed", len(results))
	}
	return nil
}

// bookExtensions are the file types batch picks up from the input dir.
var bookExtensions = map[string]bool{
	".txt":  true,
	".text": true,
	".md":   true,
	".pdf":  true,
}

func listBooks(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var books []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if bookExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			books = append(books, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(books)
	return books, nil
}

// bookStem returns the per-book output subdirectory name.
func bookStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Package pipeline wires the stages of one book run together: ingest,
// chunk, extract, aggregate, geocode, classify, render. A Pipeline is built
// once per run from the resolved configuration; it keeps no state between
// runs.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/bookgeo/internal/aggregate"
	"github.com/ppiankov/bookgeo/internal/cache"
	"github.com/ppiankov/bookgeo/internal/chunk"
	"github.com/ppiankov/bookgeo/internal/classify"
	"github.com/ppiankov/bookgeo/internal/extract"
	"github.com/ppiankov/bookgeo/internal/geocode"
	"github.com/ppiankov/bookgeo/internal/ingest"
	"github.com/ppiankov/bookgeo/internal/lang"
	"github.com/ppiankov/bookgeo/internal/model"
	"github.com/ppiankov/bookgeo/internal/validate"
	"github.com/ppiankov/bookgeo/internal/worker"
)

// Pipeline orchestrates the complete run over one book.
type Pipeline struct {
	cfg        *model.Config
	loader     *ingest.Loader
	extractor  extract.Extractor
	resolver   *geocode.Resolver
	classifier *classify.Classifier
	reviewer   *validate.Reviewer // nil when review is disabled
}

// New builds a pipeline from cfg. It fails when a backend is misconfigured
// (unknown provider, missing API key), so a bad setup surfaces before any
// text is read.
func New(cfg *model.Config) (*Pipeline, error) {
	extractor, err := extract.New(cfg.Extract, cfg.HTTP)
	if err != nil {
		return nil, err
	}

	geocoder, err := geocode.NewGoogleClient(cfg.Geocode, cfg.HTTP)
	if err != nil {
		return nil, err
	}

	store, err := openCache(cfg.Geocode.Cache)
	if err != nil {
		return nil, err
	}

	var reviewer *validate.Reviewer
	if cfg.Review.Enabled {
		reviewer, err = validate.NewReviewer(cfg.Review)
		if err != nil {
			return nil, err
		}
	}

	return &Pipeline{
		cfg:        cfg,
		loader:     ingest.NewLoader(cfg.HTTP),
		extractor:  extractor,
		resolver:   geocode.NewResolver(geocoder, store, cfg.Geocode),
		classifier: classify.New(classify.PolicyFromConfig(cfg.Classify)),
		reviewer:   reviewer,
	}, nil
}

// openCache resolves the cache directory and builds the layered store.
// A nil store with nil error means caching is disabled.
func openCache(cfg model.CacheConfig) (cache.Cache, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	dir := cfg.Dir
	if dir == "" {
		var err error
		dir, err = cache.DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("resolve cache dir: %w", err)
		}
	}
	return cache.NewLayeredCache(cfg.TTL, dir, cfg.TTL), nil
}

// Run executes the full pipeline over one source: a local .txt/.md/.pdf
// path or an http(s) URL. language empty means auto-detect; limitChars > 0
// truncates the ingested text for quick runs.
//
// A nil error means the run completed, though the report may still record
// failed chunks or degraded candidates. A non-nil error means the run was
// aborted and no report exists.
func (p *Pipeline) Run(ctx context.Context, source, language string, limitChars int) (*model.Report, error) {
	started := time.Now().UTC()

	text, err := p.loader.Load(ctx, source, limitChars)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", source, err)
	}

	language, err = lang.Resolve(text, language)
	if err != nil {
		return nil, err
	}

	chunks, err := chunk.Split(text, p.cfg.Chunk.MaxChars)
	if err != nil {
		return nil, err
	}

	byChunk, failures := p.extractAll(ctx, chunks, language)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(chunks) > 0 && len(failures) == len(chunks) {
		return nil, fmt.Errorf("extraction failed for all %d chunks: %s",
			len(chunks), failures[0].Error)
	}

	agg := aggregate.New(language)
	mentionCount := 0
	for i, c := range chunks {
		agg.Add(c, byChunk[i])
		mentionCount += len(byChunk[i])
	}
	candidates := agg.Candidates()

	truncated := 0
	if limit := p.cfg.Geocode.MaxCandidates; limit > 0 && len(candidates) > limit {
		truncated = len(candidates) - limit
		candidates = candidates[:limit]
	}

	lookups, err := p.resolver.ResolveAll(ctx, candidates, language)
	if err != nil {
		return nil, err
	}

	report := &model.Report{
		RunID:               uuid.NewString(),
		Source:              source,
		Language:            language,
		Extractor:           p.extractor.Name(),
		StartedAt:           started,
		ChunkCount:          len(chunks),
		FailedChunks:        failures,
		MentionCount:        mentionCount,
		CandidateCount:      len(candidates),
		TruncatedCandidates: truncated,
		Real:                []model.PlaceRecord{},
		Fictional:           []model.PlaceRecord{},
	}
	for _, c := range chunks {
		if c.Oversized {
			report.OversizedChunks++
		}
	}
	p.partition(report, candidates, lookups)

	// Review is advisory: a failure is reported but never aborts the run.
	if p.reviewer != nil && len(report.Real) > 0 {
		flagged, err := p.reviewer.FlagOutliers(ctx, report.Real)
		if err != nil {
			fmt.Printf("Warning: outlier review failed: %v\n", err)
		} else {
			report.Flagged = flagged
		}
	}

	report.Duration = time.Since(started)
	return report, nil
}

type chunkResult struct {
	index    int
	mentions []model.RawMention
	err      error
}

// extractAll fans extraction out over the chunks on a bounded pool and
// reassembles the results by chunk index. Failed chunks come back as
// ChunkFailures sorted by index; their mention slot stays empty.
func (p *Pipeline) extractAll(ctx context.Context, chunks []model.TextChunk, language string) ([][]model.RawMention, []model.ChunkFailure) {
	tasks := make([]worker.Task[chunkResult], len(chunks))
	for i, c := range chunks {
		c := c
		tasks[i] = func(taskCtx context.Context) chunkResult {
			mentions, err := p.extractor.Extract(taskCtx, c, language)
			return chunkResult{index: c.Index, mentions: mentions, err: err}
		}
	}
	results := worker.Run(ctx, p.cfg.Extract.Concurrency, tasks)

	byChunk := make([][]model.RawMention, len(chunks))
	var failures []model.ChunkFailure
	for _, r := range results {
		if r.err != nil {
			failures = append(failures, model.ChunkFailure{
				ChunkIndex: r.index,
				Error:      r.err.Error(),
			})
			continue
		}
		byChunk[r.index] = r.mentions
	}
	sort.Slice(failures, func(i, j int) bool {
		return failures[i].ChunkIndex < failures[j].ChunkIndex
	})
	return byChunk, failures
}

// partition classifies every candidate and appends it to the matching side
// of the report, preserving first-mention order within each side. Geocode
// evidence is attached whenever the lookup produced a location, including
// low-precision matches that still land in Fictional.
func (p *Pipeline) partition(report *model.Report, candidates []model.PlaceCandidate, lookups map[string]model.GeocodeResult) {
	for _, cand := range candidates {
		geo := lookups[cand.NormalizedName]
		conf, class, reason := p.classifier.Classify(cand, geo)

		record := model.PlaceRecord{
			Candidate:      cand,
			Confidence:     conf,
			Classification: class,
			Reason:         reason,
		}
		if geo.Resolved() {
			g := geo
			record.Geocode = &g
		}
		if geo.ServiceError {
			report.Degraded++
		}

		if class == model.ClassReal {
			report.Real = append(report.Real, record)
		} else {
			report.Fictional = append(report.Fictional, record)
		}
	}
}

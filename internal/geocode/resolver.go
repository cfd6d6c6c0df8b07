package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/ppiankov/bookgeo/internal/cache"
	"github.com/ppiankov/bookgeo/internal/model"
	"github.com/ppiankov/bookgeo/internal/worker"
)

// Resolver issues one geocoding lookup per unique candidate: per-call
// timeout, bounded retries with exponential backoff and jitter on transient
// failures, optional response cache. Lookups carry no cross-candidate
// state, so they can run in any order and in parallel.
type Resolver struct {
	geocoder    Geocoder
	store       cache.Cache // nil disables caching
	timeout     time.Duration
	maxRetries  int
	concurrency int
	cacheTTL    time.Duration

	// retryBaseDelay seeds the backoff schedule. Tests shrink it.
	retryBaseDelay time.Duration
}

// NewResolver builds a resolver over g. store may be nil to disable the
// response cache (the --no-cache path).
func NewResolver(g Geocoder, store cache.Cache, cfg model.GeocodeConfig) *Resolver {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Resolver{
		geocoder:       g,
		store:          store,
		timeout:        timeout,
		maxRetries:     maxRetries,
		concurrency:    concurrency,
		cacheTTL:       cfg.Cache.TTL,
		retryBaseDelay: 500 * time.Millisecond,
	}
}

// Resolve looks up one name. A nil error with ServiceError set means every
// retry failed on transient trouble and the candidate is degraded; a
// non-nil error means the run must stop (fatal backend answer or canceled
// context).
func (r *Resolver) Resolve(ctx context.Context, name, language string) (model.GeocodeResult, error) {
	key := cache.Key(language, name)
	if r.store != nil {
		if data, ok := r.store.Get(key); ok {
			var cached model.GeocodeResult
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
		}
	}

	var result model.GeocodeResult
	err := retry.Do(
		func() error {
			callCtx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()
			got, err := r.geocoder.Geocode(callCtx, name, language)
			if err != nil {
				return err
			}
			result = got
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(r.maxRetries)+1),
		retry.Delay(r.retryBaseDelay),
		retry.MaxJitter(r.retryBaseDelay/2),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.RetryIf(func(err error) bool { return !IsFatal(err) }),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		if IsFatal(err) {
			return model.GeocodeResult{LocationType: model.LocationNone}, err
		}
		if ctx.Err() != nil {
			// The run is being torn down; no point degrading the candidate.
			return model.GeocodeResult{LocationType: model.LocationNone}, ctx.Err()
		}
		return model.GeocodeResult{
			LocationType: model.LocationNone,
			ServiceError: true,
		}, nil
	}

	if r.store != nil {
		if data, err := json.Marshal(result); err == nil {
			_ = r.store.Set(key, data, r.cacheTTL)
		}
	}
	return result, nil
}

// ResolveAll resolves every candidate on a bounded worker pool and returns
// the results keyed by normalized name. The first fatal error cancels the
// outstanding lookups and fails the run.
func (r *Resolver) ResolveAll(ctx context.Context, candidates []model.PlaceCandidate, language string) (map[string]model.GeocodeResult, error) {
	results := make(map[string]model.GeocodeResult, len(candidates))
	if len(candidates) == 0 {
		return results, nil
	}

	type lookup struct {
		name   string
		result model.GeocodeResult
		err    error
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool := worker.NewPool[lookup](runCtx, r.concurrency)
	go func() {
		defer pool.Close()
		for _, c := range candidates {
			name := c.NormalizedName
			ok := pool.Submit(func(taskCtx context.Context) lookup {
				result, err := r.Resolve(taskCtx, name, language)
				return lookup{name: name, result: result, err: err}
			})
			if !ok {
				return
			}
		}
	}()

	var fatal error
	for lk := range pool.Results() {
		if lk.err != nil {
			if fatal == nil {
				fatal = lk.err
				cancel()
			}
			continue
		}
		results[lk.name] = lk.result
	}
	if fatal != nil {
		return nil, fmt.Errorf("resolve candidates: %w", fatal)
	}
	return results, nil
}

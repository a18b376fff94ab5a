// Package reconcile refreshes source cache entries before they expire.
//
// A Job scans the stored locators of every registered source type, selects
// those whose remaining TTL is within the refresh window and refetches them
// with a bounded worker pool. One failing candidate never stops the others.
// The job does not schedule itself; a scheduler or a one-shot command calls
// Run.
package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Sternrassler/overfast-proxy/pkg/cache"
	"github.com/Sternrassler/overfast-proxy/pkg/upstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Prometheus metrics for reconciliation sweeps.
var (
	sweepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "overfast_reconcile_sweeps_total",
		Help: "Reconciliation sweeps by result",
	}, []string{"result"})

	sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "overfast_reconcile_sweep_duration_seconds",
		Help:    "Reconciliation sweep duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
	})

	candidatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "overfast_reconcile_candidates_total",
		Help: "Refresh candidates by source type and result",
	}, []string{"source", "result"})
)

// Refresher refetches one locator and overwrites its source cache entry.
// *resolver.Resolver implements it.
type Refresher interface {
	Refresh(ctx context.Context, loc cache.Locator) (cache.Record, error)
}

// Candidate is a stored locator selected for refresh.
type Candidate struct {
	Locator      cache.Locator
	RemainingTTL time.Duration
}

// Failure reports one candidate that could not be refreshed.
type Failure struct {
	Locator cache.Locator
	Err     error
}

// MarshalJSON renders the failure as {"locator": ..., "error": ...}.
func (f Failure) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Locator string `json:"locator"`
		Error   string `json:"error"`
	}{
		Locator: string(f.Locator.Source) + "-" + f.Locator.String(),
		Error:   f.Err.Error(),
	})
}

// Summary reports the outcome of one sweep.
type Summary struct {
	Found    int       `json:"found"`
	Updated  int       `json:"updated"`
	Failures []Failure `json:"failures"`
}

// Config holds the job configuration.
type Config struct {
	Cache     *cache.SourceCache
	Registry  *upstream.Registry
	Refresher Refresher

	// Window selects entries whose remaining TTL is at most this long.
	Window time.Duration

	// Concurrency bounds parallel refetches (default: 5).
	Concurrency int

	// Timeout per candidate refresh, 0 for none.
	Timeout time.Duration

	// Logger defaults to the global logger with component=reconcile.
	Logger *zerolog.Logger
}

// Job is a reconciliation sweep. It is safe to run repeatedly, but runs
// should not overlap.
type Job struct {
	cache     *cache.SourceCache
	registry  *upstream.Registry
	refresher Refresher
	window    time.Duration
	workers   int
	timeout   time.Duration
	logger    zerolog.Logger
}

// New creates a reconciliation job.
func New(cfg Config) (*Job, error) {
	if cfg.Cache == nil {
		return nil, fmt.Errorf("source cache is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("source registry is required")
	}
	if cfg.Refresher == nil {
		return nil, fmt.Errorf("refresher is required")
	}
	if cfg.Window < 0 {
		return nil, fmt.Errorf("refresh window must not be negative (got %v)", cfg.Window)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}

	logger := log.With().Str("component", "reconcile").Logger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &Job{
		cache:     cfg.Cache,
		registry:  cfg.Registry,
		refresher: cfg.Refresher,
		window:    cfg.Window,
		workers:   cfg.Concurrency,
		timeout:   cfg.Timeout,
		logger:    logger,
	}, nil
}

// Run performs one sweep. It returns an error only when the stored keys
// cannot be enumerated; per-candidate failures are reported in the summary.
func (j *Job) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	defer func() { sweepDuration.Observe(time.Since(start).Seconds()) }()

	candidates, failures, err := j.Candidates(ctx)
	if err != nil {
		sweepsTotal.WithLabelValues("scan_error").Inc()
		j.logger.Error().Err(err).Msg("Refresh sweep aborted: cannot scan source cache")
		return Summary{}, err
	}

	j.logger.Info().
		Int("candidates", len(candidates)).
		Dur("window", j.window).
		Msg("Starting refresh sweep")

	summary := Summary{
		Found:    len(candidates) + len(failures),
		Failures: failures,
	}
	for res := range j.refreshAll(ctx, candidates) {
		source := string(res.candidate.Locator.Source)
		if res.err != nil {
			candidatesTotal.WithLabelValues(source, "failed").Inc()
			summary.Failures = append(summary.Failures, Failure{Locator: res.candidate.Locator, Err: res.err})
			continue
		}
		candidatesTotal.WithLabelValues(source, "updated").Inc()
		summary.Updated++
	}
	if summary.Failures == nil {
		summary.Failures = []Failure{}
	}

	sweepsTotal.WithLabelValues("ok").Inc()
	j.logger.Info().
		Int("found", summary.Found).
		Int("updated", summary.Updated).
		Int("failed", len(summary.Failures)).
		Dur("duration", time.Since(start)).
		Msg("Refresh sweep done")

	return summary, nil
}

// Candidates scans every source type and returns the entries due for
// refresh, most urgent first. Entries whose TTL could not be read are
// returned as failures. Scans run concurrently; the first scan error
// aborts the call.
func (j *Job) Candidates(ctx context.Context) ([]Candidate, []Failure, error) {
	sources := j.registry.All()
	perSource := make([][]Candidate, len(sources))
	perSourceFailures := make([][]Failure, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			locators, err := j.cache.ScanPrefix(gctx, src.Type, src.Localized)
			if err != nil {
				return err
			}
			for _, loc := range locators {
				remaining, ok, err := j.cache.RemainingTTL(gctx, loc)
				if err != nil {
					perSourceFailures[i] = append(perSourceFailures[i], Failure{Locator: loc, Err: err})
					continue
				}
				if !ok {
					// Deleted since the scan.
					continue
				}
				if remaining <= j.window {
					perSource[i] = append(perSource[i], Candidate{Locator: loc, RemainingTTL: remaining})
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var candidates []Candidate
	var failures []Failure
	for i := range sources {
		candidates = append(candidates, perSource[i]...)
		failures = append(failures, perSourceFailures[i]...)
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].RemainingTTL < candidates[b].RemainingTTL
	})
	return candidates, failures, nil
}

type result struct {
	candidate Candidate
	err       error
}

// refreshAll processes candidates with a fixed pool of workers and streams
// one result per candidate.
func (j *Job) refreshAll(ctx context.Context, candidates []Candidate) <-chan result {
	queue := make(chan Candidate, len(candidates))
	results := make(chan result, len(candidates))

	for _, c := range candidates {
		queue <- c
	}
	close(queue)

	var wg sync.WaitGroup
	for i := 0; i < min(j.workers, len(candidates)); i++ {
		wg.Add(1)
		go j.worker(ctx, queue, results, &wg, i)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// worker refreshes candidates from the queue until it is drained.
func (j *Job) worker(ctx context.Context, queue <-chan Candidate, results chan<- result, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	processed := 0

	for c := range queue {
		if err := ctx.Err(); err != nil {
			results <- result{candidate: c, err: err}
			continue
		}

		logger := j.logger.With().
			Int("worker_id", workerID).
			Str("source", string(c.Locator.Source)).
			Str("locator", c.Locator.String()).
			Dur("remaining_ttl", c.RemainingTTL).
			Logger()
		logger.Debug().Msg("Refreshing source entry")

		rctx, cancel := ctx, context.CancelFunc(func() {})
		if j.timeout > 0 {
			rctx, cancel = context.WithTimeout(ctx, j.timeout)
		}
		_, err := j.refresher.Refresh(rctx, c.Locator)
		cancel()

		if err != nil {
			logger.Warn().Err(err).Str("error_class", string(upstream.Classify(err))).Msg("Refresh failed")
		}
		results <- result{candidate: c, err: err}
		processed++
	}

	j.logger.Debug().Int("worker_id", workerID).Int("processed", processed).Msg("Worker done")
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/matchboard/internal/domain/board"
	"github.com/riskibarqy/matchboard/internal/domain/match"
	"github.com/riskibarqy/matchboard/internal/platform/logging"
	"github.com/sourcegraph/conc/panics"
)

const (
	defaultRefreshInterval     = 20 * time.Second
	defaultRefreshFetchTimeout = 15 * time.Second
	defaultRefreshMaxWorkers   = 8
)

// DocumentFetcher re-fetches the document behind a match and extracts its
// mutable fields.
type DocumentFetcher interface {
	FetchMatch(ctx context.Context, target match.RefreshTarget) (match.RefreshResult, error)
}

// DocumentCachePurger is implemented by fetchers that cache documents. The
// refresh loop purges expired entries at the start of every cycle.
type DocumentCachePurger interface {
	PurgeDocuments() int
}

// BoardRenderer is re-invoked after a cycle that updated at least one match.
type BoardRenderer interface {
	Rerender(ctx context.Context) board.Board
}

type RefreshConfig struct {
	Interval     time.Duration
	FetchTimeout time.Duration
	MaxWorkers   int
}

func (c RefreshConfig) normalize() RefreshConfig {
	if c.Interval <= 0 {
		c.Interval = defaultRefreshInterval
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = defaultRefreshFetchTimeout
	}
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = defaultRefreshMaxWorkers
	}
	return c
}

type RefreshCycleResult struct {
	Tracked    int   `json:"tracked"`
	Updated    int   `json:"updated"`
	Unchanged  int   `json:"unchanged"`
	Failed     int   `json:"failed"`
	Discarded  int   `json:"discarded"`
	Rendered   bool  `json:"rendered"`
	DurationMs int64 `json:"duration_ms"`
}

type refreshOutcome struct {
	target match.RefreshTarget
	result match.RefreshResult
	err    error
}

// RefreshService periodically re-fetches every tracked match. Fetches fan out
// on a bounded pool; results are merged one by one after all fetches return.
type RefreshService struct {
	store    match.Store
	fetcher  DocumentFetcher
	renderer BoardRenderer
	cfg      RefreshConfig
	logger   *logging.Logger

	cycleMu sync.Mutex

	lifecycleMu sync.Mutex
	stop        chan struct{}
	done        chan struct{}
}

func NewRefreshService(store match.Store, fetcher DocumentFetcher, renderer BoardRenderer, cfg RefreshConfig, logger *logging.Logger) *RefreshService {
	if logger == nil {
		logger = logging.Default()
	}

	return &RefreshService{
		store:    store,
		fetcher:  fetcher,
		renderer: renderer,
		cfg:      cfg.normalize(),
		logger:   logger.Named("refresh"),
	}
}

// RunOnce runs a single refresh cycle. Per-match failures are counted, never
// returned; an error means the cycle could not run at all.
func (s *RefreshService) RunOnce(ctx context.Context) (RefreshCycleResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RefreshService.RunOnce")
	defer span.End()

	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	start := time.Now()
	purged := s.purgeDocuments()
	targets := refreshTargets(s.store.Snapshot())
	result := RefreshCycleResult{Tracked: len(targets)}
	if len(targets) == 0 {
		return result, nil
	}

	outcomes, err := s.fetchAll(ctx, targets)
	if err != nil {
		return result, err
	}

	for _, outcome := range outcomes {
		if outcome.err != nil {
			result.Failed++
			s.logger.WarnContext(ctx, "refresh fetch failed",
				"match_id", outcome.target.ID,
				"source_url", outcome.target.SourceURL,
				"error", outcome.err,
			)
			continue
		}
		switch s.store.MergeRefreshResult(outcome.result) {
		case match.MergeApplied:
			result.Updated++
		case match.MergeUnchanged:
			result.Unchanged++
		default:
			result.Discarded++
		}
	}

	if result.Updated > 0 && s.renderer != nil {
		s.renderer.Rerender(ctx)
		result.Rendered = true
	}

	result.DurationMs = time.Since(start).Milliseconds()
	s.logger.DebugContext(ctx, "refresh cycle finished",
		"tracked", result.Tracked,
		"updated", result.Updated,
		"unchanged", result.Unchanged,
		"failed", result.Failed,
		"discarded", result.Discarded,
		"purged_documents", purged,
		"duration_ms", result.DurationMs,
	)
	return result, nil
}

func (s *RefreshService) purgeDocuments() int {
	purger, ok := s.fetcher.(DocumentCachePurger)
	if !ok {
		return 0
	}
	return purger.PurgeDocuments()
}

func (s *RefreshService) fetchAll(ctx context.Context, targets []match.RefreshTarget) ([]refreshOutcome, error) {
	pool, err := ants.NewPool(min(s.cfg.MaxWorkers, len(targets)))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	results := make(chan refreshOutcome, len(targets))

	var workers sync.WaitGroup
	for _, target := range targets {
		target := target
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()
			results <- s.fetchOne(ctx, target)
		}); err != nil {
			workers.Done()
			results <- refreshOutcome{target: target, err: fmt.Errorf("submit fetch: %w", err)}
		}
	}

	workers.Wait()
	close(results)

	out := make([]refreshOutcome, 0, len(targets))
	for outcome := range results {
		out = append(out, outcome)
	}
	return out, nil
}

func (s *RefreshService) fetchOne(ctx context.Context, target match.RefreshTarget) refreshOutcome {
	outcome := refreshOutcome{target: target}
	if s.fetcher == nil {
		outcome.err = ErrDependencyUnavailable
		return outcome
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	var catcher panics.Catcher
	catcher.Try(func() {
		outcome.result, outcome.err = s.fetcher.FetchMatch(fetchCtx, target)
	})
	if recovered := catcher.Recovered(); recovered != nil {
		outcome.err = recovered.AsError()
	}
	if outcome.err == nil && errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
		outcome.err = fetchCtx.Err()
	}
	outcome.result.ID = target.ID
	return outcome
}

// Start launches the periodic loop. Calling Start on a running service is a
// no-op.
func (s *RefreshService) Start(ctx context.Context) {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(ctx, s.stop, s.done)

	s.logger.Info("refresh scheduler started", "interval", s.cfg.Interval.String(), "fetch_timeout", s.cfg.FetchTimeout.String())
}

// Stop signals the loop and waits for it to exit. An in-flight cycle sees its
// context cancelled.
func (s *RefreshService) Stop() {
	s.lifecycleMu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.lifecycleMu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
	s.logger.Info("refresh scheduler stopped")
}

func (s *RefreshService) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.safeCycle(ctx)
		}
	}
}

func (s *RefreshService) safeCycle(ctx context.Context) {
	var catcher panics.Catcher
	catcher.Try(func() {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.ErrorContext(ctx, "refresh cycle failed", "error", err)
		}
	})
	if recovered := catcher.Recovered(); recovered != nil {
		s.logger.ErrorContext(ctx, "refresh cycle panicked", "panic", recovered.String())
	}
}

func refreshTargets(snapshot match.Snapshot) []match.RefreshTarget {
	out := make([]match.RefreshTarget, 0, len(snapshot.Matches))
	for _, item := range snapshot.Matches {
		if strings.TrimSpace(item.SourceURL) == "" {
			continue
		}
		out = append(out, item.RefreshTarget())
	}
	return out
}

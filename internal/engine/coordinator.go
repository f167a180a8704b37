package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/wonny/yieldpilot/internal/audit"
	"github.com/wonny/yieldpilot/internal/basket"
	"github.com/wonny/yieldpilot/internal/contracts"
	"github.com/wonny/yieldpilot/internal/yield"
	"github.com/wonny/yieldpilot/pkg/logger"
	"github.com/wonny/yieldpilot/pkg/redis"
)

const (
	// FreshnessWindow is how old a cached asset sample may be before
	// the cycle recomputes it
	FreshnessWindow = 5 * time.Minute

	// CacheTTL bounds staleness of cache entries written by a cycle
	CacheTTL = 5 * time.Minute

	// HistoricalWindow is the trailing price window fed to the
	// yield calculator
	HistoricalWindow = 24 * time.Hour
)

var (
	// ErrCycleInProgress is returned when a cycle request arrives while
	// another cycle holds the single-flight guard. The request is
	// rejected immediately, never queued.
	ErrCycleInProgress = errors.New("aggregation cycle already in progress")

	// ErrDataUnavailable is returned when the market data fetch fails
	// entirely and the cycle aborts without writing any snapshot.
	ErrDataUnavailable = errors.New("market data unavailable")
)

// Advisor produces a recommendation from freshly computed snapshots
type Advisor interface {
	Advise(ctx context.Context, snapshots []*contracts.BasketYieldSnapshot, riskPreference string) (*contracts.Recommendation, error)
}

// Coordinator drives the aggregation cycle:
// fetch → compute → cache → persist → recommend → audit.
// At most one cycle body executes at a time process-wide; the guard is
// an atomic compare-and-swap owned by this instance, never ambient
// global state.
// ⭐ SSOT: cycle orchestration lives here only
type Coordinator struct {
	market     contracts.MarketDataClient
	cache      contracts.CacheStore
	calculator *yield.Calculator
	aggregator *basket.Aggregator
	catalog    *basket.Catalog
	samples    contracts.SampleRepository
	snapshots  contracts.SnapshotRepository
	advisor    Advisor
	audit      contracts.AuditRecorder
	symbols    []string
	logger     *logger.Logger

	processing     atomic.Bool
	lastCompletion atomic.Int64 // unix nanos, 0 = never
}

// NewCoordinator creates a coordinator over the tracked symbols
func NewCoordinator(
	market contracts.MarketDataClient,
	cache contracts.CacheStore,
	calculator *yield.Calculator,
	aggregator *basket.Aggregator,
	catalog *basket.Catalog,
	samples contracts.SampleRepository,
	snapshots contracts.SnapshotRepository,
	advisor Advisor,
	audit contracts.AuditRecorder,
	symbols []string,
	log *logger.Logger,
) *Coordinator {
	return &Coordinator{
		market:     market,
		cache:      cache,
		calculator: calculator,
		aggregator: aggregator,
		catalog:    catalog,
		samples:    samples,
		snapshots:  snapshots,
		advisor:    advisor,
		audit:      audit,
		symbols:    symbols,
		logger:     log,
	}
}

// CycleResult summarizes one completed aggregation cycle
type CycleResult struct {
	StartedAt      time.Time                              `json:"started_at"`
	Duration       time.Duration                          `json:"duration"`
	Samples        map[string]*contracts.AssetYieldSample `json:"samples"`
	Snapshots      []*contracts.BasketYieldSnapshot       `json:"snapshots"`
	Recommendation *contracts.Recommendation              `json:"recommendation,omitempty"`
	FailedSymbols  []string                               `json:"failed_symbols,omitempty"`
	CachedSymbols  []string                               `json:"cached_symbols,omitempty"`
}

// auditEvent is a pending audit record; events collected during the
// cycle are flushed in one step at the end so business logic stays free
// of logging I/O concerns
type auditEvent struct {
	eventType string
	payload   map[string]interface{}
}

// RunCycle executes one full aggregation cycle. A request arriving
// while another cycle runs returns ErrCycleInProgress immediately.
// Only a total market-data failure (ErrDataUnavailable) aborts the
// cycle; every other failure is contained per-asset or per-stage.
// The guard is always released on return, error paths included.
func (c *Coordinator) RunCycle(ctx context.Context) (*CycleResult, error) {
	if !c.processing.CompareAndSwap(false, true) {
		c.logger.Warn("Cycle request skipped: already running")
		return nil, ErrCycleInProgress
	}
	defer c.processing.Store(false)

	startedAt := time.Now()
	result := &CycleResult{StartedAt: startedAt}

	c.logger.WithField("symbols", c.symbols).Info("Starting aggregation cycle")

	var events []auditEvent

	// (1)-(2) obtain samples, cache-or-fresh per asset
	samples, err := c.collectSamples(ctx, startedAt, result)
	if err != nil {
		return nil, err
	}
	result.Samples = samples

	// (3) aggregate every basket over this cycle's sample set
	snapshots := c.aggregator.AggregateAll(samples, startedAt)
	result.Snapshots = snapshots

	// (4) persist to durable history (all-or-nothing) and cache
	if err := c.snapshots.SaveSnapshots(ctx, snapshots); err != nil {
		c.logger.WithError(err).Error("Failed to persist basket snapshots")
	}
	for _, s := range snapshots {
		if err := c.cache.Set(ctx, redis.BasketYieldKey(s.BasketID), s, CacheTTL); err != nil {
			c.logger.WithError(err).WithField("basket_id", s.BasketID).Warn("Basket snapshot cache write failed")
		}
		events = append(events, auditEvent{
			eventType: audit.EventBasketYieldUpdated,
			payload: map[string]interface{}{
				"basket_id":           s.BasketID,
				"weighted_yield_bp":   s.WeightedYieldBp,
				"simple_avg_yield_bp": s.SimpleAvgYieldBp,
				"assets":              len(s.Contributions),
				"computed_at":         s.ComputedAt,
			},
		})
	}

	// (5) recommendation; independent of snapshot persistence
	rec, err := c.advisor.Advise(ctx, snapshots, "")
	if err != nil {
		c.logger.WithError(err).Warn("Recommendation step failed, cycle continues")
	}
	result.Recommendation = rec

	// (6) flush audit events in one step
	c.flushEvents(ctx, events)

	// (7) record completion
	c.lastCompletion.Store(time.Now().UnixNano())
	result.Duration = time.Since(startedAt)

	c.logger.WithFields(map[string]interface{}{
		"duration":       result.Duration,
		"samples":        len(result.Samples),
		"failed_symbols": result.FailedSymbols,
		"cached_symbols": result.CachedSymbols,
	}).Info("Aggregation cycle completed")

	return result, nil
}

// collectSamples returns this cycle's sample per symbol, reusing fresh
// cached samples and computing the rest from market data. A failure on
// one symbol is logged and that symbol omitted; only a total
// market-data failure is returned as an error.
func (c *Coordinator) collectSamples(ctx context.Context, now time.Time, result *CycleResult) (map[string]*contracts.AssetYieldSample, error) {
	samples := make(map[string]*contracts.AssetYieldSample, len(c.symbols))

	var misses []string
	for _, symbol := range c.symbols {
		var cached contracts.AssetYieldSample
		found, err := c.cache.Get(ctx, redis.AssetYieldKey(symbol), &cached)
		if err != nil {
			// Cache trouble is a miss, never a cycle failure
			c.logger.WithError(err).WithField("symbol", symbol).Warn("Cache read failed, treating as miss")
			found = false
		}

		if found && now.Sub(cached.SourceTimestamp) <= FreshnessWindow {
			samples[symbol] = &cached
			result.CachedSymbols = append(result.CachedSymbols, symbol)
			continue
		}
		misses = append(misses, symbol)
	}

	if len(misses) == 0 {
		return samples, nil
	}

	history, err := c.market.FetchHistorical(ctx, misses, now.Add(-HistoricalWindow), now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	current, err := c.market.FetchCurrent(ctx, misses)
	if err != nil {
		c.logger.WithError(err).Warn("Current price fetch failed, computing from history only")
		current = nil
	}

	for _, symbol := range misses {
		series, ok := history[symbol]
		if !ok || len(series) == 0 {
			c.logger.WithField("symbol", symbol).Warn("No historical data for symbol, skipping this cycle")
			result.FailedSymbols = append(result.FailedSymbols, symbol)
			continue
		}

		if point, ok := current[symbol]; ok && point.Timestamp.After(series[len(series)-1].Timestamp) {
			series = append(series, point)
		}

		yieldBp, volatility := c.calculator.Compute(series)
		sample := &contracts.AssetYieldSample{
			Symbol:          symbol,
			YieldBp:         yieldBp,
			Volatility:      volatility,
			SourceTimestamp: now,
			Provenance:      "market-rest",
		}

		if err := c.samples.SaveSample(ctx, sample); err != nil {
			c.logger.WithError(err).WithField("symbol", symbol).Warn("Sample persistence failed, skipping symbol this cycle")
			result.FailedSymbols = append(result.FailedSymbols, symbol)
			continue
		}

		if err := c.cache.Set(ctx, redis.AssetYieldKey(symbol), sample, CacheTTL); err != nil {
			c.logger.WithError(err).WithField("symbol", symbol).Warn("Sample cache write failed")
		}

		samples[symbol] = sample
	}

	return samples, nil
}

// flushEvents hands collected events to the audit sink. Audit failures
// are logged and swallowed; they never affect the cycle outcome.
func (c *Coordinator) flushEvents(ctx context.Context, events []auditEvent) {
	for _, e := range events {
		if err := c.audit.Record(ctx, e.eventType, e.payload); err != nil {
			c.logger.WithError(err).WithField("event_type", e.eventType).Warn("Audit write failed")
		}
	}
}

// Status reports the coordinator state
func (c *Coordinator) Status() contracts.ProcessingStatus {
	status := contracts.ProcessingStatus{
		IsProcessing: c.processing.Load(),
	}
	if nanos := c.lastCompletion.Load(); nanos > 0 {
		t := time.Unix(0, nanos)
		status.LastCompletion = &t
	}
	return status
}

// LatestSnapshots returns the latest snapshot per basket, cache first,
// falling back to durable history on a miss
func (c *Coordinator) LatestSnapshots(ctx context.Context) ([]*contracts.BasketYieldSnapshot, error) {
	cached := make([]*contracts.BasketYieldSnapshot, 0, c.catalog.Size())
	for _, def := range c.catalog.All() {
		var s contracts.BasketYieldSnapshot
		found, err := c.cache.Get(ctx, redis.BasketYieldKey(def.ID), &s)
		if err != nil || !found {
			cached = nil
			break
		}
		cached = append(cached, &s)
	}
	if cached != nil {
		return cached, nil
	}

	snapshots, err := c.snapshots.LatestSnapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("load latest snapshots: %w", err)
	}

	for _, s := range snapshots {
		if err := c.cache.Set(ctx, redis.BasketYieldKey(s.BasketID), s, CacheTTL); err != nil {
			c.logger.WithError(err).Warn("Basket snapshot cache refill failed")
		}
	}
	return snapshots, nil
}

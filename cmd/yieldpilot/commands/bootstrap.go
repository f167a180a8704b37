package commands

import (
	"fmt"

	"github.com/wonny/yieldpilot/internal/advisor"
	"github.com/wonny/yieldpilot/internal/audit"
	"github.com/wonny/yieldpilot/internal/basket"
	"github.com/wonny/yieldpilot/internal/engine"
	"github.com/wonny/yieldpilot/internal/external/llm"
	"github.com/wonny/yieldpilot/internal/external/market"
	"github.com/wonny/yieldpilot/internal/external/swap"
	"github.com/wonny/yieldpilot/internal/rebalance"
	"github.com/wonny/yieldpilot/internal/yield"
	"github.com/wonny/yieldpilot/pkg/config"
	"github.com/wonny/yieldpilot/pkg/database"
	"github.com/wonny/yieldpilot/pkg/httputil"
	"github.com/wonny/yieldpilot/pkg/logger"
	"github.com/wonny/yieldpilot/pkg/redis"
)

// app holds the wired pipeline components shared by the commands
// ⭐ SSOT: component wiring lives in this file only
type app struct {
	cfg         *config.Config
	log         *logger.Logger
	db          *database.DB
	rdb         *redis.Client
	cache       *redis.Cache
	catalog     *basket.Catalog
	coordinator *engine.Coordinator
	gate        *rebalance.Gate
	portfolio   *rebalance.PortfolioRepository
	auditor     *audit.Recorder
	marketData  *market.Client
}

// newApp loads config and wires every pipeline component
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	rdb, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	cache := redis.NewCache(rdb, "yieldpilot")

	httpClient := httputil.New(log)

	marketClient := market.NewClient(cfg, httpClient, cache, log)
	llmClient := llm.NewClient(cfg, log)
	swapClient := swap.NewClient(cfg, log)

	sampleRepo := yield.NewSampleRepository(db.Pool)
	snapshotRepo := basket.NewSnapshotRepository(db.Pool)
	recRepo := advisor.NewRepository(db.Pool)
	portfolioRepo := rebalance.NewPortfolioRepository(db.Pool)
	auditor := audit.NewRecorder(db.Pool)

	catalog := basket.NewDefaultCatalog()
	calculator := yield.NewCalculator()
	aggregator := basket.NewAggregator(catalog)

	advisorEngine := advisor.NewEngine(llmClient, sampleRepo, recRepo, catalog, log)

	coordinator := engine.NewCoordinator(
		marketClient,
		cache,
		calculator,
		aggregator,
		catalog,
		sampleRepo,
		snapshotRepo,
		advisorEngine,
		auditor,
		cfg.Market.Symbols,
		log,
	)

	gate := rebalance.NewGate(portfolioRepo, recRepo, swapClient, auditor, log)

	return &app{
		cfg:         cfg,
		log:         log,
		db:          db,
		rdb:         rdb,
		cache:       cache,
		catalog:     catalog,
		coordinator: coordinator,
		gate:        gate,
		portfolio:   portfolioRepo,
		auditor:     auditor,
		marketData:  marketClient,
	}, nil
}

// close releases the app's connections
func (a *app) close() {
	if a.rdb != nil {
		a.rdb.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

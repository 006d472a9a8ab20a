package commands

import (
	"fmt"

	"github.com/wonny/quantgem/backend/internal/cache"
	"github.com/wonny/quantgem/backend/internal/data"
	"github.com/wonny/quantgem/backend/internal/engineconfig"
	"github.com/wonny/quantgem/backend/internal/marketstats"
	"github.com/wonny/quantgem/backend/internal/query"
	"github.com/wonny/quantgem/backend/internal/ranking"
	"github.com/wonny/quantgem/backend/internal/returns"
	"github.com/wonny/quantgem/backend/pkg/config"
	"github.com/wonny/quantgem/backend/pkg/database"
	"github.com/wonny/quantgem/backend/pkg/logger"
	"github.com/wonny/quantgem/backend/pkg/redis"
)

// app holds the wired components shared by every command
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	db     *database.DB
	redis  *redis.Client
	engine *engineconfig.Config
	query  *query.Service
	runner *returns.Runner
}

// newApp loads config and wires storage, engine and query layers.
// ⭐ SSOT: 의존성 조립은 여기서만
func newApp() (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if engineConfigFile != "" {
		cfg.Returns.EngineConfig = engineConfigFile
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Engine settings
	engine, err := engineconfig.Load(cfg.Returns.EngineConfig)
	if err != nil {
		return nil, fmt.Errorf("load engine config: %w", err)
	}
	hash, err := engineconfig.Hash(engine)
	if err != nil {
		return nil, fmt.Errorf("hash engine config: %w", err)
	}
	log.WithFields(map[string]interface{}{
		"path": cfg.Returns.EngineConfig,
		"hash": hash[:12],
	}).Info("Engine config loaded")

	// 4. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// 5. Redis (optional, 비활성화 시 캐시 없이 동작)
	rdb, err := redis.New(cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, falling back to in-process query cache")
		rdb = redis.Disabled()
	}

	// Redis가 꺼져 있으면 프로세스 내 캐시로 대체
	var queryCache query.Cache
	if rdb.Enabled() {
		queryCache = redis.NewCache(rdb, "quantgem:returns", cfg.Redis.CacheTTL)
	} else {
		queryCache = cache.NewMemoryCache(cfg.Redis.CacheTTL, log)
	}

	// 6. Repositories
	priceRepo := data.NewPriceRepository(db.Pool)
	returnRepo := data.NewReturnRepository(db.Pool)
	stockRepo := data.NewStockRepository(db.Pool)

	// 7. Engine
	calc := returns.NewCalculator(engine.Horizons, log)
	aggregator := marketstats.NewAggregator(engine.Statistics)
	ranker := ranking.NewRanker(engine.Ranking)

	// 8. Query service
	svc := query.NewService(query.Deps{
		Returns:    returnRepo,
		Prices:     priceRepo,
		Stocks:     stockRepo,
		Aggregator: aggregator,
		Ranker:     ranker,
		Cache:      queryCache,
		PriceDepth: engine.Statistics.PriceDepth(),
	}, log)

	// 9. Batch runner (완료 시 조회 캐시 무효화)
	runner := returns.NewRunner(priceRepo, returnRepo, calc, svc, cfg.Returns.Workers, log)

	return &app{
		cfg:    cfg,
		log:    log,
		db:     db,
		redis:  rdb,
		engine: engine,
		query:  svc,
		runner: runner,
	}, nil
}

// Close releases connections
func (a *app) Close() {
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close redis")
	}
	a.db.Close()
}

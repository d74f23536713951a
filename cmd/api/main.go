package main

import (
	"context"
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/academia-hn/enrollment-intake/internal/config"
	"github.com/academia-hn/enrollment-intake/internal/httpserver"
	"github.com/academia-hn/enrollment-intake/internal/intake"
	"github.com/academia-hn/enrollment-intake/internal/ledger"
	"github.com/academia-hn/enrollment-intake/internal/metrics"
	"github.com/academia-hn/enrollment-intake/internal/ratelimit"
	"github.com/academia-hn/enrollment-intake/internal/stats"
)

// main boots the service: config → logger → ledger backend → limiter →
// pipeline → HTTP server.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	store, cleanup, err := newLedger(cfg)
	if err != nil {
		logger.Fatal("ledger init failed", zap.Error(err))
	}
	defer cleanup()

	limiter := ratelimit.New(cfg.RateLimit, cfg.RateWindow)
	limiter.StartJanitor(context.Background())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	sink := metrics.NewPrometheusSink(reg)

	opts := []intake.Option{
		intake.WithLogger(logger),
		intake.WithMetrics(sink),
		intake.WithLedgerTimeout(cfg.LedgerTimeout),
	}
	if cfg.StatsRedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.StatsRedisAddr})
		opts = append(opts, intake.WithStats(stats.NewRedisStore(rdb)))
	}

	svc := intake.NewService(limiter, store, opts...)
	router := httpserver.NewRouter(svc, store, reg, logger)

	logger.Info("server started",
		zap.String("addr", cfg.ListenAddr),
		zap.String("ledger_backend", cfg.LedgerBackend),
		zap.Int("rate_limit", cfg.RateLimit),
		zap.Duration("rate_window", cfg.RateWindow),
	)
	if err := router.Run(cfg.ListenAddr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

// newLedger picks the configured backend. The sheet backend is the normal
// deployment; postgres serves self-hosted installs without the spreadsheet.
func newLedger(cfg config.Config) (ledger.Store, func(), error) {
	switch cfg.LedgerBackend {
	case config.BackendPostgres:
		pg, err := ledger.NewPostgresStore(cfg.DBURL)
		if err != nil {
			return nil, nil, err
		}
		if err := pg.EnsureSchema(); err != nil {
			pg.Close()
			return nil, nil, err
		}
		return pg, pg.Close, nil
	default:
		c := ledger.NewSheetClient(cfg.SheetAPIURL, cfg.SheetAPIToken, cfg.LedgerTimeout)
		return c, func() {}, nil
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

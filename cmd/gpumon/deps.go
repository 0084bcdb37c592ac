package main

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/user/gpumon/internal/config"
	"github.com/user/gpumon/internal/crawler"
	"github.com/user/gpumon/internal/fetch"
	"github.com/user/gpumon/internal/identity"
	"github.com/user/gpumon/internal/loader"
	"github.com/user/gpumon/internal/monitoring"
	"github.com/user/gpumon/internal/pipeline"
	"github.com/user/gpumon/internal/storage"
	"github.com/user/gpumon/pkg/logger"
)

// deps is everything a command needs, built once from configuration.
type deps struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *monitoring.Metrics
	sink     *storage.PostgresSink
	reports  *storage.ReportStore
	pipeline *pipeline.Pipeline
	closers  []func()
}

func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func buildDeps(opts *rootOptions) (*deps, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("could not load config: %w", err)
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	d := &deps{cfg: cfg, logger: log, registry: prometheus.NewRegistry()}
	d.closers = append(d.closers, func() { _ = log.Sync() })

	metrics := monitoring.NewMetrics(d.registry)
	d.metrics = metrics

	var fetcher fetch.Fetcher
	switch cfg.FetchMode {
	case "browser":
		b := fetch.NewBrowser(cfg.FetchTimeout, log)
		d.closers = append(d.closers, b.Close)
		fetcher = b
	default:
		fetcher = fetch.NewHTTP(cfg.FetchTimeout, cfg.MaxBodyBytes, log)
	}

	rotator, err := identity.New(cfg.UserAgents)
	if err != nil {
		return nil, err
	}
	c, err := crawler.NewCrawler(crawler.Options{
		ListingURL:      cfg.ListingURL,
		SiteOrigin:      cfg.SiteOrigin,
		ListingSelector: cfg.ListingSelector,
		ItemSelector:    cfg.ItemSelector,
		PageDelay:       crawler.Bounds{Min: cfg.PageDelayMin, Max: cfg.PageDelayMax},
		OfferDelay:      crawler.Bounds{Min: cfg.OfferDelayMin, Max: cfg.OfferDelayMax},
	}, fetcher, crawler.NewExtractor(fetcher), rotator, crawler.RandomPacer{}, metrics, log)
	if err != nil {
		return nil, err
	}

	d.sink = storage.NewPostgresSink(cfg.PostgresURL)
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	d.closers = append(d.closers, func() { _ = rdb.Close() })
	d.reports = storage.NewReportStore(rdb, cfg.ReportQueueKey)

	l := loader.New(d.sink, cfg.Table, cfg.FallbackDir, metrics, log)
	d.pipeline = pipeline.New(c, l, d.reports, cfg.StartPage, cfg.PageCount, metrics, log, time.Now)
	return d, nil
}

package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/LJTian/FeedRadar/internal/collector"
	"github.com/LJTian/FeedRadar/internal/config"
	"github.com/LJTian/FeedRadar/internal/enrich"
	"github.com/LJTian/FeedRadar/internal/logger"
	"github.com/LJTian/FeedRadar/internal/scheduler"
	"github.com/LJTian/FeedRadar/internal/storage"
)

// 仅执行一轮采集的命令行入口，结束后把本轮报告以 JSON 打到标准输出
func main() {
	log := logger.New("feedradar-collect")

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config failed", "err", err)
		os.Exit(1)
	}

	engine, err := enrich.NewDefaultEngine(cfg.NERModelDir)
	if err != nil {
		log.Error("init enrichment engine failed", "err", err)
		os.Exit(1)
	}

	store, err := storage.Open(storage.Options{
		Driver:      cfg.StoreDriver,
		DSN:         cfg.StoreDSN(),
		LockTimeout: cfg.StoreLockTimeout,
		RedisAddr:   cfg.RedisAddr,
		CacheTTL:    cfg.SearchCacheTTL,
		Logger:      log,
	})
	if err != nil {
		log.Error("init store failed", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	feeds, err := collector.LoadFeedURLs(cfg.FeedsFile)
	if err != nil {
		log.Warn("read feed list failed, running with no feeds", "path", cfg.FeedsFile, "err", err)
	}

	cycle := scheduler.NewCycle(scheduler.CycleOptions{
		Feeds:       feeds,
		Fetcher:     collector.NewRSSFetcher(cfg.FetchTimeout),
		Enricher:    engine,
		Store:       store,
		Concurrency: cfg.FetchConcurrency,
		Logger:      log,
	})

	var report scheduler.Report
	s := scheduler.New(cfg.FetchInterval, func(ctx context.Context) { report = cycle.Run(ctx) }, log)
	s.RunOnce(context.Background())

	// 常驻服务的缓存 key 只随它自己的写入失效，这里直接写了库，需要把缓存整体清掉
	if report.PostsUpserted > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		n, err := store.PurgeSearchCache(ctx)
		cancel()
		if err != nil {
			log.Warn("purge search cache failed, api may serve stale results until TTL", "err", err)
		} else if n > 0 {
			log.Info("search cache purged", "keys", n)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Error("write report failed", "err", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LJTian/FeedRadar/internal/api"
	"github.com/LJTian/FeedRadar/internal/collector"
	"github.com/LJTian/FeedRadar/internal/config"
	"github.com/LJTian/FeedRadar/internal/enrich"
	"github.com/LJTian/FeedRadar/internal/logger"
	"github.com/LJTian/FeedRadar/internal/query"
	"github.com/LJTian/FeedRadar/internal/scheduler"
	"github.com/LJTian/FeedRadar/internal/storage"
)

func main() {
	log := logger.New("feedradar-api")

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config failed", "err", err)
		os.Exit(1)
	}

	// 模型加载失败时直接退出，不带着残缺的富化能力运行
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 每次启动都从空表开始
	if err := store.Reset(ctx); err != nil {
		log.Error("reset store failed", "err", err)
		os.Exit(1)
	}

	feeds, err := collector.LoadFeedURLs(cfg.FeedsFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn("feed list not found, running with no feeds", "path", cfg.FeedsFile)
		} else {
			log.Warn("read feed list failed, running with no feeds", "path", cfg.FeedsFile, "err", err)
		}
	}
	log.Info("feed list loaded", "feeds", len(feeds))

	cycle := scheduler.NewCycle(scheduler.CycleOptions{
		Feeds:       feeds,
		Fetcher:     collector.NewRSSFetcher(cfg.FetchTimeout),
		Enricher:    engine,
		Store:       store,
		Concurrency: cfg.FetchConcurrency,
		Logger:      log,
	})
	sched := scheduler.New(cfg.FetchInterval, func(ctx context.Context) { cycle.Run(ctx) }, log)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), api.CORS(cfg.CORSAllowOrigins))
	api.NewServer(query.NewService(store), api.Options{
		RatePerMinute: cfg.SearchRatePerMinute,
		WebRoot:       cfg.WebRoot,
		Logger:        log,
	}).RegisterRoutes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("starting api server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server exit", "err", err)
			stop()
		}
	}()

	// 首轮采集在调度 goroutine 中同步完成，查询服务同时可用
	go func() {
		if err := sched.Start(ctx); err != nil {
			log.Error("start scheduler failed", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
	sched.Stop()
	log.Info("bye")
}

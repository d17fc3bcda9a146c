package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/LJTian/FeedRadar/internal/collector"
	"github.com/LJTian/FeedRadar/internal/enrich"
	"github.com/LJTian/FeedRadar/internal/processor"
	"github.com/LJTian/FeedRadar/internal/storage"
)

// Enricher 对一段文本做情感、行业与关键词富化
type Enricher interface {
	Enrich(text string) (enrich.Result, error)
}

// Store 是周期任务需要的写入接口
type Store interface {
	Upsert(ctx context.Context, post *storage.FeedPost) (storage.Outcome, error)
}

type FeedStatus string

const (
	FeedOK          FeedStatus = "ok"
	FeedFetchFailed FeedStatus = "fetch_failed"
	FeedParseFailed FeedStatus = "parse_failed"
)

type FeedReport struct {
	URL       string     `json:"url"`
	Status    FeedStatus `json:"status"`
	Error     string     `json:"error,omitempty"`
	Entries   int        `json:"entries"`
	Inserted  int        `json:"inserted"`
	Updated   int        `json:"updated"`
	Unchanged int        `json:"unchanged"`
	Skipped   int        `json:"skipped"`
}

// Report 汇总一轮采集；PostsUpserted 只统计真正写库的条目
type Report struct {
	CycleID            string        `json:"cycleId"`
	FeedsAttempted     int           `json:"feedsAttempted"`
	FeedsFailedToFetch int           `json:"feedsFailedToFetch"`
	FeedsFailedToParse int           `json:"feedsFailedToParse"`
	PostsUpserted      int           `json:"postsUpserted"`
	Inserted           int           `json:"inserted"`
	Updated            int           `json:"updated"`
	Unchanged          int           `json:"unchanged"`
	Skipped            int           `json:"skipped"`
	Feeds              []FeedReport  `json:"feeds"`
	Duration           time.Duration `json:"duration"`
}

type CycleOptions struct {
	Feeds       []string
	Fetcher     collector.Fetcher
	Enricher    Enricher
	Store       Store
	Concurrency int
	Logger      *slog.Logger
}

// Cycle 是一轮完整的 拉取 -> 规范化 -> 富化 -> 入库
type Cycle struct {
	feeds       []string
	fetcher     collector.Fetcher
	enricher    Enricher
	store       Store
	concurrency int
	log         *slog.Logger
}

func NewCycle(opts CycleOptions) *Cycle {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Cycle{
		feeds:       opts.Feeds,
		fetcher:     opts.Fetcher,
		enricher:    opts.Enricher,
		store:       opts.Store,
		concurrency: opts.Concurrency,
		log:         opts.Logger,
	}
}

// prepared 是单个订阅源在入库前的结果
type prepared struct {
	posts   []*storage.FeedPost
	skipped int
	err     error
}

// Run 执行一轮采集。各订阅源并发拉取与富化，不持有存储锁；
// 入库按配置顺序逐条进行，同键时后出现的条目覆盖先出现的。
func (c *Cycle) Run(ctx context.Context) Report {
	start := time.Now()
	rep := Report{CycleID: uuid.NewString(), Feeds: make([]FeedReport, 0, len(c.feeds))}
	log := c.log.With("cycle_id", rep.CycleID)

	if len(c.feeds) == 0 {
		log.Warn("no feeds configured, nothing to fetch")
		rep.Duration = time.Since(start)
		return rep
	}

	log.Info("start fetch cycle", "feeds", len(c.feeds))

	results := make([]prepared, len(c.feeds))
	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, url := range c.feeds {
		i, url := i, url
		g.Go(func() error {
			results[i] = c.prepare(ctx, log.With("feed", url), url)
			return nil
		})
	}
	_ = g.Wait()

	for i, url := range c.feeds {
		res := results[i]
		fr := FeedReport{URL: url, Status: FeedOK, Skipped: res.skipped}
		rep.FeedsAttempted++

		if res.err != nil {
			fr.Error = res.err.Error()
			if errors.Is(res.err, collector.ErrMalformedFeed) {
				fr.Status = FeedParseFailed
				rep.FeedsFailedToParse++
			} else {
				fr.Status = FeedFetchFailed
				rep.FeedsFailedToFetch++
			}
			log.Warn("skip feed", "feed", url, "status", fr.Status, "err", res.err)
			rep.Feeds = append(rep.Feeds, fr)
			continue
		}

		fr.Entries = len(res.posts) + res.skipped
		for _, p := range res.posts {
			out, err := c.store.Upsert(ctx, p)
			if err != nil {
				fr.Skipped++
				log.Error("upsert entry failed", "feed", url, "published_at", p.PublishedAt, "err", err)
				continue
			}
			switch out {
			case storage.Inserted:
				fr.Inserted++
			case storage.Updated:
				fr.Updated++
			default:
				fr.Unchanged++
			}
		}

		rep.Inserted += fr.Inserted
		rep.Updated += fr.Updated
		rep.Unchanged += fr.Unchanged
		rep.Skipped += fr.Skipped
		rep.Feeds = append(rep.Feeds, fr)
		log.Debug("feed done", "feed", url, "entries", fr.Entries, "inserted", fr.Inserted, "updated", fr.Updated, "skipped", fr.Skipped)
	}

	rep.PostsUpserted = rep.Inserted + rep.Updated
	rep.Duration = time.Since(start)
	log.Info("fetch cycle done",
		"feeds", rep.FeedsAttempted,
		"fetch_failed", rep.FeedsFailedToFetch,
		"parse_failed", rep.FeedsFailedToParse,
		"upserted", rep.PostsUpserted,
		"unchanged", rep.Unchanged,
		"skipped", rep.Skipped,
		"duration", rep.Duration,
	)
	return rep
}

func (c *Cycle) prepare(ctx context.Context, log *slog.Logger, url string) (res prepared) {
	defer func() {
		if r := recover(); r != nil {
			res = prepared{err: fmt.Errorf("panic while processing feed: %v", r)}
		}
	}()

	feed, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		return prepared{err: err}
	}

	for _, item := range feed.Items {
		entry, err := processor.Normalize(item)
		if err != nil {
			res.skipped++
			log.Warn("skip malformed entry", "err", err)
			continue
		}
		result, err := c.enricher.Enrich(entry.EnrichmentText())
		if err != nil {
			res.skipped++
			log.Warn("skip entry, enrichment failed", "published_at", entry.PublishedAt, "err", err)
			continue
		}
		res.posts = append(res.posts, toPost(entry, result))
	}
	return res
}

func toPost(e processor.Entry, r enrich.Result) *storage.FeedPost {
	return &storage.FeedPost{
		Title:       e.Title,
		Description: e.Description,
		Author:      e.Author,
		Categories:  e.Categories,
		Sentiment:   r.Sentiment,
		Sector:      r.Sector,
		Keywords:    datatypes.NewJSONType(r.Keywords.Normalized()),
		PublishedAt: e.PublishedAt,
		Link:        e.Link,
	}
}

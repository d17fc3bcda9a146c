package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/require"

	"github.com/LJTian/FeedRadar/internal/collector"
	"github.com/LJTian/FeedRadar/internal/enrich"
	"github.com/LJTian/FeedRadar/internal/logger"
	"github.com/LJTian/FeedRadar/internal/storage"
)

type stubFetcher struct {
	feeds map[string]*gofeed.Feed
	errs  map[string]error
}

func (f stubFetcher) Fetch(_ context.Context, url string) (*gofeed.Feed, error) {
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if url == "panic://" {
		panic("fetcher exploded")
	}
	feed, ok := f.feeds[url]
	if !ok {
		return nil, fmt.Errorf("%w: unknown url %s", collector.ErrFetchFailed, url)
	}
	return feed, nil
}

type stubEnricher struct{}

func (stubEnricher) Enrich(text string) (enrich.Result, error) {
	if strings.Contains(text, "unenrichable") {
		return enrich.Result{}, errors.New("recognizer failed")
	}
	return enrich.Result{Sentiment: enrich.Neutral, Sector: enrich.ClassifySector(text, enrich.DefaultSectorRules), Keywords: enrich.NewKeywords()}, nil
}

type memStore struct {
	mu    sync.Mutex
	posts map[string]*storage.FeedPost
	order []string
}

func (m *memStore) Upsert(_ context.Context, p *storage.FeedPost) (storage.Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.posts == nil {
		m.posts = map[string]*storage.FeedPost{}
	}
	if old, ok := m.posts[p.PublishedAt]; ok {
		if old.Title == p.Title {
			return storage.Unchanged, nil
		}
		m.posts[p.PublishedAt] = p
		return storage.Updated, nil
	}
	m.posts[p.PublishedAt] = p
	m.order = append(m.order, p.PublishedAt)
	return storage.Inserted, nil
}

func item(title, published string) *gofeed.Item {
	return &gofeed.Item{Title: title, Description: "body", Published: published, Link: "https://example.com/" + title}
}

func TestCycleCountsAndSkips(t *testing.T) {
	fetcher := stubFetcher{
		feeds: map[string]*gofeed.Feed{
			"a": {Items: []*gofeed.Item{item("army parade", "d1"), item("market", "d2"), nil}},
			"b": {Items: []*gofeed.Item{item("unenrichable", "d3"), item("football", "d4")}},
		},
		errs: map[string]error{
			"bad":  fmt.Errorf("%w: not xml", collector.ErrMalformedFeed),
			"down": fmt.Errorf("%w: status 503", collector.ErrFetchFailed),
		},
	}
	store := &memStore{}
	c := NewCycle(CycleOptions{
		Feeds:       []string{"a", "bad", "b", "down", "panic://"},
		Fetcher:     fetcher,
		Enricher:    stubEnricher{},
		Store:       store,
		Concurrency: 2,
		Logger:      logger.Discard(),
	})

	rep := c.Run(context.Background())

	require.NotEmpty(t, rep.CycleID)
	require.Equal(t, 5, rep.FeedsAttempted)
	require.Equal(t, 1, rep.FeedsFailedToParse)
	require.Equal(t, 2, rep.FeedsFailedToFetch)
	require.Equal(t, 3, rep.PostsUpserted)
	require.Equal(t, 3, rep.Inserted)
	require.Equal(t, 2, rep.Skipped)
	require.Len(t, rep.Feeds, 5)
	require.Equal(t, FeedParseFailed, rep.Feeds[1].Status)
	require.Equal(t, FeedFetchFailed, rep.Feeds[4].Status)
	require.Equal(t, []string{"d1", "d2", "d4"}, store.order)
	require.Equal(t, enrich.Defense, store.posts["d1"].Sector)
	require.Equal(t, enrich.Sports, store.posts["d4"].Sector)
}

func TestCycleLaterEntriesWinInFeedOrder(t *testing.T) {
	fetcher := stubFetcher{feeds: map[string]*gofeed.Feed{
		"first":  {Items: []*gofeed.Item{item("from first", "Unknown Date")}},
		"second": {Items: []*gofeed.Item{item("from second", "")}},
	}}
	store := &memStore{}
	c := NewCycle(CycleOptions{
		Feeds:       []string{"first", "second"},
		Fetcher:     fetcher,
		Enricher:    stubEnricher{},
		Store:       store,
		Concurrency: 4,
		Logger:      logger.Discard(),
	})

	rep := c.Run(context.Background())
	require.Equal(t, 1, rep.Inserted)
	require.Equal(t, 1, rep.Updated)
	require.Equal(t, "from second", store.posts["Unknown Date"].Title)
}

func TestCycleWithoutFeeds(t *testing.T) {
	c := NewCycle(CycleOptions{Fetcher: stubFetcher{}, Enricher: stubEnricher{}, Store: &memStore{}, Logger: logger.Discard()})
	rep := c.Run(context.Background())
	require.Zero(t, rep.FeedsAttempted)
	require.Zero(t, rep.PostsUpserted)
}

func TestCycleIsIdempotentAgainstStore(t *testing.T) {
	ctx := context.Background()
	store, err := storage.Open(storage.Options{Driver: storage.DriverSQLite, DSN: ":memory:", Logger: logger.Discard()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Reset(ctx))

	fetcher := stubFetcher{feeds: map[string]*gofeed.Feed{
		"a": {Items: []*gofeed.Item{item("one", "d1"), item("two", "d2")}},
		"b": {Items: []*gofeed.Item{item("three", "d3")}},
	}}
	c := NewCycle(CycleOptions{
		Feeds:       []string{"a", "b"},
		Fetcher:     fetcher,
		Enricher:    stubEnricher{},
		Store:       store,
		Concurrency: 2,
		Logger:      logger.Discard(),
	})

	first := c.Run(ctx)
	require.Equal(t, 3, first.Inserted)

	second := c.Run(ctx)
	require.Zero(t, second.PostsUpserted)
	require.Equal(t, 3, second.Unchanged)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)
}

func TestSchedulerStartCompletesFirstCycle(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	c := NewCycle(CycleOptions{
		Feeds:    []string{"a"},
		Fetcher:  stubFetcher{feeds: map[string]*gofeed.Feed{"a": {Items: []*gofeed.Item{item("x", "d1")}}}},
		Enricher: stubEnricher{},
		Store:    store,
		Logger:   logger.Discard(),
	})

	s := New(DefaultPeriod, func(ctx context.Context) { c.Run(ctx) }, logger.Discard())
	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.posts, 1)
}

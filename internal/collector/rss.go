package collector

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
)

const (
	rssMaxResponseBytes = 10 << 20 // 10MB
	rssUserAgent        = "FeedRadar/1.0 (+https://github.com/LJTian/FeedRadar)"
)

// RSSFetcher 拉取 RSS/Atom 文档并交给 gofeed 解析
type RSSFetcher struct {
	client *http.Client
}

func NewRSSFetcher(timeout time.Duration) *RSSFetcher {
	return &RSSFetcher{client: &http.Client{Timeout: timeout}}
}

func (f *RSSFetcher) Fetch(ctx context.Context, url string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request for %s: %v", ErrFetchFailed, url, err)
	}
	req.Header.Set("User-Agent", rssUserAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", ErrFetchFailed, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s: unexpected status %d", ErrFetchFailed, url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, rssMaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrFetchFailed, url, err)
	}

	// gofeed.Parser 不是并发安全的，每次请求单独构造
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedFeed, url, err)
	}
	return feed, nil
}

package collector

import (
	"context"
	"errors"

	"github.com/mmcdole/gofeed"
)

var (
	// ErrMalformedFeed 表示响应体不是可解析的 RSS/Atom 文档
	ErrMalformedFeed = errors.New("malformed feed")
	// ErrFetchFailed 表示网络、超时或非 2xx 状态码
	ErrFetchFailed = errors.New("fetch failed")
)

// Fetcher 抽象一个订阅源的拉取与解析
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*gofeed.Feed, error)
}

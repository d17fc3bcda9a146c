package query

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/LJTian/FeedRadar/internal/storage"
)

// MaxQueryLength 是去掉首尾空白后允许的最大字符数
const MaxQueryLength = 100

// ErrInvalidQuery 表示查询为空或过长，属于调用方错误
var ErrInvalidQuery = errors.New("invalid search query")

// disallowed 匹配字母、数字、下划线、空白之外的字符
var disallowed = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)

// Searcher 是查询服务依赖的只读存储接口
type Searcher interface {
	SearchSubstring(ctx context.Context, q string) ([]storage.FeedPost, error)
}

type Service struct {
	store Searcher
}

func NewService(store Searcher) *Service {
	return &Service{store: store}
}

// Search 校验并清洗查询串后做子串检索；清洗后为空串时匹配全部记录
func (s *Service) Search(ctx context.Context, raw string) ([]storage.FeedPost, error) {
	q, err := Sanitize(raw)
	if err != nil {
		return nil, err
	}
	return s.store.SearchSubstring(ctx, q)
}

func Sanitize(raw string) (string, error) {
	q := strings.TrimSpace(raw)
	if q == "" || utf8.RuneCountInString(q) > MaxQueryLength {
		return "", ErrInvalidQuery
	}
	return disallowed.ReplaceAllString(q, ""), nil
}

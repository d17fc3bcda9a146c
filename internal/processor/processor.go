package processor

import (
	"errors"
	"strings"

	"github.com/mmcdole/gofeed"
)

const (
	DefaultTitle       = "No Title"
	DefaultDescription = "No Description"
	DefaultAuthor      = "Unknown Author"
	DefaultCategories  = "Uncategorized"
	DefaultPublishedAt = "Unknown Date"
	DefaultLink        = "No Link"
)

// ErrMalformedEntry 表示条目缺失到无法规范化
var ErrMalformedEntry = errors.New("malformed feed entry")

// Entry 是写入存储层前的规范化条目，所有字段都保证非空
type Entry struct {
	Title       string
	Description string
	Author      string
	Categories  string
	PublishedAt string
	Link        string
}

// EnrichmentText 是交给富化引擎的文本
func (e Entry) EnrichmentText() string {
	return e.Title + " " + e.Description
}

func Normalize(item *gofeed.Item) (Entry, error) {
	if item == nil {
		return Entry{}, ErrMalformedEntry
	}

	return Entry{
		Title:       StripNonPrintable(orDefault(item.Title, DefaultTitle)),
		Description: StripNonPrintable(orDefault(item.Description, DefaultDescription)),
		Author:      author(item),
		Categories:  categories(item.Categories),
		PublishedAt: orDefault(item.Published, DefaultPublishedAt),
		Link:        orDefault(item.Link, DefaultLink),
	}, nil
}

// StripNonPrintable 只保留可打印 ASCII 以及 \t \n \r
func StripNonPrintable(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 0x20 && r <= 0x7e) || r == '\t' || r == '\n' || r == '\r' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func author(item *gofeed.Item) string {
	if item.Author != nil && strings.TrimSpace(item.Author.Name) != "" {
		return item.Author.Name
	}
	for _, p := range item.Authors {
		if p != nil && strings.TrimSpace(p.Name) != "" {
			return p.Name
		}
	}
	if item.Author != nil && strings.TrimSpace(item.Author.Email) != "" {
		return item.Author.Email
	}
	return DefaultAuthor
}

func categories(terms []string) string {
	kept := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		return DefaultCategories
	}
	return strings.Join(kept, ", ")
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

package collector

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Example</title>
  <link>https://example.com</link>
  <description>Example feed</description>
  <item>
    <title>First post</title>
    <link>https://example.com/1</link>
    <description>Hello world</description>
    <pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
    <category>news</category>
  </item>
  <item>
    <title>Second post</title>
    <link>https://example.com/2</link>
  </item>
</channel>
</rss>`

func TestLoadFeedURLs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feeds.txt")
	content := "  https://a.example/rss  \n\n\t\nhttps://b.example/atom\n   \n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	urls, err := LoadFeedURLs(path)
	require.NoError(t, err)
	require.Equal(t, []string{"https://a.example/rss", "https://b.example/atom"}, urls)
}

func TestLoadFeedURLsMissingFile(t *testing.T) {
	_, err := LoadFeedURLs(filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
	require.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestRSSFetcherParsesFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	feed, err := NewRSSFetcher(5*time.Second).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, feed.Items, 2)
	require.Equal(t, "First post", feed.Items[0].Title)
	require.Equal(t, "Mon, 02 Jan 2006 15:04:05 GMT", feed.Items[0].Published)
	require.Equal(t, []string{"news"}, feed.Items[0].Categories)
}

func TestRSSFetcherMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("this is not a feed"))
	}))
	defer srv.Close()

	_, err := NewRSSFetcher(5*time.Second).Fetch(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrMalformedFeed)
	require.NotErrorIs(t, err, ErrFetchFailed)
}

func TestRSSFetcherHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewRSSFetcher(5*time.Second).Fetch(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrFetchFailed)
	require.NotErrorIs(t, err, ErrMalformedFeed)
}

func TestRSSFetcherUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewRSSFetcher(time.Second).Fetch(context.Background(), url)
	require.ErrorIs(t, err, ErrFetchFailed)
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/LJTian/FeedRadar/internal/query"
	"github.com/LJTian/FeedRadar/internal/storage"
)

// Searcher 是 HTTP 层依赖的查询接口，通常由 query.Service 实现
type Searcher interface {
	Search(ctx context.Context, raw string) ([]storage.FeedPost, error)
}

type Options struct {
	RatePerMinute int
	WebRoot       string // 为空时不托管 index.html
	Logger        *slog.Logger
}

type Server struct {
	search  Searcher
	limiter *ipLimiter
	webRoot string
	log     *slog.Logger
}

func NewServer(search Searcher, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		search:  search,
		limiter: newIPLimiter(opts.RatePerMinute),
		webRoot: opts.WebRoot,
		log:     log,
	}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	limited := s.limiter.middleware()
	r.GET("/search", limited, s.searchTuples)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/posts/search", limited, s.searchPosts)
	}

	if s.webRoot != "" {
		indexFile := filepath.Join(s.webRoot, "index.html")
		r.GET("/", func(c *gin.Context) {
			c.File(indexFile)
		})
	}
}

// CORS 返回跨域中间件；origins 含 "*" 时放行所有来源
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			break
		}
	}
	if !cfg.AllowAllOrigins {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// searchTuples 返回 9 元组数组：
// [title, description, author, categories, sentiment, sector, keywords_json, published_at, link]
func (s *Server) searchTuples(c *gin.Context) {
	posts, ok := s.runSearch(c, func(status int, msg string) {
		c.JSON(status, gin.H{"error": msg})
	})
	if !ok {
		return
	}

	rows := make([][]any, 0, len(posts))
	for i := range posts {
		rows = append(rows, toTuple(&posts[i]))
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) searchPosts(c *gin.Context) {
	posts, ok := s.runSearch(c, func(status int, msg string) {
		code := "internal_error"
		if status == http.StatusBadRequest {
			code = "invalid_query"
		}
		c.JSON(status, gin.H{"code": code, "message": msg})
	})
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    posts,
	})
}

func (s *Server) runSearch(c *gin.Context, fail func(status int, msg string)) ([]storage.FeedPost, bool) {
	raw := c.Query("query")
	posts, err := s.search.Search(c.Request.Context(), raw)
	switch {
	case errors.Is(err, query.ErrInvalidQuery):
		s.log.Debug("rejected search query", "query_len", len(raw))
		fail(http.StatusBadRequest, "Invalid search query")
		return nil, false
	case err != nil:
		s.log.Error("search failed", "err", err)
		fail(http.StatusInternalServerError, "internal server error")
		return nil, false
	}
	return posts, true
}

func toTuple(p *storage.FeedPost) []any {
	kw, err := json.Marshal(p.Keywords.Data().Normalized())
	if err != nil {
		kw = []byte("{}")
	}
	return []any{
		p.Title,
		p.Description,
		p.Author,
		p.Categories,
		string(p.Sentiment),
		string(p.Sector),
		string(kw),
		p.PublishedAt,
		p.Link,
	}
}

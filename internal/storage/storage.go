package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/semaphore"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/LJTian/FeedRadar/internal/enrich"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	defaultLockTimeout = 10 * time.Second
)

// ErrLockTimeout 表示在限定时间内没有拿到存储锁
var ErrLockTimeout = errors.New("storage: lock acquisition timed out")

// FeedPost 是持久化的富化条目，以 published_at 作为去重键
type FeedPost struct {
	ID          uint64                              `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string                              `gorm:"type:text" json:"title"`
	Description string                              `gorm:"type:text" json:"description"`
	Author      string                              `gorm:"type:text" json:"author"`
	Categories  string                              `gorm:"type:text" json:"categories"`
	Sentiment   enrich.Sentiment                    `gorm:"size:16;not null" json:"sentiment"`
	Sector      enrich.Sector                       `gorm:"size:32;not null" json:"sector"`
	Keywords    datatypes.JSONType[enrich.Keywords] `json:"keywords"`
	PublishedAt string                              `gorm:"not null;uniqueIndex" json:"publishedAt"`
	Link        string                              `gorm:"type:text" json:"link"`
}

// upsertColumns 是冲突时整体覆盖的列，id 不在其中
var upsertColumns = []string{
	"title", "description", "author", "categories",
	"sentiment", "sector", "keywords", "link",
}

func (p *FeedPost) sameContent(o *FeedPost) bool {
	return p.Title == o.Title &&
		p.Description == o.Description &&
		p.Author == o.Author &&
		p.Categories == o.Categories &&
		p.Sentiment == o.Sentiment &&
		p.Sector == o.Sector &&
		p.PublishedAt == o.PublishedAt &&
		p.Link == o.Link &&
		reflect.DeepEqual(p.Keywords.Data().Normalized(), o.Keywords.Data().Normalized())
}

// Outcome 描述一次 Upsert 的结果
type Outcome int

const (
	Unchanged Outcome = iota
	Inserted
	Updated
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	default:
		return "unchanged"
	}
}

type Options struct {
	Driver      string // sqlite / postgres
	DSN         string
	LockTimeout time.Duration

	RedisAddr string // 为空时不启用搜索缓存
	CacheTTL  time.Duration

	Logger *slog.Logger
}

// Store 的所有读写都经过同一把容量为 1 的信号量，读者不会看到半写入的记录
type Store struct {
	DB    *gorm.DB
	Redis *redis.Client

	sem         *semaphore.Weighted
	lockTimeout time.Duration
	generation  atomic.Uint64
	cache       *searchCache
	log         *slog.Logger
}

func Open(opts Options) (*Store, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = defaultLockTimeout
	}

	var dialector gorm.Dialector
	switch opts.Driver {
	case DriverPostgres:
		dialector = postgres.Open(opts.DSN)
	case DriverSQLite, "":
		dialector = sqlite.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", opts.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", opts.Driver, err)
	}

	if db.Dialector.Name() == DriverSQLite {
		// sqlite 单连接：:memory: 库才能在连接间共享，写入也无需等待文件锁
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("storage: sql handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
	}

	if err := db.AutoMigrate(&FeedPost{}); err != nil {
		return nil, fmt.Errorf("storage: migrate: %w", err)
	}

	s := &Store{
		DB:          db,
		sem:         semaphore.NewWeighted(1),
		lockTimeout: opts.LockTimeout,
		log:         log,
	}

	if opts.RedisAddr != "" {
		// 缓存只是加速手段，Redis 卡住时要尽快放弃而不是拖慢查询
		rdb := redis.NewClient(&redis.Options{
			Addr:                  opts.RedisAddr,
			DialTimeout:           cacheDialTimeout,
			ReadTimeout:           cacheOpTimeout,
			WriteTimeout:          cacheOpTimeout,
			ContextTimeoutEnabled: true,
			MaxRetries:            -1,
		})

		ctx, cancel := context.WithTimeout(context.Background(), cacheDialTimeout)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis ping failed, search cache may miss", "addr", opts.RedisAddr, "err", err)
		}
		s.Redis = rdb
		s.cache = newSearchCache(rdb, opts.CacheTTL, log)
	}

	return s, nil
}

// acquire 在 lockTimeout 内拿锁，返回释放函数
func (s *Store) acquire(ctx context.Context) (func(), error) {
	actx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()
	if err := s.sem.Acquire(actx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrLockTimeout
	}
	return func() { s.sem.Release(1) }, nil
}

// Reset 删除并重建表，进程启动时调用一次
func (s *Store) Reset(ctx context.Context) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	db := s.DB.WithContext(ctx)
	if err := db.Migrator().DropTable(&FeedPost{}); err != nil {
		return fmt.Errorf("storage: drop feed_posts: %w", err)
	}
	if err := db.AutoMigrate(&FeedPost{}); err != nil {
		return fmt.Errorf("storage: create feed_posts: %w", err)
	}
	s.generation.Add(1)
	return nil
}

// Upsert 以 published_at 为键写入一条记录。
// 已存在且内容完全一致时不写库；否则整行覆盖，id 保持不变。成功后 post.ID 为库中 id。
func (s *Store) Upsert(ctx context.Context, post *FeedPost) (Outcome, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return Unchanged, err
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()
	db := s.DB.WithContext(ctx)

	var existing FeedPost
	res := db.Where("published_at = ?", post.PublishedAt).Limit(1).Find(&existing)
	if res.Error != nil {
		return Unchanged, fmt.Errorf("storage: load %q: %w", post.PublishedAt, res.Error)
	}
	found := res.RowsAffected > 0

	if found && existing.sameContent(post) {
		post.ID = existing.ID
		return Unchanged, nil
	}

	row := *post
	row.ID = 0
	row.Keywords = datatypes.NewJSONType(post.Keywords.Data().Normalized())
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "published_at"}},
		DoUpdates: clause.AssignmentColumns(upsertColumns),
	}).Create(&row).Error
	if err != nil {
		return Unchanged, fmt.Errorf("storage: upsert %q: %w", post.PublishedAt, err)
	}
	s.generation.Add(1)

	if found {
		post.ID = existing.ID
		return Updated, nil
	}
	post.ID = row.ID
	return Inserted, nil
}

// SearchSubstring 返回 title / description / categories 任一字段包含 q 的记录（区分大小写），按 id 升序。
// 不使用 LIKE，q 中的 % 和 _ 按字面匹配。
// 存储锁只覆盖数据库查询，Redis 读写都在锁外进行。
func (s *Store) SearchSubstring(ctx context.Context, q string) ([]FeedPost, error) {
	if s.cache != nil {
		if cached, ok := s.cache.get(ctx, s.generation.Load(), q); ok {
			return cached, nil
		}
	}

	list, gen, err := s.searchDB(ctx, q)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.set(ctx, gen, q, list)
	}
	return list, nil
}

// searchDB 在锁内查询，并返回查询时的写入代数
func (s *Store) searchDB(ctx context.Context, q string) ([]FeedPost, uint64, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer release()

	gen := s.generation.Load()

	ctx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	contains := "instr(%s, ?) > 0"
	if s.DB.Dialector.Name() == DriverPostgres {
		contains = "strpos(%s, ?) > 0"
	}
	cond := fmt.Sprintf(contains, "title") + " OR " +
		fmt.Sprintf(contains, "description") + " OR " +
		fmt.Sprintf(contains, "categories")

	list := make([]FeedPost, 0)
	if err := s.DB.WithContext(ctx).Where(cond, q, q, q).Order("id ASC").Find(&list).Error; err != nil {
		return nil, 0, fmt.Errorf("storage: search: %w", err)
	}
	return list, gen, nil
}

// PurgeSearchCache 删除所有进程写入的搜索缓存。
// 其他进程（例如 cmd/collect）直接写库后调用，让正在运行的服务不再命中旧结果。
func (s *Store) PurgeSearchCache(ctx context.Context) (int, error) {
	if s.cache == nil {
		return 0, nil
	}
	return s.cache.purge(ctx)
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	var n int64
	if err := s.DB.WithContext(ctx).Model(&FeedPost{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("storage: count: %w", err)
	}
	return n, nil
}

func (s *Store) Close() error {
	var errs []error
	if s.Redis != nil {
		errs = append(errs, s.Redis.Close())
	}
	if sqlDB, err := s.DB.DB(); err == nil {
		errs = append(errs, sqlDB.Close())
	} else {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultPeriod 是两轮采集之间的默认间隔
const DefaultPeriod = 5 * time.Minute

var ErrAlreadyStarted = errors.New("scheduler already started")

// Job 是一次周期任务，收到的 ctx 不会被取消
type Job func(ctx context.Context)

// Scheduler 启动时先同步执行一次任务，然后按固定周期执行。
// 任意时刻最多只有一个任务在跑；Stop 会等待正在执行的任务结束。
type Scheduler struct {
	period time.Duration
	job    Job
	log    *slog.Logger
	cron   *cron.Cron

	runMu sync.Mutex

	lifeMu  sync.Mutex
	started bool
	stopped bool
}

func New(period time.Duration, job Job, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	cl := cronLogger{log: log}
	return &Scheduler{
		period: period,
		job:    job,
		log:    log,
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
}

// Start 同步执行首轮任务后再注册周期调度，返回时首轮已经结束
func (s *Scheduler) Start(ctx context.Context) error {
	s.lifeMu.Lock()
	if s.started {
		s.lifeMu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.lifeMu.Unlock()

	jobCtx := context.WithoutCancel(ctx)
	s.run(jobCtx)

	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	if s.stopped {
		return nil
	}
	s.cron.Schedule(cron.Every(s.period), cron.FuncJob(func() { s.run(jobCtx) }))
	s.cron.Start()
	s.log.Info("scheduler started", "period", s.period)
	return nil
}

// RunOnce 立即执行一次任务，与周期任务互斥
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.run(context.WithoutCancel(ctx))
}

// Stop 阻止后续执行并等待正在执行的任务结束，可重复调用
func (s *Scheduler) Stop() {
	s.lifeMu.Lock()
	s.stopped = true
	s.lifeMu.Unlock()

	<-s.cron.Stop().Done()

	s.runMu.Lock()
	s.runMu.Unlock()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	s.lifeMu.Lock()
	stopped := s.stopped
	s.lifeMu.Unlock()
	if stopped {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("scheduled job panicked", "panic", r)
		}
	}()
	s.job(ctx)
}

// cronLogger 把 cron 的日志接到 slog，调度细节降为 debug
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}

package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/haierkeys/artifact-git-sync/internal/app"
	"github.com/haierkeys/artifact-git-sync/internal/domain"
	"github.com/haierkeys/artifact-git-sync/internal/service"
	"github.com/haierkeys/artifact-git-sync/pkg/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Submitter 提交异步任务，由 workerpool.Pool 实现
type Submitter interface {
	SubmitAsync(ctx context.Context, name string, fn func(context.Context) error) error
}

// AutoSyncTask 按仓库的同步间隔触发整库同步
type AutoSyncTask struct {
	registry  domain.RepositoryRegistry
	sync      service.SyncService
	pool      Submitter
	direction domain.SyncDirection
	interval  time.Duration
	logger    *zap.Logger
	now       func() time.Time

	mu        sync.Mutex
	lastRun   map[string]time.Time
	schedules map[int]cron.Schedule
}

// NewAutoSyncTask 创建自动同步任务
func NewAutoSyncTask(registry domain.RepositoryRegistry, syncSvc service.SyncService, pool Submitter, direction domain.SyncDirection, interval time.Duration, log *zap.Logger) *AutoSyncTask {
	if log == nil {
		log = zap.NewNop()
	}
	if !direction.Valid() {
		log.Warn("invalid auto sync direction, using bidirectional", zap.String(logger.FieldDirection, string(direction)))
		direction = domain.DirectionBidirectional
	}
	return &AutoSyncTask{
		registry:  registry,
		sync:      syncSvc,
		pool:      pool,
		direction: direction,
		interval:  interval,
		logger:    log,
		now:       time.Now,
		lastRun:   make(map[string]time.Time),
		schedules: make(map[int]cron.Schedule),
	}
}

// NewAutoSyncTaskFromApp 从应用容器创建自动同步任务
func NewAutoSyncTaskFromApp(a *app.App) (Task, error) {
	cfg := a.Config()
	return NewAutoSyncTask(
		a.Registry,
		a.SyncService,
		a.WorkerPool(),
		domain.SyncDirection(cfg.App.AutoSyncDirection),
		cfg.GetAutoSyncCheckInterval(),
		a.Logger(),
	), nil
}

// Name 返回任务名称
func (t *AutoSyncTask) Name() string {
	return "AutoSync"
}

// LoopInterval 返回检查间隔
func (t *AutoSyncTask) LoopInterval() time.Duration {
	return t.interval
}

// IsStartupRun 是否立即执行一次
func (t *AutoSyncTask) IsStartupRun() bool {
	return true
}

// Run 检查开启自动同步的仓库，到期的仓库提交到 worker pool
func (t *AutoSyncTask) Run(ctx context.Context) error {
	conns, err := t.registry.ListAutoSync(ctx)
	if err != nil {
		return fmt.Errorf("list auto sync repositories: %w", err)
	}

	t.prune(conns)

	now := t.now()
	submitted := 0
	for _, conn := range conns {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		due, err := t.isDue(ctx, conn, now)
		if err != nil {
			t.logger.Warn("auto sync schedule error", zap.String(logger.FieldRepositoryID, conn.ID), zap.Error(err))
			continue
		}
		if !due {
			continue
		}

		c := conn
		err = t.pool.SubmitAsync(ctx, "auto-sync#"+c.ID, func(ctx context.Context) error {
			return t.syncOne(ctx, c)
		})
		if err != nil {
			t.logger.Warn("auto sync submit failed", zap.String(logger.FieldRepositoryID, c.ID), zap.Error(err))
			continue
		}
		t.markRun(c.ID, now)
		submitted++
	}

	if submitted > 0 {
		t.logger.Info("task log",
			zap.String("task", t.Name()),
			zap.Int("repositories", len(conns)),
			zap.Int("submitted", submitted))
	}
	return nil
}

func (t *AutoSyncTask) syncOne(ctx context.Context, conn *domain.RepositoryConnection) error {
	res, shared := t.sync.TriggerSync(ctx, conn, t.direction)
	if !res.Success {
		return fmt.Errorf("auto sync %s: %s", conn.ID, res.Error)
	}
	t.logger.Info("auto sync completed",
		zap.String(logger.FieldRepositoryID, conn.ID),
		zap.String(logger.FieldDirection, string(t.direction)),
		zap.Bool("shared", shared))
	return nil
}

// isDue 上次运行时间加同步间隔不晚于 now 时到期
// 进程内无记录时使用持久化的 LastSyncAt，仍无记录则立即到期
func (t *AutoSyncTask) isDue(ctx context.Context, conn *domain.RepositoryConnection, now time.Time) (bool, error) {
	schedule, err := t.schedule(conn)
	if err != nil {
		return false, err
	}

	last, ok := t.last(conn.ID)
	if !ok {
		state, found := t.sync.GetSyncState(ctx, conn.ID)
		if !found || state.LastSyncAt == nil {
			return true, nil
		}
		last = *state.LastSyncAt
	}
	return !schedule.Next(last).After(now), nil
}

func (t *AutoSyncTask) schedule(conn *domain.RepositoryConnection) (cron.Schedule, error) {
	minutes := int(conn.SyncInterval() / time.Minute)

	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.schedules[minutes]; ok {
		return s, nil
	}
	s, err := cron.ParseStandard(fmt.Sprintf("@every %dm", minutes))
	if err != nil {
		return nil, err
	}
	t.schedules[minutes] = s
	return s, nil
}

func (t *AutoSyncTask) last(id string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.lastRun[id]
	return v, ok
}

func (t *AutoSyncTask) markRun(id string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastRun[id] = at
}

// prune 清理已删除或关闭自动同步的仓库的运行记录
func (t *AutoSyncTask) prune(conns []*domain.RepositoryConnection) {
	live := make(map[string]struct{}, len(conns))
	for _, c := range conns {
		live[c.ID] = struct{}{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for id := range t.lastRun {
		if _, ok := live[id]; !ok {
			delete(t.lastRun, id)
		}
	}
}

package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/haierkeys/artifact-git-sync/internal/dao"
	"github.com/haierkeys/artifact-git-sync/internal/domain"
	"github.com/haierkeys/artifact-git-sync/internal/gitstore"
	"github.com/haierkeys/artifact-git-sync/internal/remote"
	"github.com/haierkeys/artifact-git-sync/internal/service"
	pkgapp "github.com/haierkeys/artifact-git-sync/pkg/app"
	"github.com/haierkeys/artifact-git-sync/pkg/credential"
	"github.com/haierkeys/artifact-git-sync/pkg/workerpool"
	"github.com/haierkeys/artifact-git-sync/pkg/writequeue"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App 应用容器，封装所有依赖和服务
type App struct {
	// 基础设施（注入的依赖）
	config *AppConfig
	logger *zap.Logger
	DB     *gorm.DB
	Dao    *dao.Dao

	// 并发控制组件
	workerPool    *workerpool.Pool
	writeQueueMgr *writequeue.Manager

	// Repository 层
	Registry   domain.RepositoryRegistry
	SyncStates domain.SyncStateRepository

	// 基础设施组件
	Store           *gitstore.Store
	Remote          *remote.HTTPClient
	Codec           *credential.Codec
	Metrics         *service.Metrics
	MetricsRegistry *prometheus.Registry

	// Service 层
	SyncService       service.SyncService
	RepositoryService service.RepositoryService

	// StartTime 容器创建时间
	StartTime time.Time

	// 关闭控制
	shutdownCh chan struct{}
	wg         sync.WaitGroup
}

// NewApp 创建应用容器实例
// 初始化所有依赖并进行依赖注入
// cfg: 应用配置（必须）
// logger: zap 日志器（必须）
// db: 数据库连接（必须）
func NewApp(cfg *AppConfig, logger *zap.Logger, db *gorm.DB) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}

	a := &App{
		config:     cfg,
		logger:     logger,
		DB:         db,
		StartTime:  time.Now(),
		shutdownCh: make(chan struct{}),
	}

	// 初始化 Worker Pool
	wpConfig := cfg.GetWorkerPoolConfig()
	a.workerPool = workerpool.New(&wpConfig, logger)

	// 初始化 Write Queue Manager
	wqConfig := cfg.GetWriteQueueConfig()
	a.writeQueueMgr = writequeue.New(&wqConfig, logger)

	// 初始化 DAO
	a.Dao = dao.New(db, cfg.Database, a.writeQueueMgr, logger)
	if cfg.Database.AutoMigrate {
		if err := a.Dao.AutoMigrate(); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	}

	// 初始化 Repository 层
	a.Registry = dao.NewRepositoryRegistry(a.Dao)
	a.SyncStates = dao.NewSyncStateRepository(a.Dao)

	// 凭据加密，未配置口令时只支持无认证仓库
	var opener gitstore.CredentialOpener
	if cfg.Security.CredentialKey != "" {
		codec, err := credential.NewCodec(cfg.Security.CredentialKey)
		if err != nil {
			return nil, fmt.Errorf("credential codec: %w", err)
		}
		a.Codec = codec
		opener = codec
	} else {
		logger.Warn("security.credential-key is empty, repositories with credentials are disabled")
	}

	a.Store = gitstore.New(cfg.Git, opener, logger)
	a.Remote = remote.NewHTTPClient(cfg.Remote, logger)

	// 独立的指标注册表，避免多个容器实例重复注册
	a.MetricsRegistry = prometheus.NewRegistry()
	a.MetricsRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Metrics = service.NewMetrics(a.MetricsRegistry)

	// 初始化 Service 层（依赖注入）
	recording := service.NewRecordingStore(a.Store, a.Registry, logger)
	a.SyncService = service.NewSyncService(recording, a.Remote, a.SyncStates, a.writeQueueMgr, a.Metrics, logger)
	a.RepositoryService = service.NewRepositoryService(a.Registry, a.SyncStates, a.Store, a.Codec, a.writeQueueMgr, logger)

	logger.Info("App container initialized successfully",
		zap.Int("workerPoolMaxWorkers", wpConfig.MaxWorkers),
		zap.Int("writeQueueCapacity", wqConfig.QueueCapacity),
		zap.String("workspaceDir", cfg.Git.WorkspaceDir),
		zap.String("remoteApi", cfg.Remote.APIURL))

	return a, nil
}

// Close 释放应用容器持有的资源
func (a *App) Close() error {
	if a.Dao != nil {
		if err := a.Dao.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
		a.logger.Info("Database connection closed")
	}
	return nil
}

// Config 获取应用配置
func (a *App) Config() *AppConfig {
	return a.config
}

// Logger 获取日志器
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// SubmitTask 提交任务到 Worker Pool 并等待完成
func (a *App) SubmitTask(ctx context.Context, name string, task func(context.Context) error) error {
	return a.workerPool.Submit(ctx, name, task)
}

// SubmitTaskAsync 异步提交任务到 Worker Pool（不等待结果）
// 返回错误如果池已满或已关闭
func (a *App) SubmitTaskAsync(ctx context.Context, name string, task func(context.Context) error) error {
	return a.workerPool.SubmitAsync(ctx, name, task)
}

// Version 获取版本信息
func (a *App) Version() pkgapp.VersionInfo {
	return pkgapp.VersionInfo{
		Version:   Version,
		GitTag:    GitTag,
		BuildTime: BuildTime,
	}
}

// GetAuthToken 获取 API 访问令牌
func (a *App) GetAuthToken() string {
	return a.config.Security.AuthToken
}

// IsProductionMode 是否为生产模式
// 根据日志配置中的 Production 字段判断
func (a *App) IsProductionMode() bool {
	return a.config.Log.Production
}

// WorkerPool 获取 Worker Pool（用于高级操作）
func (a *App) WorkerPool() *workerpool.Pool {
	return a.workerPool
}

// WriteQueueManager 获取 Write Queue Manager（用于高级操作）
func (a *App) WriteQueueManager() *writequeue.Manager {
	return a.writeQueueMgr
}

// DefaultShutdownTimeout 默认关闭超时时间
const DefaultShutdownTimeout = 30 * time.Second

// Shutdown 优雅关闭应用容器
// 按顺序关闭：Worker Pool -> Write Queue Manager -> Database
// ctx 用于控制关闭超时，如果为 nil 则使用默认 30 秒超时
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("App container shutting down...")

	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
	}

	select {
	case <-a.shutdownCh:
		return nil
	default:
		close(a.shutdownCh)
	}

	var errs []error

	// 1. 关闭 Worker Pool（停止接受新任务，等待现有任务完成）
	if a.workerPool != nil {
		a.logger.Info("Shutting down worker pool...")
		if err := a.workerPool.Shutdown(ctx); err != nil {
			a.logger.Warn("Worker pool shutdown error", zap.Error(err))
			errs = append(errs, fmt.Errorf("worker pool shutdown: %w", err))
		} else {
			a.logger.Info("Worker pool shutdown completed")
		}
	}

	// 2. 关闭 Write Queue Manager（排空所有队列）
	if a.writeQueueMgr != nil {
		a.logger.Info("Shutting down write queue manager...")
		if err := a.writeQueueMgr.Shutdown(ctx); err != nil {
			a.logger.Warn("write queue manager shutdown error", zap.Error(err))
			errs = append(errs, fmt.Errorf("write queue manager shutdown: %w", err))
		} else {
			a.logger.Info("write queue manager shutdown completed")
		}
	}

	// 3. 等待所有后台操作完成
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		a.logger.Info("All background operations completed")
	case <-ctx.Done():
		a.logger.Warn("Shutdown timeout waiting for background operations")
		errs = append(errs, fmt.Errorf("background operations timeout: %w", ctx.Err()))
	}

	// 4. 关闭数据库连接
	if err := a.Close(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		a.logger.Warn("App container shutdown completed with errors",
			zap.Int("errorCount", len(errs)))
		return fmt.Errorf("shutdown completed with %d errors: %v", len(errs), errs)
	}

	a.logger.Info("App container shutdown completed successfully")
	return nil
}

// IsShuttingDown 检查应用是否正在关闭
func (a *App) IsShuttingDown() bool {
	select {
	case <-a.shutdownCh:
		return true
	default:
		return false
	}
}

// ShutdownCh 返回关闭信号通道（用于监听关闭事件）
func (a *App) ShutdownCh() <-chan struct{} {
	return a.shutdownCh
}

// TrackOperation 跟踪后台操作（用于优雅关闭时等待）
// 返回一个函数，在操作完成时调用
func (a *App) TrackOperation() func() {
	a.wg.Add(1)
	return func() {
		a.wg.Done()
	}
}

package task

import (
	"github.com/haierkeys/artifact-git-sync/internal/app"
	"github.com/haierkeys/artifact-git-sync/pkg/safe_close"

	"go.uber.org/zap"
)

// Manager 任务管理器,负责创建和管理所有任务
type Manager struct {
	scheduler *Scheduler
	registry  Registry
	app       *app.App
	logger    *zap.Logger
}

// NewManager 创建任务管理器，内置任务在此注册
func NewManager(logger *zap.Logger, sc *safe_close.SafeClose, appContainer *app.App) *Manager {
	m := &Manager{
		scheduler: NewScheduler(logger, sc),
		app:       appContainer,
		logger:    logger,
	}
	m.registry.Register(NewAutoSyncTaskFromApp)
	return m
}

// Register 追加任务工厂
func (m *Manager) Register(factory TaskFactory) {
	m.registry.Register(factory)
}

// RegisterTasks 通过工厂创建并添加所有任务
func (m *Manager) RegisterTasks() error {
	for _, factory := range m.registry.Factories() {
		t, err := factory(m.app)
		if err != nil {
			m.logger.Warn("failed to create task", zap.Error(err))
			return err
		}
		if t == nil {
			continue
		}
		m.scheduler.AddTask(t)
	}
	return nil
}

// Start 启动所有已注册的任务
func (m *Manager) Start() {
	m.scheduler.Start()
}

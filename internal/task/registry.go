package task

import (
	"sync"

	"github.com/haierkeys/artifact-git-sync/internal/app"
)

// TaskFactory 任务工厂函数类型，返回 nil 任务表示未启用
type TaskFactory func(appContainer *app.App) (Task, error)

// Registry 任务工厂注册表
type Registry struct {
	mu        sync.RWMutex
	factories []TaskFactory
}

// Register 注册任务工厂函数
func (r *Registry) Register(factory TaskFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories = append(r.factories, factory)
}

// Factories 获取所有已注册的任务工厂
func (r *Registry) Factories() []TaskFactory {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// 返回副本,避免外部修改
	factories := make([]TaskFactory, len(r.factories))
	copy(factories, r.factories)
	return factories
}

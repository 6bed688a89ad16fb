// Package domain 定义领域模型和接口
package domain

import "context"

// RepositoryRegistry 仓库连接注册表接口
type RepositoryRegistry interface {
	// Get 根据ID获取仓库连接，不存在时返回 ErrRepositoryNotFound
	Get(ctx context.Context, id string) (*RepositoryConnection, error)

	// List 获取全部仓库连接（按创建时间升序）
	List(ctx context.Context) ([]*RepositoryConnection, error)

	// ListAutoSync 获取开启自动同步的仓库连接
	ListAutoSync(ctx context.Context) ([]*RepositoryConnection, error)

	// Save 创建或更新仓库连接
	Save(ctx context.Context, conn *RepositoryConnection) (*RepositoryConnection, error)

	// Delete 删除仓库连接
	Delete(ctx context.Context, id string) error

	// SetLocalPath 记录工作区路径
	SetLocalPath(ctx context.Context, id, path string) error
}

// SyncStateRepository 同步状态仓储接口
type SyncStateRepository interface {
	// Get 获取仓库同步状态，不存在时返回 ErrSyncStateNotFound
	Get(ctx context.Context, repositoryID string) (*SyncState, error)

	// Save 写入同步状态
	Save(ctx context.Context, state *SyncState) error

	// Delete 删除同步状态
	Delete(ctx context.Context, repositoryID string) error
}

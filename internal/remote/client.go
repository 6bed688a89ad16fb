// Package remote 远程制品管理接口客户端
package remote

import (
	"context"
	"encoding/json"

	"github.com/haierkeys/artifact-git-sync/internal/domain"
)

const DefaultPageSize = 50

// Client 远程制品接口
type Client interface {
	ListWorkflows(ctx context.Context, page, limit int) ([]domain.RemoteArtifact, error)
	GetWorkflow(ctx context.Context, id string) (*domain.RemoteArtifact, error)
	CreateWorkflow(ctx context.Context, data json.RawMessage) (*domain.RemoteArtifact, error)
	UpdateWorkflow(ctx context.Context, id string, data json.RawMessage) (*domain.RemoteArtifact, error)
	DeleteWorkflow(ctx context.Context, id string) error
	GetAllWorkflows(ctx context.Context) ([]domain.RemoteArtifact, error)

	ListApplications(ctx context.Context, page, limit int) ([]domain.RemoteArtifact, error)
	GetApplication(ctx context.Context, id string) (*domain.RemoteArtifact, error)
	CreateApplication(ctx context.Context, data json.RawMessage) (*domain.RemoteArtifact, error)
	UpdateApplication(ctx context.Context, id string, data json.RawMessage) (*domain.RemoteArtifact, error)
	DeleteApplication(ctx context.Context, id string) error
	GetAllApplications(ctx context.Context) ([]domain.RemoteArtifact, error)
}

// PageFunc 拉取一页
type PageFunc func(ctx context.Context, page, limit int) ([]domain.RemoteArtifact, error)

// DrainPages 从第 1 页开始拉取，直到某页返回数量少于 limit
func DrainPages(ctx context.Context, limit int, fetch PageFunc) ([]domain.RemoteArtifact, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	all := []domain.RemoteArtifact{}
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		items, err := fetch(ctx, page, limit)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if len(items) < limit {
			return all, nil
		}
	}
}

// Kind 按制品类型分派的操作集合
type Kind struct {
	c    Client
	kind domain.ArtifactKind
}

// ForKind 返回针对 kind 的操作集合
func ForKind(c Client, kind domain.ArtifactKind) Kind {
	return Kind{c: c, kind: kind}
}

func (k Kind) Get(ctx context.Context, id string) (*domain.RemoteArtifact, error) {
	if k.kind == domain.KindApplication {
		return k.c.GetApplication(ctx, id)
	}
	return k.c.GetWorkflow(ctx, id)
}

func (k Kind) Create(ctx context.Context, data json.RawMessage) (*domain.RemoteArtifact, error) {
	if k.kind == domain.KindApplication {
		return k.c.CreateApplication(ctx, data)
	}
	return k.c.CreateWorkflow(ctx, data)
}

func (k Kind) Update(ctx context.Context, id string, data json.RawMessage) (*domain.RemoteArtifact, error) {
	if k.kind == domain.KindApplication {
		return k.c.UpdateApplication(ctx, id, data)
	}
	return k.c.UpdateWorkflow(ctx, id, data)
}

func (k Kind) Delete(ctx context.Context, id string) error {
	if k.kind == domain.KindApplication {
		return k.c.DeleteApplication(ctx, id)
	}
	return k.c.DeleteWorkflow(ctx, id)
}

func (k Kind) GetAll(ctx context.Context) ([]domain.RemoteArtifact, error) {
	if k.kind == domain.KindApplication {
		return k.c.GetAllApplications(ctx)
	}
	return k.c.GetAllWorkflows(ctx)
}

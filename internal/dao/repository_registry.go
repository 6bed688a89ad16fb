package dao

import (
	"context"
	"errors"
	"time"

	"github.com/haierkeys/artifact-git-sync/internal/domain"
	"github.com/haierkeys/artifact-git-sync/internal/model"

	"github.com/jinzhu/copier"
	"gorm.io/gorm"
)

type repositoryRegistry struct {
	dao *Dao
}

// NewRepositoryRegistry 创建 RepositoryRegistry 实例
func NewRepositoryRegistry(dao *Dao) domain.RepositoryRegistry {
	return &repositoryRegistry{dao: dao}
}

func (r *repositoryRegistry) toDomain(m *model.RepositoryConnection) *domain.RepositoryConnection {
	if m == nil {
		return nil
	}
	d := &domain.RepositoryConnection{}
	_ = copier.Copy(d, m)
	return d
}

func (r *repositoryRegistry) toModel(d *domain.RepositoryConnection) *model.RepositoryConnection {
	if d == nil {
		return nil
	}
	m := &model.RepositoryConnection{}
	_ = copier.Copy(m, d)
	return m
}

func (r *repositoryRegistry) Get(ctx context.Context, id string) (*domain.RepositoryConnection, error) {
	var m model.RepositoryConnection
	err := r.dao.Db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRepositoryNotFound
		}
		return nil, err
	}
	return r.toDomain(&m), nil
}

func (r *repositoryRegistry) List(ctx context.Context) ([]*domain.RepositoryConnection, error) {
	return r.find(r.dao.Db.WithContext(ctx))
}

func (r *repositoryRegistry) ListAutoSync(ctx context.Context) ([]*domain.RepositoryConnection, error) {
	return r.find(r.dao.Db.WithContext(ctx).Where("auto_sync_enabled = ?", true))
}

func (r *repositoryRegistry) find(db *gorm.DB) ([]*domain.RepositoryConnection, error) {
	var ms []*model.RepositoryConnection
	if err := db.Order("created_at ASC").Order("id ASC").Find(&ms).Error; err != nil {
		return nil, err
	}
	res := make([]*domain.RepositoryConnection, 0, len(ms))
	for _, m := range ms {
		res = append(res, r.toDomain(m))
	}
	return res, nil
}

// Save 创建或更新，更新时保留原 CreatedAt
func (r *repositoryRegistry) Save(ctx context.Context, conn *domain.RepositoryConnection) (*domain.RepositoryConnection, error) {
	var result *domain.RepositoryConnection
	err := r.dao.ExecuteWrite(ctx, func(db *gorm.DB) error {
		m := r.toModel(conn)
		now := time.Now()

		var old model.RepositoryConnection
		err := db.Where("id = ?", m.ID).First(&old).Error
		switch {
		case err == nil:
			m.CreatedAt = old.CreatedAt
		case errors.Is(err, gorm.ErrRecordNotFound):
			if m.CreatedAt.IsZero() {
				m.CreatedAt = now
			}
		default:
			return err
		}
		m.UpdatedAt = now

		if err := db.Save(m).Error; err != nil {
			return err
		}
		result = r.toDomain(m)
		return nil
	})
	return result, err
}

func (r *repositoryRegistry) Delete(ctx context.Context, id string) error {
	return r.dao.ExecuteWrite(ctx, func(db *gorm.DB) error {
		res := db.Where("id = ?", id).Delete(&model.RepositoryConnection{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrRepositoryNotFound
		}
		return nil
	})
}

func (r *repositoryRegistry) SetLocalPath(ctx context.Context, id, path string) error {
	return r.dao.ExecuteWrite(ctx, func(db *gorm.DB) error {
		res := db.Model(&model.RepositoryConnection{}).
			Where("id = ?", id).
			Updates(map[string]any{"local_path": path, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrRepositoryNotFound
		}
		return nil
	})
}

// 确保 repositoryRegistry 实现了 domain.RepositoryRegistry 接口
var _ domain.RepositoryRegistry = (*repositoryRegistry)(nil)

package dao

import (
	"context"
	"errors"
	"time"

	"github.com/haierkeys/artifact-git-sync/internal/domain"
	"github.com/haierkeys/artifact-git-sync/internal/model"

	"github.com/bytedance/sonic"
	"github.com/jinzhu/copier"
	"gorm.io/gorm"
)

type syncStateRepository struct {
	dao *Dao
}

// NewSyncStateRepository 创建 SyncStateRepository 实例
func NewSyncStateRepository(dao *Dao) domain.SyncStateRepository {
	return &syncStateRepository{dao: dao}
}

func (r *syncStateRepository) toDomain(m *model.SyncState) (*domain.SyncState, error) {
	d := &domain.SyncState{}
	if err := copier.Copy(d, m); err != nil {
		return nil, err
	}
	d.PendingChanges = []string{}
	d.Conflicts = []domain.ConflictDescriptor{}
	if m.PendingChangesJSON != "" {
		if err := sonic.UnmarshalString(m.PendingChangesJSON, &d.PendingChanges); err != nil {
			return nil, err
		}
	}
	if m.ConflictsJSON != "" {
		if err := sonic.UnmarshalString(m.ConflictsJSON, &d.Conflicts); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (r *syncStateRepository) toModel(d *domain.SyncState) (*model.SyncState, error) {
	m := &model.SyncState{}
	if err := copier.Copy(m, d); err != nil {
		return nil, err
	}
	pending := d.PendingChanges
	if pending == nil {
		pending = []string{}
	}
	conflicts := d.Conflicts
	if conflicts == nil {
		conflicts = []domain.ConflictDescriptor{}
	}
	var err error
	if m.PendingChangesJSON, err = sonic.MarshalString(pending); err != nil {
		return nil, err
	}
	if m.ConflictsJSON, err = sonic.MarshalString(conflicts); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *syncStateRepository) Get(ctx context.Context, repositoryID string) (*domain.SyncState, error) {
	var m model.SyncState
	err := r.dao.Db.WithContext(ctx).Where("repository_id = ?", repositoryID).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSyncStateNotFound
		}
		return nil, err
	}
	return r.toDomain(&m)
}

func (r *syncStateRepository) Save(ctx context.Context, state *domain.SyncState) error {
	m, err := r.toModel(state)
	if err != nil {
		return err
	}
	m.UpdatedAt = time.Now()
	return r.dao.ExecuteWrite(ctx, func(db *gorm.DB) error {
		return db.Save(m).Error
	})
}

func (r *syncStateRepository) Delete(ctx context.Context, repositoryID string) error {
	return r.dao.ExecuteWrite(ctx, func(db *gorm.DB) error {
		return db.Where("repository_id = ?", repositoryID).Delete(&model.SyncState{}).Error
	})
}

// 确保 syncStateRepository 实现了 domain.SyncStateRepository 接口
var _ domain.SyncStateRepository = (*syncStateRepository)(nil)

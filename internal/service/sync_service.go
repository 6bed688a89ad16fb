package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/haierkeys/artifact-git-sync/internal/domain"
	"github.com/haierkeys/artifact-git-sync/internal/gitstore"
	"github.com/haierkeys/artifact-git-sync/internal/remote"
	"github.com/haierkeys/artifact-git-sync/pkg/diff"
	"github.com/haierkeys/artifact-git-sync/pkg/logger"
	"github.com/haierkeys/artifact-git-sync/pkg/writequeue"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ArtifactStore 同步引擎依赖的工作区操作，由 gitstore.Store 实现
type ArtifactStore interface {
	OpenOrClone(ctx context.Context, conn *domain.RepositoryConnection) (*gitstore.WorkingCopy, error)
	Pull(ctx context.Context, wc *gitstore.WorkingCopy, branch string) (*domain.PullResult, error)
	ExportArtifactFile(ctx context.Context, wc *gitstore.WorkingCopy, artifact *domain.ArtifactExport, policy domain.NamingPolicy) (string, error)
	ImportArtifactFile(ctx context.Context, wc *gitstore.WorkingCopy, relPath string) (*domain.ArtifactExport, error)
	ListExportedFiles(ctx context.Context, wc *gitstore.WorkingCopy) (*domain.ExportedFiles, error)
}

// SyncService 同步引擎：远程制品与 Git 工作区之间的导出与导入
// 所有操作都不返回 error，失败以结果中的 Success/Error 表示
type SyncService interface {
	// ExportArtifact 导出单个制品到工作区
	ExportArtifact(ctx context.Context, conn *domain.RepositoryConnection, artifactID string, kind domain.ArtifactKind, policy domain.NamingPolicy) domain.SyncOutcome
	// ExportAll 导出远程全部工作流与应用
	ExportAll(ctx context.Context, conn *domain.RepositoryConnection, policy domain.NamingPolicy) *domain.BulkOutcome
	// ImportArtifact 将工作区中的单个文件导入远程
	ImportArtifact(ctx context.Context, conn *domain.RepositoryConnection, filePath string, autoMerge bool) domain.SyncOutcome
	// ImportAll 导入工作区中全部已导出文件
	ImportAll(ctx context.Context, conn *domain.RepositoryConnection, autoMerge bool) *domain.BulkOutcome
	// SyncRepository 按方向执行整库同步
	SyncRepository(ctx context.Context, conn *domain.RepositoryConnection, direction domain.SyncDirection) *domain.RepositorySyncResult
	// TriggerSync 同 SyncRepository，同一仓库同一方向的并发调用合并为一次执行
	TriggerSync(ctx context.Context, conn *domain.RepositoryConnection, direction domain.SyncDirection) (*domain.RepositorySyncResult, bool)
	// GetSyncState 读取最近一次同步状态，不存在时第二个返回值为 false
	GetSyncState(ctx context.Context, repositoryID string) (*domain.SyncState, bool)
}

type syncService struct {
	store   ArtifactStore
	remote  remote.Client
	states  domain.SyncStateRepository
	queue   *writequeue.Manager
	metrics *Metrics
	sf      singleflight.Group
	logger  *zap.Logger
	now     func() time.Time
}

// NewSyncService 创建同步引擎
func NewSyncService(store ArtifactStore, client remote.Client, states domain.SyncStateRepository, queue *writequeue.Manager, metrics *Metrics, log *zap.Logger) SyncService {
	if log == nil {
		log = zap.NewNop()
	}
	return &syncService{
		store:   store,
		remote:  client,
		states:  states,
		queue:   queue,
		metrics: metrics,
		logger:  log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// queued 在仓库写队列中执行 fn，同一仓库的操作串行
func queued[T any](ctx context.Context, q *writequeue.Manager, key string, fn func() T) (T, error) {
	if q == nil {
		return fn(), nil
	}
	ch := make(chan T, 1)
	err := q.Execute(ctx, key, func() error {
		ch <- fn()
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return <-ch, nil
}

func (s *syncService) ExportArtifact(ctx context.Context, conn *domain.RepositoryConnection, artifactID string, kind domain.ArtifactKind, policy domain.NamingPolicy) domain.SyncOutcome {
	start := time.Now()
	out, err := queued(ctx, s.queue, conn.ID, func() domain.SyncOutcome {
		state := s.begin(ctx, conn.ID, domain.DirectionExport)
		defer s.metrics.running(conn.ID, false)

		wc, err := s.store.OpenOrClone(ctx, conn)
		if err != nil {
			o := failedOutcome(kind, artifactID, err)
			s.finish(ctx, state, []domain.SyncOutcome{o}, nil, err.Error())
			return o
		}
		o := s.exportOne(ctx, conn, wc, artifactID, kind, policy)
		s.finish(ctx, state, []domain.SyncOutcome{o}, nil, "")
		return o
	})
	if err != nil {
		out = failedOutcome(kind, artifactID, err)
	}
	s.metrics.observeOperation("export_artifact", outcomeStatus(out), start)
	return out
}

func (s *syncService) ExportAll(ctx context.Context, conn *domain.RepositoryConnection, policy domain.NamingPolicy) *domain.BulkOutcome {
	start := time.Now()
	out, err := queued(ctx, s.queue, conn.ID, func() *domain.BulkOutcome {
		state := s.begin(ctx, conn.ID, domain.DirectionExport)
		defer s.metrics.running(conn.ID, false)

		wc, err := s.store.OpenOrClone(ctx, conn)
		if err != nil {
			b := fatalBulk(err)
			s.finish(ctx, state, nil, b.Errors, err.Error())
			return b
		}
		b := s.exportAll(ctx, conn, wc, policy)
		s.finish(ctx, state, b.Items, b.Errors, "")
		return b
	})
	if err != nil {
		out = fatalBulk(err)
	}
	s.metrics.observeOperation("export_all", bulkStatus(out), start)
	return out
}

func (s *syncService) ImportArtifact(ctx context.Context, conn *domain.RepositoryConnection, filePath string, autoMerge bool) domain.SyncOutcome {
	start := time.Now()
	out, err := queued(ctx, s.queue, conn.ID, func() domain.SyncOutcome {
		state := s.begin(ctx, conn.ID, domain.DirectionImport)
		defer s.metrics.running(conn.ID, false)

		wc, err := s.store.OpenOrClone(ctx, conn)
		if err != nil {
			o := failedFileOutcome(filePath, err)
			s.finish(ctx, state, []domain.SyncOutcome{o}, nil, err.Error())
			return o
		}
		o := s.importOne(ctx, wc, filePath, autoMerge)
		s.finish(ctx, state, []domain.SyncOutcome{o}, nil, "")
		return o
	})
	if err != nil {
		out = failedFileOutcome(filePath, err)
	}
	s.metrics.observeOperation("import_artifact", outcomeStatus(out), start)
	return out
}

func (s *syncService) ImportAll(ctx context.Context, conn *domain.RepositoryConnection, autoMerge bool) *domain.BulkOutcome {
	start := time.Now()
	out, err := queued(ctx, s.queue, conn.ID, func() *domain.BulkOutcome {
		state := s.begin(ctx, conn.ID, domain.DirectionImport)
		defer s.metrics.running(conn.ID, false)

		wc, err := s.store.OpenOrClone(ctx, conn)
		if err != nil {
			b := fatalBulk(err)
			s.finish(ctx, state, nil, b.Errors, err.Error())
			return b
		}
		b := s.importAll(ctx, wc, autoMerge)
		s.finish(ctx, state, b.Items, b.Errors, "")
		return b
	})
	if err != nil {
		out = fatalBulk(err)
	}
	s.metrics.observeOperation("import_all", bulkStatus(out), start)
	return out
}

func (s *syncService) SyncRepository(ctx context.Context, conn *domain.RepositoryConnection, direction domain.SyncDirection) *domain.RepositorySyncResult {
	start := time.Now()
	if !direction.Valid() {
		return &domain.RepositorySyncResult{Direction: direction, Error: fmt.Sprintf("invalid sync direction %q", direction)}
	}

	out, err := queued(ctx, s.queue, conn.ID, func() *domain.RepositorySyncResult {
		return s.syncRepository(ctx, conn, direction)
	})
	if err != nil {
		out = &domain.RepositorySyncResult{Direction: direction, Error: err.Error()}
	}

	status := domain.SyncStatusCompleted
	if !out.Success {
		status = domain.SyncStatusFailed
	}
	s.metrics.observeOperation("sync_repository", status, start)
	s.logger.Info("repository synced",
		zap.String(logger.FieldRepositoryID, conn.ID),
		zap.String(logger.FieldDirection, string(direction)),
		zap.Bool("success", out.Success),
		zap.Duration(logger.FieldDuration, time.Since(start)))
	return out
}

func (s *syncService) syncRepository(ctx context.Context, conn *domain.RepositoryConnection, direction domain.SyncDirection) *domain.RepositorySyncResult {
	res := &domain.RepositorySyncResult{Direction: direction}
	state := s.begin(ctx, conn.ID, direction)
	defer s.metrics.running(conn.ID, false)

	wc, err := s.store.OpenOrClone(ctx, conn)
	if err != nil {
		res.Error = err.Error()
		s.finish(ctx, state, nil, nil, res.Error)
		return res
	}

	var items []domain.SyncOutcome
	var errs []string

	if direction.IncludesExport() {
		pull, err := s.store.Pull(ctx, wc, conn.Branch)
		if err != nil {
			res.Error = err.Error()
			s.finish(ctx, state, nil, nil, res.Error)
			return res
		}
		res.Pull = pull
		res.Export = s.exportAll(ctx, conn, wc, "")
		items = append(items, res.Export.Items...)
		errs = append(errs, res.Export.Errors...)
	}

	// 导入前不拉取，直接以工作区文件覆盖远程
	if direction.IncludesImport() {
		res.Import = s.importAll(ctx, wc, true)
		items = append(items, res.Import.Items...)
		errs = append(errs, res.Import.Errors...)
	}

	res.Success = (res.Export == nil || res.Export.Success) && (res.Import == nil || res.Import.Success)
	s.finish(ctx, state, items, errs, "")
	return res
}

func (s *syncService) TriggerSync(ctx context.Context, conn *domain.RepositoryConnection, direction domain.SyncDirection) (*domain.RepositorySyncResult, bool) {
	// 共享运行不随首个调用方取消
	shared := context.WithoutCancel(ctx)
	v, _, isShared := s.sf.Do(conn.ID+"#"+string(direction), func() (any, error) {
		return s.SyncRepository(shared, conn, direction), nil
	})
	return v.(*domain.RepositorySyncResult), isShared
}

func (s *syncService) GetSyncState(ctx context.Context, repositoryID string) (*domain.SyncState, bool) {
	state, err := s.states.Get(ctx, repositoryID)
	if err != nil {
		if !errors.Is(err, domain.ErrSyncStateNotFound) {
			s.logger.Warn("read sync state failed",
				zap.String(logger.FieldRepositoryID, repositoryID),
				zap.Error(err))
		}
		return nil, false
	}
	return state, true
}

// exportAll 依次导出两类制品，单项失败不影响其余项
func (s *syncService) exportAll(ctx context.Context, conn *domain.RepositoryConnection, wc *gitstore.WorkingCopy, policy domain.NamingPolicy) *domain.BulkOutcome {
	bulk := domain.NewBulkOutcome()
	for _, kind := range []domain.ArtifactKind{domain.KindWorkflow, domain.KindApplication} {
		list, err := remote.ForKind(s.remote, kind).GetAll(ctx)
		if err != nil {
			bulk.Errors = append(bulk.Errors, fmt.Sprintf("%s list: %s", kind.Label(), err))
			continue
		}
		for _, item := range list {
			var o domain.SyncOutcome
			if err := ctx.Err(); err != nil {
				o = failedOutcome(kind, item.ID, err)
			} else {
				o = s.exportOne(ctx, conn, wc, item.ID, kind, policy)
			}
			bulk.Add(o, itemError(o, item.ID))
		}
	}
	return bulk.Finish()
}

func (s *syncService) exportOne(ctx context.Context, conn *domain.RepositoryConnection, wc *gitstore.WorkingCopy, id string, kind domain.ArtifactKind, policy domain.NamingPolicy) domain.SyncOutcome {
	a, err := remote.ForKind(s.remote, kind).Get(ctx, id)
	if err != nil {
		return s.itemDone(failedOutcome(kind, id, err))
	}

	name := a.Name
	if name == "" {
		name = kind.DefaultName()
	}
	envelope := &domain.ArtifactExport{
		ID:   id,
		Name: name,
		Kind: kind,
		Data: a.Raw,
		Metadata: map[string]any{
			"exported_by":  domain.ExportedBy,
			"workspace_id": conn.WorkspaceID,
		},
		ExportedAt: s.now(),
		Version:    domain.ExportSchemaVersion,
	}

	rel, err := s.store.ExportArtifactFile(ctx, wc, envelope, policy)
	if err != nil {
		return s.itemDone(failedOutcome(kind, id, err))
	}
	return s.itemDone(domain.SyncOutcome{
		Success:    true,
		Action:     domain.ActionExported,
		ArtifactID: id,
		Kind:       kind,
		FilePath:   rel,
	})
}

// importAll 先工作流后应用，按文件列表顺序导入
func (s *syncService) importAll(ctx context.Context, wc *gitstore.WorkingCopy, autoMerge bool) *domain.BulkOutcome {
	bulk := domain.NewBulkOutcome()
	files, err := s.store.ListExportedFiles(ctx, wc)
	if err != nil {
		bulk.Errors = append(bulk.Errors, fmt.Sprintf("list exported files: %s", err))
		return bulk.Finish()
	}

	for _, rel := range append(append([]string{}, files.Workflows...), files.Applications...) {
		var o domain.SyncOutcome
		if err := ctx.Err(); err != nil {
			o = failedFileOutcome(rel, err)
		} else {
			o = s.importOne(ctx, wc, rel, autoMerge)
		}
		bulk.Add(o, itemError(o, rel))
	}
	return bulk.Finish()
}

// importOne 决策：远程不存在则创建；存在且 autoMerge 则覆盖更新；否则标记冲突且不修改远程
func (s *syncService) importOne(ctx context.Context, wc *gitstore.WorkingCopy, rel string, autoMerge bool) domain.SyncOutcome {
	local, err := s.store.ImportArtifactFile(ctx, wc, rel)
	if err != nil {
		return s.itemDone(failedFileOutcome(rel, err))
	}
	kind := local.Kind
	if !kind.Valid() {
		return s.itemDone(failedFileOutcome(rel, fmt.Errorf("unknown artifact type %q", local.Kind)))
	}
	api := remote.ForKind(s.remote, kind)

	base := domain.SyncOutcome{ArtifactID: local.ID, Kind: kind, FilePath: rel}

	var existing *domain.RemoteArtifact
	if local.ID != "" {
		existing, err = api.Get(ctx, local.ID)
		if err != nil && !domain.IsRemoteNotFound(err) {
			base.Error = err.Error()
			return s.itemDone(base)
		}
	}

	switch {
	case existing == nil:
		created, err := api.Create(ctx, local.Data)
		if err != nil {
			base.Error = err.Error()
			return s.itemDone(base)
		}
		base.Success = true
		base.Action = domain.ActionCreated
		if created != nil && created.ID != "" {
			base.ArtifactID = created.ID
		}
	case autoMerge:
		if _, err := api.Update(ctx, local.ID, local.Data); err != nil {
			base.Error = err.Error()
			return s.itemDone(base)
		}
		base.Success = true
		base.Action = domain.ActionUpdated
	default:
		sum := diff.Summarize(string(existing.Raw), string(local.Data))
		base.Conflict = true
		base.Error = (&domain.ConflictError{Kind: kind, ID: local.ID}).Error()
		base.ConflictDetail = &domain.ConflictDetail{
			RemoteSize: len(existing.Raw),
			LocalSize:  len(local.Data),
			Inserted:   sum.Inserted,
			Deleted:    sum.Deleted,
			Identical:  sum.Identical,
		}
	}
	return s.itemDone(base)
}

func (s *syncService) itemDone(o domain.SyncOutcome) domain.SyncOutcome {
	s.metrics.observeItem(o)
	if !o.Success {
		s.logger.Warn("artifact sync item not applied",
			zap.String(logger.FieldArtifactID, o.ArtifactID),
			zap.String(logger.FieldKind, string(o.Kind)),
			zap.String(logger.FieldPath, o.FilePath),
			zap.Bool("conflict", o.Conflict),
			zap.String(logger.FieldError, o.Error))
	}
	return o
}

// begin 记录进入 in_progress
func (s *syncService) begin(ctx context.Context, repositoryID string, direction domain.SyncDirection) *domain.SyncState {
	s.metrics.running(repositoryID, true)

	state, err := s.states.Get(ctx, repositoryID)
	if err != nil {
		if !errors.Is(err, domain.ErrSyncStateNotFound) {
			s.logger.Warn("read sync state failed",
				zap.String(logger.FieldRepositoryID, repositoryID),
				zap.Error(err))
		}
		state = &domain.SyncState{RepositoryID: repositoryID}
	}
	state.Status = domain.SyncStatusInProgress
	state.Direction = direction
	state.ErrorMessage = ""
	s.saveState(ctx, state)
	return state
}

// finish 根据本次结果记录 completed、failed 或 conflict
func (s *syncService) finish(ctx context.Context, state *domain.SyncState, items []domain.SyncOutcome, errs []string, fatal string) {
	now := s.now()
	state.LastSyncAt = &now
	state.PendingChanges = []string{}
	state.Conflicts = []domain.ConflictDescriptor{}

	failed := 0
	for _, o := range items {
		switch {
		case o.Conflict:
			state.Conflicts = append(state.Conflicts, domain.ConflictDescriptor{
				ArtifactID: o.ArtifactID,
				Kind:       o.Kind,
				FilePath:   o.FilePath,
				Message:    o.Error,
			})
			state.PendingChanges = append(state.PendingChanges, itemRef(o))
		case !o.Success:
			failed++
			state.PendingChanges = append(state.PendingChanges, itemRef(o))
		}
	}

	switch {
	case fatal != "" || failed > 0 || len(errs) > len(state.Conflicts):
		state.Status = domain.SyncStatusFailed
	case len(state.Conflicts) > 0:
		state.Status = domain.SyncStatusConflict
	default:
		state.Status = domain.SyncStatusCompleted
		state.LastSuccessAt = &now
	}

	switch {
	case fatal != "":
		state.ErrorMessage = fatal
	case len(errs) > 0:
		state.ErrorMessage = strings.Join(errs, "; ")
	case len(items) == 1 && !items[0].Success:
		state.ErrorMessage = items[0].Error
	}

	s.saveState(context.WithoutCancel(ctx), state)
}

func (s *syncService) saveState(ctx context.Context, state *domain.SyncState) {
	if err := s.states.Save(ctx, state); err != nil {
		s.logger.Error("save sync state failed",
			zap.String(logger.FieldRepositoryID, state.RepositoryID),
			zap.String("status", string(state.Status)),
			zap.Error(err))
	}
}

func failedOutcome(kind domain.ArtifactKind, id string, err error) domain.SyncOutcome {
	return domain.SyncOutcome{ArtifactID: id, Kind: kind, Error: err.Error()}
}

func failedFileOutcome(rel string, err error) domain.SyncOutcome {
	return domain.SyncOutcome{Kind: kindOfPath(rel), FilePath: rel, Error: err.Error()}
}

func fatalBulk(err error) *domain.BulkOutcome {
	b := domain.NewBulkOutcome()
	b.Errors = append(b.Errors, err.Error())
	return b.Finish()
}

// itemError 批量错误列表中的条目，如 "Workflow w1: not found"
func itemError(o domain.SyncOutcome, ref string) string {
	if o.Success {
		return ""
	}
	label := o.Kind.Label()
	if label == "" {
		label = "Artifact"
	}
	msg := o.Error
	if msg == "" {
		msg = "unknown error"
	}
	return fmt.Sprintf("%s %s: %s", label, ref, msg)
}

func itemRef(o domain.SyncOutcome) string {
	if o.FilePath != "" {
		return o.FilePath
	}
	return string(o.Kind) + "/" + o.ArtifactID
}

func kindOfPath(rel string) domain.ArtifactKind {
	switch {
	case strings.HasPrefix(rel, domain.KindWorkflow.Dir()+"/"):
		return domain.KindWorkflow
	case strings.HasPrefix(rel, domain.KindApplication.Dir()+"/"):
		return domain.KindApplication
	}
	return ""
}

func outcomeStatus(o domain.SyncOutcome) domain.SyncStatus {
	switch {
	case o.Conflict:
		return domain.SyncStatusConflict
	case !o.Success:
		return domain.SyncStatusFailed
	}
	return domain.SyncStatusCompleted
}

func bulkStatus(b *domain.BulkOutcome) domain.SyncStatus {
	switch {
	case b.Success:
		return domain.SyncStatusCompleted
	case b.Failed == 0 && b.Conflicts > 0:
		return domain.SyncStatusConflict
	}
	return domain.SyncStatusFailed
}

package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/haierkeys/artifact-git-sync/internal/domain"
	"github.com/haierkeys/artifact-git-sync/internal/dto"
	"github.com/haierkeys/artifact-git-sync/internal/gitstore"
	"github.com/haierkeys/artifact-git-sync/pkg/code"
	"github.com/haierkeys/artifact-git-sync/pkg/credential"
	"github.com/haierkeys/artifact-git-sync/pkg/fileurl"
	"github.com/haierkeys/artifact-git-sync/pkg/logger"
	"github.com/haierkeys/artifact-git-sync/pkg/writequeue"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RepositoryService 仓库连接管理与 Git 操作
type RepositoryService interface {
	Create(ctx context.Context, params *dto.RepositoryCreateRequest) (*dto.RepositoryDTO, error)
	Get(ctx context.Context, id string) (*dto.RepositoryDTO, error)
	List(ctx context.Context) ([]*dto.RepositoryDTO, error)
	Update(ctx context.Context, params *dto.RepositoryUpdateRequest) (*dto.RepositoryDTO, error)
	Delete(ctx context.Context, id string) error
	// Connection 返回完整连接配置，供同步引擎使用
	Connection(ctx context.Context, id string) (*domain.RepositoryConnection, error)
	// Clone 确保工作区存在
	Clone(ctx context.Context, id string) (*dto.RepositoryDTO, error)

	Status(ctx context.Context, id string) (*domain.RepoStatus, error)
	Commit(ctx context.Context, id string, params *dto.CommitRequest) (*domain.CommitResult, error)
	Push(ctx context.Context, id, branch string) (*domain.PushResult, error)
	Pull(ctx context.Context, id, branch string) (*domain.PullResult, error)
	Branches(ctx context.Context, id string) ([]domain.BranchInfo, error)
	CreateBranch(ctx context.Context, id string, params *dto.CreateBranchRequest) error
	CheckoutBranch(ctx context.Context, id, name string) error
	History(ctx context.Context, id string, limit int) ([]domain.CommitInfo, error)
	Diff(ctx context.Context, id, ref1, ref2 string) (string, error)
	ExportedFiles(ctx context.Context, id string) (*domain.ExportedFiles, error)
}

type repositoryService struct {
	registry domain.RepositoryRegistry
	states   domain.SyncStateRepository
	store    *gitstore.Store
	codec    *credential.Codec
	queue    *writequeue.Manager
	logger   *zap.Logger
}

// NewRepositoryService 创建仓库服务，codec 为 nil 时不接受带凭据的仓库
func NewRepositoryService(registry domain.RepositoryRegistry, states domain.SyncStateRepository, store *gitstore.Store, codec *credential.Codec, queue *writequeue.Manager, log *zap.Logger) RepositoryService {
	if log == nil {
		log = zap.NewNop()
	}
	return &repositoryService{
		registry: registry,
		states:   states,
		store:    store,
		codec:    codec,
		queue:    queue,
		logger:   log,
	}
}

func (s *repositoryService) domainToDTO(conn *domain.RepositoryConnection) *dto.RepositoryDTO {
	if conn == nil {
		return nil
	}
	return &dto.RepositoryDTO{
		ID:                  conn.ID,
		Name:                conn.Name,
		URL:                 conn.URL,
		Branch:              conn.Branch,
		AuthMode:            string(conn.AuthMode),
		HasCredentials:      conn.Credentials != "",
		AutoSyncEnabled:     conn.AutoSyncEnabled,
		SyncIntervalMinutes: conn.SyncIntervalMinutes,
		WorkspaceID:         conn.WorkspaceID,
		LocalPath:           conn.LocalPath,
		CreatedAt:           conn.CreatedAt,
		UpdatedAt:           conn.UpdatedAt,
	}
}

func (s *repositoryService) Create(ctx context.Context, params *dto.RepositoryCreateRequest) (*dto.RepositoryDTO, error) {
	conn := &domain.RepositoryConnection{
		ID:                  uuid.New().String(),
		Name:                strings.TrimSpace(params.Name),
		URL:                 strings.TrimSpace(params.URL),
		Branch:              params.Branch,
		AuthMode:            domain.AuthMode(params.AuthMode),
		AutoSyncEnabled:     params.AutoSyncEnabled,
		SyncIntervalMinutes: params.SyncIntervalMinutes,
		WorkspaceID:         params.WorkspaceID,
	}
	conn.ApplyDefaults()

	if err := s.applyCredentials(conn, params.Credentials); err != nil {
		return nil, err
	}

	saved, err := s.registry.Save(ctx, conn)
	if err != nil {
		return nil, code.ErrorRepositorySaveFailed.WithDetails(err.Error())
	}
	s.logger.Info("repository created",
		zap.String(logger.FieldRepositoryID, saved.ID),
		zap.String("url", saved.URL),
		zap.String(logger.FieldBranch, saved.Branch))

	if params.CloneNow {
		return s.Clone(ctx, saved.ID)
	}
	return s.domainToDTO(saved), nil
}

// applyCredentials 校验认证方式所需凭据并加密保存
func (s *repositoryService) applyCredentials(conn *domain.RepositoryConnection, creds *dto.CredentialsRequest) error {
	if !conn.AuthMode.Valid() {
		return code.ErrorInvalidParams.WithDetails("unknown auth mode " + string(conn.AuthMode))
	}
	if creds.IsEmpty() {
		if conn.AuthMode != domain.AuthModeNone && conn.Credentials == "" {
			return code.ErrorCredentialInvalid.WithDetails("credentials are required for auth mode " + string(conn.AuthMode))
		}
		return nil
	}

	switch conn.AuthMode {
	case domain.AuthModeNone:
		conn.Credentials = ""
		return nil
	case domain.AuthModeToken:
		if creds.Token == "" {
			return code.ErrorCredentialInvalid.WithDetails("token is required")
		}
	case domain.AuthModeSSH:
		if creds.SSHKey == "" && creds.SSHKeyPath == "" {
			return code.ErrorCredentialInvalid.WithDetails("sshKey or sshKeyPath is required")
		}
	}
	if s.codec == nil {
		return code.ErrorCredentialInvalid.WithDetails("security.credential-key is not configured")
	}

	secret := credential.Secret{
		Username:      creds.Username,
		Token:         creds.Token,
		SSHKey:        creds.SSHKey,
		SSHKeyPath:    creds.SSHKeyPath,
		SSHPassphrase: creds.SSHPassphrase,
		SSHUser:       creds.SSHUser,
	}
	defer secret.Wipe()

	blob, err := s.codec.Seal(secret)
	if err != nil {
		return code.ErrorCredentialInvalid.WithDetails(err.Error())
	}
	conn.Credentials = blob
	return nil
}

func (s *repositoryService) Connection(ctx context.Context, id string) (*domain.RepositoryConnection, error) {
	conn, err := s.registry.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrRepositoryNotFound) {
			return nil, code.ErrorRepositoryNotFound.WithRepository(id)
		}
		return nil, code.ErrorDBQuery.WithDetails(err.Error())
	}
	return conn, nil
}

func (s *repositoryService) Get(ctx context.Context, id string) (*dto.RepositoryDTO, error) {
	conn, err := s.Connection(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.domainToDTO(conn), nil
}

func (s *repositoryService) List(ctx context.Context) ([]*dto.RepositoryDTO, error) {
	conns, err := s.registry.List(ctx)
	if err != nil {
		return nil, code.ErrorDBQuery.WithDetails(err.Error())
	}
	res := make([]*dto.RepositoryDTO, 0, len(conns))
	for _, c := range conns {
		res = append(res, s.domainToDTO(c))
	}
	return res, nil
}

func (s *repositoryService) Update(ctx context.Context, params *dto.RepositoryUpdateRequest) (*dto.RepositoryDTO, error) {
	var out *dto.RepositoryDTO
	err := s.exec(ctx, params.ID, func() error {
		conn, err := s.Connection(ctx, params.ID)
		if err != nil {
			return err
		}

		relocated := false
		if params.Name != nil {
			conn.Name = strings.TrimSpace(*params.Name)
		}
		if params.URL != nil && strings.TrimSpace(*params.URL) != conn.URL {
			conn.URL = strings.TrimSpace(*params.URL)
			relocated = true
		}
		if params.Branch != nil && *params.Branch != "" && *params.Branch != conn.Branch {
			conn.Branch = *params.Branch
			relocated = true
		}
		if params.AuthMode != nil {
			conn.AuthMode = domain.AuthMode(*params.AuthMode)
			if conn.AuthMode == domain.AuthModeNone {
				conn.Credentials = ""
			}
		}
		if params.AutoSyncEnabled != nil {
			conn.AutoSyncEnabled = *params.AutoSyncEnabled
		}
		if params.SyncIntervalMinutes != nil {
			conn.SyncIntervalMinutes = *params.SyncIntervalMinutes
		}
		if params.WorkspaceID != nil {
			conn.WorkspaceID = *params.WorkspaceID
		}
		conn.ApplyDefaults()

		if err := s.applyCredentials(conn, params.Credentials); err != nil {
			return err
		}

		// 地址或分支变化后旧工作区作废
		if relocated && conn.LocalPath != "" {
			if err := s.store.Remove(ctx, conn.ID); err != nil {
				return code.ErrorGitOperation.WithDetails(err.Error())
			}
			conn.LocalPath = ""
		}

		saved, err := s.registry.Save(ctx, conn)
		if err != nil {
			return code.ErrorRepositorySaveFailed.WithDetails(err.Error())
		}
		out = s.domainToDTO(saved)
		return nil
	})
	return out, err
}

func (s *repositoryService) Delete(ctx context.Context, id string) error {
	return s.exec(ctx, id, func() error {
		if _, err := s.Connection(ctx, id); err != nil {
			return err
		}
		if err := s.store.Remove(ctx, id); err != nil {
			return code.ErrorGitOperation.WithDetails(err.Error())
		}
		if err := s.states.Delete(ctx, id); err != nil {
			return code.ErrorDBQuery.WithDetails(err.Error())
		}
		if err := s.registry.Delete(ctx, id); err != nil {
			return mapRepositoryError(id, err)
		}
		s.logger.Info("repository deleted", zap.String(logger.FieldRepositoryID, id))
		return nil
	})
}

func (s *repositoryService) Clone(ctx context.Context, id string) (*dto.RepositoryDTO, error) {
	var out *dto.RepositoryDTO
	err := s.withWorkingCopy(ctx, id, func(conn *domain.RepositoryConnection, wc *gitstore.WorkingCopy) error {
		out = s.domainToDTO(conn)
		return nil
	})
	return out, err
}

func (s *repositoryService) Status(ctx context.Context, id string) (*domain.RepoStatus, error) {
	var out *domain.RepoStatus
	err := s.withWorkingCopy(ctx, id, func(conn *domain.RepositoryConnection, wc *gitstore.WorkingCopy) (err error) {
		out, err = s.store.Status(ctx, wc)
		return err
	})
	return out, err
}

func (s *repositoryService) Commit(ctx context.Context, id string, params *dto.CommitRequest) (*domain.CommitResult, error) {
	var author *domain.Signature
	if params.AuthorName != "" {
		author = &domain.Signature{Name: params.AuthorName, Email: params.AuthorEmail}
	}
	var out *domain.CommitResult
	err := s.withWorkingCopy(ctx, id, func(conn *domain.RepositoryConnection, wc *gitstore.WorkingCopy) (err error) {
		out, err = s.store.Commit(ctx, wc, params.Message, author)
		return err
	})
	return out, err
}

func (s *repositoryService) Push(ctx context.Context, id, branch string) (*domain.PushResult, error) {
	var out *domain.PushResult
	err := s.withWorkingCopy(ctx, id, func(conn *domain.RepositoryConnection, wc *gitstore.WorkingCopy) (err error) {
		out, err = s.store.Push(ctx, wc, branch, conn)
		return err
	})
	return out, err
}

func (s *repositoryService) Pull(ctx context.Context, id, branch string) (*domain.PullResult, error) {
	var out *domain.PullResult
	err := s.withWorkingCopy(ctx, id, func(conn *domain.RepositoryConnection, wc *gitstore.WorkingCopy) (err error) {
		out, err = s.store.Pull(ctx, wc, branch)
		return err
	})
	return out, err
}

func (s *repositoryService) Branches(ctx context.Context, id string) ([]domain.BranchInfo, error) {
	var out []domain.BranchInfo
	err := s.withWorkingCopy(ctx, id, func(conn *domain.RepositoryConnection, wc *gitstore.WorkingCopy) (err error) {
		out, err = s.store.ListBranches(ctx, wc)
		return err
	})
	return out, err
}

func (s *repositoryService) CreateBranch(ctx context.Context, id string, params *dto.CreateBranchRequest) error {
	return s.withWorkingCopy(ctx, id, func(conn *domain.RepositoryConnection, wc *gitstore.WorkingCopy) error {
		return s.store.CreateBranch(ctx, wc, params.Name, params.From)
	})
}

func (s *repositoryService) CheckoutBranch(ctx context.Context, id, name string) error {
	return s.withWorkingCopy(ctx, id, func(conn *domain.RepositoryConnection, wc *gitstore.WorkingCopy) error {
		return s.store.CheckoutBranch(ctx, wc, name)
	})
}

func (s *repositoryService) History(ctx context.Context, id string, limit int) ([]domain.CommitInfo, error) {
	var out []domain.CommitInfo
	err := s.withWorkingCopy(ctx, id, func(conn *domain.RepositoryConnection, wc *gitstore.WorkingCopy) (err error) {
		out, err = s.store.History(ctx, wc, limit)
		return err
	})
	return out, err
}

func (s *repositoryService) Diff(ctx context.Context, id, ref1, ref2 string) (string, error) {
	var out string
	err := s.withWorkingCopy(ctx, id, func(conn *domain.RepositoryConnection, wc *gitstore.WorkingCopy) (err error) {
		out, err = s.store.Diff(ctx, wc, ref1, ref2)
		return err
	})
	return out, err
}

func (s *repositoryService) ExportedFiles(ctx context.Context, id string) (*domain.ExportedFiles, error) {
	var out *domain.ExportedFiles
	err := s.withWorkingCopy(ctx, id, func(conn *domain.RepositoryConnection, wc *gitstore.WorkingCopy) (err error) {
		out, err = s.store.ListExportedFiles(ctx, wc)
		return err
	})
	return out, err
}

// withWorkingCopy 在仓库写队列中打开工作区并执行 fn，首次克隆成功后记录 LocalPath
func (s *repositoryService) withWorkingCopy(ctx context.Context, id string, fn func(conn *domain.RepositoryConnection, wc *gitstore.WorkingCopy) error) error {
	return s.exec(ctx, id, func() error {
		conn, err := s.Connection(ctx, id)
		if err != nil {
			return err
		}
		wc, err := openRecorded(ctx, s.store, s.registry, conn, s.logger)
		if err != nil {
			return mapRepositoryError(id, err)
		}
		if err := fn(conn, wc); err != nil {
			return mapRepositoryError(id, err)
		}
		return nil
	})
}

func (s *repositoryService) exec(ctx context.Context, id string, fn func() error) error {
	if s.queue == nil {
		return fn()
	}
	err := s.queue.Execute(ctx, id, fn)
	switch {
	case errors.Is(err, writequeue.ErrWriteQueueFull), errors.Is(err, writequeue.ErrWriteTimeout):
		return code.ErrorRepositoryBusy.WithRepository(id)
	case errors.Is(err, writequeue.ErrWriteQueueClosed):
		return code.ErrorServerInternal.WithDetails(err.Error())
	}
	return err
}

// openRecorded 打开或克隆工作区，LocalPath 为空时写回注册表
func openRecorded(ctx context.Context, store ArtifactStore, registry domain.RepositoryRegistry, conn *domain.RepositoryConnection, log *zap.Logger) (*gitstore.WorkingCopy, error) {
	wc, err := store.OpenOrClone(ctx, conn)
	if err != nil {
		forgetLocalPath(ctx, registry, conn, log)
		return nil, err
	}
	if conn.LocalPath != wc.Path {
		if err := registry.SetLocalPath(ctx, conn.ID, wc.Path); err != nil {
			log.Warn("record local path failed",
				zap.String(logger.FieldRepositoryID, conn.ID),
				zap.Error(err))
		} else {
			conn.LocalPath = wc.Path
			conn.UpdatedAt = time.Now()
		}
	}
	return wc, nil
}

// forgetLocalPath 工作区已被丢弃且未能重新克隆时清空 LocalPath
func forgetLocalPath(ctx context.Context, registry domain.RepositoryRegistry, conn *domain.RepositoryConnection, log *zap.Logger) {
	if conn.LocalPath == "" || fileurl.IsExist(conn.LocalPath) {
		return
	}
	if err := registry.SetLocalPath(ctx, conn.ID, ""); err != nil {
		log.Warn("clear local path failed",
			zap.String(logger.FieldRepositoryID, conn.ID),
			zap.Error(err))
		return
	}
	conn.LocalPath = ""
	conn.UpdatedAt = time.Now()
}

// RecordingStore 包装 ArtifactStore，同步引擎首次获得工作区时记录 LocalPath
type RecordingStore struct {
	ArtifactStore
	registry domain.RepositoryRegistry
	logger   *zap.Logger
}

// NewRecordingStore 创建 RecordingStore
func NewRecordingStore(store ArtifactStore, registry domain.RepositoryRegistry, log *zap.Logger) *RecordingStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &RecordingStore{ArtifactStore: store, registry: registry, logger: log}
}

func (r *RecordingStore) OpenOrClone(ctx context.Context, conn *domain.RepositoryConnection) (*gitstore.WorkingCopy, error) {
	return openRecorded(ctx, r.ArtifactStore, r.registry, conn, r.logger)
}

// mapRepositoryError 将领域错误转换为错误码
func mapRepositoryError(id string, err error) error {
	if err == nil {
		return nil
	}

	var (
		codeErr    *code.Code
		cloneErr   *domain.CloneError
		invalidErr *domain.InvalidRepositoryError
		branchErr  *domain.BranchError
		fileErr    *domain.FileNotFoundError
	)
	switch {
	case errors.As(err, &codeErr):
		return err
	case domain.IsNoChanges(err):
		return err
	case errors.Is(err, domain.ErrRepositoryNotFound):
		return code.ErrorRepositoryNotFound.WithRepository(id)
	case errors.As(err, &cloneErr), errors.As(err, &invalidErr):
		return code.ErrorGitClone.WithRepository(id).WithDetails(err.Error())
	case errors.As(err, &branchErr):
		return code.ErrorGitBranch.WithRepository(id).WithDetails(err.Error())
	case errors.As(err, &fileErr):
		return code.ErrorFileNotFound.WithRepository(id).WithDetails(err.Error())
	}
	return code.ErrorGitOperation.WithRepository(id).WithDetails(err.Error())
}

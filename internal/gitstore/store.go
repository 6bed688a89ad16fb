// Package gitstore 管理每个仓库连接对应的本地 Git 工作区
// 工作区按仓库 ID 存放在 <workspace-dir>/<id>，由 Store 独占
package gitstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/haierkeys/artifact-git-sync/internal/domain"
	"github.com/haierkeys/artifact-git-sync/pkg/credential"
	"github.com/haierkeys/artifact-git-sync/pkg/fileurl"
	"github.com/haierkeys/artifact-git-sync/pkg/logger"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"go.uber.org/zap"
)

const remoteName = "origin"

// Config Git 工作区配置
type Config struct {
	// WorkspaceDir 工作区根目录
	WorkspaceDir string `yaml:"workspace-dir" default:"storage/git_workspace"`
	// AuthorName 默认提交作者
	AuthorName string `yaml:"author-name" default:"Artifact Sync"`
	// AuthorEmail 默认提交邮箱
	AuthorEmail string `yaml:"author-email" default:"artifact-sync@localhost"`
	// CloneDepth 克隆深度，0 表示完整历史
	CloneDepth int `yaml:"clone-depth" default:"0"`
	// KnownHostsFile SSH known_hosts 文件，为空时使用系统默认
	KnownHostsFile string `yaml:"known-hosts-file"`
	// InsecureIgnoreHostKey 跳过 SSH 主机密钥校验
	InsecureIgnoreHostKey bool `yaml:"insecure-ignore-host-key" default:"false"`
}

// CredentialOpener 解开仓库连接中加密的凭据
type CredentialOpener interface {
	Open(blob string) (*credential.Secret, error)
}

// Store 仓库工作区存储
type Store struct {
	cfg    Config
	creds  CredentialOpener
	logger *zap.Logger
}

// WorkingCopy 已就绪的本地工作区
type WorkingCopy struct {
	ID   string
	Path string
	// Branch 连接配置的默认分支
	Branch string

	repo *git.Repository
	conn domain.RepositoryConnection
}

// New 创建 Store，creds 为 nil 时仅支持无凭据仓库
func New(cfg Config, creds CredentialOpener, log *zap.Logger) *Store {
	if cfg.WorkspaceDir == "" {
		cfg.WorkspaceDir = filepath.Join("storage", "git_workspace")
	}
	if cfg.AuthorName == "" {
		cfg.AuthorName = "Artifact Sync"
	}
	if cfg.AuthorEmail == "" {
		cfg.AuthorEmail = "artifact-sync@localhost"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{cfg: cfg, creds: creds, logger: log}
}

// Path 返回仓库工作区路径
func (s *Store) Path(id string) string {
	return filepath.Join(s.cfg.WorkspaceDir, id)
}

// OpenOrClone 打开已有工作区，不存在或已损坏时重新克隆
func (s *Store) OpenOrClone(ctx context.Context, conn *domain.RepositoryConnection) (*WorkingCopy, error) {
	path := s.Path(conn.ID)
	branch := conn.Branch
	if branch == "" {
		branch = domain.DefaultBranch
	}

	if fileurl.IsExist(path) {
		repo, err := git.PlainOpen(path)
		if err == nil {
			return &WorkingCopy{ID: conn.ID, Path: path, Branch: branch, repo: repo, conn: *conn}, nil
		}

		s.logger.Warn("discarding invalid working copy",
			zap.String(logger.FieldRepositoryID, conn.ID),
			zap.String(logger.FieldPath, path),
			zap.Error(err))
		if rmErr := os.RemoveAll(path); rmErr != nil {
			return nil, &domain.InvalidRepositoryError{Path: path, Err: rmErr}
		}
	}

	return s.clone(ctx, conn, path, branch)
}

func (s *Store) clone(ctx context.Context, conn *domain.RepositoryConnection, path, branch string) (*WorkingCopy, error) {
	scope, err := s.acquireAuth(conn)
	if err != nil {
		return nil, &domain.CloneError{URL: conn.URL, Err: err}
	}
	defer scope.Close()

	s.logger.Info("cloning repository",
		zap.String(logger.FieldRepositoryID, conn.ID),
		zap.String(logger.FieldBranch, branch))

	repo, err := git.PlainCloneContext(ctx, path, false, &git.CloneOptions{
		URL:           conn.URL,
		Auth:          scope.Method(),
		RemoteName:    remoteName,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		Depth:         s.cfg.CloneDepth,
	})
	if errors.Is(err, transport.ErrEmptyRemoteRepository) {
		_ = os.RemoveAll(path)
		repo, err = initEmpty(path, conn.URL, branch)
	}
	if err != nil {
		_ = os.RemoveAll(path)
		return nil, &domain.CloneError{URL: conn.URL, Err: err}
	}

	return &WorkingCopy{ID: conn.ID, Path: path, Branch: branch, repo: repo, conn: *conn}, nil
}

// initEmpty 远程为空仓库时初始化本地仓库，HEAD 指向尚未诞生的 branch
func initEmpty(path, url, branch string) (*git.Repository, error) {
	repo, err := git.PlainInit(path, false)
	if err != nil {
		return nil, err
	}
	if _, err := repo.CreateRemote(&config.RemoteConfig{Name: remoteName, URLs: []string{url}}); err != nil {
		return nil, err
	}
	ref := plumbing.NewBranchReferenceName(branch)
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, ref)); err != nil {
		return nil, err
	}
	if err := repo.CreateBranch(&config.Branch{Name: branch, Remote: remoteName, Merge: ref}); err != nil {
		return nil, err
	}
	return repo, nil
}

// Remove 删除仓库工作区
func (s *Store) Remove(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("empty repository id")
	}
	return os.RemoveAll(s.Path(id))
}

// Status 工作区状态
func (s *Store) Status(ctx context.Context, wc *WorkingCopy) (*domain.RepoStatus, error) {
	wt, err := wc.repo.Worktree()
	if err != nil {
		return nil, err
	}
	st, err := wt.Status()
	if err != nil {
		return nil, err
	}

	res := &domain.RepoStatus{
		Branch:         wc.CurrentBranch(),
		Dirty:          !st.IsClean(),
		UntrackedFiles: []string{},
		ModifiedFiles:  []string{},
		StagedFiles:    []string{},
	}
	for file, fs := range st {
		if fs.Worktree == git.Untracked {
			res.UntrackedFiles = append(res.UntrackedFiles, file)
			continue
		}
		if fs.Staging != git.Unmodified {
			res.StagedFiles = append(res.StagedFiles, file)
		}
		if fs.Worktree != git.Unmodified {
			res.ModifiedFiles = append(res.ModifiedFiles, file)
		}
	}
	sort.Strings(res.UntrackedFiles)
	sort.Strings(res.ModifiedFiles)
	sort.Strings(res.StagedFiles)

	if head, err := wc.repo.Head(); err == nil {
		if c, err := wc.repo.CommitObject(head.Hash()); err == nil {
			info := commitInfo(c)
			res.LastCommit = &info
		}
	}
	return res, nil
}

// Head 当前 HEAD 提交哈希，分支尚未诞生时为空
func (wc *WorkingCopy) Head() string {
	ref, err := wc.repo.Head()
	if err != nil {
		return ""
	}
	return ref.Hash().String()
}

// CurrentBranch 当前分支名，游离 HEAD 时为空
func (wc *WorkingCopy) CurrentBranch() string {
	ref, err := wc.repo.Storer.Reference(plumbing.HEAD)
	if err != nil || ref.Type() != plumbing.SymbolicReference {
		return ""
	}
	return ref.Target().Short()
}

func commitInfo(c *object.Commit) domain.CommitInfo {
	hash := c.Hash.String()
	return domain.CommitInfo{
		Hash:        hash,
		ShortHash:   hash[:7],
		Message:     firstLine(c.Message),
		Author:      fmt.Sprintf("%s <%s>", c.Author.Name, c.Author.Email),
		CommittedAt: c.Committer.When,
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

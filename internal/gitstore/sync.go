package gitstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/haierkeys/artifact-git-sync/internal/domain"
	"github.com/haierkeys/artifact-git-sync/pkg/logger"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"go.uber.org/zap"
)

// nothingToPull 远程为空或尚无该分支
func nothingToPull(err error) bool {
	return errors.Is(err, git.NoErrAlreadyUpToDate) ||
		errors.Is(err, transport.ErrEmptyRemoteRepository) ||
		errors.Is(err, git.NoMatchingRefSpecError{})
}

// Pull 切换到 branch（非空时）后拉取远程
func (s *Store) Pull(ctx context.Context, wc *WorkingCopy, branch string) (*domain.PullResult, error) {
	if branch != "" && branch != wc.CurrentBranch() {
		if err := s.checkout(wc, branch); err != nil {
			return nil, &domain.PullError{Branch: branch, Err: err}
		}
	}
	if branch == "" {
		branch = wc.CurrentBranch()
	}
	if branch == "" {
		return nil, &domain.PullError{Err: fmt.Errorf("HEAD is detached")}
	}

	scope, err := s.acquireAuth(&wc.conn)
	if err != nil {
		return nil, &domain.PullError{Branch: branch, Err: err}
	}
	defer scope.Close()

	before := wc.Head()

	err = wc.repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: remoteName,
		Auth:       scope.Method(),
		RefSpecs:   []config.RefSpec{config.RefSpec(fmt.Sprintf("+refs/heads/*:refs/remotes/%s/*", remoteName))},
	})
	if err != nil && !nothingToPull(err) {
		return nil, &domain.PullError{Branch: branch, Err: err}
	}

	wt, err := wc.repo.Worktree()
	if err != nil {
		return nil, &domain.PullError{Branch: branch, Err: err}
	}
	err = wt.PullContext(ctx, &git.PullOptions{
		RemoteName:    remoteName,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		Auth:          scope.Method(),
		SingleBranch:  true,
	})
	if err != nil && !nothingToPull(err) {
		return nil, &domain.PullError{Branch: branch, Err: err}
	}

	after := wc.Head()
	s.logger.Debug("pulled",
		zap.String(logger.FieldRepositoryID, wc.ID),
		zap.String(logger.FieldBranch, branch),
		zap.String("before", before),
		zap.String("after", after))

	return &domain.PullResult{Updated: before != after, BeforeRef: before, AfterRef: after}, nil
}

// Push 推送 branch，为空时推送当前分支；conn 为 nil 时使用打开工作区时的连接
func (s *Store) Push(ctx context.Context, wc *WorkingCopy, branch string, conn *domain.RepositoryConnection) (*domain.PushResult, error) {
	if conn == nil {
		conn = &wc.conn
	}
	if branch == "" {
		branch = wc.CurrentBranch()
	}
	if branch == "" {
		return nil, &domain.PushError{Err: fmt.Errorf("HEAD is detached")}
	}

	scope, err := s.acquireAuth(conn)
	if err != nil {
		return nil, &domain.PushError{Branch: branch, Err: err}
	}
	defer scope.Close()

	ref := plumbing.NewBranchReferenceName(branch)
	err = wc.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   []config.RefSpec{config.RefSpec(ref.String() + ":" + ref.String())},
		Auth:       scope.Method(),
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil, &domain.PushError{Branch: branch, Err: err}
	}

	s.logger.Info("pushed",
		zap.String(logger.FieldRepositoryID, wc.ID),
		zap.String(logger.FieldBranch, branch))
	return &domain.PushResult{Branch: branch}, nil
}

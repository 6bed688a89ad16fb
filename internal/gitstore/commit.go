package gitstore

import (
	"context"
	"errors"
	"time"

	"github.com/haierkeys/artifact-git-sync/internal/domain"
	"github.com/haierkeys/artifact-git-sync/pkg/logger"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"go.uber.org/zap"
)

const DefaultHistoryLimit = 10

// Commit 暂存全部变更（含未跟踪文件）并提交，工作区干净时返回 NoChangesError
func (s *Store) Commit(ctx context.Context, wc *WorkingCopy, message string, author *domain.Signature) (*domain.CommitResult, error) {
	wt, err := wc.repo.Worktree()
	if err != nil {
		return nil, err
	}

	status, err := wt.Status()
	if err != nil {
		return nil, err
	}
	if status.IsClean() {
		return nil, &domain.NoChangesError{}
	}

	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return nil, err
	}

	sig := &object.Signature{
		Name:  s.cfg.AuthorName,
		Email: s.cfg.AuthorEmail,
		When:  time.Now(),
	}
	if author != nil && author.Name != "" {
		sig.Name = author.Name
		if author.Email != "" {
			sig.Email = author.Email
		}
	}

	hash, err := wt.Commit(message, &git.CommitOptions{Author: sig})
	if err != nil {
		return nil, err
	}

	s.logger.Info("committed",
		zap.String(logger.FieldRepositoryID, wc.ID),
		zap.String("hash", hash.String()))
	return &domain.CommitResult{Hash: hash.String()}, nil
}

// History 从 HEAD 开始的提交历史，最新在前，最多 limit 条
func (s *Store) History(ctx context.Context, wc *WorkingCopy, limit int) ([]domain.CommitInfo, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	res := make([]domain.CommitInfo, 0, limit)
	head, err := wc.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return res, nil
		}
		return nil, err
	}

	iter, err := wc.repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		res = append(res, commitInfo(c))
		if len(res) >= limit {
			return storer.ErrStop
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

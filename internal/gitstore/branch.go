package gitstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/haierkeys/artifact-git-sync/internal/domain"
	"github.com/haierkeys/artifact-git-sync/pkg/util"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
)

var (
	errBranchExists  = errors.New("branch already exists")
	errBranchMissing = errors.New("branch does not exist")
	errInvalidBranch = errors.New("invalid branch name")
)

// CreateBranch 从 from（为空时为 HEAD）创建分支并切换过去
func (s *Store) CreateBranch(ctx context.Context, wc *WorkingCopy, name, from string) error {
	if !util.IsValidBranchName(name) {
		return &domain.BranchError{Op: "create", Branch: name, Err: errInvalidBranch}
	}

	ref := plumbing.NewBranchReferenceName(name)
	if _, err := wc.repo.Reference(ref, false); err == nil {
		return &domain.BranchError{Op: "create", Branch: name, Err: errBranchExists}
	}

	rev := from
	if rev == "" {
		rev = "HEAD"
	}
	hash, err := wc.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return &domain.BranchError{Op: "create", Branch: name, Err: fmt.Errorf("resolve %q: %w", rev, err)}
	}

	if err := wc.repo.Storer.SetReference(plumbing.NewHashReference(ref, *hash)); err != nil {
		return &domain.BranchError{Op: "create", Branch: name, Err: err}
	}

	wt, err := wc.repo.Worktree()
	if err != nil {
		return &domain.BranchError{Op: "create", Branch: name, Err: err}
	}
	if err := wt.Checkout(&git.CheckoutOptions{Branch: ref, Keep: true}); err != nil {
		_ = wc.repo.Storer.RemoveReference(ref)
		return &domain.BranchError{Op: "create", Branch: name, Err: err}
	}
	return nil
}

// CheckoutBranch 切换到已存在的本地分支，或基于同名远程跟踪分支创建
func (s *Store) CheckoutBranch(ctx context.Context, wc *WorkingCopy, name string) error {
	if !util.IsValidBranchName(name) {
		return &domain.BranchError{Op: "checkout", Branch: name, Err: errInvalidBranch}
	}
	if err := s.checkout(wc, name); err != nil {
		return &domain.BranchError{Op: "checkout", Branch: name, Err: err}
	}
	return nil
}

func (s *Store) checkout(wc *WorkingCopy, name string) error {
	ref := plumbing.NewBranchReferenceName(name)

	if _, err := wc.repo.Reference(ref, false); err != nil {
		remoteRef := plumbing.NewRemoteReferenceName(remoteName, name)
		r, rerr := wc.repo.Reference(remoteRef, true)
		if rerr != nil {
			return errBranchMissing
		}
		if err := wc.repo.Storer.SetReference(plumbing.NewHashReference(ref, r.Hash())); err != nil {
			return err
		}
		_ = wc.repo.CreateBranch(&config.Branch{Name: name, Remote: remoteName, Merge: ref})
	}

	wt, err := wc.repo.Worktree()
	if err != nil {
		return err
	}
	return wt.Checkout(&git.CheckoutOptions{Branch: ref, Keep: true})
}

// ListBranches 本地分支在前，其后为本地不存在的远程跟踪分支
func (s *Store) ListBranches(ctx context.Context, wc *WorkingCopy) ([]domain.BranchInfo, error) {
	current := wc.CurrentBranch()
	seen := map[string]bool{}

	var local, remote []domain.BranchInfo

	refs, err := wc.repo.References()
	if err != nil {
		return nil, err
	}
	err = refs.ForEach(func(r *plumbing.Reference) error {
		if r.Type() != plumbing.HashReference {
			return nil
		}
		switch {
		case r.Name().IsBranch():
			name := r.Name().Short()
			local = append(local, s.branchInfo(wc, name, r.Hash(), name == current, false))
		case r.Name().IsRemote():
			name := strings.TrimPrefix(r.Name().Short(), remoteName+"/")
			if name == "HEAD" {
				return nil
			}
			remote = append(remote, s.branchInfo(wc, name, r.Hash(), false, true))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(local, func(i, j int) bool { return local[i].Name < local[j].Name })
	sort.Slice(remote, func(i, j int) bool { return remote[i].Name < remote[j].Name })

	res := make([]domain.BranchInfo, 0, len(local)+len(remote))
	for _, b := range local {
		seen[b.Name] = true
		res = append(res, b)
	}
	for _, b := range remote {
		if seen[b.Name] {
			continue
		}
		seen[b.Name] = true
		res = append(res, b)
	}
	return res, nil
}

func (s *Store) branchInfo(wc *WorkingCopy, name string, hash plumbing.Hash, current, isRemote bool) domain.BranchInfo {
	info := domain.BranchInfo{
		Name:      name,
		IsCurrent: current,
		IsRemote:  isRemote,
		ShortHash: hash.String()[:7],
	}
	if c, err := wc.repo.CommitObject(hash); err == nil {
		info.Message = firstLine(c.Message)
	}
	return info
}

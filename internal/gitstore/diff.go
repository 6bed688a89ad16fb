package gitstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/haierkeys/artifact-git-sync/pkg/diff"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Diff 两个引用时比较两棵树；一个引用时比较该引用与工作区；都为空时比较 HEAD 与工作区
func (s *Store) Diff(ctx context.Context, wc *WorkingCopy, ref1, ref2 string) (string, error) {
	if ref1 == "" && ref2 != "" {
		ref1, ref2 = ref2, ""
	}

	if ref1 != "" && ref2 != "" {
		a, err := s.treeOf(wc, ref1)
		if err != nil {
			return "", err
		}
		b, err := s.treeOf(wc, ref2)
		if err != nil {
			return "", err
		}
		changes, err := a.DiffContext(ctx, b)
		if err != nil {
			return "", fmt.Errorf("compute changes: %w", err)
		}
		patch, err := changes.PatchContext(ctx)
		if err != nil {
			return "", fmt.Errorf("build patch: %w", err)
		}
		return patch.String(), nil
	}

	rev := ref1
	if rev == "" {
		rev = "HEAD"
	}
	tree, err := s.treeOf(wc, rev)
	if err != nil {
		// 分支尚未诞生时以空树比较
		if ref1 != "" || !errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", err
		}
		tree = nil
	}
	return s.workingTreeDiff(ctx, wc, tree)
}

func (s *Store) treeOf(wc *WorkingCopy, rev string) (*object.Tree, error) {
	hash, err := wc.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", rev, err)
	}
	c, err := wc.repo.CommitObject(*hash)
	if err != nil {
		return nil, err
	}
	return c.Tree()
}

// workingTreeDiff 逐文件比较 tree 与工作区内容，tree 为 nil 表示空树
func (s *Store) workingTreeDiff(ctx context.Context, wc *WorkingCopy, tree *object.Tree) (string, error) {
	before := map[string]string{}
	if tree != nil {
		err := tree.Files().ForEach(func(f *object.File) error {
			content, err := f.Contents()
			if err != nil {
				return err
			}
			before[f.Name] = content
			return nil
		})
		if err != nil {
			return "", err
		}
	}

	ignored, err := s.ignoreMatcher(wc)
	if err != nil {
		return "", err
	}
	// 被忽略但仍受版本控制的路径照常比较
	tracked := func(rel string, dir bool) bool {
		if !dir {
			_, ok := before[rel]
			return ok
		}
		for p := range before {
			if strings.HasPrefix(p, rel+"/") {
				return true
			}
		}
		return false
	}

	after := map[string]string{}
	err = filepath.WalkDir(wc.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == wc.Path {
			return nil
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}
		rel, err := filepath.Rel(wc.Path, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if ignored.Match(strings.Split(rel, "/"), d.IsDir()) && !tracked(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		after[rel] = string(b)
		return nil
	})
	if err != nil {
		return "", err
	}

	paths := make([]string, 0, len(before)+len(after))
	for p := range before {
		paths = append(paths, p)
	}
	for p := range after {
		if _, ok := before[p]; !ok {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	var sb strings.Builder
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		sb.WriteString(diff.LineDiff(p, before[p], after[p]))
	}
	return sb.String(), nil
}

// ignoreMatcher 汇总工作区 .gitignore 与 worktree Excludes
func (s *Store) ignoreMatcher(wc *WorkingCopy) (gitignore.Matcher, error) {
	wt, err := wc.repo.Worktree()
	if err != nil {
		return nil, err
	}
	patterns, err := gitignore.ReadPatterns(wt.Filesystem, nil)
	if err != nil {
		return nil, fmt.Errorf("read ignore patterns: %w", err)
	}
	patterns = append(patterns, wt.Excludes...)
	return gitignore.NewMatcher(patterns), nil
}

package gitstore

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/haierkeys/artifact-git-sync/internal/domain"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRemote 创建本地裸仓库作为远程，返回 file:// 地址
func newRemote(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available for file:// transport")
	}
	dir := filepath.Join(t.TempDir(), "remote.git")
	_, err := git.PlainInit(dir, true)
	require.NoError(t, err)
	return "file://" + filepath.ToSlash(dir)
}

func newStore(t *testing.T) *Store {
	t.Helper()
	return New(Config{WorkspaceDir: t.TempDir()}, nil, nil)
}

func testConn(url string) *domain.RepositoryConnection {
	c := &domain.RepositoryConnection{ID: "repo-1", Name: "flows", URL: url}
	c.ApplyDefaults()
	return c
}

func writeFile(t *testing.T, wc *WorkingCopy, rel, content string) {
	t.Helper()
	full := filepath.Join(wc.Path, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

// seedRemote 向空远程推送一个初始提交
func seedRemote(t *testing.T, url string) {
	t.Helper()
	ctx := context.Background()
	s := newStore(t)
	conn := testConn(url)

	wc, err := s.OpenOrClone(ctx, conn)
	require.NoError(t, err)
	assert.Empty(t, wc.Head(), "empty remote yields an unborn branch")
	assert.Equal(t, "main", wc.CurrentBranch())

	writeFile(t, wc, "README.md", "# flows\n")
	_, err = s.Commit(ctx, wc, "initial", nil)
	require.NoError(t, err)
	_, err = s.Push(ctx, wc, "", nil)
	require.NoError(t, err)
}

func TestOpenOrClone_Idempotent(t *testing.T) {
	ctx := context.Background()
	url := newRemote(t)
	seedRemote(t, url)

	s := newStore(t)
	conn := testConn(url)

	first, err := s.OpenOrClone(ctx, conn)
	require.NoError(t, err)
	second, err := s.OpenOrClone(ctx, conn)
	require.NoError(t, err)

	assert.Equal(t, first.Path, second.Path)
	assert.NotEmpty(t, first.Head())
	assert.Equal(t, first.Head(), second.Head())
	assert.Equal(t, "main", second.CurrentBranch())
}

func TestOpenOrClone_DiscardsInvalidCopy(t *testing.T) {
	ctx := context.Background()
	url := newRemote(t)
	seedRemote(t, url)

	s := newStore(t)
	conn := testConn(url)

	junk := filepath.Join(s.Path(conn.ID), "junk.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(junk), 0o755))
	require.NoError(t, os.WriteFile(junk, []byte("x"), 0o644))

	wc, err := s.OpenOrClone(ctx, conn)
	require.NoError(t, err)
	assert.NoFileExists(t, junk)
	assert.FileExists(t, filepath.Join(wc.Path, "README.md"))
}

func TestOpenOrClone_InvalidCopyUnreachableRemote(t *testing.T) {
	ctx := context.Background()
	newRemote(t)

	s := newStore(t)
	conn := testConn("file://" + filepath.ToSlash(filepath.Join(t.TempDir(), "missing.git")))

	junk := filepath.Join(s.Path(conn.ID), "junk.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(junk), 0o755))
	require.NoError(t, os.WriteFile(junk, []byte("x"), 0o644))

	_, err := s.OpenOrClone(ctx, conn)
	var cloneErr *domain.CloneError
	require.True(t, errors.As(err, &cloneErr), "got %v", err)
	assert.NoDirExists(t, s.Path(conn.ID))
}

func TestOpenOrClone_CloneError(t *testing.T) {
	ctx := context.Background()
	newRemote(t)

	s := newStore(t)
	conn := testConn("file://" + filepath.ToSlash(filepath.Join(t.TempDir(), "missing.git")))

	_, err := s.OpenOrClone(ctx, conn)
	var cloneErr *domain.CloneError
	require.True(t, errors.As(err, &cloneErr), "got %v", err)
	assert.NoDirExists(t, s.Path(conn.ID))
}

func TestOpenOrClone_TokenWithoutCodec(t *testing.T) {
	s := newStore(t)
	conn := testConn("https://example.invalid/repo.git")
	conn.AuthMode = domain.AuthModeToken
	conn.Credentials = "sealed"

	_, err := s.OpenOrClone(context.Background(), conn)
	var cloneErr *domain.CloneError
	assert.True(t, errors.As(err, &cloneErr))
}

func TestCommit_CleanTreeIsNoChanges(t *testing.T) {
	ctx := context.Background()
	url := newRemote(t)
	seedRemote(t, url)

	s := newStore(t)
	wc, err := s.OpenOrClone(ctx, testConn(url))
	require.NoError(t, err)
	head := wc.Head()

	_, err = s.Commit(ctx, wc, "nothing", nil)
	assert.True(t, domain.IsNoChanges(err))
	assert.Equal(t, head, wc.Head())

	writeFile(t, wc, "workflows/new.json", "{}\n")
	res, err := s.Commit(ctx, wc, "add new", &domain.Signature{Name: "Dev", Email: "dev@example.com"})
	require.NoError(t, err)
	assert.Equal(t, res.Hash, wc.Head())

	history, err := s.History(ctx, wc, 5)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "add new", history[0].Message)
	assert.Equal(t, "Dev <dev@example.com>", history[0].Author)
	assert.Equal(t, "initial", history[1].Message)
	assert.Equal(t, "Artifact Sync <artifact-sync@localhost>", history[1].Author)
	assert.Len(t, history[0].ShortHash, 7)

	limited, err := s.History(ctx, wc, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestPushPull_BetweenWorkingCopies(t *testing.T) {
	ctx := context.Background()
	url := newRemote(t)
	seedRemote(t, url)

	a := newStore(t)
	b := newStore(t)
	wcA, err := a.OpenOrClone(ctx, testConn(url))
	require.NoError(t, err)
	wcB, err := b.OpenOrClone(ctx, testConn(url))
	require.NoError(t, err)

	writeFile(t, wcA, "workflows/workflow-w1.json", "{\"id\":\"w1\"}\n")
	_, err = a.Commit(ctx, wcA, "export w1", nil)
	require.NoError(t, err)
	pushed, err := a.Push(ctx, wcA, "main", nil)
	require.NoError(t, err)
	assert.Equal(t, "main", pushed.Branch)

	res, err := b.Pull(ctx, wcB, "main")
	require.NoError(t, err)
	assert.True(t, res.Updated)
	assert.NotEqual(t, res.BeforeRef, res.AfterRef)
	assert.Equal(t, wcA.Head(), res.AfterRef)
	assert.FileExists(t, filepath.Join(wcB.Path, "workflows", "workflow-w1.json"))

	res, err = b.Pull(ctx, wcB, "")
	require.NoError(t, err)
	assert.False(t, res.Updated)

	_, err = a.Push(ctx, wcA, "", nil)
	assert.NoError(t, err, "already up to date is success")
}

func TestBranches(t *testing.T) {
	ctx := context.Background()
	url := newRemote(t)
	seedRemote(t, url)

	s := newStore(t)
	wc, err := s.OpenOrClone(ctx, testConn(url))
	require.NoError(t, err)

	require.NoError(t, s.CreateBranch(ctx, wc, "feature", ""))
	assert.Equal(t, "feature", wc.CurrentBranch())

	var branchErr *domain.BranchError
	assert.True(t, errors.As(s.CreateBranch(ctx, wc, "feature", ""), &branchErr))
	assert.True(t, errors.As(s.CreateBranch(ctx, wc, "bad name", ""), &branchErr))
	assert.True(t, errors.As(s.CreateBranch(ctx, wc, "other", "no-such-ref"), &branchErr))
	assert.True(t, errors.As(s.CheckoutBranch(ctx, wc, "nope"), &branchErr))

	require.NoError(t, s.CheckoutBranch(ctx, wc, "main"))
	assert.Equal(t, "main", wc.CurrentBranch())

	// 另一个工作区推送 release 分支，本地只存在远程跟踪分支
	other := newStore(t)
	wcO, err := other.OpenOrClone(ctx, testConn(url))
	require.NoError(t, err)
	require.NoError(t, other.CreateBranch(ctx, wcO, "release", "main"))
	_, err = other.Push(ctx, wcO, "release", nil)
	require.NoError(t, err)
	_, err = s.Pull(ctx, wc, "main")
	require.NoError(t, err)

	branches, err := s.ListBranches(ctx, wc)
	require.NoError(t, err)

	names := map[string]domain.BranchInfo{}
	order := []string{}
	for _, b := range branches {
		_, dup := names[b.Name]
		assert.False(t, dup, "branch %s listed twice", b.Name)
		names[b.Name] = b
		order = append(order, b.Name)
	}
	assert.Equal(t, []string{"feature", "main", "release"}, order)
	assert.True(t, names["main"].IsCurrent)
	assert.False(t, names["main"].IsRemote)
	assert.True(t, names["release"].IsRemote)
	assert.Equal(t, "initial", names["release"].Message)

	require.NoError(t, s.CheckoutBranch(ctx, wc, "release"))
	assert.Equal(t, "release", wc.CurrentBranch())
}

func TestStatusAndDiff(t *testing.T) {
	ctx := context.Background()
	url := newRemote(t)
	seedRemote(t, url)

	s := newStore(t)
	wc, err := s.OpenOrClone(ctx, testConn(url))
	require.NoError(t, err)

	st, err := s.Status(ctx, wc)
	require.NoError(t, err)
	assert.False(t, st.Dirty)
	assert.Equal(t, "main", st.Branch)
	require.NotNil(t, st.LastCommit)
	assert.Equal(t, "initial", st.LastCommit.Message)

	writeFile(t, wc, "README.md", "# flows v2\n")
	writeFile(t, wc, "notes.txt", "hello\n")

	st, err = s.Status(ctx, wc)
	require.NoError(t, err)
	assert.True(t, st.Dirty)
	assert.Equal(t, []string{"notes.txt"}, st.UntrackedFiles)
	assert.Equal(t, []string{"README.md"}, st.ModifiedFiles)

	out, err := s.Diff(ctx, wc, "", "")
	require.NoError(t, err)
	assert.Contains(t, out, "--- a/README.md")
	assert.Contains(t, out, "-# flows\n")
	assert.Contains(t, out, "+# flows v2\n")
	assert.Contains(t, out, "+hello\n")

	_, err = s.Commit(ctx, wc, "v2", nil)
	require.NoError(t, err)

	out, err = s.Diff(ctx, wc, "HEAD~1", "HEAD")
	require.NoError(t, err)
	assert.Contains(t, out, "diff --git a/README.md b/README.md")

	out, err = s.Diff(ctx, wc, "HEAD", "")
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = s.Diff(ctx, wc, "no-such-ref", "")
	assert.Error(t, err)

	require.NoError(t, s.Remove(ctx, wc.ID))
	assert.NoDirExists(t, wc.Path)
}

func TestDiff_WorkingTreeHonorsGitignore(t *testing.T) {
	ctx := context.Background()
	url := newRemote(t)
	seedRemote(t, url)

	s := newStore(t)
	wc, err := s.OpenOrClone(ctx, testConn(url))
	require.NoError(t, err)

	writeFile(t, wc, ".gitignore", "build/\n*.bin\n")
	_, err = s.Commit(ctx, wc, "ignore build output", nil)
	require.NoError(t, err)

	writeFile(t, wc, "build/out.json", "{}\n")
	writeFile(t, wc, "blob.bin", "\x00\x01")
	writeFile(t, wc, "workflows/a.json", "{\"id\":\"a\"}\n")

	out, err := s.Diff(ctx, wc, "", "")
	require.NoError(t, err)
	assert.Contains(t, out, "workflows/a.json")
	assert.NotContains(t, out, "build/out.json")
	assert.NotContains(t, out, "blob.bin")
}

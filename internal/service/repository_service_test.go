package service

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/haierkeys/artifact-git-sync/internal/dao"
	"github.com/haierkeys/artifact-git-sync/internal/domain"
	"github.com/haierkeys/artifact-git-sync/internal/dto"
	"github.com/haierkeys/artifact-git-sync/internal/gitstore"
	"github.com/haierkeys/artifact-git-sync/pkg/code"
	"github.com/haierkeys/artifact-git-sync/pkg/credential"
	"github.com/haierkeys/artifact-git-sync/pkg/writequeue"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type repoFixture struct {
	svc      RepositoryService
	registry domain.RepositoryRegistry
	states   domain.SyncStateRepository
	store    *gitstore.Store
}

func newRepoFixture(t *testing.T, codec *credential.Codec) *repoFixture {
	t.Helper()

	cfg := dao.Config{Type: "sqlite", Path: ":memory:", MaxIdleConns: 1, MaxOpenConns: 1}
	db, err := dao.NewDBEngine(cfg, false)
	require.NoError(t, err)

	q := writequeue.New(nil, nil)
	d := dao.New(db, cfg, q, nil)
	require.NoError(t, d.AutoMigrate())
	t.Cleanup(func() {
		_ = q.Shutdown(context.Background())
		_ = d.Close()
	})

	var opener gitstore.CredentialOpener
	if codec != nil {
		opener = codec
	}
	f := &repoFixture{
		registry: dao.NewRepositoryRegistry(d),
		states:   dao.NewSyncStateRepository(d),
		store:    gitstore.New(gitstore.Config{WorkspaceDir: t.TempDir()}, opener, nil),
	}
	f.svc = NewRepositoryService(f.registry, f.states, f.store, codec, q, nil)
	return f
}

func bareRemote(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available for file:// transport")
	}
	dir := filepath.Join(t.TempDir(), "remote.git")
	_, err := git.PlainInit(dir, true)
	require.NoError(t, err)
	return "file://" + filepath.ToSlash(dir)
}

func TestRepositoryService_CreateGetList(t *testing.T) {
	ctx := context.Background()
	f := newRepoFixture(t, nil)

	created, err := f.svc.Create(ctx, &dto.RepositoryCreateRequest{Name: " flows ", URL: "https://example.com/flows.git"})
	require.NoError(t, err)
	assert.Len(t, created.ID, 36)
	assert.Equal(t, "flows", created.Name)
	assert.Equal(t, "main", created.Branch)
	assert.Equal(t, "none", created.AuthMode)
	assert.Equal(t, 60, created.SyncIntervalMinutes)
	assert.Empty(t, created.LocalPath)

	got, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	list, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = f.svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, code.ErrorRepositoryNotFound)
}

func TestRepositoryService_Credentials(t *testing.T) {
	ctx := context.Background()

	t.Run("token without codec", func(t *testing.T) {
		f := newRepoFixture(t, nil)
		_, err := f.svc.Create(ctx, &dto.RepositoryCreateRequest{
			Name: "flows", URL: "https://example.com/flows.git", AuthMode: "token",
			Credentials: &dto.CredentialsRequest{Token: "t0k"},
		})
		assert.ErrorIs(t, err, code.ErrorCredentialInvalid)
	})

	t.Run("token mode requires a token", func(t *testing.T) {
		codec, err := credential.NewCodec("passphrase")
		require.NoError(t, err)
		f := newRepoFixture(t, codec)
		_, err = f.svc.Create(ctx, &dto.RepositoryCreateRequest{Name: "flows", URL: "https://example.com/flows.git", AuthMode: "token"})
		assert.ErrorIs(t, err, code.ErrorCredentialInvalid)
	})

	t.Run("sealed at rest", func(t *testing.T) {
		codec, err := credential.NewCodec("passphrase")
		require.NoError(t, err)
		f := newRepoFixture(t, codec)

		created, err := f.svc.Create(ctx, &dto.RepositoryCreateRequest{
			Name: "flows", URL: "https://example.com/flows.git", AuthMode: "token",
			Credentials: &dto.CredentialsRequest{Username: "bot", Token: "t0k"},
		})
		require.NoError(t, err)
		assert.True(t, created.HasCredentials)

		conn, err := f.svc.Connection(ctx, created.ID)
		require.NoError(t, err)
		assert.NotContains(t, conn.Credentials, "t0k")

		secret, err := codec.Open(conn.Credentials)
		require.NoError(t, err)
		assert.Equal(t, "bot", secret.Username)
		assert.Equal(t, "t0k", secret.Token)

		// 切换为无认证时清除凭据
		none := "none"
		updated, err := f.svc.Update(ctx, &dto.RepositoryUpdateRequest{ID: created.ID, AuthMode: &none})
		require.NoError(t, err)
		assert.False(t, updated.HasCredentials)
	})
}

func TestRepositoryService_DeleteRemovesStateAndWorkingCopy(t *testing.T) {
	ctx := context.Background()
	f := newRepoFixture(t, nil)

	created, err := f.svc.Create(ctx, &dto.RepositoryCreateRequest{Name: "flows", URL: "https://example.com/flows.git"})
	require.NoError(t, err)
	require.NoError(t, f.states.Save(ctx, &domain.SyncState{RepositoryID: created.ID, Status: domain.SyncStatusCompleted}))
	require.NoError(t, os.MkdirAll(f.store.Path(created.ID), 0o755))

	require.NoError(t, f.svc.Delete(ctx, created.ID))

	_, err = f.svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, code.ErrorRepositoryNotFound)
	_, err = f.states.Get(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrSyncStateNotFound)
	assert.NoDirExists(t, f.store.Path(created.ID))

	assert.ErrorIs(t, f.svc.Delete(ctx, created.ID), code.ErrorRepositoryNotFound)
}

func TestRepositoryService_GitOperations(t *testing.T) {
	ctx := context.Background()
	url := bareRemote(t)
	f := newRepoFixture(t, nil)

	created, err := f.svc.Create(ctx, &dto.RepositoryCreateRequest{Name: "flows", URL: url, CloneNow: true})
	require.NoError(t, err)
	assert.Equal(t, f.store.Path(created.ID), created.LocalPath)

	conn, err := f.svc.Connection(ctx, created.ID)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(conn.LocalPath, "README.md"), []byte("# flows\n"), 0o644))

	st, err := f.svc.Status(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, st.Dirty)

	res, err := f.svc.Commit(ctx, created.ID, &dto.CommitRequest{Message: "initial"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Hash)

	_, err = f.svc.Commit(ctx, created.ID, &dto.CommitRequest{Message: "again"})
	assert.True(t, domain.IsNoChanges(err))

	pushed, err := f.svc.Push(ctx, created.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "main", pushed.Branch)

	require.NoError(t, f.svc.CreateBranch(ctx, created.ID, &dto.CreateBranchRequest{Name: "feature"}))
	err = f.svc.CreateBranch(ctx, created.ID, &dto.CreateBranchRequest{Name: "feature"})
	assert.ErrorIs(t, err, code.ErrorGitBranch)
	require.NoError(t, f.svc.CheckoutBranch(ctx, created.ID, "main"))

	branches, err := f.svc.Branches(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, branches, 2)

	history, err := f.svc.History(ctx, created.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "initial", history[0].Message)

	files, err := f.svc.ExportedFiles(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, files.Workflows)
}

func TestMapRepositoryError(t *testing.T) {
	cases := []struct {
		err  error
		want *code.Code
	}{
		{domain.ErrRepositoryNotFound, code.ErrorRepositoryNotFound},
		{&domain.CloneError{URL: "u", Err: errors.New("x")}, code.ErrorGitClone},
		{&domain.InvalidRepositoryError{Path: "p", Err: errors.New("x")}, code.ErrorGitClone},
		{&domain.BranchError{Op: "create", Branch: "b", Err: errors.New("x")}, code.ErrorGitBranch},
		{&domain.FileNotFoundError{Path: "p"}, code.ErrorFileNotFound},
		{&domain.PushError{Branch: "b", Err: errors.New("x")}, code.ErrorGitOperation},
	}
	for _, c := range cases {
		assert.ErrorIs(t, mapRepositoryError("r1", c.err), c.want, "%T", c.err)
	}
	assert.True(t, domain.IsNoChanges(mapRepositoryError("r1", &domain.NoChangesError{})))
}

func TestRepositoryService_FailedRecloneClearsLocalPath(t *testing.T) {
	ctx := context.Background()
	url := bareRemote(t)
	f := newRepoFixture(t, nil)

	created, err := f.svc.Create(ctx, &dto.RepositoryCreateRequest{Name: "flows", URL: url, CloneNow: true})
	require.NoError(t, err)
	require.NotEmpty(t, created.LocalPath)

	// 工作区损坏且远程不可达
	require.NoError(t, os.RemoveAll(filepath.Join(created.LocalPath, ".git")))
	require.NoError(t, os.RemoveAll(filepath.FromSlash(strings.TrimPrefix(url, "file://"))))

	_, err = f.svc.Status(ctx, created.ID)
	assert.ErrorIs(t, err, code.ErrorGitClone)
	assert.NoDirExists(t, created.LocalPath)

	conn, err := f.svc.Connection(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, conn.LocalPath)

	got, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, got.LocalPath)
}

package app

import (
	"context"
	"testing"

	"github.com/haierkeys/artifact-git-sync/internal/dao"
	"github.com/haierkeys/artifact-git-sync/internal/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestApp(t *testing.T, credentialKey string) *App {
	t.Helper()

	cfg, err := ParseConfig(nil)
	require.NoError(t, err)
	cfg.Database = dao.Config{Type: "sqlite", Path: ":memory:", MaxIdleConns: 1, MaxOpenConns: 1, AutoMigrate: true}
	cfg.Git.WorkspaceDir = t.TempDir()
	cfg.Security.CredentialKey = credentialKey

	db, err := dao.NewDBEngine(cfg.Database, false)
	require.NoError(t, err)

	a, err := NewApp(cfg, zap.NewNop(), db)
	require.NoError(t, err)
	return a
}

func TestNewApp_RequiresDependencies(t *testing.T) {
	_, err := NewApp(nil, zap.NewNop(), nil)
	assert.Error(t, err)

	cfg, err := ParseConfig(nil)
	require.NoError(t, err)
	_, err = NewApp(cfg, nil, nil)
	assert.Error(t, err)
	_, err = NewApp(cfg, zap.NewNop(), nil)
	assert.Error(t, err)
}

func TestNewApp_WiresServices(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, "")
	assert.Nil(t, a.Codec)

	created, err := a.RepositoryService.Create(ctx, &dto.RepositoryCreateRequest{Name: "flows", URL: "https://example.com/flows.git"})
	require.NoError(t, err)

	conn, err := a.Registry.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "flows", conn.Name)

	_, ok := a.SyncService.GetSyncState(ctx, created.ID)
	assert.False(t, ok)

	families, err := a.MetricsRegistry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	require.NoError(t, a.Shutdown(ctx))
	assert.True(t, a.IsShuttingDown())
	// 重复关闭直接返回
	assert.NoError(t, a.Shutdown(ctx))
}

func TestNewApp_CredentialCodec(t *testing.T) {
	a := newTestApp(t, "passphrase")
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })

	require.NotNil(t, a.Codec)
	created, err := a.RepositoryService.Create(context.Background(), &dto.RepositoryCreateRequest{
		Name: "flows", URL: "https://example.com/flows.git", AuthMode: "token",
		Credentials: &dto.CredentialsRequest{Token: "t0k"},
	})
	require.NoError(t, err)
	assert.True(t, created.HasCredentials)
}

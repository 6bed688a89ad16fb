package routers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/haierkeys/artifact-git-sync/internal/app"
	"github.com/haierkeys/artifact-git-sync/internal/dao"
	"github.com/haierkeys/artifact-git-sync/pkg/code"
	"github.com/haierkeys/artifact-git-sync/pkg/validator"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testToken = "test-token"

type envelope struct {
	Code    int             `json:"code"`
	Status  bool            `json:"status"`
	Details string          `json:"details"`
	Data    json.RawMessage `json:"data"`
}

type harness struct {
	app    *app.App
	router *gin.Engine
}

func newHarness(t *testing.T, remoteURL string) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg, err := app.ParseConfig(nil)
	require.NoError(t, err)
	cfg.Database = dao.Config{Type: "sqlite", Path: ":memory:", MaxIdleConns: 1, MaxOpenConns: 1, AutoMigrate: true}
	cfg.Git.WorkspaceDir = t.TempDir()
	cfg.Security.AuthToken = testToken
	cfg.Server.RateLimitPerSecond = 0
	if remoteURL != "" {
		cfg.Remote.APIURL = remoteURL
	}

	db, err := dao.NewDBEngine(cfg.Database, false)
	require.NoError(t, err)
	a, err := app.NewApp(cfg, zap.NewNop(), db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })

	uni, err := validator.Setup()
	require.NoError(t, err)

	return &harness{app: a, router: NewRouter(a, uni)}
}

func (h *harness) do(t *testing.T, method, path, body string, auth bool) envelope {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var env envelope
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func (h *harness) create(t *testing.T, url string) string {
	t.Helper()
	env := h.do(t, http.MethodPost, "/api/repositories", fmt.Sprintf(`{"name":"flows","url":%q}`, url), true)
	require.Equal(t, code.SuccessCreate.Code(), env.Code, env.Details)
	var repo struct {
		ID string `json:"id"`
	}
	require.NoError(t, sonic.Unmarshal(env.Data, &repo))
	require.NotEmpty(t, repo.ID)
	return repo.ID
}

func TestRouter_PublicEndpoints(t *testing.T) {
	h := newHarness(t, "")

	env := h.do(t, http.MethodGet, "/api/health", "", false)
	assert.Equal(t, code.Success.Code(), env.Code)

	env = h.do(t, http.MethodGet, "/api/version", "", false)
	assert.Equal(t, code.Success.Code(), env.Code)
	assert.Contains(t, string(env.Data), app.Version)

	env = h.do(t, http.MethodGet, "/api/nothing-here", "", false)
	assert.Equal(t, code.ErrorNotFound.Code(), env.Code)
}

func TestRouter_RequiresToken(t *testing.T) {
	h := newHarness(t, "")

	env := h.do(t, http.MethodGet, "/api/repositories", "", false)
	assert.Equal(t, code.ErrorInvalidAuthToken.Code(), env.Code)
	assert.False(t, env.Status)

	env = h.do(t, http.MethodGet, "/api/repositories", "", true)
	assert.Equal(t, code.Success.Code(), env.Code)
}

func TestRouter_RepositoryLifecycle(t *testing.T) {
	h := newHarness(t, "")

	env := h.do(t, http.MethodPost, "/api/repositories", `{"name":"flows","url":"not a url"}`, true)
	assert.Equal(t, code.ErrorInvalidParams.Code(), env.Code)
	assert.Contains(t, env.Details, "url")

	id := h.create(t, "https://example.com/flows.git")

	env = h.do(t, http.MethodGet, "/api/repositories/"+id, "", true)
	assert.Equal(t, code.Success.Code(), env.Code)

	env = h.do(t, http.MethodPut, "/api/repositories/"+id, `{"name":"renamed","syncIntervalMinutes":15}`, true)
	assert.Equal(t, code.SuccessUpdate.Code(), env.Code, env.Details)
	assert.Contains(t, string(env.Data), "renamed")

	env = h.do(t, http.MethodGet, "/api/repositories/"+id+"/sync-status", "", true)
	require.Equal(t, code.Success.Code(), env.Code)
	var status struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	require.NoError(t, sonic.Unmarshal(env.Data, &status))
	assert.Equal(t, "pending", status.Status)
	assert.Equal(t, "No sync state available", status.Message)

	env = h.do(t, http.MethodDelete, "/api/repositories/"+id, "", true)
	assert.Equal(t, code.SuccessDelete.Code(), env.Code)

	env = h.do(t, http.MethodGet, "/api/repositories/"+id, "", true)
	assert.Equal(t, code.ErrorRepositoryNotFound.Code(), env.Code)
}

func TestRouter_SyncValidation(t *testing.T) {
	h := newHarness(t, "")
	id := h.create(t, "https://example.com/flows.git")

	env := h.do(t, http.MethodPost, "/api/repositories/"+id+"/workflows/w1/export?naming=bogus", "", true)
	assert.Equal(t, code.ErrorInvalidParams.Code(), env.Code)

	env = h.do(t, http.MethodPost, "/api/repositories/"+id+"/export", `{"artifactId":"w1","type":"widget"}`, true)
	assert.Equal(t, code.ErrorInvalidParams.Code(), env.Code)

	env = h.do(t, http.MethodPost, "/api/repositories/"+id+"/import", `{}`, true)
	assert.Equal(t, code.ErrorInvalidParams.Code(), env.Code)

	env = h.do(t, http.MethodPost, "/api/repositories/"+id+"/sync", `{"direction":"sideways"}`, true)
	assert.Equal(t, code.ErrorInvalidParams.Code(), env.Code)

	env = h.do(t, http.MethodGet, "/api/repositories/missing/sync-status", "", true)
	assert.Equal(t, code.ErrorRepositoryNotFound.Code(), env.Code)
}

func TestRouter_ExportSync(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available for file:// transport")
	}
	dir := filepath.Join(t.TempDir(), "remote.git")
	_, err := git.PlainInit(dir, true)
	require.NoError(t, err)

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/workflows":
			if r.URL.Query().Get("page") == "1" {
				_, _ = io.WriteString(w, `{"data":[{"id":"w1","name":"Nightly"}]}`)
				return
			}
			_, _ = io.WriteString(w, `{"data":[]}`)
		case "/api/v1/workflows/w1":
			_, _ = io.WriteString(w, `{"id":"w1","name":"Nightly","nodes":[]}`)
		case "/api/v1/applications":
			_, _ = io.WriteString(w, `{"data":[]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(api.Close)

	h := newHarness(t, api.URL)
	id := h.create(t, "file://"+filepath.ToSlash(dir))

	env := h.do(t, http.MethodPost, "/api/repositories/"+id+"/sync", `{"direction":"export"}`, true)
	require.Equal(t, code.SuccessSync.Code(), env.Code, env.Details)

	env = h.do(t, http.MethodGet, "/api/repositories/"+id+"/files", "", true)
	require.Equal(t, code.Success.Code(), env.Code)
	var files struct {
		Workflows []string `json:"workflows"`
	}
	require.NoError(t, sonic.Unmarshal(env.Data, &files))
	assert.Len(t, files.Workflows, 1)

	env = h.do(t, http.MethodGet, "/api/repositories/"+id+"/sync-status", "", true)
	assert.Contains(t, string(env.Data), `"completed"`)
}

func TestPrivateRouter_Metrics(t *testing.T) {
	h := newHarness(t, "")
	r := NewPrivateRouterWithLogger(gin.TestMode, zap.NewNop(), h.app.MetricsRegistry)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/debug/vars", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "memstats")
}

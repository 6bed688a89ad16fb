package gitstore

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/haierkeys/artifact-git-sync/internal/domain"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileWorkingCopy(t *testing.T) (*Store, *WorkingCopy) {
	t.Helper()
	return newStore(t), &WorkingCopy{ID: "files", Path: t.TempDir(), Branch: "main"}
}

func TestFileName(t *testing.T) {
	cases := []struct {
		kind   domain.ArtifactKind
		id     string
		name   string
		policy domain.NamingPolicy
		want   string
	}{
		{domain.KindWorkflow, "w1", "Deploy", domain.NamingByID, "workflow-w1.json"},
		{domain.KindWorkflow, "w1", "Deploy", domain.NamingByName, "workflow-Deploy.json"},
		{domain.KindWorkflow, "w1", "Deploy", domain.NamingByIDName, "workflow-w1-Deploy.json"},
		{domain.KindWorkflow, "w1", "Deploy", "", "workflow-w1-Deploy.json"},
		{domain.KindApplication, "a1", "Chat Bot", domain.NamingByIDName, "app-a1-Chat Bot.json"},
		{domain.KindWorkflow, "w1", "My Workflow: v2/final", domain.NamingByName, "workflow-My Workflow v2final.json"},
		{domain.KindWorkflow, "w1", ":::///", domain.NamingByName, "workflow-w1.json"},
		{domain.KindWorkflow, "w1", "  padded  ", domain.NamingByName, "workflow-padded.json"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FileName(c.kind, c.id, c.name, c.policy), "%s/%s/%s", c.id, c.name, c.policy)
	}
}

// 任意名称在 name 规则下生成的文件名都非空，且不含 : 或 /
func TestFileName_SanitizeProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("sanitized filename is safe", prop.ForAll(
		func(id, name string) bool {
			fn := FileName(domain.KindWorkflow, id, name, domain.NamingByName)
			base := strings.TrimSuffix(strings.TrimPrefix(fn, "workflow-"), ".json")
			return base != "" &&
				!strings.ContainsAny(fn, ":/\\") &&
				filepath.Base(fn) == fn
		},
		gen.AnyString(),
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestExportImport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, wc := fileWorkingCopy(t)

	data := json.RawMessage(`{"graph":{"nodes":[{"id":"n1","text":"<b>a & b</b>"}]},"name":"Deploy","unicode":"工作流"}`)
	in := &domain.ArtifactExport{
		ID:         "w1",
		Name:       "Deploy",
		Kind:       domain.KindWorkflow,
		Data:       data,
		Metadata:   map[string]any{"exported_by": domain.ExportedBy, "workspace_id": "ws"},
		ExportedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Version:    domain.ExportSchemaVersion,
	}

	rel, err := s.ExportArtifactFile(ctx, wc, in, domain.NamingByIDName)
	require.NoError(t, err)
	assert.Equal(t, "workflows/workflow-w1-Deploy.json", rel)

	raw, err := os.ReadFile(filepath.Join(wc.Path, filepath.FromSlash(rel)))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "{\n  \""), "envelope is indented with two spaces")

	out, err := s.ImportArtifactFile(ctx, wc, rel)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(out.Data))
	assert.Equal(t, "w1", out.ID)
	assert.Equal(t, domain.KindWorkflow, out.Kind)
	assert.Equal(t, "1.0", out.Version)
	assert.True(t, in.ExportedAt.Equal(out.ExportedAt))

	// 再次导出覆盖同一路径
	in.Data = json.RawMessage(`{"v":2}`)
	rel2, err := s.ExportArtifactFile(ctx, wc, in, domain.NamingByIDName)
	require.NoError(t, err)
	assert.Equal(t, rel, rel2)
	out, err = s.ImportArtifactFile(ctx, wc, rel)
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(out.Data))
}

func TestImportArtifactFile_NotFound(t *testing.T) {
	ctx := context.Background()
	s, wc := fileWorkingCopy(t)

	var notFound *domain.FileNotFoundError
	_, err := s.ImportArtifactFile(ctx, wc, "workflows/missing.json")
	assert.True(t, errors.As(err, &notFound))

	_, err = s.ImportArtifactFile(ctx, wc, "../outside.json")
	assert.True(t, errors.As(err, &notFound))

	_, err = s.ImportArtifactFile(ctx, wc, "/etc/passwd")
	assert.True(t, errors.As(err, &notFound))
}

func TestListExportedFiles(t *testing.T) {
	ctx := context.Background()
	s, wc := fileWorkingCopy(t)

	files, err := s.ListExportedFiles(ctx, wc)
	require.NoError(t, err)
	assert.Empty(t, files.Workflows)
	assert.Empty(t, files.Applications)

	for _, a := range []*domain.ArtifactExport{
		{ID: "w2", Name: "b", Kind: domain.KindWorkflow, Data: json.RawMessage(`{}`)},
		{ID: "w1", Name: "a", Kind: domain.KindWorkflow, Data: json.RawMessage(`{}`)},
		{ID: "a1", Name: "app", Kind: domain.KindApplication, Data: json.RawMessage(`{}`)},
	} {
		_, err := s.ExportArtifactFile(ctx, wc, a, domain.NamingByID)
		require.NoError(t, err)
	}
	writeFile(t, wc, "workflows/readme.txt", "ignored")

	files, err = s.ListExportedFiles(ctx, wc)
	require.NoError(t, err)
	assert.Equal(t, []string{"workflows/workflow-w1.json", "workflows/workflow-w2.json"}, files.Workflows)
	assert.Equal(t, []string{"applications/app-a1.json"}, files.Applications)
}

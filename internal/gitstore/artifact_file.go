package gitstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/haierkeys/artifact-git-sync/internal/domain"
	"github.com/haierkeys/artifact-git-sync/pkg/fileurl"
	"github.com/haierkeys/artifact-git-sync/pkg/util"

	"github.com/bytedance/sonic"
)

// envelopeJSON 导出文件编码：两空格缩进，键排序，不转义 HTML 以保证 data 原样往返
var envelopeJSON = sonic.Config{
	EscapeHTML:  false,
	SortMapKeys: true,
}.Froze()

// SanitizeName 仅保留字母、数字、空格、- 与 _，并去除首尾空白
func SanitizeName(name string) string {
	var sb strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			sb.WriteRune(r)
		}
	}
	return strings.TrimSpace(sb.String())
}

// FileName 按命名规则生成导出文件名，名称清理后为空时回退为 id
func FileName(kind domain.ArtifactKind, id, name string, policy domain.NamingPolicy) string {
	safeID := SanitizeName(id)
	if safeID == "" {
		safeID = "unknown"
	}
	safeName := SanitizeName(name)
	if safeName == "" {
		safeName = safeID
	}

	var base string
	switch policy.OrDefault() {
	case domain.NamingByID:
		base = safeID
	case domain.NamingByName:
		base = safeName
	default:
		base = safeID + "-" + safeName
	}
	return kind.FilePrefix() + "-" + base + ".json"
}

// ExportArtifactFile 以缩进 JSON 原子写入制品信封，返回相对工作区的路径
func (s *Store) ExportArtifactFile(ctx context.Context, wc *WorkingCopy, artifact *domain.ArtifactExport, policy domain.NamingPolicy) (string, error) {
	if !artifact.Kind.Valid() {
		return "", fmt.Errorf("unknown artifact kind %q", artifact.Kind)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	rel := path.Join(artifact.Kind.Dir(), FileName(artifact.Kind, artifact.ID, artifact.Name, policy))
	full, ok := util.SafeJoin(wc.Path, rel)
	if !ok {
		return "", &domain.FileNotFoundError{Path: rel}
	}

	data, err := envelopeJSON.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", rel, err)
	}
	data = append(data, '\n')

	if err := fileurl.WriteFileAtomic(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", rel, err)
	}
	return rel, nil
}

// ImportArtifactFile 读取导出文件，data 以紧凑形式返回
func (s *Store) ImportArtifactFile(ctx context.Context, wc *WorkingCopy, relPath string) (*domain.ArtifactExport, error) {
	full, ok := util.SafeJoin(wc.Path, relPath)
	if !ok {
		return nil, &domain.FileNotFoundError{Path: relPath}
	}
	raw, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &domain.FileNotFoundError{Path: relPath}
		}
		return nil, err
	}

	var artifact domain.ArtifactExport
	if err := sonic.Unmarshal(raw, &artifact); err != nil {
		return nil, fmt.Errorf("parse %s: %w", relPath, err)
	}
	if len(artifact.Data) > 0 {
		artifact.Data, err = util.CompactJSON(artifact.Data)
		if err != nil {
			return nil, fmt.Errorf("parse %s data: %w", relPath, err)
		}
	}
	if artifact.Kind == "" {
		artifact.Kind = kindFromPath(relPath)
	}
	return &artifact, nil
}

// ListExportedFiles 列出两个制品目录下的全部 .json 文件
func (s *Store) ListExportedFiles(ctx context.Context, wc *WorkingCopy) (*domain.ExportedFiles, error) {
	workflows, err := listJSON(wc.Path, domain.KindWorkflow.Dir())
	if err != nil {
		return nil, err
	}
	applications, err := listJSON(wc.Path, domain.KindApplication.Dir())
	if err != nil {
		return nil, err
	}
	return &domain.ExportedFiles{Workflows: workflows, Applications: applications}, nil
}

func listJSON(root, dir string) ([]string, error) {
	res := []string{}
	entries, err := os.ReadDir(filepath.Join(root, dir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return res, nil
		}
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		res = append(res, path.Join(dir, e.Name()))
	}
	sort.Strings(res)
	return res, nil
}

func kindFromPath(rel string) domain.ArtifactKind {
	if strings.HasPrefix(path.Clean(rel), domain.KindApplication.Dir()+"/") {
		return domain.KindApplication
	}
	return domain.KindWorkflow
}

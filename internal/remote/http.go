package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/haierkeys/artifact-git-sync/internal/domain"
	"github.com/haierkeys/artifact-git-sync/pkg/util"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// maxErrorBody 错误响应体保留的最大字节数
const maxErrorBody = 2048

// Config 远程接口配置
type Config struct {
	// APIURL 远程服务地址，请求发往 <api-url>/api/v1
	APIURL string `yaml:"api-url" default:"http://localhost:5001"`
	// APIKey Bearer 密钥
	APIKey string `yaml:"api-key"`
	// PageSize 分页拉取时每页数量
	PageSize int `yaml:"page-size" default:"50"`
	// Timeout 单次请求超时，支持 30s、1m 等格式
	Timeout string `yaml:"timeout" default:"30s"`
}

// HTTPClient 基于 REST 的远程制品客户端
type HTTPClient struct {
	baseURL  string
	apiKey   string
	pageSize int
	http     *http.Client
	logger   *zap.Logger
}

// NewHTTPClient 创建 HTTP 客户端
func NewHTTPClient(cfg Config, logger *zap.Logger) *HTTPClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &HTTPClient{
		baseURL:  strings.TrimRight(cfg.APIURL, "/") + "/api/v1",
		apiKey:   cfg.APIKey,
		pageSize: pageSize,
		http:     &http.Client{Timeout: util.ParseDurationOr(cfg.Timeout, 30*time.Second)},
		logger:   logger,
	}
}

type endpoint struct {
	kind domain.ArtifactKind
	path string
}

var (
	workflowsEndpoint    = endpoint{kind: domain.KindWorkflow, path: "/workflows"}
	applicationsEndpoint = endpoint{kind: domain.KindApplication, path: "/apps"}
)

func (c *HTTPClient) ListWorkflows(ctx context.Context, page, limit int) ([]domain.RemoteArtifact, error) {
	return c.list(ctx, workflowsEndpoint, page, limit)
}

func (c *HTTPClient) GetWorkflow(ctx context.Context, id string) (*domain.RemoteArtifact, error) {
	return c.get(ctx, workflowsEndpoint, id)
}

func (c *HTTPClient) CreateWorkflow(ctx context.Context, data json.RawMessage) (*domain.RemoteArtifact, error) {
	return c.write(ctx, workflowsEndpoint, http.MethodPost, "", data)
}

func (c *HTTPClient) UpdateWorkflow(ctx context.Context, id string, data json.RawMessage) (*domain.RemoteArtifact, error) {
	return c.write(ctx, workflowsEndpoint, http.MethodPut, id, data)
}

func (c *HTTPClient) DeleteWorkflow(ctx context.Context, id string) error {
	return c.delete(ctx, workflowsEndpoint, id)
}

func (c *HTTPClient) GetAllWorkflows(ctx context.Context) ([]domain.RemoteArtifact, error) {
	return DrainPages(ctx, c.pageSize, c.ListWorkflows)
}

func (c *HTTPClient) ListApplications(ctx context.Context, page, limit int) ([]domain.RemoteArtifact, error) {
	return c.list(ctx, applicationsEndpoint, page, limit)
}

func (c *HTTPClient) GetApplication(ctx context.Context, id string) (*domain.RemoteArtifact, error) {
	return c.get(ctx, applicationsEndpoint, id)
}

func (c *HTTPClient) CreateApplication(ctx context.Context, data json.RawMessage) (*domain.RemoteArtifact, error) {
	return c.write(ctx, applicationsEndpoint, http.MethodPost, "", data)
}

func (c *HTTPClient) UpdateApplication(ctx context.Context, id string, data json.RawMessage) (*domain.RemoteArtifact, error) {
	return c.write(ctx, applicationsEndpoint, http.MethodPut, id, data)
}

func (c *HTTPClient) DeleteApplication(ctx context.Context, id string) error {
	return c.delete(ctx, applicationsEndpoint, id)
}

func (c *HTTPClient) GetAllApplications(ctx context.Context) ([]domain.RemoteArtifact, error) {
	return DrainPages(ctx, c.pageSize, c.ListApplications)
}

type listResponse struct {
	Data []json.RawMessage `json:"data"`
}

// identity 制品的 id 与 name，id 可能为数字
type identity struct {
	ID   any    `json:"id"`
	Name string `json:"name"`
}

func (c *HTTPClient) list(ctx context.Context, ep endpoint, page, limit int) ([]domain.RemoteArtifact, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	body, err := c.do(ctx, "list "+ep.path, http.MethodGet, ep.path+"?"+q.Encode(), nil, ep, "")
	if err != nil {
		return nil, err
	}

	var resp listResponse
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return nil, &domain.RemoteAPIError{Op: "list " + ep.path, StatusCode: http.StatusOK, Err: fmt.Errorf("decode: %w", err)}
	}

	items := make([]domain.RemoteArtifact, 0, len(resp.Data))
	for _, raw := range resp.Data {
		a, err := toArtifact(ep.kind, raw)
		if err != nil {
			return nil, &domain.RemoteAPIError{Op: "list " + ep.path, StatusCode: http.StatusOK, Err: err}
		}
		items = append(items, *a)
	}
	return items, nil
}

func (c *HTTPClient) get(ctx context.Context, ep endpoint, id string) (*domain.RemoteArtifact, error) {
	body, err := c.do(ctx, "get "+ep.path, http.MethodGet, ep.path+"/"+url.PathEscape(id), nil, ep, id)
	if err != nil {
		return nil, err
	}
	a, err := toArtifact(ep.kind, body)
	if err != nil {
		return nil, &domain.RemoteAPIError{Op: "get " + ep.path, StatusCode: http.StatusOK, Err: err}
	}
	return a, nil
}

func (c *HTTPClient) write(ctx context.Context, ep endpoint, method, id string, data json.RawMessage) (*domain.RemoteArtifact, error) {
	path := ep.path
	if id != "" {
		path += "/" + url.PathEscape(id)
	}
	op := strings.ToLower(method) + " " + ep.path

	body, err := c.do(ctx, op, method, path, data, ep, id)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return &domain.RemoteArtifact{ID: id, Kind: ep.kind}, nil
	}
	a, err := toArtifact(ep.kind, body)
	if err != nil {
		return nil, &domain.RemoteAPIError{Op: op, StatusCode: http.StatusOK, Err: err}
	}
	return a, nil
}

func (c *HTTPClient) delete(ctx context.Context, ep endpoint, id string) error {
	_, err := c.do(ctx, "delete "+ep.path, http.MethodDelete, ep.path+"/"+url.PathEscape(id), nil, ep, id)
	return err
}

// do 发送请求，404 转为 RemoteNotFoundError，其他非 2xx 转为 RemoteAPIError
func (c *HTTPClient) do(ctx context.Context, op, method, path string, payload []byte, ep endpoint, id string) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, &domain.RemoteAPIError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.RemoteAPIError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.RemoteAPIError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	c.logger.Debug("remote request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	switch {
	case resp.StatusCode == http.StatusNotFound && id != "":
		return nil, &domain.RemoteNotFoundError{Kind: ep.kind, ID: id}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, &domain.RemoteAPIError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

// toArtifact 提取 id 与 name，并以紧凑形式保存完整表示
func toArtifact(kind domain.ArtifactKind, raw []byte) (*domain.RemoteArtifact, error) {
	compact, err := util.CompactJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	var ident identity
	if err := sonic.Unmarshal(compact, &ident); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	return &domain.RemoteArtifact{
		ID:   idString(ident.ID),
		Name: ident.Name,
		Kind: kind,
		Raw:  compact,
	}, nil
}

func idString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return fmt.Sprint(id)
	}
}

// 确保 HTTPClient 实现了 Client 接口
var _ Client = (*HTTPClient)(nil)

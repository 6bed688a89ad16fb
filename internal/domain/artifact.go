package domain

import (
	"encoding/json"
	"time"
)

// ArtifactKind 制品类型
type ArtifactKind string

const (
	KindWorkflow    ArtifactKind = "workflow"
	KindApplication ArtifactKind = "application"
)

func (k ArtifactKind) Valid() bool {
	return k == KindWorkflow || k == KindApplication
}

// Dir 制品在工作区中的目录
func (k ArtifactKind) Dir() string {
	if k == KindApplication {
		return "applications"
	}
	return "workflows"
}

// FilePrefix 导出文件名前缀
func (k ArtifactKind) FilePrefix() string {
	if k == KindApplication {
		return "app"
	}
	return "workflow"
}

// Label 用于错误信息的展示名称
func (k ArtifactKind) Label() string {
	if k == KindApplication {
		return "Application"
	}
	return "Workflow"
}

// DefaultName 远程未提供名称时使用的占位名
func (k ArtifactKind) DefaultName() string {
	return "Unnamed " + k.Label()
}

// NamingPolicy 导出文件命名规则
type NamingPolicy string

const (
	NamingByID     NamingPolicy = "id"
	NamingByName   NamingPolicy = "name"
	NamingByIDName NamingPolicy = "id-name"
)

func (p NamingPolicy) Valid() bool {
	switch p {
	case NamingByID, NamingByName, NamingByIDName:
		return true
	}
	return false
}

// OrDefault 空或非法的命名规则回退为 id-name
func (p NamingPolicy) OrDefault() NamingPolicy {
	if p.Valid() {
		return p
	}
	return NamingByIDName
}

const (
	ExportSchemaVersion = "1.0"
	ExportedBy          = "artifact-git-sync"
)

// ArtifactExport 单个远程制品的导出信封
// Data 为远程制品的完整表示，保持紧凑 JSON 原样往返
type ArtifactExport struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Kind       ArtifactKind    `json:"type"`
	Data       json.RawMessage `json:"data"`
	Metadata   map[string]any  `json:"metadata,omitempty"`
	ExportedAt time.Time       `json:"exported_at"`
	Version    string          `json:"version"`
}

// RemoteArtifact 远程接口返回的单个制品
type RemoteArtifact struct {
	ID   string
	Name string
	Kind ArtifactKind
	// Raw 为制品的紧凑 JSON 表示
	Raw json.RawMessage
}

package domain

import (
	"time"
)

// SyncAction 单个制品同步采取的动作
type SyncAction string

const (
	ActionCreated  SyncAction = "created"
	ActionUpdated  SyncAction = "updated"
	ActionExported SyncAction = "exported"
	ActionSkipped  SyncAction = "skipped"
)

// SyncStatus 仓库同步状态
type SyncStatus string

const (
	SyncStatusPending    SyncStatus = "pending"
	SyncStatusInProgress SyncStatus = "in_progress"
	SyncStatusCompleted  SyncStatus = "completed"
	SyncStatusFailed     SyncStatus = "failed"
	SyncStatusConflict   SyncStatus = "conflict"
)

// SyncDirection 同步方向
type SyncDirection string

const (
	DirectionExport        SyncDirection = "export"
	DirectionImport        SyncDirection = "import"
	DirectionBidirectional SyncDirection = "bidirectional"
)

func (d SyncDirection) Valid() bool {
	switch d {
	case DirectionExport, DirectionImport, DirectionBidirectional:
		return true
	}
	return false
}

// IncludesExport 方向是否包含导出
func (d SyncDirection) IncludesExport() bool {
	return d == DirectionExport || d == DirectionBidirectional
}

// IncludesImport 方向是否包含导入
func (d SyncDirection) IncludesImport() bool {
	return d == DirectionImport || d == DirectionBidirectional
}

// ConflictDetail 导入冲突时本地与远程载荷的对比摘要，不做合并
type ConflictDetail struct {
	RemoteSize int  `json:"remoteSize"`
	LocalSize  int  `json:"localSize"`
	Inserted   int  `json:"inserted"`
	Deleted    int  `json:"deleted"`
	Identical  bool `json:"identical"`
}

// SyncOutcome 单个导出/导入操作的结果
type SyncOutcome struct {
	Success        bool            `json:"success"`
	Conflict       bool            `json:"conflict"`
	Action         SyncAction      `json:"action,omitempty"`
	ArtifactID     string          `json:"artifactId,omitempty"`
	Kind           ArtifactKind    `json:"type,omitempty"`
	FilePath       string          `json:"filePath,omitempty"`
	Error          string          `json:"error,omitempty"`
	ConflictDetail *ConflictDetail `json:"conflictDetail,omitempty"`
}

// BulkOutcome 批量操作的聚合结果
type BulkOutcome struct {
	Success   bool          `json:"success"`
	Total     int           `json:"total"`
	Exported  int           `json:"exported"`
	Created   int           `json:"created"`
	Updated   int           `json:"updated"`
	Conflicts int           `json:"conflicts"`
	Failed    int           `json:"failed"`
	Items     []SyncOutcome `json:"items"`
	Errors    []string      `json:"errors"`
}

// NewBulkOutcome 返回空的批量结果，Items 与 Errors 序列化为 []
func NewBulkOutcome() *BulkOutcome {
	return &BulkOutcome{Items: []SyncOutcome{}, Errors: []string{}}
}

// Add 记录单项结果并更新计数，errMsg 为空表示该项无需计入错误列表
func (b *BulkOutcome) Add(item SyncOutcome, errMsg string) {
	b.Items = append(b.Items, item)
	b.Total++
	switch {
	case item.Conflict:
		b.Conflicts++
	case !item.Success:
		b.Failed++
	case item.Action == ActionExported:
		b.Exported++
	case item.Action == ActionCreated:
		b.Created++
	case item.Action == ActionUpdated:
		b.Updated++
	}
	if errMsg != "" {
		b.Errors = append(b.Errors, errMsg)
	}
}

// Finish 根据错误列表计算整体成功标志
func (b *BulkOutcome) Finish() *BulkOutcome {
	b.Success = len(b.Errors) == 0
	return b
}

// RepositorySyncResult SyncRepository 的结果
type RepositorySyncResult struct {
	Success   bool          `json:"success"`
	Direction SyncDirection `json:"direction"`
	Pull      *PullResult   `json:"pull,omitempty"`
	Export    *BulkOutcome  `json:"export,omitempty"`
	Import    *BulkOutcome  `json:"import,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// ConflictDescriptor 同步状态中记录的冲突项
type ConflictDescriptor struct {
	ArtifactID string       `json:"artifactId"`
	Kind       ArtifactKind `json:"type"`
	FilePath   string       `json:"filePath"`
	Message    string       `json:"message"`
}

// SyncState 仓库最近一次同步的状态
type SyncState struct {
	RepositoryID   string               `json:"repositoryId"`
	Status         SyncStatus           `json:"status"`
	Direction      SyncDirection        `json:"direction,omitempty"`
	LastSyncAt     *time.Time           `json:"lastSyncAt,omitempty"`
	LastSuccessAt  *time.Time           `json:"lastSuccessAt,omitempty"`
	PendingChanges []string             `json:"pendingChanges"`
	Conflicts      []ConflictDescriptor `json:"conflicts"`
	ErrorMessage   string               `json:"errorMessage,omitempty"`
}

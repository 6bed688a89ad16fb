package dto

// ExportArtifactRequest 导出单个制品请求
type ExportArtifactRequest struct {
	ArtifactID string `json:"artifactId" form:"artifactId" binding:"required"`
	Type       string `json:"type" form:"type" binding:"required,oneof=workflow application"`
	Naming     string `json:"naming" form:"naming" binding:"omitempty,oneof=id name id-name"`
}

// ExportAllRequest 导出全部制品请求
type ExportAllRequest struct {
	Naming string `json:"naming" form:"naming" binding:"omitempty,oneof=id name id-name"`
}

// ImportArtifactRequest 导入单个文件请求，AutoMerge 默认开启
type ImportArtifactRequest struct {
	FilePath  string `json:"filePath" form:"filePath" binding:"required"`
	AutoMerge *bool  `json:"autoMerge" form:"autoMerge"`
}

// ImportAllRequest 导入全部文件请求，AutoMerge 默认开启
type ImportAllRequest struct {
	AutoMerge *bool `json:"autoMerge" form:"autoMerge"`
}

// SyncRepositoryRequest 整库同步请求
type SyncRepositoryRequest struct {
	Direction string `json:"direction" form:"direction" binding:"omitempty,oneof=export import bidirectional"`
}

// SyncStatusDTO 同步状态响应，State 为空时 Status 为 pending
type SyncStatusDTO struct {
	RepositoryID string `json:"repositoryId"`
	Status       string `json:"status"`
	Message      string `json:"message,omitempty"`
	State        any    `json:"state,omitempty"`
}

// AutoMergeOrDefault 未指定时返回 true
func AutoMergeOrDefault(v *bool) bool {
	return v == nil || *v
}

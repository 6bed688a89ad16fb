package dto

import "time"

// CredentialsRequest 仓库凭据，保存前加密
type CredentialsRequest struct {
	Username      string `json:"username" form:"username"`
	Token         string `json:"token" form:"token"`
	SSHKey        string `json:"sshKey" form:"sshKey"`
	SSHKeyPath    string `json:"sshKeyPath" form:"sshKeyPath"`
	SSHPassphrase string `json:"sshPassphrase" form:"sshPassphrase"`
	SSHUser       string `json:"sshUser" form:"sshUser"`
}

// IsEmpty 是否未提供任何凭据
func (c *CredentialsRequest) IsEmpty() bool {
	return c == nil || (c.Token == "" && c.SSHKey == "" && c.SSHKeyPath == "")
}

// RepositoryCreateRequest 创建仓库连接请求
type RepositoryCreateRequest struct {
	Name                string              `json:"name" form:"name" binding:"required,max=128"`
	URL                 string              `json:"url" form:"url" binding:"required,git_url"`
	Branch              string              `json:"branch" form:"branch" binding:"omitempty,git_branch"`
	AuthMode            string              `json:"authMode" form:"authMode" binding:"omitempty,oneof=none token ssh"`
	Credentials         *CredentialsRequest `json:"credentials"`
	AutoSyncEnabled     bool                `json:"autoSyncEnabled" form:"autoSyncEnabled"`
	SyncIntervalMinutes int                 `json:"syncIntervalMinutes" form:"syncIntervalMinutes" binding:"omitempty,min=1,max=10080"`
	WorkspaceID         string              `json:"workspaceId" form:"workspaceId"`
	// CloneNow 创建后立即克隆工作区
	CloneNow bool `json:"cloneNow" form:"cloneNow"`
}

// RepositoryUpdateRequest 更新仓库连接请求，未提供的字段保持不变
type RepositoryUpdateRequest struct {
	ID                  string              `json:"-" uri:"id"`
	Name                *string             `json:"name" binding:"omitempty,max=128"`
	URL                 *string             `json:"url" binding:"omitempty,git_url"`
	Branch              *string             `json:"branch" binding:"omitempty,git_branch"`
	AuthMode            *string             `json:"authMode" binding:"omitempty,oneof=none token ssh"`
	Credentials         *CredentialsRequest `json:"credentials"`
	AutoSyncEnabled     *bool               `json:"autoSyncEnabled"`
	SyncIntervalMinutes *int                `json:"syncIntervalMinutes" binding:"omitempty,min=1,max=10080"`
	WorkspaceID         *string             `json:"workspaceId"`
}

// RepositoryIDRequest 仅包含仓库 ID 的请求
type RepositoryIDRequest struct {
	ID string `uri:"id" binding:"required"`
}

// RepositoryDTO 仓库连接响应，不含凭据内容
type RepositoryDTO struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	URL                 string    `json:"url"`
	Branch              string    `json:"branch"`
	AuthMode            string    `json:"authMode"`
	HasCredentials      bool      `json:"hasCredentials"`
	AutoSyncEnabled     bool      `json:"autoSyncEnabled"`
	SyncIntervalMinutes int       `json:"syncIntervalMinutes"`
	WorkspaceID         string    `json:"workspaceId"`
	LocalPath           string    `json:"localPath"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// CommitRequest 提交请求
type CommitRequest struct {
	Message     string `json:"message" form:"message" binding:"required,max=2000"`
	AuthorName  string `json:"authorName" form:"authorName"`
	AuthorEmail string `json:"authorEmail" form:"authorEmail" binding:"omitempty,email"`
}

// BranchRequest 推送、拉取或切换分支请求
type BranchRequest struct {
	Branch string `json:"branch" form:"branch" binding:"omitempty,git_branch"`
}

// CreateBranchRequest 新建分支请求
type CreateBranchRequest struct {
	Name string `json:"name" form:"name" binding:"required,git_branch"`
	From string `json:"from" form:"from"`
}

// HistoryRequest 提交历史请求
type HistoryRequest struct {
	Limit int `json:"limit" form:"limit" binding:"omitempty,min=1,max=500"`
}

// DiffRequest 差异请求
type DiffRequest struct {
	Ref1 string `json:"ref1" form:"ref1"`
	Ref2 string `json:"ref2" form:"ref2"`
}

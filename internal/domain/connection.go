package domain

import (
	"time"
)

// AuthMode 仓库认证方式
type AuthMode string

const (
	AuthModeNone  AuthMode = "none"
	AuthModeToken AuthMode = "token"
	AuthModeSSH   AuthMode = "ssh"
)

func (m AuthMode) Valid() bool {
	switch m {
	case AuthModeNone, AuthModeToken, AuthModeSSH:
		return true
	}
	return false
}

const (
	DefaultBranch              = "main"
	DefaultSyncIntervalMinutes = 60
)

// RepositoryConnection 已配置的远程 Git 仓库连接
// LocalPath 仅在工作区克隆成功后非空
type RepositoryConnection struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	URL                 string    `json:"url"`
	Branch              string    `json:"branch"`
	AuthMode            AuthMode  `json:"authMode"`
	Credentials         string    `json:"-"`
	AutoSyncEnabled     bool      `json:"autoSyncEnabled"`
	SyncIntervalMinutes int       `json:"syncIntervalMinutes"`
	WorkspaceID         string    `json:"workspaceId"`
	LocalPath           string    `json:"localPath"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// ApplyDefaults 填充分支、认证方式与同步间隔的默认值
func (c *RepositoryConnection) ApplyDefaults() {
	if c.Branch == "" {
		c.Branch = DefaultBranch
	}
	if c.AuthMode == "" {
		c.AuthMode = AuthModeNone
	}
	if c.SyncIntervalMinutes <= 0 {
		c.SyncIntervalMinutes = DefaultSyncIntervalMinutes
	}
}

// SyncInterval 自动同步间隔
func (c *RepositoryConnection) SyncInterval() time.Duration {
	if c.SyncIntervalMinutes <= 0 {
		return DefaultSyncIntervalMinutes * time.Minute
	}
	return time.Duration(c.SyncIntervalMinutes) * time.Minute
}

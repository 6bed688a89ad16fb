package model

import "time"

const TableNameRepositoryConnection = "repository_connection"

// RepositoryConnection mapped from table <repository_connection>
type RepositoryConnection struct {
	ID                  string    `gorm:"column:id;type:varchar(36);primaryKey" json:"id" form:"id"`
	Name                string    `gorm:"column:name;type:varchar(255);not null" json:"name" form:"name"`
	URL                 string    `gorm:"column:url;type:varchar(1024);not null" json:"url" form:"url"`
	Branch              string    `gorm:"column:branch;type:varchar(255);not null;default:main" json:"branch" form:"branch"`
	AuthMode            string    `gorm:"column:auth_mode;type:varchar(16);not null;default:none" json:"authMode" form:"authMode"`
	Credentials         string    `gorm:"column:credentials;type:text" json:"-" form:"-"`
	AutoSyncEnabled     bool      `gorm:"column:auto_sync_enabled;not null;default:false;index:idx_auto_sync" json:"autoSyncEnabled" form:"autoSyncEnabled"`
	SyncIntervalMinutes int       `gorm:"column:sync_interval_minutes;not null;default:60" json:"syncIntervalMinutes" form:"syncIntervalMinutes"`
	WorkspaceID         string    `gorm:"column:workspace_id;type:varchar(255)" json:"workspaceId" form:"workspaceId"`
	LocalPath           string    `gorm:"column:local_path;type:varchar(1024)" json:"localPath" form:"localPath"`
	CreatedAt           time.Time `gorm:"column:created_at;autoCreateTime:false" json:"createdAt" form:"createdAt"`
	UpdatedAt           time.Time `gorm:"column:updated_at;autoUpdateTime:false" json:"updatedAt" form:"updatedAt"`
}

// TableName RepositoryConnection's table name
func (*RepositoryConnection) TableName() string {
	return TableNameRepositoryConnection
}

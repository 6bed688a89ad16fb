package model

import "time"

const TableNameSyncState = "sync_state"

// SyncState mapped from table <sync_state>
// PendingChangesJSON / ConflictsJSON 以 JSON 文本存储切片
type SyncState struct {
	RepositoryID       string     `gorm:"column:repository_id;type:varchar(36);primaryKey" json:"repositoryId" form:"repositoryId"`
	Status             string     `gorm:"column:status;type:varchar(32);not null" json:"status" form:"status"`
	Direction          string     `gorm:"column:direction;type:varchar(32)" json:"direction" form:"direction"`
	LastSyncAt         *time.Time `gorm:"column:last_sync_at" json:"lastSyncAt" form:"lastSyncAt"`
	LastSuccessAt      *time.Time `gorm:"column:last_success_at" json:"lastSuccessAt" form:"lastSuccessAt"`
	PendingChangesJSON string     `gorm:"column:pending_changes;type:text" json:"pendingChanges" form:"pendingChanges"`
	ConflictsJSON      string     `gorm:"column:conflicts;type:text" json:"conflicts" form:"conflicts"`
	ErrorMessage       string     `gorm:"column:error_message;type:text" json:"errorMessage" form:"errorMessage"`
	UpdatedAt          time.Time  `gorm:"column:updated_at" json:"updatedAt" form:"updatedAt"`
}

// TableName SyncState's table name
func (*SyncState) TableName() string {
	return TableNameSyncState
}

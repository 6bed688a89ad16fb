package model

import (
	"gorm.io/gorm"
)

// AutoMigrate 按名称迁移单个表，名称为空时迁移全部
func AutoMigrate(db *gorm.DB, key string) error {
	switch key {

	case "RepositoryConnection":
		return db.AutoMigrate(RepositoryConnection{})

	case "SyncState":
		return db.AutoMigrate(SyncState{})

	case "":
		return db.AutoMigrate(RepositoryConnection{}, SyncState{})
	}
	return nil
}

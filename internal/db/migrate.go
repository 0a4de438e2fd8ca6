package db

import (
	"github.com/scarramanga/StackMotive-V12-sub006/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}
	return db.Gorm.AutoMigrate(
		&models.Timer{},
		&models.Alert{},
		&models.Rule{},
	)
}

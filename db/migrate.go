package db

import (
	"context"

	"gorm.io/gorm"
)

// DefineTables prepare a database with the tables, used by the `migrate` command and
// unit-tests
func DefineTables(_ context.Context, db *gorm.DB) error {
	return db.AutoMigrate(
		SystemEventAuditDBEntry{},
		SystemParamsDBEntry{},
		RecordDBEntry{},
	)
}

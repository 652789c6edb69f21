package models

import "gorm.io/gorm"

// AllModels returns all models for migration
// Note: User must be migrated first as ownership edges depend on it
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Race{},
		&Club{},
		&ClubMembership{},
		&Registration{},
		&ReassignmentLog{},
	}
}

// AutoMigrate runs GORM auto-migration for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}

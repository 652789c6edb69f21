package database

import (
	"errors"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Config controls how the connection is opened.
type Config struct {
	// LogQueries turns on gorm's info-level SQL logging; the default
	// only reports slow queries and errors.
	LogQueries bool
}

// Connect opens the database at dsn with default settings.
// For now, uses SQLite. Can be swapped to Postgres later via GORM driver.
func Connect(dsn string) error {
	return ConnectWith(dsn, Config{})
}

// ConnectWith opens the database at dsn with explicit settings.
func ConnectWith(dsn string, cfg Config) error {
	if strings.TrimSpace(dsn) == "" {
		return errors.New("database: dsn must not be empty")
	}

	level := logger.Warn
	if cfg.LogQueries {
		level = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// GetDB returns the database instance.
func GetDB() *gorm.DB {
	return DB
}

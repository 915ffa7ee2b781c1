package config

import (
	"fmt"

	"github.com/Govind-619/Tutorix/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// InitDB opens the database connection and migrates the schema
func InitDB(cfg *Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates all tables
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("failed to migrate database: %v", err)
	}
	return nil
}

// Package db opens the metadata store
package db

import (
	"fmt"

	"streamhost/media-api/model"

	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func New() (*gorm.DB, error) {
	var dialector gorm.Dialector

	dsn := viper.GetString("db.dsn")

	switch viper.GetString("db.driver") {
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		dialector = sqlite.Open(dsn)
	}

	// TranslateError turns driver-specific uniqueness violations into
	// gorm.ErrDuplicatedKey, which the reconciler relies on for its
	// conditional inserts
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata store, %w", err)
	}

	err = db.AutoMigrate(
		model.Account{},
		model.Host{},
		model.Folder{},
		model.Video{},
		model.PlaylistEntry{},
		model.ConversionJob{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to automigrate tables, %w", err)
	}

	return db, nil
}

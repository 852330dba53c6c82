package repository

import (
	"gorm.io/gorm"

	"github.com/narwhalmedia/catalog/pkg/database"
)

// Migrations returns the ordered schema changes for the catalog tables.
func Migrations() []database.MigrationEntry {
	return []database.MigrationEntry{
		{
			Version: "001",
			Name:    "create_sources_table",
			Up: func(db *gorm.DB) error {
				return db.AutoMigrate(&SourceModel{})
			},
		},
		{
			Version: "002",
			Name:    "create_media_items_table",
			Up: func(db *gorm.DB) error {
				return db.AutoMigrate(&MediaItemModel{})
			},
		},
	}
}

package database

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/narwhalmedia/catalog/pkg/interfaces"
)

// Migration records an applied schema version.
type Migration struct {
	ID        uint      `gorm:"primaryKey"`
	Version   string    `gorm:"uniqueIndex;not null"`
	Name      string    `gorm:"not null"`
	AppliedAt time.Time `gorm:"not null"`
}

// MigrationFunc performs one schema change inside a transaction.
type MigrationFunc func(*gorm.DB) error

// MigrationEntry is one versioned schema change.
type MigrationEntry struct {
	Version string
	Name    string
	Up      MigrationFunc
}

// Migrator applies migrations in order, once each.
type Migrator struct {
	db         *gorm.DB
	migrations []MigrationEntry
	log        interfaces.Logger
}

// NewMigrator creates a migrator for the given ordered entries.
func NewMigrator(db *gorm.DB, log interfaces.Logger, migrations ...MigrationEntry) *Migrator {
	return &Migrator{db: db, log: log, migrations: migrations}
}

// Migrate runs all pending migrations.
func (m *Migrator) Migrate() error {
	if err := m.db.AutoMigrate(&Migration{}); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	pending, err := m.Pending()
	if err != nil {
		return err
	}

	for _, migration := range pending {
		m.log.Info("Running migration",
			interfaces.String("version", migration.Version),
			interfaces.String("name", migration.Name))

		err := m.db.Transaction(func(tx *gorm.DB) error {
			if err := migration.Up(tx); err != nil {
				return err
			}
			return tx.Create(&Migration{
				Version:   migration.Version,
				Name:      migration.Name,
				AppliedAt: time.Now().UTC(),
			}).Error
		})
		if err != nil {
			return fmt.Errorf("failed to run migration %s: %w", migration.Version, err)
		}
	}

	return nil
}

// Pending returns the migrations that have not been applied yet.
func (m *Migrator) Pending() ([]MigrationEntry, error) {
	var applied []Migration
	if !m.db.Migrator().HasTable(&Migration{}) {
		return m.migrations, nil
	}
	if err := m.db.Find(&applied).Error; err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	done := make(map[string]bool, len(applied))
	for _, a := range applied {
		done[a.Version] = true
	}

	var pending []MigrationEntry
	for _, migration := range m.migrations {
		if !done[migration.Version] {
			pending = append(pending, migration)
		}
	}
	return pending, nil
}

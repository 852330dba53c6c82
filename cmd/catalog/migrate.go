package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/narwhalmedia/catalog/internal/catalog/repository"
	"github.com/narwhalmedia/catalog/pkg/database"
	"github.com/narwhalmedia/catalog/pkg/logger"
)

func newMigrateCmd() *cobra.Command {
	var status, dryRun bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply catalog schema migrations to the configured database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log, err := logger.NewFromConfig(cfg.Logger.ToLoggerConfig())
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			db, err := database.Open(cfg.Database.ToDatabaseConfig(), log)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close(db) }()

			migrator := database.NewMigrator(db, log, repository.Migrations()...)
			out := cmd.OutOrStdout()
			switch {
			case status:
				return showApplied(out, db)
			case dryRun:
				return showPending(out, migrator)
			default:
				if err := migrator.Migrate(); err != nil {
					return err
				}
				fmt.Fprintln(out, "Migrations completed successfully")
				return nil
			}
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "show applied migrations")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show pending migrations without applying them")
	cmd.MarkFlagsMutuallyExclusive("status", "dry-run")
	return cmd
}

func showApplied(out io.Writer, db *gorm.DB) error {
	var applied []database.Migration
	if err := db.Order("applied_at DESC").Find(&applied).Error; err != nil {
		return fmt.Errorf("failed to get migrations: %w", err)
	}
	if len(applied) == 0 {
		fmt.Fprintln(out, "No migrations have been applied yet.")
		return nil
	}
	for _, m := range applied {
		fmt.Fprintf(out, "%s  %-30s  %s\n", m.Version, m.Name, m.AppliedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func showPending(out io.Writer, migrator *database.Migrator) error {
	pending, err := migrator.Pending()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Fprintln(out, "Database is up to date.")
		return nil
	}
	for _, m := range pending {
		fmt.Fprintf(out, "%s  %s\n", m.Version, m.Name)
	}
	return nil
}

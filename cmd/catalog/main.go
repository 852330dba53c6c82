// Command catalog keeps a unified media catalog in sync with its sources.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/narwhalmedia/catalog/internal/container"
	"github.com/narwhalmedia/catalog/pkg/config"
)

var configPaths []string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "catalog",
		Short:         "Synchronize media catalogs from Jellyfin, Emby, Plex, local disks and S3",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringSliceVarP(&configPaths, "config", "c", nil, "config file (repeatable, later files override earlier ones)")

	root.AddCommand(newServeCmd(), newScanCmd(), newLibrariesCmd(), newMigrateCmd())
	return root
}

// loadConfig layers defaults, config files and CATALOG_* environment variables.
func loadConfig() (*config.CatalogConfig, error) {
	cfg := config.DefaultCatalogConfig()
	if err := config.LoadServiceConfig("catalog", cfg, configPaths...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// build loads the configuration and assembles the container.
func build() (*container.Container, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	return container.Initialize(cfg)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tim-schilling/publicworks/internal/catalog"
	"github.com/tim-schilling/publicworks/internal/config"
	"github.com/tim-schilling/publicworks/internal/db"
	"github.com/tim-schilling/publicworks/internal/debug"
	"github.com/tim-schilling/publicworks/internal/store"
	"github.com/tim-schilling/publicworks/internal/web"
)

var (
	cfg      *config.Config
	envFiles []string
	debugOn  bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:          "publicworks",
		Short:        "Public works request, order and cost data pipeline",
		Long:         `Imports public works CSV extracts into a normalized store and answers grouped cost statistics for the dashboard`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup()
		},
	}
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "Environment files to load (default .env, ../.env, ../../.env)")
	rootCmd.PersistentFlags().BoolVar(&debugOn, "debug", false, "Enable debug output")

	rootCmd.AddCommand(createMigrateCmd())
	rootCmd.AddCommand(createImportCmd())
	rootCmd.AddCommand(createDedupeCmd())
	rootCmd.AddCommand(createAnalyzeCmd())
	rootCmd.AddCommand(createExportCmd())
	rootCmd.AddCommand(createPingCmd())
	rootCmd.AddCommand(createServeCmd())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		debug.Logger().Error(err)
		os.Exit(1)
	}
}

func setup() error {
	files := envFiles
	if len(files) == 0 {
		files = config.DefaultEnvFiles
	}
	if _, err := config.LoadEnv(files...); err != nil {
		return err
	}
	var err error
	if cfg, err = config.Load(); err != nil {
		return err
	}
	if debugOn {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}
	return debug.SetLevel(cfg.LogLevel)
}

// openStore connects to the configured database. With dryRun it returns an
// empty in-memory store instead.
func openStore(ctx context.Context, dryRun bool) (store.Store, error) {
	if dryRun {
		debug.Logger().Info("Dry run: writing to an in-memory store")
		return store.NewMemoryStore(), nil
	}
	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return conn.Store(), nil
}

// createMigrateCmd creates the schema
func createMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := db.NewConnection(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := conn.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Printf("Schema ready (%s)\n", conn.Dialect)
			return nil
		},
	}
}

// createPingCmd tests database connectivity
func createPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Test database connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.Close()
			fmt.Println("Database connection successful!")

			counts, err := s.Counts(cmd.Context())
			if err != nil {
				return err
			}
			for _, table := range []string{
				store.TableReference, store.TableProject, store.TableAddress, store.TableAsset,
				store.TableResource, store.TableWorkRequest, store.TableWorkOrder, store.TableWorkDetail,
			} {
				fmt.Printf("%-14s %d\n", table, counts[table])
			}
			return nil
		},
	}
}

// createDedupeCmd repairs duplicate and blank reference codes
func createDedupeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dedupe",
		Short: "Merge duplicate reference codes and remove blank ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.Close()

			report, err := catalog.New(s).Deduplicate(cmd.Context())
			if err != nil {
				return err
			}
			for d, n := range report.Merged {
				fmt.Printf("%-20s merged %d\n", d, n)
			}
			for d, n := range report.Deleted {
				fmt.Printf("%-20s deleted %d blank\n", d, n)
			}
			for _, ref := range report.Kept {
				fmt.Printf("%-20s kept blank reference %d (still required)\n", ref.Domain, ref.ID)
			}
			return nil
		},
	}
}

// createServeCmd starts the query API
func createServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard query API",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd.Context(), false)
			if err != nil {
				return err
			}
			return web.NewServer(cfg, s).Start(cmd.Context())
		},
	}
}

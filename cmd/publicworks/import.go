package main

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/tim-schilling/publicworks/internal/etl"
	"github.com/tim-schilling/publicworks/internal/model"
	"github.com/tim-schilling/publicworks/internal/source"
)

// createImportCmd creates the import subcommand
func createImportCmd() *cobra.Command {
	var dryRun bool

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import public works CSV extracts",
		Long:  `Import work request, work order and work detail CSV files from local paths or s3://bucket/key URIs`,
	}
	importCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Import into an in-memory store and discard the result")

	importCmd.AddCommand(createImportKindCmd(model.KindRequest, "Import work requests CSV", &dryRun))
	importCmd.AddCommand(createImportKindCmd(model.KindOrder, "Import work orders CSV", &dryRun))
	importCmd.AddCommand(createImportKindCmd(model.KindDetail, "Import work order details CSV", &dryRun))
	importCmd.AddCommand(createImportAllCmd(&dryRun))

	return importCmd
}

func createImportKindCmd(k model.Kind, short string, dryRun *bool) *cobra.Command {
	return &cobra.Command{
		Use:   fmt.Sprintf("%s [file or s3 uri]", k),
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := source.NewOpener(cfg.S3).Source(k, args[0])
			if err != nil {
				return err
			}
			return runImport(cmd, *dryRun, src)
		},
	}
}

func createImportAllCmd(dryRun *bool) *cobra.Command {
	var requests, orders, details string

	cmd := &cobra.Command{
		Use:   "all",
		Short: "Import requests, then orders, then details",
		RunE: func(cmd *cobra.Command, args []string) error {
			opener := source.NewOpener(cfg.S3)
			var sources []etl.Source
			for _, f := range []struct {
				kind model.Kind
				uri  string
			}{
				{model.KindRequest, requests},
				{model.KindOrder, orders},
				{model.KindDetail, details},
			} {
				if f.uri == "" {
					continue
				}
				src, err := opener.Source(f.kind, f.uri)
				if err != nil {
					return err
				}
				sources = append(sources, src)
			}
			if len(sources) == 0 {
				return errors.New("nothing to import: pass --requests, --orders or --details")
			}
			return runImport(cmd, *dryRun, sources...)
		},
	}
	cmd.Flags().StringVar(&requests, "requests", "", "Work requests CSV")
	cmd.Flags().StringVar(&orders, "orders", "", "Work orders CSV")
	cmd.Flags().StringVar(&details, "details", "", "Work order details CSV")
	return cmd
}

func runImport(cmd *cobra.Command, dryRun bool, sources ...etl.Source) error {
	ctx := cmd.Context()
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	s, err := openStore(ctx, dryRun)
	if err != nil {
		return err
	}
	defer s.Close()

	pipeline := etl.NewPipeline(s, loc, cfg.Debug)
	reports, err := pipeline.ImportAll(ctx, sources...)
	for _, r := range reports {
		fmt.Println(r)
		for _, attr := range r.SkippedAttributes {
			fmt.Printf("  skipped %s: no columns in file\n", attr)
		}
		for _, rowErr := range r.Errors {
			fmt.Printf("  line %d: %v\n", rowErr.Line, rowErr.Err)
		}
	}
	return err
}

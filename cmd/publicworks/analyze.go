package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/tim-schilling/publicworks/internal/analysis"
)

type queryFlags struct {
	dataset    string
	domain     string
	measures   []string
	department string
	division   string
	category   string
	order      string
	stat       string
	limit      int
}

func (f *queryFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.dataset, "dataset", "orders", "Dataset: orders or details")
	cmd.Flags().StringVar(&f.domain, "domain", "category", "Group by this reference domain")
	cmd.Flags().StringSliceVar(&f.measures, "measure", []string{"total_cost"}, "Measures to summarize")
	cmd.Flags().StringVar(&f.department, "department", "", "Only work orders of this department code")
	cmd.Flags().StringVar(&f.division, "division", "", "Only work orders of this division code")
	cmd.Flags().StringVar(&f.category, "category", "", "Only work orders of this category code")
	cmd.Flags().StringVar(&f.order, "order", "", "Rank by this measure (default the first)")
	cmd.Flags().StringVar(&f.stat, "stat", "", "Rank by this statistic (default count)")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "Keep the first N groups (0 keeps all)")
}

func (f *queryFlags) query() analysis.Query {
	q := analysis.Query{
		Dataset: analysis.Dataset(f.dataset),
		Group:   analysis.Group(f.domain),
		Filters: analysis.Filters{Department: f.department, Division: f.division, Category: f.category},
		OrderBy: analysis.OrderBy{Measure: analysis.Measure(f.order), Stat: analysis.Stat(f.stat)},
		Limit:   f.limit,
	}
	for _, m := range f.measures {
		q.Measures = append(q.Measures, analysis.Measure(m))
	}
	return q
}

func (f *queryFlags) run(cmd *cobra.Command) (analysis.Query, []analysis.GroupResult, error) {
	q := f.query()
	if err := q.Validate(); err != nil {
		return q, nil, err
	}
	s, err := openStore(cmd.Context(), false)
	if err != nil {
		return q, nil, err
	}
	defer s.Close()
	results, err := analysis.NewEngine(s).Aggregate(cmd.Context(), q)
	return q, results, err
}

func printResults(w io.Writer, q analysis.Query, results []analysis.GroupResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	header := []string{string(q.Group)}
	for _, m := range q.Measures {
		for _, st := range analysis.Stats {
			header = append(header, fmt.Sprintf("%s %s", m, st))
		}
	}
	fmt.Fprintln(tw, strings.Join(header, "\t")+"\t")
	for _, r := range results {
		row := []string{r.Label}
		for _, m := range q.Measures {
			for _, st := range analysis.Stats {
				v := r.Measures[m].Stat(st)
				if !v.Valid {
					row = append(row, "-")
					continue
				}
				row = append(row, v.Decimal.StringFixed(2))
			}
		}
		fmt.Fprintln(tw, strings.Join(row, "\t")+"\t")
	}
	return tw.Flush()
}

// createAnalyzeCmd prints grouped statistics
func createAnalyzeCmd() *cobra.Command {
	var flags queryFlags
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Print grouped cost statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			q, results, err := flags.run(cmd)
			if err != nil {
				return err
			}
			return printResults(os.Stdout, q, results)
		},
	}
	flags.bind(cmd)
	return cmd
}

// createExportCmd writes grouped statistics to a CSV or XLSX file
func createExportCmd() *cobra.Command {
	var (
		flags  queryFlags
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export grouped cost statistics to CSV or XLSX",
		RunE: func(cmd *cobra.Command, args []string) error {
			write := analysis.WriteCSV
			switch format {
			case "csv":
			case "xlsx":
				write = analysis.WriteXLSX
			default:
				return errors.Errorf("unsupported format %q", format)
			}
			q, results, err := flags.run(cmd)
			if err != nil {
				return err
			}
			if output == "" {
				output = fmt.Sprintf("%s.%s", q.Group, format)
			}
			f, err := os.Create(output)
			if err != nil {
				return errors.Wrap(err, "create output")
			}
			if err := write(f, q.Group, q.Measures, results); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Printf("Wrote %d groups to %s\n", len(results), output)
			return nil
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVar(&format, "format", "csv", "Output format: csv or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default <domain>.<format>)")
	return cmd
}

package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/floodaudit/floodaudit/internal/prepare"
)

var prepareJSON bool

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Load and clean the dataset, then print the preparation report",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("prepare"); err != nil {
			return err
		}
		snap, err := loadSnapshot(cmd.Context())
		if err != nil {
			return err
		}
		if prepareJSON {
			return writeJSON(os.Stdout, snap.Result.Report)
		}
		formatReport(os.Stdout, snap.Source, &snap.Result.Report)
		return nil
	},
}

func formatReport(w io.Writer, source string, r *prepare.Report) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Source:\t%s\n", source)
	fmt.Fprintf(tw, "Input rows:\t%d\n", r.InputRows)
	fmt.Fprintf(tw, "Output rows:\t%d\n", r.OutputRows)
	fmt.Fprintf(tw, "Rows removed:\t%d\n", r.RowsRemoved())
	fmt.Fprintf(tw, "Derived columns:\t%d\n", r.DerivedColumns)
	for _, d := range prepare.DropReasons {
		fmt.Fprintf(tw, "  dropped %s:\t%d\n", d, r.Dropped[d])
	}

	anomalies := make([]string, 0, len(r.Anomalies))
	for name := range r.Anomalies {
		anomalies = append(anomalies, name)
	}
	slices.Sort(anomalies)
	for _, name := range anomalies {
		fmt.Fprintf(tw, "  anomaly %s:\t%d\n", name, r.Anomalies[name])
	}
	fmt.Fprintf(tw, "Excluded-year rows:\t%d\n", len(r.ExcludedYearRows))
	tw.Flush() //nolint:errcheck
}

func init() {
	prepareCmd.Flags().BoolVar(&prepareJSON, "json", false, "print the report as JSON")
	rootCmd.AddCommand(prepareCmd)
}

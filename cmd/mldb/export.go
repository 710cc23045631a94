package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/franz/mldb/internal/report"
	"github.com/franz/mldb/internal/store"
	"github.com/franz/mldb/internal/util"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export [expid...]",
	Short: "Export the latest metrics of experiments with their group facets",
	Long: `Export one row per experiment: its latest metric epoch, the facets of its
primary group (the last key=value;... group it was added to) and every
metric recorded at that epoch.

Experiments are taken from the arguments, from --group, or else every
experiment in the database. Experiments without metrics are skipped.`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("group", "", "export the members of this group")
	exportCmd.Flags().StringP("format", "f", "csv", "csv or jsonl")
	exportCmd.Flags().StringP("out", "o", "", "output file (default stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
	group, _ := cmd.Flags().GetString("group")
	format, _ := cmd.Flags().GetString("format")
	outPath, _ := cmd.Flags().GetString("out")

	var write func(io.Writer, []report.Row) error
	switch strings.ToLower(format) {
	case "csv":
		write = report.WriteCSV
	case "jsonl", "json":
		write = report.WriteJSONL
	default:
		return fmt.Errorf("unknown export format %q (want csv or jsonl)", format)
	}

	return withStore(cmd.Context(), func(s store.ExperimentStore) error {
		ids, err := exportIDs(cmd, s, args, group)
		if err != nil {
			return err
		}

		rows, err := report.CollectLatest(cmd.Context(), s, ids)
		if err != nil {
			return err
		}

		if outPath == "" {
			return write(cmd.OutOrStdout(), rows)
		}

		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", outPath, err)
		}
		if err := write(f, rows); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to write %s: %w", outPath, err)
		}
		util.SuccessLog("Exported %d of %d experiment(s) to %s", len(rows), len(ids), outPath)
		return nil
	})
}

func exportIDs(cmd *cobra.Command, s store.ExperimentStore, args []string, group string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if group != "" {
		return s.GetGroup(cmd.Context(), group)
	}

	rows, err := s.ListExperiments(cmd.Context(), store.ListFilter{})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ExpID)
	}
	return ids, nil
}

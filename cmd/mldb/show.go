package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/franz/mldb/internal/report"
	"github.com/franz/mldb/internal/store"
	"github.com/franz/mldb/internal/util"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <expid>",
	Short: "Show everything recorded for an experiment",
	Long: `Show an experiment's status, losses, learning rates, hyperparameters,
latest metrics, configuration file, checkpoints, qualitative plots and groups.

Use --markdown for a report that can be pasted into notes, or --json for
machine-readable output.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().Bool("json", false, "print JSON")
	showCmd.Flags().Bool("markdown", false, "print a Markdown summary")
}

// experimentRecord is everything show collects about one experiment
type experimentRecord struct {
	Details    *store.ExperimentDetails `json:"details"`
	Params     map[string]string        `json:"params"`
	Metrics    *store.LatestMetrics     `json:"metrics"`
	ConfigFile string                   `json:"config_file,omitempty"`
	StateFiles []store.StateFile        `json:"state_files"`
	Plots      []string                 `json:"plots"`
	Groups     []string                 `json:"groups"`
}

func runShow(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	asMarkdown, _ := cmd.Flags().GetBool("markdown")
	if asJSON && asMarkdown {
		return fmt.Errorf("--json and --markdown are mutually exclusive")
	}

	return withStore(cmd.Context(), func(s store.ExperimentStore) error {
		rec, err := collectRecord(cmd.Context(), s, args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		switch {
		case asJSON:
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		case asMarkdown:
			return report.WriteMarkdownSummary(out, rec.Details, rec.Params, rec.Metrics)
		default:
			return printRecord(out, rec)
		}
	})
}

func collectRecord(ctx context.Context, s store.ExperimentStore, id string) (*experimentRecord, error) {
	details, err := s.GetExperimentDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	rec := &experimentRecord{Details: details}

	if rec.Params, err = s.GetHyperparams(ctx, id); err != nil {
		return nil, err
	}
	if rec.Metrics, err = s.GetLatestMetrics(ctx, id); err != nil {
		return nil, err
	}

	rec.ConfigFile, err = s.GetConfigFile(ctx, id)
	if err != nil && !errors.Is(err, util.ErrNoData) {
		return nil, err
	}
	if rec.StateFiles, err = s.GetStateFiles(ctx, id); err != nil {
		return nil, err
	}
	if rec.Plots, err = s.GetQualitativePlotIDs(ctx, id); err != nil {
		return nil, err
	}
	if rec.Groups, err = s.GetGroupsOfExp(ctx, id); err != nil {
		return nil, err
	}
	return rec, nil
}

func printRecord(out io.Writer, rec *experimentRecord) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Experiment:\t%s\n", rec.Details.ExpID)
	fmt.Fprintf(tw, "Status:\t%s\n", rec.Details.Status)
	if rec.ConfigFile != "" {
		fmt.Fprintf(tw, "Config:\t%s\n", rec.ConfigFile)
	}
	for _, g := range rec.Groups {
		fmt.Fprintf(tw, "Group:\t%s\n", g)
	}

	if len(rec.Params) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "HYPERPARAMETER\tVALUE")
		names := make([]string, 0, len(rec.Params))
		for name := range rec.Params {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(tw, "%s\t%s\n", name, rec.Params[name])
		}
	}

	if len(rec.Details.Losses) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "LOSS\tEPOCHS\tLAST")
		kinds := make([]string, 0, len(rec.Details.Losses))
		for kind := range rec.Details.Losses {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			series := rec.Details.Losses[kind]
			last := series.Loss[len(series.Loss)-1]
			fmt.Fprintf(tw, "%s\t%d\t%g\n", kind, len(series.Epoch), float64(last))
		}
	}

	if !rec.Metrics.Empty() {
		fmt.Fprintln(tw)
		fmt.Fprintf(tw, "METRIC (epoch %d)\tVALUE\n", rec.Metrics.Epoch)
		kinds := make([]string, 0, len(rec.Metrics.Data))
		for kind := range rec.Metrics.Data {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			fmt.Fprintf(tw, "%s\t%g\n", kind, float64(rec.Metrics.Data[kind]))
		}
	}

	if len(rec.StateFiles) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "CHECKPOINT EPOCH\tPATH")
		for _, sf := range rec.StateFiles {
			fmt.Fprintf(tw, "%d\t%s\n", sf.Epoch, sf.Path)
		}
	}

	if len(rec.Plots) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "QUALITATIVE PLOTS")
		for _, p := range rec.Plots {
			fmt.Fprintln(tw, p)
		}
	}

	return tw.Flush()
}

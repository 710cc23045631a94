package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/franz/mldb/internal/store"
	"github.com/franz/mldb/internal/util"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Set or read the status of an experiment",
}

var statusSetCmd = &cobra.Command{
	Use:   "set <expid> <status>",
	Short: "Record an experiment's status (TRAINING, COMPLETE, ERROR, CANCELLED)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(s store.ExperimentStore) error {
			if err := s.SetStatus(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			util.SuccessLog("%s is now %s", args[0], args[1])
			return nil
		})
	},
}

var statusGetCmd = &cobra.Command{
	Use:   "get <expid>",
	Short: "Print an experiment's status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(s store.ExperimentStore) error {
			status, err := s.GetStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), status)
			return nil
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List experiments and their status",
	Long: `List experiments in id order.

Kinds:
  all        every experiment (default)
  running    TRAINING
  completed  COMPLETE
  failed     ERROR or CANCELLED`,
	Args: cobra.NoArgs,
	RunE: runList,
}

// listKinds maps the --kind flag to the statuses it selects
var listKinds = map[string][]string{
	"all":       nil,
	"running":   {store.StatusTraining},
	"completed": {store.StatusComplete},
	"failed":    {store.StatusError, store.StatusCancelled},
}

func init() {
	rootCmd.AddCommand(statusCmd, listCmd)
	statusCmd.AddCommand(statusSetCmd, statusGetCmd)

	listCmd.Flags().String("kind", "all", "all, running, completed or failed")
	listCmd.Flags().String("search", "", "only ids matching this SQL LIKE pattern")
	listCmd.Flags().String("group", "", "only members of this group")
	listCmd.Flags().Int("recent", 0, "only the last N experiments")
	listCmd.Flags().Bool("json", false, "print JSON")
}

func runList(cmd *cobra.Command, args []string) error {
	kind, _ := cmd.Flags().GetString("kind")
	search, _ := cmd.Flags().GetString("search")
	group, _ := cmd.Flags().GetString("group")
	recent, _ := cmd.Flags().GetInt("recent")
	asJSON, _ := cmd.Flags().GetBool("json")

	statuses, ok := listKinds[strings.ToLower(kind)]
	if !ok {
		return fmt.Errorf("unknown kind %q (want all, running, completed or failed)", kind)
	}

	filter := store.ListFilter{Statuses: statuses, Search: search, Group: group, Limit: recent}

	return withStore(cmd.Context(), func(s store.ExperimentStore) error {
		rows, err := s.ListExperiments(cmd.Context(), filter)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		}

		if len(rows) == 0 {
			util.InfoLog("No experiments found")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "EXPID\tSTATUS")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%s\n", r.ExpID, r.Status)
		}
		return tw.Flush()
	})
}

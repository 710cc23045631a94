package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/franz/mldb/internal/store"
	"github.com/franz/mldb/internal/util"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <expid>...",
	Short: "Delete every record of one or more experiments",
	Long: `Delete an experiment's rows from every table. Files on disk (checkpoints,
config files) are not touched.

Each experiment is deleted in a single commit. If a table fails part-way,
the tables already cleared stay cleared and the failure names them.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)

	deleteCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	deleteCmd.Flags().Bool("keep-going", false, "continue with the next experiment after a failure")
}

func runDelete(cmd *cobra.Command, args []string) error {
	yes, _ := cmd.Flags().GetBool("yes")
	keepGoing, _ := cmd.Flags().GetBool("keep-going")

	if !yes {
		return fmt.Errorf("refusing to delete %d experiment(s) without --yes", len(args))
	}

	return withStore(cmd.Context(), func(s store.ExperimentStore) error {
		var bar *progressbar.ProgressBar
		if len(args) > 1 && util.IsTerminal(os.Stderr.Fd()) && !util.IsQuiet() {
			bar = progressbar.NewOptions(len(args),
				progressbar.OptionSetDescription("Deleting"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionThrottle(100*time.Millisecond),
				progressbar.OptionClearOnFinish(),
			)
		}

		var failed []string
		for _, id := range args {
			err := s.DeleteExperiment(cmd.Context(), id)
			if bar != nil {
				bar.Add(1)
			}
			if err == nil {
				util.DebugLog("Deleted %s", id)
				continue
			}

			var partial *store.PartialError
			if errors.As(err, &partial) && len(partial.Completed) > 0 {
				util.ErrorLog("%s: cleared %s before %s failed", id, strings.Join(partial.Completed, ", "), partial.Failed)
			}
			if !keepGoing {
				return err
			}
			util.ErrorLog("%v", err)
			failed = append(failed, id)
		}
		if bar != nil {
			bar.Finish()
		}

		if len(failed) > 0 {
			return fmt.Errorf("failed to delete %d of %d experiments: %s", len(failed), len(args), strings.Join(failed, ", "))
		}
		util.SuccessLog("Deleted %d experiment(s)", len(args))
		return nil
	})
}

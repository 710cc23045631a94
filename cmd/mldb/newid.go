package main

import (
	"fmt"

	"github.com/franz/mldb/internal/store"
	"github.com/franz/mldb/internal/util"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var newIDCmd = &cobra.Command{
	Use:   "new-id",
	Short: "Print a fresh experiment id",
	Long: `Print a new random experiment id, optionally with a prefix. With --start
the experiment is also recorded as TRAINING.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix, _ := cmd.Flags().GetString("prefix")
		start, _ := cmd.Flags().GetBool("start")

		id := uuid.NewString()
		if prefix != "" {
			id = prefix + "-" + id
		}

		if start {
			err := withStore(cmd.Context(), func(s store.ExperimentStore) error {
				return s.SetStatus(cmd.Context(), id, store.StatusTraining)
			})
			if err != nil {
				return err
			}
			util.DebugLog("Registered %s as %s", id, store.StatusTraining)
		}

		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(newIDCmd)

	newIDCmd.Flags().String("prefix", "", "prefix for the id")
	newIDCmd.Flags().Bool("start", false, "record the new experiment as TRAINING")
}

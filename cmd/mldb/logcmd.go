package main

import (
	"fmt"
	"strconv"

	"github.com/franz/mldb/internal/store"
	"github.com/franz/mldb/internal/util"
	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Record training data for an experiment",
	Long: `Record training data from scripts that cannot link against the store.

Losses, metrics and learning rates are keyed by epoch; recording the same
key twice is an error. Paths are stored relative to the storage root.`,
}

var logLossCmd = &cobra.Command{
	Use:   "loss <expid> <kind> <epoch> <value>",
	Short: "Record a loss value",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		epoch, value, err := parseEpochValue(args[2], args[3])
		if err != nil {
			return err
		}
		return withStore(cmd.Context(), func(s store.ExperimentStore) error {
			return s.AddLoss(cmd.Context(), args[0], args[1], epoch, value)
		})
	},
}

var logMetricCmd = &cobra.Command{
	Use:   "metric <expid> <kind> <epoch> <value>",
	Short: "Record a metric value",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		epoch, value, err := parseEpochValue(args[2], args[3])
		if err != nil {
			return err
		}
		return withStore(cmd.Context(), func(s store.ExperimentStore) error {
			return s.AddMetric(cmd.Context(), args[0], args[1], epoch, value)
		})
	},
}

var logLRCmd = &cobra.Command{
	Use:   "lr <expid> <epoch> <value>",
	Short: "Record the learning rate of an epoch",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		epoch, value, err := parseEpochValue(args[1], args[2])
		if err != nil {
			return err
		}
		return withStore(cmd.Context(), func(s store.ExperimentStore) error {
			return s.AddLearningRate(cmd.Context(), args[0], epoch, value)
		})
	},
}

var logHparamCmd = &cobra.Command{
	Use:   "hparam <expid> <name> <value>",
	Short: "Record a hyperparameter (write-once)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(s store.ExperimentStore) error {
			return s.AddHyperparam(cmd.Context(), args[0], args[1], args[2])
		})
	},
}

var logConfigCmd = &cobra.Command{
	Use:   "config <expid> <path>",
	Short: "Record the configuration file an experiment was started from",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(s store.ExperimentStore) error {
			return s.SetConfigFile(cmd.Context(), args[0], args[1])
		})
	},
}

var logStateCmd = &cobra.Command{
	Use:   "state <expid> <epoch> <path>",
	Short: "Record a checkpoint file",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		epoch, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid epoch %q: %w", args[1], err)
		}
		strict, _ := cmd.Flags().GetBool("strict")

		return withStore(cmd.Context(), func(s store.ExperimentStore) error {
			result, err := s.AddStateFile(cmd.Context(), args[0], epoch, args[2], strict)
			if err != nil {
				return err
			}
			if result == store.AlreadyExists {
				util.WarnLog("Checkpoint for epoch %d of %s was already recorded", epoch, args[0])
			}
			return nil
		})
	},
}

var logPlotCmd = &cobra.Command{
	Use:   "plot <expid> <plotid> <json>",
	Short: "Record the descriptor of a qualitative plot (a JSON object)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(s store.ExperimentStore) error {
			return s.AddQualitativeMetadataJSON(cmd.Context(), args[0], args[1], args[2])
		})
	},
}

var logResultCmd = &cobra.Command{
	Use:   "result <expid> <epoch> <plotid> <json>",
	Short: "Append a sample to a qualitative plot (a JSON object)",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		epoch, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid epoch %q: %w", args[1], err)
		}
		return withStore(cmd.Context(), func(s store.ExperimentStore) error {
			return s.AddQualitativeResultJSON(cmd.Context(), args[0], epoch, args[2], args[3])
		})
	},
}

func init() {
	rootCmd.AddCommand(logCmd)
	logCmd.AddCommand(logLossCmd, logMetricCmd, logLRCmd, logHparamCmd, logConfigCmd, logStateCmd, logPlotCmd, logResultCmd)

	logStateCmd.Flags().Bool("strict", false, "fail if the checkpoint was already recorded")
}

// parseEpochValue parses an epoch and a sample value. "nan" is accepted.
func parseEpochValue(epochArg, valueArg string) (int, float64, error) {
	epoch, err := strconv.Atoi(epochArg)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid epoch %q: %w", epochArg, err)
	}
	value, err := strconv.ParseFloat(valueArg, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid value %q: %w", valueArg, err)
	}
	return epoch, value, nil
}

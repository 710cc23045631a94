package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration mldb would use, after merging the config file,
MLDB_* environment variables and flags. Passwords are masked.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		out, err := yaml.Marshal(cfg.Redacted())
		if err != nil {
			return fmt.Errorf("failed to render configuration: %w", err)
		}

		w := cmd.OutOrStdout()
		if file := viper.ConfigFileUsed(); file != "" {
			fmt.Fprintf(w, "# from %s\n", file)
		}
		_, err = w.Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}

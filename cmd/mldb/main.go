package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/franz/mldb/internal/config"
	"github.com/franz/mldb/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version is set at build time
	Version = "dev"

	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "mldb",
		Short: "Machine learning experiment database",
		Long: `mldb records the progress of machine learning experiments (status, losses,
metrics, hyperparameters, checkpoints, qualitative results and groups) in a
SQLite, PostgreSQL or MySQL database, and serves them to the dashboard.`,
		Version:           Version,
		SilenceUsage:      true,
		PersistentPreRunE: setupLogging,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			util.CloseLogFile()
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./mldb.yaml or ~/.mldb_config.json)")
	rootCmd.PersistentFlags().String("backend", "", "database backend (sqlite, postgresql, mysql, dummy)")
	rootCmd.PersistentFlags().String("db", "", "SQLite database file")
	rootCmd.PersistentFlags().String("root", "", "directory stored file paths are relative to (SQLite)")
	rootCmd.PersistentFlags().String("log-file", "", "also write logs to this file (rotated)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "quiet output (errors only)")

	// Bind flags to viper
	viper.BindPFlag("backend", rootCmd.PersistentFlags().Lookup("backend"))
	viper.BindPFlag("sqlite.path", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("sqlite.root", rootCmd.PersistentFlags().Lookup("root"))
	viper.BindPFlag("log.file", rootCmd.PersistentFlags().Lookup("log-file"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
}

func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else if legacy := legacyConfigPath(); legacy != "" {
		viper.SetConfigFile(legacy)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("mldb")
		viper.SetConfigType("yaml")
	}

	// MLDB_BACKEND, MLDB_POSTGRESQL_HOST, ...
	viper.SetEnvPrefix("MLDB")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		util.DebugLog("Using config file: %s", viper.ConfigFileUsed())
	}
}

// legacyConfigPath returns ~/.mldb_config.json when it exists and no
// mldb.yaml is present in the working directory.
func legacyConfigPath() string {
	if _, err := os.Stat("mldb.yaml"); err == nil {
		return ""
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(home, ".mldb_config.json")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func setupLogging(cmd *cobra.Command, args []string) error {
	util.SetLogLevel(util.LevelInfo)
	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		util.SetColors(false)
	}

	if path := viper.GetString("log.file"); path != "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		util.SetLogFile(cfg.Log.File, cfg.Log.MaxSizeMB, cfg.Log.MaxBackups, cfg.Log.MaxAgeDays)
	}
	return nil
}

// loadConfig builds the configuration from flags, environment and file.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"net"
	"strconv"

	"github.com/franz/mldb/internal/server"
	"github.com/franz/mldb/internal/store"
	"github.com/franz/mldb/internal/util"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard JSON API",
	Long: `Serve the JSON API the dashboard page reads experiment tables and details
from. Each concurrent request uses its own database session, up to
--sessions at a time.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "", "address to listen on (default 127.0.0.1)")
	serveCmd.Flags().Int("port", 0, "port to listen on (default 8080)")
	serveCmd.Flags().Int("sessions", 0, "maximum concurrent database sessions (default 4)")

	viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.sessions", serveCmd.Flags().Lookup("sessions"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if !viper.GetBool("verbose") {
		gin.SetMode(gin.ReleaseMode)
	}

	pool := server.NewPool(cfg.Server.Sessions, func(ctx context.Context) (store.ExperimentStore, error) {
		return openStore(ctx, cfg)
	})
	defer func() {
		if err := pool.Close(); err != nil {
			util.WarnLog("Failed to close database sessions: %v", err)
		}
	}()

	// Open the first session before listening
	err = pool.Do(cmd.Context(), func(s store.ExperimentStore) error {
		util.InfoLog("Connected to database %q", s.String())
		return nil
	})
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	return server.New(pool).Run(cmd.Context(), addr)
}

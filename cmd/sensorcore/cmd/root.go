// Package cmd holds the thin CLI surface over the ingestion pipeline and
// the retrieval engine. All configuration arrives through SENSORCORE_*
// environment variables (or the matching flags); the core packages receive
// ready-made connections and never read the environment themselves.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sensorcore/internal/blob"
	"sensorcore/internal/persistence"
	"sensorcore/pkg/logger"
)

// NewRoot returns the root command.
func NewRoot() *cobra.Command {
	root := &cobra.Command{
		Use:               "sensorcore",
		Short:             "sensorcore moves sensor readings from object storage into the time-series store and queries them back",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logger.Init(cmd.ErrOrStderr(), viper.GetString("log_level"))
		},
	}
	viper.SetEnvPrefix("sensorcore")
	viper.AutomaticEnv()
	viper.SetDefault("log_level", "info")

	root.PersistentFlags().String("log-level", "info", "log level (trace|debug|info|warn|error)")
	_ = viper.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(newIngestCmd(), newQueryCmd())
	return root
}

// openStores connects both databases from the environment DSNs.
func openStores(ctx context.Context) (*persistence.Databases, error) {
	cfg := persistence.Config{
		MetadataDSN:   viper.GetString("metadata_dsn"),
		TimeseriesDSN: viper.GetString("timeseries_dsn"),
	}
	if cfg.MetadataDSN == "" || cfg.TimeseriesDSN == "" {
		return nil, fmt.Errorf("SENSORCORE_METADATA_DSN and SENSORCORE_TIMESERIES_DSN are required")
	}
	return persistence.Open(ctx, cfg)
}

// openBlob connects the object store from the environment.
func openBlob(ctx context.Context) (blob.Store, error) {
	return blob.Open(ctx)
}

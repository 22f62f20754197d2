package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sensorcore/internal/identity"
	"sensorcore/internal/ingest"
	"sensorcore/internal/persistence"
	"sensorcore/internal/source"
)

func newIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Run one batch ingestion pass over the source corpus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openBlob(ctx)
			if err != nil {
				return err
			}
			dbs, err := openStores(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = dbs.Close() }()

			reader := source.NewReader(store, source.Config{
				Prefix:     viper.GetString("source_prefix"),
				MappingKey: viper.GetString("mapping_key"),
			})
			meta := persistence.NewMetadataStore(dbs.Metadata)
			resolver := identity.NewResolver(meta, 0)
			writer := ingest.NewWriter(persistence.NewMeasurementStore(dbs.Timeseries), ingest.WriterConfig{
				BatchSize:   viper.GetInt("batch_size"),
				MaxAttempts: viper.GetUint64("write_attempts"),
			})

			orch := ingest.NewOrchestrator(reader, resolver, writer, meta, dbs)
			summary, err := orch.Run(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"state=%s objects=%d read=%d skipped=%d resolved=%d written=%d failed=%d batches_failed=%d\n",
				summary.State, summary.ObjectsListed, summary.RecordsRead, summary.RecordsSkipped,
				summary.RecordsResolved, summary.RecordsWritten, summary.RecordsFailed, summary.BatchesFailed)
			if summary.Degraded() {
				return fmt.Errorf("ingestion completed with errors: %w", orch.Errors())
			}
			return nil
		},
	}
	cmd.Flags().Int("batch-size", 500, "records per bulk write")
	cmd.Flags().Uint64("write-attempts", 3, "write attempts per batch before abandoning it")
	cmd.Flags().String("source-prefix", source.DefaultPrefix, "object key prefix of measurement files")
	cmd.Flags().String("mapping-key", source.DefaultMappingKey, "object key of the optional mapping seed file")
	_ = viper.BindPFlag("batch_size", cmd.Flags().Lookup("batch-size"))
	_ = viper.BindPFlag("write_attempts", cmd.Flags().Lookup("write-attempts"))
	_ = viper.BindPFlag("source_prefix", cmd.Flags().Lookup("source-prefix"))
	_ = viper.BindPFlag("mapping_key", cmd.Flags().Lookup("mapping-key"))
	return cmd
}

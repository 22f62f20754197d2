package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sensorcore/internal/identity"
	"sensorcore/internal/persistence"
	"sensorcore/internal/query"
	"sensorcore/pkg/domain"
)

func newQueryCmd() *cobra.Command {
	var (
		sensorName string
		startRaw   string
		endRaw     string
		pageNumber int
		pageSize   int
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Retrieve readings for a sensor within a time range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			start, err := domain.ParseTimestamp(startRaw)
			if err != nil {
				return domain.NewUsageError("start-timestamp: %v", err)
			}
			end, err := domain.ParseTimestamp(endRaw)
			if err != nil {
				return domain.NewUsageError("end-timestamp: %v", err)
			}
			params := query.Params{SensorName: sensorName, Start: start, End: end}
			if cmd.Flags().Changed("page-number") {
				params.PageNumber = &pageNumber
			}
			if cmd.Flags().Changed("page-size") {
				params.PageSize = &pageSize
			}

			dbs, err := openStores(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = dbs.Close() }()

			resolver := identity.NewResolver(persistence.NewMetadataStore(dbs.Metadata), 0)
			engine := query.NewEngine(resolver, persistence.NewMeasurementStore(dbs.Timeseries), 0)

			cur, err := engine.Query(ctx, params)
			if err != nil {
				return err
			}
			for cur.Next() {
				r := cur.Reading()
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%g\n", r.Timestamp.Format(time.RFC3339), r.Value)
			}
			return cur.Err()
		},
	}
	cmd.Flags().StringVar(&sensorName, "sensor-name", "", "sensor name (required)")
	cmd.Flags().StringVar(&startRaw, "start-timestamp", "", "range start, ISO-8601 with offset (required)")
	cmd.Flags().StringVar(&endRaw, "end-timestamp", "", "range end, ISO-8601 with offset (required)")
	cmd.Flags().IntVar(&pageNumber, "page-number", 0, "1-based page number (with --page-size)")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "page length (with --page-number)")
	_ = cmd.MarkFlagRequired("sensor-name")
	_ = cmd.MarkFlagRequired("start-timestamp")
	_ = cmd.MarkFlagRequired("end-timestamp")
	return cmd
}

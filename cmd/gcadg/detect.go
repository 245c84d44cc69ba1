package main

import (
	"github.com/spf13/cobra"

	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/internal/service"
	gio "github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/io"
)

func newDetectCmd(a *app) *cobra.Command {
	var files recordFiles

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Run batch anomaly detection and print the report",
		Long: `Fit a fresh Isolation Forest on every record and print the flagged ones as JSON.

Records come from the configured database unless --csv or --pcap names a file.`,
		Example: `  gcadg detect
  gcadg detect --csv cybersecurity_attacks.csv
  gcadg detect --pcap capture.pcapng`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []service.Option{
				service.WithLogger(a.logger.Named("anomaly")),
				service.WithDetectorConfig(a.cfg.DetectorConfig()),
			}

			if files.empty() {
				repo, err := a.openRepository(cmd)
				if err != nil {
					return err
				}
				defer repo.Close()

				report, err := service.NewAnomalyService(repo, opts...).DetectBatch(cmd.Context())
				if err != nil {
					return err
				}
				return a.printJSON(report)
			}

			reader, err := files.open()
			if err != nil {
				return err
			}
			records, err := gio.ReadAll(reader)
			if err != nil {
				return err
			}
			report, err := service.NewAnomalyService(nil, opts...).DetectRecords(cmd.Context(), records)
			if err != nil {
				return err
			}
			return a.printJSON(report)
		},
	}

	cmd.Flags().StringVar(&files.csv, "csv", "", "read records from a CSV file")
	cmd.Flags().StringVar(&files.pcap, "pcap", "", "read records from a pcap or pcapng capture")
	cmd.MarkFlagsMutuallyExclusive("csv", "pcap")
	return cmd
}

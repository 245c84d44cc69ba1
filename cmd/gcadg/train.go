package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/internal/service"
	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/anomaly"
	gio "github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/io"
)

func newTrainCmd(a *app) *cobra.Command {
	var (
		files recordFiles
		out   string
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit a model artifact for /predict",
		Long: `Fit an Isolation Forest together with its category codebook and write both to an
artifact file. The serve command loads the artifact from model.path.`,
		Example: `  gcadg train --out model.gcadg
  gcadg train --csv cybersecurity_attacks.csv --out model.gcadg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = a.cfg.Model.Path
			}

			var (
				artifact *anomaly.Artifact
				err      error
			)
			opts := []service.Option{
				service.WithLogger(a.logger.Named("anomaly")),
				service.WithDetectorConfig(a.cfg.DetectorConfig()),
			}

			if files.empty() {
				repo, rerr := a.openRepository(cmd)
				if rerr != nil {
					return rerr
				}
				defer repo.Close()
				artifact, err = service.NewAnomalyService(repo, opts...).Train(cmd.Context())
			} else {
				reader, rerr := files.open()
				if rerr != nil {
					return rerr
				}
				records, rerr := gio.ReadAll(reader)
				if rerr != nil {
					return rerr
				}
				artifact, err = service.NewAnomalyService(nil, opts...).TrainRecords(cmd.Context(), records)
			}
			if err != nil {
				return err
			}

			if err := artifact.SaveFile(out); err != nil {
				return fmt.Errorf("failed to write artifact: %w", err)
			}
			a.logger.Info("artifact written", zap.String("path", out))
			fmt.Fprintf(a.stdout, "model written to %s (%d columns, threshold %.4f)\n",
				out, len(artifact.Model.Columns()), artifact.Model.Threshold())
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "artifact path (default model.path)")
	cmd.Flags().StringVar(&files.csv, "csv", "", "train on a CSV file instead of the database")
	cmd.Flags().StringVar(&files.pcap, "pcap", "", "train on a pcap or pcapng capture instead of the database")
	cmd.MarkFlagsMutuallyExclusive("csv", "pcap")
	return cmd
}

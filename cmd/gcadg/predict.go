package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/internal/service"
	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/anomaly"
	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/logs"
)

func newPredictCmd(a *app) *cobra.Command {
	var (
		files     recordFiles
		modelPath string
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Score records with a trained artifact",
		Long: `Score records from a JSON or capture file with a previously trained artifact.
One JSON prediction is written per line. Records whose columns do not match the
trained layout are reported on stderr and skipped.`,
		Example: `  gcadg predict --model model.gcadg --input records.json
  gcadg predict --pcap capture.pcap`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if files.empty() {
				return errors.New("one of --input or --pcap is required")
			}
			if modelPath == "" {
				modelPath = a.cfg.Model.Path
			}

			artifact, err := anomaly.LoadFile(modelPath)
			if err != nil {
				return fmt.Errorf("failed to load model: %w", err)
			}
			reader, err := files.open()
			if err != nil {
				return err
			}
			defer reader.Close()

			return a.predictStream(cmd, artifact, reader)
		},
	}

	cmd.Flags().StringVar(&modelPath, "model", "", "artifact path (default model.path)")
	cmd.Flags().StringVar(&files.json, "input", "", "JSON file holding a record or an array of records")
	cmd.Flags().StringVar(&files.pcap, "pcap", "", "pcap or pcapng capture")
	cmd.MarkFlagsMutuallyExclusive("input", "pcap")
	return cmd
}

type streamer interface {
	Stream(ctx context.Context) (<-chan logs.Record, error)
}

func (a *app) predictStream(cmd *cobra.Command, artifact *anomaly.Artifact, src streamer) error {
	g, ctx := errgroup.WithContext(cmd.Context())

	input, err := src.Stream(ctx)
	if err != nil {
		return err
	}
	output := make(chan anomaly.Scored)

	g.Go(func() error {
		defer close(output)
		return artifact.PredictStream(ctx, input, output)
	})

	var scored, outliers, skipped int
	g.Go(func() error {
		enc := json.NewEncoder(a.stdout)
		for result := range output {
			if result.Err != nil {
				skipped++
				fmt.Fprintf(a.stderr, "skipping record: %v\n", result.Err)
				continue
			}
			scored++
			if result.Score.IsOutlier() {
				outliers++
			}
			err := enc.Encode(service.Prediction{
				Display: logs.ToDisplay(result.Record),
				Anomaly: result.Score.Label,
				Score:   result.Score.Value,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info("prediction finished",
		zap.Int("scored", scored),
		zap.Int("outliers", outliers),
		zap.Int("skipped", skipped),
	)
	return nil
}

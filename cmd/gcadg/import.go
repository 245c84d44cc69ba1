package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/io/csv"
)

const importBatchSize = 1000

func newImportCmd(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:     "import",
		Short:   "Load a CSV of traffic logs into the database",
		Example: `  gcadg import --csv cybersecurity_attacks.csv`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return errors.New("--csv is required")
			}

			repo, err := a.openRepository(cmd)
			if err != nil {
				return err
			}
			defer repo.Close()

			reader, err := csv.NewReader(file)
			if err != nil {
				return err
			}
			defer reader.Close()

			records, err := reader.Read()
			if err != nil {
				return err
			}

			total := 0
			for start := 0; start < len(records); start += importBatchSize {
				end := min(start+importBatchSize, len(records))
				n, err := repo.Insert(cmd.Context(), records[start:end])
				if err != nil {
					return fmt.Errorf("import rows %d-%d: %w", start+1, end, err)
				}
				total += n
			}

			a.logger.Info("import finished", zap.String("file", file), zap.Int("records", total))
			fmt.Fprintf(a.stdout, "imported %d records from %s\n", total, file)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "csv", "", "CSV file with a header row")
	return cmd
}

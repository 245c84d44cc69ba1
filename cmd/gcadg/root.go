package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/internal/config"
	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/internal/logger"
	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/internal/repository"
	gio "github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/io"
	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/io/csv"
	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/io/jsonrec"
	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/io/pcap"
)

// app carries what every subcommand needs once PersistentPreRunE has run.
type app struct {
	configFile string
	cfg        *config.Config
	logger     *zap.Logger
	stdout     io.Writer
	stderr     io.Writer
}

func newRootCommand(out, errOut io.Writer) *cobra.Command {
	a := &app{stdout: out, stderr: errOut}

	cmd := &cobra.Command{
		Use:           "gcadg",
		Short:         "Global Cyber Attack Detection Grid",
		Long:          "gcadg scores network traffic logs with an Isolation Forest and serves the results over HTTP.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				a.logger.Sync()
			}
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	cmd.PersistentFlags().StringVar(&a.configFile, "config", "", "path to a config file (default: config.yaml in ., $HOME/.gcadg, /etc/gcadg)")

	cmd.AddCommand(
		newServeCmd(a),
		newDetectCmd(a),
		newTrainCmd(a),
		newPredictCmd(a),
		newImportCmd(a),
	)
	return cmd
}

func (a *app) init() error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	l, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = l
	return nil
}

// openRepository connects to the configured database and applies migrations.
func (a *app) openRepository(cmd *cobra.Command) (*repository.SQLRepository, error) {
	repo, err := repository.Open(a.cfg.Database.Driver, a.cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := repo.RunMigrations(cmd.Context()); err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return repo, nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// recordFiles holds the mutually exclusive input flags shared by detect, train and
// predict.
type recordFiles struct {
	csv  string
	pcap string
	json string
}

func (f recordFiles) empty() bool {
	return f.csv == "" && f.pcap == "" && f.json == ""
}

// open returns a reader for whichever input flag is set.
func (f recordFiles) open() (gio.Reader, error) {
	switch {
	case f.csv != "":
		return csv.NewReader(f.csv)
	case f.pcap != "":
		return pcap.NewFileReader(f.pcap)
	case f.json != "":
		return jsonrec.NewFileReader(f.json)
	default:
		return nil, errors.New("no input file given")
	}
}

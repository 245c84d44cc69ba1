package anomaly

import (
	"bufio"
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/detectors"
	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/detectors/iforest"
	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/features"
	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/logs"
)

// artifactMagic prefixes every persisted artifact.
var artifactMagic = []byte("GCADGM01")

const artifactVersion = 1

// ErrBadArtifact is returned when a stream is not a model artifact.
var ErrBadArtifact = errors.New("not a model artifact")

// Artifact is everything needed to score records later: the schema and codebook used at
// training time and the fitted model.
type Artifact struct {
	Schema   features.Schema
	Codebook *features.Codebook
	Model    *Model
}

// Train encodes records with a fresh codebook and fits a model on them.
func Train(ctx context.Context, enc *features.Encoder, records []logs.Record, opts ...iforest.Option) (*Artifact, error) {
	m, cb, err := enc.Encode(records, nil)
	if err != nil {
		return nil, err
	}
	model, err := Fit(ctx, m, opts...)
	if err != nil {
		return nil, err
	}
	return &Artifact{Schema: enc.Schema(), Codebook: cb, Model: model}, nil
}

// Encoder returns an encoder over the training schema.
func (a *Artifact) Encoder() *features.Encoder {
	return features.NewEncoder(a.Schema)
}

// Score encodes records with the training codebook and scores them.
func (a *Artifact) Score(records []logs.Record) ([]detectors.Score, error) {
	m, _, err := a.Encoder().Encode(records, a.Codebook)
	if err != nil {
		return nil, err
	}
	return a.Model.Predict(m)
}

// artifactFile is the gob payload behind the magic header.
type artifactFile struct {
	Version  int
	Schema   features.Schema
	Codebook *features.Codebook
	Columns  []string
	Forest   []byte
}

// Save writes the artifact as a zstd-compressed gob stream.
func (a *Artifact) Save(w io.Writer) error {
	if a.Model == nil {
		return fmt.Errorf("save artifact: %w", iforest.ErrNotTrained)
	}
	forest, err := a.Model.detector.Save()
	if err != nil {
		return fmt.Errorf("save forest: %w", err)
	}

	if _, err := w.Write(artifactMagic); err != nil {
		return err
	}
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	err = gob.NewEncoder(zw).Encode(artifactFile{
		Version:  artifactVersion,
		Schema:   a.Schema,
		Codebook: a.Codebook,
		Columns:  a.Model.columns,
		Forest:   forest,
	})
	if err != nil {
		zw.Close()
		return fmt.Errorf("encode artifact: %w", err)
	}
	return zw.Close()
}

// Load reads an artifact written by Save.
func Load(r io.Reader) (*Artifact, error) {
	br := bufio.NewReader(r)
	header := make([]byte, len(artifactMagic))
	if _, err := io.ReadFull(br, header); err != nil || !bytes.Equal(header, artifactMagic) {
		return nil, ErrBadArtifact
	}

	zr, err := zstd.NewReader(br)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var f artifactFile
	if err := gob.NewDecoder(zr).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if f.Version != artifactVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadArtifact, f.Version)
	}
	if len(f.Columns) == 0 {
		return nil, fmt.Errorf("%w: no columns", ErrBadArtifact)
	}

	forest := iforest.New()
	if err := forest.Load(f.Forest); err != nil {
		return nil, fmt.Errorf("load forest: %w", err)
	}
	if forest.Width() != len(f.Columns) {
		return nil, fmt.Errorf("%w: forest width %d, %d columns", ErrBadArtifact, forest.Width(), len(f.Columns))
	}

	cb := f.Codebook
	if cb == nil {
		cb = features.NewCodebook()
	}
	return &Artifact{
		Schema:   f.Schema,
		Codebook: cb,
		Model:    &Model{columns: f.Columns, detector: forest},
	}, nil
}

// SaveFile writes the artifact to path.
func (a *Artifact) SaveFile(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := a.Save(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// LoadFile reads an artifact from path.
func LoadFile(path string) (*Artifact, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Load(file)
}

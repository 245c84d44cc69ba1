// Package csv reads traffic-log datasets exported as CSV.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/logs"
)

// Reader reads records from a CSV file with a header row.
type Reader struct {
	closer  io.Closer
	reader  *csv.Reader
	headers []string
	skipBad bool
}

// Option configures a CSV reader.
type Option func(*Reader)

// WithSkipMalformed drops rows whose field count differs from the header instead of
// failing the read.
func WithSkipMalformed(skip bool) Option {
	return func(r *Reader) {
		r.skipBad = skip
	}
}

// WithComma sets the field delimiter.
func WithComma(c rune) Option {
	return func(r *Reader) {
		r.reader.Comma = c
	}
}

// NewReader opens filename and reads its header.
func NewReader(filename string, opts ...Option) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	r, err := newReader(file, file, opts...)
	if err != nil {
		file.Close()
		return nil, err
	}
	return r, nil
}

// FromReader reads CSV data from src. Close is a no-op.
func FromReader(src io.Reader, opts ...Option) (*Reader, error) {
	return newReader(src, nil, opts...)
}

func newReader(src io.Reader, closer io.Closer, opts ...Option) (*Reader, error) {
	r := &Reader{
		closer:  closer,
		reader:  csv.NewReader(src),
		skipBad: true,
	}
	r.reader.ReuseRecord = true
	r.reader.FieldsPerRecord = -1

	for _, opt := range opts {
		opt(r)
	}

	header, err := r.reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("csv: missing header row")
		}
		return nil, err
	}
	r.headers = make([]string, len(header))
	for i, h := range header {
		r.headers[i] = NormalizeHeader(h)
	}

	return r, nil
}

// Headers returns the normalized column names.
func (r *Reader) Headers() []string {
	return r.headers
}

// Read returns every row as a record.
func (r *Reader) Read() ([]logs.Record, error) {
	var records []logs.Record
	for {
		record, err := r.next()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
}

// Stream returns a channel of records for incremental processing.
func (r *Reader) Stream(ctx context.Context) (<-chan logs.Record, error) {
	out := make(chan logs.Record, 100)

	go func() {
		defer close(out)
		for {
			record, err := r.next()
			if err != nil {
				return
			}

			select {
			case out <- record:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Close releases resources.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// next returns the next well-formed row. Empty cells become nil.
func (r *Reader) next() (logs.Record, error) {
	for {
		row, err := r.reader.Read()
		if err != nil {
			return nil, err
		}
		if len(row) != len(r.headers) {
			if r.skipBad {
				continue
			}
			line, _ := r.reader.FieldPos(0)
			return nil, &csv.ParseError{StartLine: line, Line: line, Err: csv.ErrFieldCount}
		}

		record := make(logs.Record, len(row))
		for i, cell := range row {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				record[r.headers[i]] = nil
				continue
			}
			record[r.headers[i]] = cell
		}
		return record, nil
	}
}

var headerReplacer = strings.NewReplacer(" ", "_", "-", "_", "/", "_")

// NormalizeHeader maps a dataset header such as "Geo-location Data" or "IDS/IPS Alerts"
// to its column name.
func NormalizeHeader(h string) string {
	h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	if strings.EqualFold(h, logs.FieldTimestamp) {
		return logs.FieldTimestamp
	}
	return headerReplacer.Replace(h)
}

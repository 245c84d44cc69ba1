package features

import (
	"errors"
	"math"

	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/logs"
)

// ErrNoUsableFeatures is returned when a non-empty batch shares no vectorized column with
// the schema.
var ErrNoUsableFeatures = errors.New("no usable feature columns")

// Matrix is an encoded batch: one row per record, one column per feature.
type Matrix struct {
	Columns []string
	Rows    [][]float64

	// Defaulted counts, per column, the cells that fell back to a default: 0 for
	// missing or malformed numbers, addresses and timestamps, UnknownCode for
	// categories a frozen codebook has not seen.
	Defaulted map[string]int
}

// Len returns the number of rows.
func (m Matrix) Len() int {
	return len(m.Rows)
}

// Width returns the number of columns.
func (m Matrix) Width() int {
	return len(m.Columns)
}

// Encoder turns records into a Matrix according to a Schema.
// It holds no mutable state and is safe for concurrent use.
type Encoder struct {
	schema Schema
}

// NewEncoder creates an encoder for the given schema. An empty schema selects
// DefaultSchema.
func NewEncoder(schema Schema) *Encoder {
	if len(schema) == 0 {
		schema = DefaultSchema()
	}
	return &Encoder{schema: schema}
}

// Schema returns the encoder's schema.
func (e *Encoder) Schema() Schema {
	return e.schema
}

// Encode converts records into feature rows.
//
// When cb is nil a new codebook is built from this batch in first-seen order and
// returned; otherwise cb is used read-only and unseen categories map to UnknownCode.
// Malformed values never fail the batch: they are replaced by 0 and counted in
// Matrix.Defaulted.
func (e *Encoder) Encode(records []logs.Record, cb *Codebook) (Matrix, *Codebook, error) {
	m := Matrix{Defaulted: make(map[string]int)}
	building := cb == nil
	if building {
		cb = NewCodebook()
	}
	if len(records) == 0 {
		return m, cb, nil
	}

	m.Columns = e.schema.Layout(records)
	if len(m.Columns) == 0 {
		return Matrix{}, nil, ErrNoUsableFeatures
	}

	kinds := make([]Kind, len(m.Columns))
	for i, col := range m.Columns {
		kinds[i], _ = e.schema.Kind(col)
	}

	m.Rows = make([][]float64, len(records))
	for i, r := range records {
		row := make([]float64, len(m.Columns))
		for j, col := range m.Columns {
			v, ok := e.encodeValue(kinds[j], col, r[col], cb, building)
			if !ok {
				m.Defaulted[col]++
			}
			row[j] = v
		}
		m.Rows[i] = row
	}

	return m, cb, nil
}

// encodeValue returns the feature value and false when a default was substituted.
func (e *Encoder) encodeValue(kind Kind, col string, v any, cb *Codebook, building bool) (float64, bool) {
	switch kind {
	case Numeric:
		f, ok := logs.ParseFloat(v)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true

	case Categorical:
		value := MissingCategory
		if v != nil {
			value = logs.FormatValue(v)
		}
		if building {
			return float64(cb.assign(col, value)), true
		}
		code, ok := cb.Lookup(col, value)
		return float64(code), ok

	case IP:
		if v == nil {
			return 0, false
		}
		ip, ok := ParseIPv4(logs.FormatValue(v))
		return float64(ip), ok

	case Timestamp:
		ts, ok := ParseTimestamp(v)
		return float64(ts), ok
	}
	return 0, false
}

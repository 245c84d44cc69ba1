// Package jsonrec decodes loosely typed JSON log records: a single object or an array
// of objects with arbitrary primitive fields.
package jsonrec

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/valyala/fastjson"

	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/logs"
)

// ErrNotObject is returned when the payload, or an array element, is not a JSON object.
var ErrNotObject = errors.New("record must be a JSON object")

var parserPool fastjson.ParserPool

// Parse decodes data into records. many reports whether the payload was an array.
// Strings, numbers, booleans and null map to string, float64, bool and nil; nested
// objects and arrays are kept as their raw JSON text.
func Parse(data []byte) (records []logs.Record, many bool, err error) {
	p := parserPool.Get()
	defer parserPool.Put(p)

	v, err := p.ParseBytes(data)
	if err != nil {
		return nil, false, fmt.Errorf("invalid JSON: %w", err)
	}

	if v.Type() == fastjson.TypeArray {
		arr, _ := v.Array()
		records = make([]logs.Record, 0, len(arr))
		for i, item := range arr {
			record, err := toRecord(item)
			if err != nil {
				return nil, true, fmt.Errorf("element %d: %w", i, err)
			}
			records = append(records, record)
		}
		return records, true, nil
	}

	record, err := toRecord(v)
	if err != nil {
		return nil, false, err
	}
	return []logs.Record{record}, false, nil
}

func toRecord(v *fastjson.Value) (logs.Record, error) {
	obj, err := v.Object()
	if err != nil {
		return nil, ErrNotObject
	}

	record := make(logs.Record, obj.Len())
	obj.Visit(func(key []byte, val *fastjson.Value) {
		record[string(key)] = primitive(val)
	})
	return record, nil
}

func primitive(v *fastjson.Value) any {
	switch v.Type() {
	case fastjson.TypeNull:
		return nil
	case fastjson.TypeString:
		return string(v.GetStringBytes())
	case fastjson.TypeNumber:
		return v.GetFloat64()
	case fastjson.TypeTrue:
		return true
	case fastjson.TypeFalse:
		return false
	default:
		return v.String()
	}
}

// Reader serves records decoded from a JSON file.
type Reader struct {
	records []logs.Record
}

// NewFileReader decodes filename up front.
func NewFileReader(filename string) (*Reader, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	records, _, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return &Reader{records: records}, nil
}

// Read returns every decoded record.
func (r *Reader) Read() ([]logs.Record, error) {
	return r.records, nil
}

// Stream returns a channel of the decoded records.
func (r *Reader) Stream(ctx context.Context) (<-chan logs.Record, error) {
	out := make(chan logs.Record)
	go func() {
		defer close(out)
		for _, record := range r.records {
			select {
			case out <- record:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Close is a no-op.
func (r *Reader) Close() error {
	return nil
}

// Package io provides record sources for offline detection and training.
package io

import (
	"context"

	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/logs"
)

// Reader is the interface for reading traffic records from various sources.
type Reader interface {
	// Read returns the complete dataset.
	Read() ([]logs.Record, error)

	// Stream returns a channel of records for incremental processing.
	Stream(ctx context.Context) (<-chan logs.Record, error)

	// Close releases resources.
	Close() error
}

// ReadAll drains r and closes it.
func ReadAll(r Reader) ([]logs.Record, error) {
	defer r.Close()
	return r.Read()
}

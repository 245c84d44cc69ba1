package jsonrec

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gio "github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/io"
	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/logs"
)

var _ gio.Reader = (*Reader)(nil)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantMany bool
		want     []logs.Record
		wantErr  bool
	}{
		{
			name:  "single object",
			input: `{"Protocol":"TCP","Source_Port":31225,"Malware_Indicators":null,"flag":true}`,
			want: []logs.Record{{
				"Protocol":           "TCP",
				"Source_Port":        31225.0,
				"Malware_Indicators": nil,
				"flag":               true,
			}},
		},
		{
			name:     "array of objects",
			input:    `[{"Protocol":"UDP"},{"Protocol":"ICMP","extra":{"a":1}}]`,
			wantMany: true,
			want: []logs.Record{
				{"Protocol": "UDP"},
				{"Protocol": "ICMP", "extra": `{"a":1}`},
			},
		},
		{
			name:     "empty array",
			input:    `[]`,
			wantMany: true,
			want:     []logs.Record{},
		},
		{name: "malformed", input: `{"Protocol":`, wantErr: true},
		{name: "scalar", input: `42`, wantErr: true},
		{name: "array with scalar", input: `[{"a":1}, 2]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, many, err := Parse([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMany, many)
			assert.Equal(t, tt.want, records)
		})
	}
}

func TestParseNotObject(t *testing.T) {
	_, _, err := Parse([]byte(`"hello"`))
	assert.ErrorIs(t, err, ErrNotObject)
}

func TestFileReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"Protocol":"TCP"},{"Protocol":"UDP"}]`), 0o600))

	r, err := NewFileReader(path)
	require.NoError(t, err)
	defer r.Close()

	records, err := gio.ReadAll(r)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	ch, err := r.Stream(context.Background())
	require.NoError(t, err)
	var protocols []string
	for record := range ch {
		protocols = append(protocols, record.String(logs.FieldProtocol))
	}
	assert.Equal(t, []string{"TCP", "UDP"}, protocols)

	_, err = NewFileReader(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/logs"
)

func sampleRecords() []logs.Record {
	return []logs.Record{
		{
			logs.FieldTimestamp:     "2023-05-30 06:33:58",
			logs.FieldSourceIP:      "103.216.15.12",
			logs.FieldDestinationIP: "84.9.164.252",
			logs.FieldSourcePort:    float64(31225),
			logs.FieldDestPort:      "17616",
			logs.FieldProtocol:      "ICMP",
			logs.FieldPacketLength:  int64(503),
			logs.FieldAttackType:    "Malware",
			logs.FieldPayload:       "Qui natus odio asperiores nam.",
			logs.FieldLatitude:      22.8,
			"Unrelated_Column":      "ignored",
		},
		{
			logs.FieldTimestamp:     time.Date(2020, 8, 26, 7, 8, 30, 0, time.UTC),
			logs.FieldSourceIP:      "78.199.217.198",
			logs.FieldDestinationIP: "garbage",
			logs.FieldSourcePort:    "n/a",
			logs.FieldDestPort:      float64(48166),
			logs.FieldProtocol:      "UDP",
			logs.FieldPacketLength:  float64(1174),
			logs.FieldAttackType:    nil,
		},
		{
			logs.FieldTimestamp:     "yesterday",
			logs.FieldSourceIP:      "63.79.210.48",
			logs.FieldDestinationIP: "198.219.82.17",
			logs.FieldSourcePort:    float64(53600),
			logs.FieldDestPort:      float64(5182),
			logs.FieldProtocol:      "ICMP",
			logs.FieldPacketLength:  float64(306),
			logs.FieldAttackType:    "Malware",
		},
	}
}

func TestEncodeLayout(t *testing.T) {
	enc := NewEncoder(nil)

	m, _, err := enc.Encode(sampleRecords(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		logs.FieldSourcePort,
		logs.FieldDestPort,
		logs.FieldPacketLength,
		logs.FieldProtocol,
		logs.FieldAttackType,
		logs.FieldSourceIP,
		logs.FieldDestinationIP,
		logs.FieldTimestamp,
	}, m.Columns)
	assert.Equal(t, 3, m.Len())
	for _, row := range m.Rows {
		assert.Len(t, row, m.Width())
	}
}

func TestEncodeValues(t *testing.T) {
	enc := NewEncoder(nil)

	m, cb, err := enc.Encode(sampleRecords(), nil)
	require.NoError(t, err)

	col := func(name string) int {
		for i, c := range m.Columns {
			if c == name {
				return i
			}
		}
		t.Fatalf("column %s not in layout", name)
		return -1
	}

	// numeric: string parsed, garbage substituted
	assert.Equal(t, 17616.0, m.Rows[0][col(logs.FieldDestPort)])
	assert.Equal(t, 0.0, m.Rows[1][col(logs.FieldSourcePort)])
	assert.Equal(t, 503.0, m.Rows[0][col(logs.FieldPacketLength)])

	// categorical: first-seen order, missing mapped to a real "unknown" code
	assert.Equal(t, 0.0, m.Rows[0][col(logs.FieldProtocol)])
	assert.Equal(t, 1.0, m.Rows[1][col(logs.FieldProtocol)])
	assert.Equal(t, 0.0, m.Rows[2][col(logs.FieldProtocol)])
	assert.Equal(t, 1.0, m.Rows[1][col(logs.FieldAttackType)])
	assert.Equal(t, []string{"Malware", MissingCategory}, cb.Categories(logs.FieldAttackType))

	// ip
	assert.Equal(t, float64(EncodeIP("103.216.15.12")), m.Rows[0][col(logs.FieldSourceIP)])
	assert.Equal(t, 0.0, m.Rows[1][col(logs.FieldDestinationIP)])

	// timestamp
	assert.Equal(t, float64(time.Date(2023, 5, 30, 6, 33, 58, 0, time.UTC).Unix()), m.Rows[0][col(logs.FieldTimestamp)])
	assert.Equal(t, float64(time.Date(2020, 8, 26, 7, 8, 30, 0, time.UTC).Unix()), m.Rows[1][col(logs.FieldTimestamp)])
	assert.Equal(t, 0.0, m.Rows[2][col(logs.FieldTimestamp)])

	assert.Equal(t, map[string]int{
		logs.FieldSourcePort:    1,
		logs.FieldDestinationIP: 1,
		logs.FieldTimestamp:     1,
	}, m.Defaulted)
}

func TestEncodeDoesNotMutateRecords(t *testing.T) {
	records := sampleRecords()
	before := sampleRecords()

	_, _, err := NewEncoder(nil).Encode(records, nil)
	require.NoError(t, err)

	assert.Equal(t, before, records)
}

func TestEncodeDeterministic(t *testing.T) {
	enc := NewEncoder(nil)

	first, cb1, err := enc.Encode(sampleRecords(), nil)
	require.NoError(t, err)
	second, cb2, err := enc.Encode(sampleRecords(), nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, cb1, cb2)
}

func TestEncodeWithFrozenCodebook(t *testing.T) {
	enc := NewEncoder(nil)
	_, cb, err := enc.Encode(sampleRecords(), nil)
	require.NoError(t, err)

	records := []logs.Record{
		{logs.FieldProtocol: "UDP", logs.FieldAttackType: "DDoS"},
		{logs.FieldProtocol: "UDP", logs.FieldAttackType: nil},
	}

	m, same, err := enc.Encode(records, cb)
	require.NoError(t, err)

	assert.Same(t, cb, same)
	assert.Equal(t, []string{logs.FieldProtocol, logs.FieldAttackType}, m.Columns)
	assert.Equal(t, []float64{1, UnknownCode}, m.Rows[0])
	assert.Equal(t, []float64{1, 1}, m.Rows[1])
	assert.Equal(t, 1, m.Defaulted[logs.FieldAttackType])

	// the frozen codebook did not learn DDoS
	assert.Equal(t, UnknownCode, cb.Code(logs.FieldAttackType, "DDoS"))
	assert.Equal(t, []string{"Malware", MissingCategory}, cb.Categories(logs.FieldAttackType))
}

func TestCodebookStableCodes(t *testing.T) {
	cb := NewCodebook()
	a := cb.assign("Protocol", "TCP")
	b := cb.assign("Protocol", "UDP")
	again := cb.assign("Protocol", "TCP")

	assert.Equal(t, 0, a)
	assert.Equal(t, 1, b)
	assert.Equal(t, a, again)
	assert.Equal(t, a, cb.Code("Protocol", "TCP"))
	assert.Equal(t, UnknownCode, cb.Code("Protocol", "SCTP"))
	assert.Equal(t, UnknownCode, cb.Code("Traffic_Type", "DNS"))

	var nilBook *Codebook
	assert.Equal(t, UnknownCode, nilBook.Code("Protocol", "TCP"))
}

func TestEncodeEmpty(t *testing.T) {
	m, cb, err := NewEncoder(nil).Encode(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
	assert.NotNil(t, cb)
}

func TestEncodeNoUsableFeatures(t *testing.T) {
	records := []logs.Record{
		{logs.FieldPayload: "text only", logs.FieldLatitude: 1.0},
		{"Something_Else": 42},
	}

	_, _, err := NewEncoder(nil).Encode(records, nil)
	assert.ErrorIs(t, err, ErrNoUsableFeatures)
}

func TestSchemaLayoutGroupsByKind(t *testing.T) {
	schema := Schema{
		{"ts", Timestamp},
		{"b", Numeric},
		{"cat", Categorical},
		{"a", Numeric},
		{"addr", IP},
		{"notes", Text},
	}
	records := []logs.Record{{"ts": "", "b": 1, "cat": "x"}, {"a": 2, "addr": "1.1.1.1", "notes": "n"}}

	assert.Equal(t, []string{"b", "a", "cat", "addr", "ts"}, schema.Layout(records))
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name   string
		in     any
		want   int64
		wantOK bool
	}{
		{name: "sql datetime", in: "2023-05-30 06:33:58", want: 1685428438, wantOK: true},
		{name: "rfc3339", in: "2023-05-30T06:33:58Z", want: 1685428438, wantOK: true},
		{name: "rfc3339 offset", in: "2023-05-30T08:33:58+02:00", want: 1685428438, wantOK: true},
		{name: "sqlite time format", in: "2023-05-30 06:33:58+00:00", want: 1685428438, wantOK: true},
		{name: "date only", in: "1970-01-02", want: 86400, wantOK: true},
		{name: "unix seconds", in: float64(1685428438), want: 1685428438, wantOK: true},
		{name: "time value", in: time.Unix(1685428438, 0), want: 1685428438, wantOK: true},
		{name: "zero time", in: time.Time{}, wantOK: false},
		{name: "garbage", in: "30/05/2023 noon", wantOK: false},
		{name: "nil", in: nil, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseTimestamp(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

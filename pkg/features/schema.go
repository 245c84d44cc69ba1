// Package features converts heterogeneous log records into fixed-width numeric feature
// vectors for the outlier detectors.
package features

import (
	"sort"

	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/logs"
)

// Kind is the semantic type of a declared column.
type Kind int

const (
	// Numeric columns are parsed as real numbers.
	Numeric Kind = iota
	// Categorical columns are mapped to small integer codes through a Codebook.
	Categorical
	// IP columns hold dotted-quad IPv4 addresses.
	IP
	// Timestamp columns become unix seconds.
	Timestamp
	// Text columns carry no numeric signal and are dropped.
	Text
	// Display columns are kept for presentation only.
	Display
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	case IP:
		return "ip"
	case Timestamp:
		return "timestamp"
	case Text:
		return "text"
	case Display:
		return "display"
	default:
		return "unknown"
	}
}

// vectorized reports whether columns of this kind become feature columns.
func (k Kind) vectorized() bool {
	return k <= Timestamp
}

// Field declares a column and its semantic type.
type Field struct {
	Name string
	Kind Kind
}

// Schema is an explicit description of the record shape. Columns not declared in the
// schema are ignored.
type Schema []Field

// DefaultSchema describes the cybersecurity_attacks table.
func DefaultSchema() Schema {
	return Schema{
		{logs.FieldSourcePort, Numeric},
		{logs.FieldDestPort, Numeric},
		{logs.FieldPacketLength, Numeric},
		{logs.FieldSeverity, Numeric},
		{logs.FieldAnomalyScores, Numeric},

		{logs.FieldProtocol, Categorical},
		{logs.FieldPacketType, Categorical},
		{logs.FieldTrafficType, Categorical},
		{logs.FieldAttackType, Categorical},
		{logs.FieldGeoLocation, Categorical},
		{logs.FieldMalware, Categorical},

		{logs.FieldSourceIP, IP},
		{logs.FieldDestinationIP, IP},

		{logs.FieldTimestamp, Timestamp},

		{logs.FieldPayload, Text},
		{logs.FieldUserInfo, Text},
		{logs.FieldDeviceInfo, Text},
		{logs.FieldSegment, Text},
		{logs.FieldProxyInfo, Text},
		{logs.FieldFirewallLogs, Text},
		{logs.FieldIDSAlerts, Text},
		{logs.FieldLogSource, Text},
		{logs.FieldSignature, Text},
		{logs.FieldActionTaken, Text},
		{logs.FieldAlerts, Text},

		{logs.FieldLatitude, Display},
		{logs.FieldLongitude, Display},
	}
}

// Kind returns the declared kind of a column.
func (s Schema) Kind(name string) (Kind, bool) {
	for _, f := range s {
		if f.Name == name {
			return f.Kind, true
		}
	}
	return 0, false
}

// Layout returns the feature columns for a batch: every vectorized column that appears in
// at least one record, grouped numeric, categorical, ip, timestamp and kept in declaration
// order inside each group.
func (s Schema) Layout(records []logs.Record) []string {
	var fields []Field
	for _, f := range s {
		if !f.Kind.vectorized() {
			continue
		}
		for _, r := range records {
			if _, ok := r[f.Name]; ok {
				fields = append(fields, f)
				break
			}
		}
	}

	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].Kind < fields[j].Kind
	})

	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}
	return columns
}

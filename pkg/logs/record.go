// Package logs defines the network-traffic log record shared by readers, the feature
// encoder and the detection service.
package logs

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Column names as stored in the cybersecurity_attacks table.
const (
	FieldTimestamp     = "timestamp"
	FieldSourceIP      = "Source_IP_Address"
	FieldDestinationIP = "Destination_IP_Address"
	FieldSourcePort    = "Source_Port"
	FieldDestPort      = "Destination_Port"
	FieldProtocol      = "Protocol"
	FieldPacketLength  = "Packet_Length"
	FieldPacketType    = "Packet_Type"
	FieldTrafficType   = "Traffic_Type"
	FieldPayload       = "Payload_Data"
	FieldMalware       = "Malware_Indicators"
	FieldAnomalyScores = "Anomaly_Scores"
	FieldAlerts        = "Alerts_Warnings"
	FieldAttackType    = "Attack_Type"
	FieldSignature     = "Attack_Signature"
	FieldActionTaken   = "Action_Taken"
	FieldSeverity      = "Severity_Level"
	FieldUserInfo      = "User_Information"
	FieldDeviceInfo    = "Device_Information"
	FieldSegment       = "Network_Segment"
	FieldGeoLocation   = "Geo_location_Data"
	FieldProxyInfo     = "Proxy_Information"
	FieldFirewallLogs  = "Firewall_Logs"
	FieldIDSAlerts     = "IDS_IPS_Alerts"
	FieldLogSource     = "Log_Source"
	FieldLatitude      = "Latitude"
	FieldLongitude     = "Longitude"
)

// Columns lists every column of the cybersecurity_attacks table in storage order.
var Columns = []string{
	FieldTimestamp,
	FieldSourceIP,
	FieldDestinationIP,
	FieldSourcePort,
	FieldDestPort,
	FieldProtocol,
	FieldPacketLength,
	FieldPacketType,
	FieldTrafficType,
	FieldPayload,
	FieldMalware,
	FieldAnomalyScores,
	FieldAlerts,
	FieldAttackType,
	FieldSignature,
	FieldActionTaken,
	FieldSeverity,
	FieldUserInfo,
	FieldDeviceInfo,
	FieldSegment,
	FieldGeoLocation,
	FieldProxyInfo,
	FieldFirewallLogs,
	FieldIDSAlerts,
	FieldLogSource,
	FieldLatitude,
	FieldLongitude,
}

// Record is a single log row keyed by column name.
// Values are whatever the source produced: string, float64, int64, bool, time.Time or nil.
// Consumers must treat a Record as read-only.
type Record map[string]any

// Has reports whether the column is present and non-nil.
func (r Record) Has(field string) bool {
	v, ok := r[field]
	return ok && v != nil
}

// String renders a column value for display. Missing and nil values render as "".
func (r Record) String(field string) string {
	return FormatValue(r[field])
}

// Float parses a column as a number.
func (r Record) Float(field string) (float64, bool) {
	return ParseFloat(r[field])
}

// FormatValue renders a primitive record value as text.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(val)
	}
}

// ParseFloat converts a primitive record value to float64.
func ParseFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int64:
		return float64(val), true
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case []byte:
		return ParseFloat(string(val))
	default:
		return 0, false
	}
}

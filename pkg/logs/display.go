package logs

// Display is the presentation view of a Record.
// Free-text columns and encoded features are never part of it.
type Display struct {
	Timestamp     string   `json:"timestamp"`
	SourceIP      string   `json:"source_ip"`
	DestinationIP string   `json:"destination_ip"`
	AttackType    string   `json:"attack_type"`
	SeverityLevel string   `json:"severity_level"`
	GeoLocation   string   `json:"geo_location"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
}

// ToDisplay projects the presentation columns of r.
func ToDisplay(r Record) Display {
	return Display{
		Timestamp:     r.String(FieldTimestamp),
		SourceIP:      r.String(FieldSourceIP),
		DestinationIP: r.String(FieldDestinationIP),
		AttackType:    r.String(FieldAttackType),
		SeverityLevel: r.String(FieldSeverity),
		GeoLocation:   r.String(FieldGeoLocation),
		Latitude:      coordinate(r, FieldLatitude),
		Longitude:     coordinate(r, FieldLongitude),
	}
}

func coordinate(r Record, field string) *float64 {
	f, ok := r.Float(field)
	if !ok {
		return nil
	}
	return &f
}

// Bucket is a grouped count, e.g. attacks per region.
type Bucket struct {
	Label string `json:"label" db:"label"`
	Count int64  `json:"count" db:"count"`
}

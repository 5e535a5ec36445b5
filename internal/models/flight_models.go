package models

// FlightRecord is the structured flight intent assembled from the
// conversation. Coordinates are pointers so a partially-filled record can
// distinguish "not yet known" from a genuine zero (the equator and the
// Greenwich meridian are flyable).
type FlightRecord struct {
	Departure     string   `json:"departure,omitempty"`
	Destination   string   `json:"destination,omitempty"`
	DepartureTime string   `json:"departureTime,omitempty"`
	AircraftType  string   `json:"aircraftType,omitempty"`
	Duration      string   `json:"duration,omitempty"`
	StartLat      *float64 `json:"startLat,omitempty"`
	StartLon      *float64 `json:"startLon,omitempty"`
	EndLat        *float64 `json:"endLat,omitempty"`
	EndLon        *float64 `json:"endLon,omitempty"`
}

// HasCoordinates reports whether all four endpoint coordinates are present.
// The optimizer must never be handed a record for which this is false.
func (r FlightRecord) HasCoordinates() bool {
	return r.StartLat != nil && r.StartLon != nil && r.EndLat != nil && r.EndLon != nil
}

// FlightRecordPatch mirrors FlightRecord with every field optional. It is
// the shape the extraction call is parsed into: keys present in the model's
// JSON overwrite the record, keys absent leave it untouched.
type FlightRecordPatch struct {
	Departure     *string  `json:"departure"`
	Destination   *string  `json:"destination"`
	DepartureTime *string  `json:"departureTime"`
	AircraftType  *string  `json:"aircraftType"`
	Duration      *string  `json:"duration"`
	StartLat      *float64 `json:"startLat"`
	StartLon      *float64 `json:"startLon"`
	EndLat        *float64 `json:"endLat"`
	EndLon        *float64 `json:"endLon"`
}

// Merge returns a copy of r with every field present in p overwritten.
// r itself is never mutated; a finalized record stays immutable.
func (r FlightRecord) Merge(p FlightRecordPatch) FlightRecord {
	out := r
	if p.Departure != nil {
		out.Departure = *p.Departure
	}
	if p.Destination != nil {
		out.Destination = *p.Destination
	}
	if p.DepartureTime != nil {
		out.DepartureTime = *p.DepartureTime
	}
	if p.AircraftType != nil {
		out.AircraftType = *p.AircraftType
	}
	if p.Duration != nil {
		out.Duration = *p.Duration
	}
	if p.StartLat != nil {
		v := *p.StartLat
		out.StartLat = &v
	}
	if p.StartLon != nil {
		v := *p.StartLon
		out.StartLon = &v
	}
	if p.EndLat != nil {
		v := *p.EndLat
		out.EndLat = &v
	}
	if p.EndLon != nil {
		v := *p.EndLon
		out.EndLon = &v
	}
	return out
}

// Float64Ptr is a small helper for literal records in code and tests.
func Float64Ptr(v float64) *float64 { return &v }

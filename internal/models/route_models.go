package models

// LatLon is a geographic point in signed decimal degrees.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// GridConfig parameterizes the optimizer's search grid. Altitudes are a
// fixed ascending sequence of flight levels in feet.
type GridConfig struct {
	LatStepDeg    float64 `json:"lat_step_deg"`
	LonStepDeg    float64 `json:"lon_step_deg"`
	AltitudesFt   []int   `json:"altitudes_ft"`
	MaxExpansions int     `json:"max_expansions"`
}

// DefaultGridConfig returns the grid the optimizer is queried with unless
// the caller overrides a field.
func DefaultGridConfig() GridConfig {
	return GridConfig{
		LatStepDeg:    0.5,
		LonStepDeg:    0.5,
		AltitudesFt:   []int{30000, 34000, 38000},
		MaxExpansions: 8000,
	}
}

// RouteRequest is the payload sent to the route-optimization service.
// Field names follow the optimizer's wire contract.
type RouteRequest struct {
	Start         LatLon     `json:"start"`
	End           LatLon     `json:"end"`
	DepartureTime string     `json:"departure_time"`
	AircraftType  string     `json:"aircraft_type"`
	Lambda        float64    `json:"lambda"`
	GridConfig    GridConfig `json:"grid_config"`
}

// RouteStats are the optimizer's aggregate figures for the returned route.
type RouteStats struct {
	TotalFuelKg      float64 `json:"total_fuel_kg"`
	TotalFuelCostUsd float64 `json:"total_fuel_cost_usd"`
	TotalEfJoules    float64 `json:"total_ef_joules"`
}

// RouteResult is the normalized optimization outcome: an ordered waypoint
// path (at least two points when present) and optional aggregate stats.
// A nil *RouteResult means the optimizer found nothing usable, which is a
// valid outcome, not an error.
type RouteResult struct {
	Waypoints []LatLon    `json:"waypoints"`
	Stats     *RouteStats `json:"stats,omitempty"`
}

package model

// LocationType is the precision tier reported by a geocoding lookup, from
// an exact rooftop match down to no match at all.
type LocationType string

const (
	LocationRooftop           LocationType = "ROOFTOP"
	LocationRangeInterpolated LocationType = "RANGE_INTERPOLATED"
	LocationGeometricCenter   LocationType = "GEOMETRIC_CENTER"
	LocationApproximate       LocationType = "APPROXIMATE"
	LocationNone              LocationType = "NONE"
)

// GeocodeResult is the normalized answer of one geocoding lookup. A NONE
// location type with ServiceError false is a genuine no-match from the
// service; ServiceError true means the lookup never completed (retries
// exhausted) and the candidate is degraded rather than resolved.
type GeocodeResult struct {
	FormattedAddress string       `json:"formatted_address,omitempty"`
	Lat              float64      `json:"lat"`
	Lng              float64      `json:"lng"`
	LocationType     LocationType `json:"location_type"`
	Country          string       `json:"country,omitempty"`
	ServiceError     bool         `json:"service_error,omitempty"`
}

// Resolved reports whether the lookup produced a usable location.
func (g GeocodeResult) Resolved() bool {
	return g.LocationType != "" && g.LocationType != LocationNone
}

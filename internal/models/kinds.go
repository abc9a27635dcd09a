package models

// ParameterKind is one of the three displayable forecast parameters.
type ParameterKind int

const (
	Precipitation ParameterKind = iota
	Wind
	CloudCover
)

// Parameters lists every ParameterKind in canonical display order.
var Parameters = []ParameterKind{Precipitation, Wind, CloudCover}

func (p ParameterKind) String() string {
	switch p {
	case Precipitation:
		return "Total Precipitation"
	case Wind:
		return "10m Wind"
	case CloudCover:
		return "Total Cloud Cover"
	default:
		return "Unknown"
	}
}

// RegionKind is one of the two map regions.
type RegionKind int

const (
	Global RegionKind = iota
	Regional
)

// Regions lists every RegionKind in canonical display order.
var Regions = []RegionKind{Global, Regional}

func (r RegionKind) String() string {
	switch r {
	case Global:
		return "Global"
	case Regional:
		return "Scandinavia"
	default:
		return "Unknown"
	}
}

// Extent is a geographic bounding box in degrees.
type Extent struct {
	LonMin float64
	LonMax float64
	LatMin float64
	LatMax float64
}

// ScandinaviaExtent is the fixed bounding box of the regional model.
var ScandinaviaExtent = Extent{LonMin: 5, LonMax: 31, LatMin: 54, LatMax: 72}

// Contains reports whether the point lies inside the extent (edges included).
func (e Extent) Contains(lat, lon float64) bool {
	return lat >= e.LatMin && lat <= e.LatMax && lon >= e.LonMin && lon <= e.LonMax
}

// Intersects reports whether two extents overlap.
func (e Extent) Intersects(o Extent) bool {
	return e.LonMin <= o.LonMax && o.LonMin <= e.LonMax &&
		e.LatMin <= o.LatMax && o.LatMin <= e.LatMax
}

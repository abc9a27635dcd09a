package models

// Point is a longitude/latitude pair in degrees.
type Point struct {
	Lon float64
	Lat float64
}

// Polyline is an open sequence of points, e.g. a stretch of coastline.
type Polyline []Point

// Bounds returns the polyline's bounding box.
func (p Polyline) Bounds() Extent {
	if len(p) == 0 {
		return Extent{}
	}
	e := Extent{LonMin: p[0].Lon, LonMax: p[0].Lon, LatMin: p[0].Lat, LatMax: p[0].Lat}
	for _, pt := range p[1:] {
		e.LonMin = min(e.LonMin, pt.Lon)
		e.LonMax = max(e.LonMax, pt.Lon)
		e.LatMin = min(e.LatMin, pt.Lat)
		e.LatMax = max(e.LatMax, pt.Lat)
	}
	return e
}

package entity

import "math"

const earthRadiusKm = 6371.0

// Location точка на карте в градусах.
type Location struct {
	Lat float64
	Lon float64
}

// DistanceKm расстояние по большой окружности (формула гаверсинуса).
func (l Location) DistanceKm(other Location) float64 {
	lat1 := l.Lat * math.Pi / 180
	lat2 := other.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (other.Lon - l.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// LocationPredicate фильтр отчётов для поиска по месту.
type LocationPredicate func(Report) bool

// HasLocation пропускает отчёты с координатами.
func HasLocation(r Report) bool {
	_, ok := r.Location()
	return ok
}

// WithinRadius пропускает отчёты не дальше radiusKm от center.
func WithinRadius(center Location, radiusKm float64) LocationPredicate {
	return func(r Report) bool {
		loc, ok := r.Location()
		if !ok {
			return false
		}
		return center.DistanceKm(loc) <= radiusKm
	}
}

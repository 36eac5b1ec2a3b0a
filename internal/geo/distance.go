package geo

import (
	"fmt"
	"math"
	"strconv"
)

// EarthRadiusKM is the mean Earth radius used by the haversine formula
const EarthRadiusKM = 6371.0

// Point is a latitude/longitude pair in degrees
type Point struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Distance returns the great-circle distance in whole kilometres
func Distance(lat1, lon1, lat2, lon2 float64) int {
	return int(math.Round(DistanceKM(lat1, lon1, lat2, lon2)))
}

// DistanceKM returns the unrounded great-circle distance in kilometres
func DistanceKM(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKM * c
}

// Between returns the rounded distance between two points
func Between(p1, p2 Point) int {
	return Distance(p1.Lat, p1.Lon, p2.Lat, p2.Lon)
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// FormatDistance renders a distance for display: exact below 50 km, to the
// nearest 10 below 100 km, to the nearest 50 with a "+" beyond.
func FormatDistance(km float64) string {
	switch {
	case km < 1:
		return "< 1 km"
	case km < 50:
		return strconv.FormatFloat(km, 'f', -1, 64) + " km"
	case km < 100:
		return fmt.Sprintf("~%d km", int(math.Round(km/10)*10))
	default:
		return fmt.Sprintf("%d+ km", int(math.Round(km/50)*50))
	}
}

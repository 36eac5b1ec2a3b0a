package geo

import (
	"sort"
	"strings"
)

// knownCities are resolved without a network call
var knownCities = map[string]Point{
	"Paris":           {Lat: 48.8566, Lon: 2.3522},
	"Marseille":       {Lat: 43.2965, Lon: 5.3698},
	"Lyon":            {Lat: 45.7640, Lon: 4.8357},
	"Toulouse":        {Lat: 43.6043, Lon: 1.4437},
	"Nice":            {Lat: 43.7102, Lon: 7.2620},
	"Nantes":          {Lat: 47.2184, Lon: -1.5536},
	"Strasbourg":      {Lat: 48.5734, Lon: 7.7521},
	"Montpellier":     {Lat: 43.6110, Lon: 3.8767},
	"Bordeaux":        {Lat: 44.8378, Lon: -0.5792},
	"Lille":           {Lat: 50.6292, Lon: 3.0573},
	"Rennes":          {Lat: 48.1173, Lon: -1.6778},
	"Reims":           {Lat: 49.2583, Lon: 4.0317},
	"Le Havre":        {Lat: 49.4944, Lon: 0.1079},
	"Saint-Étienne":   {Lat: 45.4397, Lon: 4.3872},
	"Toulon":          {Lat: 43.1242, Lon: 5.9280},
	"Angers":          {Lat: 47.4784, Lon: -0.5632},
	"Grenoble":        {Lat: 45.1885, Lon: 5.7245},
	"Dijon":           {Lat: 47.3220, Lon: 5.0415},
	"Nîmes":           {Lat: 43.8367, Lon: 4.3601},
	"Aix-en-Provence": {Lat: 43.5263, Lon: 5.4454},
}

// LookupCity finds a known city, ignoring case and surrounding spaces
func LookupCity(name string) (Point, bool) {
	name = strings.TrimSpace(name)
	if p, ok := knownCities[name]; ok {
		return p, true
	}
	for city, p := range knownCities {
		if strings.EqualFold(city, name) {
			return p, true
		}
	}
	return Point{}, false
}

// CityNames returns the known cities in alphabetical order
func CityNames() []string {
	names := make([]string, 0, len(knownCities))
	for city := range knownCities {
		names = append(names, city)
	}
	sort.Strings(names)
	return names
}

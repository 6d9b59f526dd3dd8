package geocode

import (
	"context"
	"errors"
	"strings"

	"github.com/ambuflow/backend/internal/models"
)

var ErrNotFound = errors.New("geocode not found")

type Geocoder interface {
	Geocode(ctx context.Context, address string) (models.Coordinates, error)
}

// knownPlaces covers the dispatch area so scoring keeps working when
// the geocoding service is down or returns nothing. Keys are lowercase
// city names matched by substring.
var knownPlaces = map[string]models.Coordinates{
	"toulon":          {Lat: 43.1242, Lng: 5.9280},
	"hyères":          {Lat: 43.1206, Lng: 6.1286},
	"hyeres":          {Lat: 43.1206, Lng: 6.1286},
	"la seyne":        {Lat: 43.1036, Lng: 5.8786},
	"la garde":        {Lat: 43.1245, Lng: 6.0109},
	"la valette":      {Lat: 43.1372, Lng: 5.9833},
	"six-fours":       {Lat: 43.0936, Lng: 5.8201},
	"ollioules":       {Lat: 43.1395, Lng: 5.8476},
	"sanary":          {Lat: 43.1178, Lng: 5.8003},
	"bandol":          {Lat: 43.1358, Lng: 5.7536},
	"le pradet":       {Lat: 43.1055, Lng: 6.0235},
	"carqueiranne":    {Lat: 43.0950, Lng: 6.0739},
	"la crau":         {Lat: 43.1501, Lng: 6.0735},
	"solliès-pont":    {Lat: 43.1903, Lng: 6.0419},
	"cuers":           {Lat: 43.2375, Lng: 6.0717},
	"marseille":       {Lat: 43.2965, Lng: 5.3698},
	"brignoles":       {Lat: 43.4058, Lng: 6.0618},
	"draguignan":      {Lat: 43.5367, Lng: 6.4647},
	"saint-tropez":    {Lat: 43.2677, Lng: 6.6407},
	"fréjus":          {Lat: 43.4332, Lng: 6.7370},
	"aix-en-provence": {Lat: 43.5297, Lng: 5.4474},
}

// defaultLocation is used when nothing matches at all; the engine
// treats a default location as a valid, low-precision answer.
var defaultLocation = models.Coordinates{Lat: 43.1242, Lng: 5.9280}

// FallbackCoordinates resolves an address against the static table,
// falling back to the dispatch-area center. Never fails.
func FallbackCoordinates(address string) models.Coordinates {
	needle := strings.ToLower(strings.TrimSpace(address))
	if needle == "" {
		return defaultLocation
	}
	for name, coords := range knownPlaces {
		if strings.Contains(needle, name) {
			return coords
		}
	}
	return defaultLocation
}

// CityOf extracts a comparable city token from a free-text address,
// used by the trip-combination heuristic to approximate proximity.
func CityOf(address string) string {
	needle := strings.ToLower(strings.TrimSpace(address))
	for name := range knownPlaces {
		if strings.Contains(needle, name) {
			return name
		}
	}
	parts := strings.Split(needle, ",")
	return strings.TrimSpace(parts[len(parts)-1])
}

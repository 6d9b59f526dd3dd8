package geocode

import (
	"context"
	"testing"
)

func TestFallbackCoordinates_KnownCity(t *testing.T) {
	res := FallbackCoordinates("Hôpital San Salvadour, Hyères")
	if res.Lat != 43.1206 || res.Lng != 6.1286 {
		t.Fatalf("expected Hyères coordinates, got %+v", res)
	}
}

func TestFallbackCoordinates_UnknownDefaultsToCenter(t *testing.T) {
	res := FallbackCoordinates("42 rue Inconnue, Villeneuve")
	if res.Lat != 43.1242 || res.Lng != 5.9280 {
		t.Fatalf("expected the dispatch-area center, got %+v", res)
	}
	if empty := FallbackCoordinates(""); empty != res {
		t.Fatalf("empty address should also default, got %+v", empty)
	}
}

func TestCityOf(t *testing.T) {
	if got := CityOf("12 avenue de la République, Toulon"); got != "toulon" {
		t.Fatalf("expected toulon, got %q", got)
	}
	if got := CityOf("quelque part, Villeneuve"); got != "villeneuve" {
		t.Fatalf("expected the trailing segment for unknown cities, got %q", got)
	}
}

func TestStaticGeocoder_NeverFails(t *testing.T) {
	g := StaticGeocoder{}
	res, err := g.Geocode(context.Background(), "Marseille")
	if err != nil {
		t.Fatalf("static geocoder must not fail: %v", err)
	}
	if res.Lat != 43.2965 {
		t.Fatalf("expected Marseille, got %+v", res)
	}
}

func TestParseNominatimItems(t *testing.T) {
	res, err := parseNominatimItems([]nominatimItem{
		{Lat: "43.1242", Lon: "5.9280", DisplayName: "Toulon, Var, France"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Lat != 43.1242 || res.Lng != 5.9280 {
		t.Fatalf("unexpected coordinates: %+v", res)
	}

	if _, err := parseNominatimItems(nil); err != ErrNotFound {
		t.Fatalf("empty result must be ErrNotFound, got %v", err)
	}
	if _, err := parseNominatimItems([]nominatimItem{{Lat: "0", Lon: "0"}}); err != ErrNotFound {
		t.Fatalf("null island must be ErrNotFound, got %v", err)
	}
}

package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ambuflow/backend/internal/models"
)

var testCoords = []models.Coordinates{
	{Lat: 43.1242, Lng: 5.9280},
	{Lat: 43.1206, Lng: 6.1286},
}

func TestRouter_Route(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/route/v1/driving/") {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code": "Ok",
			"routes": []map[string]any{
				{"distance": 21500.0, "duration": 1320.0, "geometry": "xyz"},
			},
		})
	}))
	defer srv.Close()

	r := &Router{URLs: []string{srv.URL}, Logger: zerolog.Nop()}
	res, err := r.Route(context.Background(), testCoords)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.DistanceKm != 21.5 || res.DurationMinutes != 22 {
		t.Fatalf("unexpected route result: %+v", res)
	}
	if res.Estimated {
		t.Fatalf("a real route must not be marked estimated")
	}
}

func TestRouter_FallsThroughFailingURLs(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code": "Ok",
			"routes": []map[string]any{
				{"distance": 10000.0, "duration": 600.0},
			},
		})
	}))
	defer good.Close()

	r := &Router{URLs: []string{bad.URL, good.URL}, Logger: zerolog.Nop()}
	res, err := r.Route(context.Background(), testCoords)
	if err != nil {
		t.Fatalf("second URL should have served the route: %v", err)
	}
	if res.DistanceKm != 10 {
		t.Fatalf("unexpected distance: %+v", res)
	}
}

func TestRouter_RouteOrEstimateDegrades(t *testing.T) {
	r := &Router{URLs: []string{"http://127.0.0.1:1"}, Timeout: 200 * time.Millisecond, Logger: zerolog.Nop()}
	res := r.RouteOrEstimate(context.Background(), testCoords)
	if !res.Estimated {
		t.Fatalf("expected the haversine estimate, got %+v", res)
	}
	if res.DistanceKm <= 10 || res.DistanceKm >= 25 {
		t.Fatalf("Toulon to Hyères crow-flies should be roughly 16 km, got %.1f", res.DistanceKm)
	}
}

func TestRouter_RouteRejectsSingleCoordinate(t *testing.T) {
	r := &Router{Logger: zerolog.Nop()}
	if _, err := r.Route(context.Background(), testCoords[:1]); err == nil {
		t.Fatalf("expected an error for a single coordinate")
	}
}

func TestEstimateMatrix_Shape(t *testing.T) {
	m := EstimateMatrix(testCoords)
	if len(m.Distances) != 2 || len(m.Durations) != 2 {
		t.Fatalf("expected a 2x2 matrix, got %+v", m)
	}
	if m.Distances[0][0] != 0 || m.Distances[1][1] != 0 {
		t.Fatalf("diagonal must be zero")
	}
	if m.Distances[0][1] <= 0 || m.Distances[0][1] != m.Distances[1][0] {
		t.Fatalf("haversine matrix must be symmetric and positive off-diagonal: %+v", m.Distances)
	}
	if !m.Estimated {
		t.Fatalf("estimate must be marked as such")
	}
}

func TestRouter_Available(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	up := &Router{URLs: []string{srv.URL}, Logger: zerolog.Nop()}
	if !up.Available(context.Background()) {
		t.Fatalf("expected the router to be available")
	}

	down := &Router{URLs: []string{"http://127.0.0.1:1"}, Timeout: 200 * time.Millisecond, Logger: zerolog.Nop()}
	if down.Available(context.Background()) {
		t.Fatalf("expected the router to be unavailable")
	}
}

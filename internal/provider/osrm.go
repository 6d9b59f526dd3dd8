package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ambuflow/backend/internal/models"
	"github.com/ambuflow/backend/internal/utils"
)

// RouteResult is one road route between ordered waypoints.
type RouteResult struct {
	DistanceKm      float64 `json:"distance_km"`
	DurationMinutes int     `json:"duration_minutes"`
	Geometry        string  `json:"geometry,omitempty"`
	Estimated       bool    `json:"estimated,omitempty"`
}

// MatrixResult holds pairwise distances (meters) and durations
// (seconds) between coordinates.
type MatrixResult struct {
	Distances [][]float64 `json:"distances"`
	Durations [][]float64 `json:"durations"`
	Estimated bool        `json:"estimated,omitempty"`
}

// Router queries OSRM-compatible road-routing servers. URLs are tried
// in order (local instance first, public fallbacks after); a non-2xx
// status or malformed body moves on to the next URL instead of
// failing the call.
type Router struct {
	URLs    []string
	Timeout time.Duration
	Client  *http.Client
	Logger  zerolog.Logger
}

type osrmRouteResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry string  `json:"geometry"`
	} `json:"routes"`
}

type osrmTableResponse struct {
	Code      string      `json:"code"`
	Distances [][]float64 `json:"distances"`
	Durations [][]float64 `json:"durations"`
}

func (r *Router) client() *http.Client {
	if r.Client == nil {
		timeout := r.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		r.Client = &http.Client{Timeout: timeout}
	}
	return r.Client
}

// Available reports whether any configured OSRM server answers a
// minimal route request. Unavailability is an expected condition, not
// an error.
func (r *Router) Available(ctx context.Context) bool {
	for _, base := range r.URLs {
		probe := fmt.Sprintf("%s/route/v1/driving/5.9280,43.1242;5.9300,43.1250?overview=false", strings.TrimRight(base, "/"))
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, probe, nil)
		if err != nil {
			continue
		}
		resp, err := r.client().Do(req)
		if err != nil {
			continue
		}
		resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return true
		}
	}
	return false
}

// Route fetches a driving route through the given waypoints.
func (r *Router) Route(ctx context.Context, coords []models.Coordinates) (RouteResult, error) {
	if len(coords) < 2 {
		return RouteResult{}, fmt.Errorf("route needs at least 2 coordinates, got %d", len(coords))
	}

	path := coordPath(coords)
	var lastErr error
	for _, base := range r.URLs {
		endpoint := fmt.Sprintf("%s/route/v1/driving/%s?overview=full&geometries=polyline", strings.TrimRight(base, "/"), path)
		var decoded osrmRouteResponse
		if err := r.getJSON(ctx, endpoint, &decoded); err != nil {
			lastErr = err
			continue
		}
		if decoded.Code != "Ok" || len(decoded.Routes) == 0 {
			lastErr = fmt.Errorf("osrm error code: %s", decoded.Code)
			continue
		}
		return RouteResult{
			DistanceKm:      decoded.Routes[0].Distance / 1000,
			DurationMinutes: int(decoded.Routes[0].Duration / 60),
			Geometry:        decoded.Routes[0].Geometry,
		}, nil
	}
	return RouteResult{}, fmt.Errorf("all routing servers failed: %w", lastErr)
}

// Matrix fetches the full pairwise distance/duration table.
func (r *Router) Matrix(ctx context.Context, coords []models.Coordinates) (MatrixResult, error) {
	if len(coords) == 0 {
		return MatrixResult{}, fmt.Errorf("matrix needs at least 1 coordinate")
	}

	path := coordPath(coords)
	var lastErr error
	for _, base := range r.URLs {
		endpoint := fmt.Sprintf("%s/table/v1/driving/%s?annotations=distance,duration", strings.TrimRight(base, "/"), path)
		var decoded osrmTableResponse
		if err := r.getJSON(ctx, endpoint, &decoded); err != nil {
			lastErr = err
			continue
		}
		if decoded.Code != "Ok" || len(decoded.Distances) != len(coords) {
			lastErr = fmt.Errorf("osrm error code: %s", decoded.Code)
			continue
		}
		return MatrixResult{Distances: decoded.Distances, Durations: decoded.Durations}, nil
	}
	return MatrixResult{}, fmt.Errorf("all routing servers failed: %w", lastErr)
}

// RouteOrEstimate degrades to the haversine estimate instead of
// propagating a provider failure.
func (r *Router) RouteOrEstimate(ctx context.Context, coords []models.Coordinates) RouteResult {
	res, err := r.Route(ctx, coords)
	if err != nil {
		r.Logger.Warn().Err(err).Msg("router unavailable, using haversine estimate")
		return EstimateRoute(coords)
	}
	return res
}

// MatrixOrEstimate degrades to the haversine estimate instead of
// propagating a provider failure.
func (r *Router) MatrixOrEstimate(ctx context.Context, coords []models.Coordinates) MatrixResult {
	res, err := r.Matrix(ctx, coords)
	if err != nil {
		r.Logger.Warn().Err(err).Msg("router unavailable, using haversine matrix estimate")
		return EstimateMatrix(coords)
	}
	return res
}

func (r *Router) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := r.client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("routing http error: %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func coordPath(coords []models.Coordinates) string {
	parts := make([]string, len(coords))
	for i, c := range coords {
		parts[i] = fmt.Sprintf("%.6f,%.6f", c.Lng, c.Lat)
	}
	return strings.Join(parts, ";")
}

// estimateSpeedKmh is the fixed speed behind haversine fallbacks.
const estimateSpeedKmh = 40.0

// EstimateRoute is the haversine/fixed-speed degrade for Route.
func EstimateRoute(coords []models.Coordinates) RouteResult {
	total := 0.0
	for i := 0; i < len(coords)-1; i++ {
		total += utils.HaversineKm(coords[i].Lat, coords[i].Lng, coords[i+1].Lat, coords[i+1].Lng)
	}
	return RouteResult{
		DistanceKm:      total,
		DurationMinutes: int(total / estimateSpeedKmh * 60),
		Estimated:       true,
	}
}

// EstimateMatrix is the haversine/fixed-speed degrade for Matrix.
func EstimateMatrix(coords []models.Coordinates) MatrixResult {
	n := len(coords)
	distances := make([][]float64, n)
	durations := make([][]float64, n)
	for i := 0; i < n; i++ {
		distances[i] = make([]float64, n)
		durations[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			km := utils.HaversineKm(coords[i].Lat, coords[i].Lng, coords[j].Lat, coords[j].Lng)
			distances[i][j] = km * 1000
			durations[i][j] = km / estimateSpeedKmh * 3600
		}
	}
	return MatrixResult{Distances: distances, Durations: durations, Estimated: true}
}

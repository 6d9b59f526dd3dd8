package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/ambuflow/backend/internal/models"
)

// NominatimGeocoder resolves free-text addresses against a Nominatim
// instance, caching results and throttling to one request per
// MinInterval as the public service requires.
type NominatimGeocoder struct {
	BaseURL     string
	UserAgent   string
	MinInterval time.Duration
	Client      *http.Client

	mu        sync.Mutex
	lastReqAt time.Time
	cache     map[string]models.Coordinates
}

type nominatimItem struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (g *NominatimGeocoder) Geocode(ctx context.Context, address string) (models.Coordinates, error) {
	if g.Client == nil {
		g.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if g.BaseURL == "" {
		g.BaseURL = "https://nominatim.openstreetmap.org"
	}
	if g.UserAgent == "" {
		g.UserAgent = "ambuflow-dispatch"
	}
	if g.MinInterval <= 0 {
		g.MinInterval = time.Second
	}

	g.mu.Lock()
	if g.cache == nil {
		g.cache = map[string]models.Coordinates{}
	}
	if cached, ok := g.cache[address]; ok {
		g.mu.Unlock()
		return cached, nil
	}
	sleepFor := time.Until(g.lastReqAt.Add(g.MinInterval))
	if sleepFor > 0 {
		g.mu.Unlock()
		time.Sleep(sleepFor)
		g.mu.Lock()
	}
	g.lastReqAt = time.Now()
	g.mu.Unlock()

	endpoint := fmt.Sprintf("%s/search?q=%s&format=json&limit=1", g.BaseURL, url.QueryEscape(address))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.Coordinates{}, err
	}
	req.Header.Set("User-Agent", g.UserAgent)

	resp, err := g.Client.Do(req)
	if err != nil {
		return models.Coordinates{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.Coordinates{}, fmt.Errorf("nominatim http error: %s", resp.Status)
	}

	var items []nominatimItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return models.Coordinates{}, err
	}
	coords, err := parseNominatimItems(items)
	if err != nil {
		return models.Coordinates{}, err
	}

	g.mu.Lock()
	g.cache[address] = coords
	g.mu.Unlock()

	return coords, nil
}

func parseNominatimItems(items []nominatimItem) (models.Coordinates, error) {
	if len(items) == 0 {
		return models.Coordinates{}, ErrNotFound
	}
	lat, err := strconv.ParseFloat(items[0].Lat, 64)
	if err != nil {
		return models.Coordinates{}, err
	}
	lng, err := strconv.ParseFloat(items[0].Lon, 64)
	if err != nil {
		return models.Coordinates{}, err
	}
	if lat == 0 && lng == 0 {
		return models.Coordinates{}, ErrNotFound
	}
	return models.Coordinates{Lat: lat, Lng: lng}, nil
}

// StaticGeocoder serves the fallback table directly, for tests and for
// running without network access.
type StaticGeocoder struct{}

func (StaticGeocoder) Geocode(_ context.Context, address string) (models.Coordinates, error) {
	return FallbackCoordinates(address), nil
}

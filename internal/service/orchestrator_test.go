package service

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
	"github.com/ambuflow/backend/internal/provider"
)

func testFleet() ([]models.Trip, []models.Vehicle) {
	trips := []models.Trip{
		{ID: 1, Pickup: "Toulon", Destination: "Hyères", AppointmentTime: "09:00", VehicleTypeRequired: models.VehicleVSL, Priority: models.PriorityNormal},
	}
	vehicles := []models.Vehicle{
		{ID: 1, Name: "VSL 1", Type: models.VehicleVSL, Status: models.StatusAvailable, CurrentLocation: "Toulon"},
	}
	return trips, vehicles
}

func TestSmartOptimize_NoProvidersDegradesToLocal(t *testing.T) {
	o := newTestOptimizer()
	orch := NewOrchestrator(o, &provider.Router{}, &provider.Solver{}, zerolog.Nop(), time.Second)
	trips, vehicles := testFleet()

	res := orch.SmartOptimize(context.Background(), trips, vehicles, SmartOptions{})
	if res.Algorithm != ModeLocal {
		t.Fatalf("expected local fallback, got %s", res.Algorithm)
	}
	if !res.Fallback {
		t.Fatalf("degraded run must be flagged as fallback")
	}
	if res.Summary.Assigned != 1 {
		t.Fatalf("expected the trip assigned locally: %+v", res.Summary)
	}
}

func TestSmartOptimize_PinnedLocalIsNotAFallback(t *testing.T) {
	o := newTestOptimizer()
	orch := NewOrchestrator(o, nil, nil, zerolog.Nop(), time.Second)
	trips, vehicles := testFleet()

	res := orch.SmartOptimize(context.Background(), trips, vehicles, SmartOptions{Mode: ModeLocal})
	if res.Algorithm != ModeLocal || res.Fallback {
		t.Fatalf("pinned local mode is a deliberate choice, not a fallback: %+v", res)
	}
}

func TestSmartOptimize_RouterTier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/route/v1/driving/") {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code": "Ok",
			"routes": []map[string]any{
				{"distance": 22000.0, "duration": 1500.0, "geometry": "abc"},
			},
		})
	}))
	defer srv.Close()

	o := newTestOptimizer()
	router := &provider.Router{URLs: []string{srv.URL}, Logger: zerolog.Nop()}
	orch := NewOrchestrator(o, router, &provider.Solver{}, zerolog.Nop(), time.Second)
	trips, vehicles := testFleet()

	res := orch.SmartOptimize(context.Background(), trips, vehicles, SmartOptions{Mode: ModeRouter})
	if res.Algorithm != ModeRouter {
		t.Fatalf("expected the router tier, got %s", res.Algorithm)
	}
	if res.Summary.Assigned != 1 {
		t.Fatalf("expected the trip assigned via the router tier: %+v", res.Summary)
	}
	score := res.Results[0].Score
	if score == nil || score.Details.TotalDistance != 22 {
		t.Fatalf("router road distance should flow into the score details: %+v", score)
	}
}

func TestSmartOptimize_SolverTier(t *testing.T) {
	solution := provider.SolverResponse{
		Code: 0,
		Routes: []provider.SolverRoute{
			{
				Vehicle: 1,
				Steps: []provider.SolverStep{
					{Type: "start"},
					{Type: "pickup", ID: 1, Arrival: 32400},
					{Type: "delivery", ID: 1, Arrival: 34200},
				},
				Distance: 18000,
				Duration: 1800,
			},
		},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusOK)
			return
		}
		var req provider.SolverRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if len(req.Shipments) != 1 || len(req.Vehicles) != 1 {
			http.Error(w, "unexpected problem shape", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(solution)
	}))
	defer srv.Close()

	o := newTestOptimizer()
	solver := &provider.Solver{URLs: []string{srv.URL}, Logger: zerolog.Nop()}
	orch := NewOrchestrator(o, nil, solver, zerolog.Nop(), time.Second)
	trips, vehicles := testFleet()

	res := orch.SmartOptimize(context.Background(), trips, vehicles, SmartOptions{Mode: ModeSolver})
	if res.Algorithm != ModeSolver {
		t.Fatalf("expected the solver tier, got %s", res.Algorithm)
	}
	if res.Summary.Assigned != 1 || len(res.Routes) != 1 {
		t.Fatalf("expected one assigned trip on one route: %+v", res)
	}
	if res.Routes[0].TripIDs[0] != 1 || res.Routes[0].VehicleID != 1 {
		t.Fatalf("route does not match the solver plan: %+v", res.Routes[0])
	}
}

func TestSmartOptimize_SolverUnreachableDegrades(t *testing.T) {
	o := newTestOptimizer()
	solver := &provider.Solver{URLs: []string{"http://127.0.0.1:1"}, Timeout: 200 * time.Millisecond, Logger: zerolog.Nop()}
	orch := NewOrchestrator(o, nil, solver, zerolog.Nop(), 200*time.Millisecond)
	trips, vehicles := testFleet()

	res := orch.SmartOptimize(context.Background(), trips, vehicles, SmartOptions{Mode: ModeSolver})
	if res.Algorithm != ModeLocal || !res.Fallback {
		t.Fatalf("unreachable solver must degrade to the local tier: %+v", res)
	}
}

func TestStatus_ReportsUnreachableProviders(t *testing.T) {
	o := newTestOptimizer()
	router := &provider.Router{URLs: []string{"http://127.0.0.1:1"}, Timeout: 200 * time.Millisecond, Logger: zerolog.Nop()}
	orch := NewOrchestrator(o, router, nil, zerolog.Nop(), 200*time.Millisecond)

	status := orch.Status(context.Background())
	if status.Router || status.Solver {
		t.Fatalf("expected both providers down, got %+v", status)
	}
}

package service

import (
	"context"
	"testing"

	"github.com/ambuflow/backend/internal/models"
)

func TestGetVehicleTypeScore(t *testing.T) {
	if got := GetVehicleTypeScore(models.VehicleVSL, models.VehicleVSL); got != 100 {
		t.Fatalf("exact match should score 100, got %d", got)
	}
	if got := GetVehicleTypeScore(models.VehicleVSL, models.VehicleAmbulance); got != 90 {
		t.Fatalf("ambulance covering VSL should score 90, got %d", got)
	}
	if got := GetVehicleTypeScore(models.VehicleAmbulance, models.VehicleTaxi); got != 20 {
		t.Fatalf("taxi covering ambulance should score 20, got %d", got)
	}
}

func TestCalculateDistanceScore_MonotonicNonZero(t *testing.T) {
	distances := []float64{5, 15, 30, 50, 100}
	prev := 101
	for _, km := range distances {
		score := CalculateDistanceScore(km)
		if score <= 0 {
			t.Fatalf("distance score must stay positive, got %d at %.0f km", score, km)
		}
		if score > prev {
			t.Fatalf("distance score must not increase with distance: %d at %.0f km", score, km)
		}
		prev = score
	}
}

func TestEstimateTravelMinutes_RushHour(t *testing.T) {
	calm := EstimateTravelMinutes(20, "15:00")
	rush := EstimateTravelMinutes(20, "08:00")
	if rush <= calm {
		t.Fatalf("morning rush must be slower: calm=%d rush=%d", calm, rush)
	}
	lunch := EstimateTravelMinutes(20, "12:00")
	if lunch <= calm || lunch >= rush {
		t.Fatalf("lunch traffic should sit between calm and rush: calm=%d lunch=%d rush=%d", calm, lunch, rush)
	}
}

func TestCalculateOptimizationScore_Bounded(t *testing.T) {
	o := newTestOptimizer()
	trip := models.Trip{
		ID:                  1,
		Pickup:              "Hyères",
		Destination:         "Toulon",
		AppointmentTime:     "09:00",
		VehicleTypeRequired: models.VehicleVSL,
		Priority:            models.PriorityNormal,
	}
	vehicle := models.Vehicle{ID: 1, Name: "VSL 1", Type: models.VehicleVSL, Status: models.StatusAvailable, CurrentLocation: "Toulon"}

	score := o.CalculateOptimizationScore(context.Background(), trip, vehicle, nil)
	if score.Score < 1 || score.Score > 100 {
		t.Fatalf("score out of range: %d", score.Score)
	}
	if score.Details.TotalDistance <= 0 {
		t.Fatalf("expected a positive distance between Hyères and Toulon")
	}
	if score.Details.FuelCost <= 0 {
		t.Fatalf("expected a fuel cost estimate")
	}
	if score.Details.EstimatedArrival == "" {
		t.Fatalf("expected an estimated arrival time")
	}
}

func TestCalculateOptimizationScore_ConflictsReduceSlotScore(t *testing.T) {
	o := newTestOptimizer()
	trip := models.Trip{ID: 2, Pickup: "Toulon", Destination: "Hyères", AppointmentTime: "09:00", VehicleTypeRequired: models.VehicleVSL, Priority: models.PriorityNormal}
	vehicle := models.Vehicle{ID: 1, Type: models.VehicleVSL, Status: models.StatusBusy, CurrentLocation: "Toulon"}
	existing := []models.Trip{{ID: 9, Pickup: "Toulon", Destination: "La Garde", AppointmentTime: "09:10"}}

	clear := o.CalculateOptimizationScore(context.Background(), trip, vehicle, nil)
	loaded := o.CalculateOptimizationScore(context.Background(), trip, vehicle, existing)
	if loaded.Score >= clear.Score {
		t.Fatalf("a nearby existing trip must lower the score: clear=%d loaded=%d", clear.Score, loaded.Score)
	}
	if len(loaded.Details.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict in details, got %d", len(loaded.Details.Conflicts))
	}
}

func TestCalculateOptimizationScore_InvalidTrip(t *testing.T) {
	o := newTestOptimizer()
	vehicle := models.Vehicle{ID: 1, Type: models.VehicleVSL, CurrentLocation: "Toulon"}

	score := o.CalculateOptimizationScore(context.Background(), models.Trip{ID: 1, Destination: "Toulon", AppointmentTime: "09:00"}, vehicle, nil)
	if score.Score != 0 || score.Details.Error == "" {
		t.Fatalf("missing pickup must produce a zero score with an error, got %+v", score)
	}

	score = o.CalculateOptimizationScore(context.Background(), models.Trip{ID: 2, Pickup: "Toulon", Destination: "Hyères", AppointmentTime: "25:99"}, vehicle, nil)
	if score.Score != 0 || score.Details.Error == "" {
		t.Fatalf("bad time must produce a zero score with an error, got %+v", score)
	}
}

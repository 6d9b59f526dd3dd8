package service

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/ambuflow/backend/internal/geocode"
	"github.com/ambuflow/backend/internal/models"
)

func newTestOptimizer() *Optimizer {
	return New(geocode.StaticGeocoder{}, zerolog.Nop(), DefaultFloors())
}

func TestNeedsReturn(t *testing.T) {
	if !NeedsReturn(models.Trip{ID: 1, Duration: 60}) {
		t.Fatalf("trip with duration should need a return")
	}
	if !NeedsReturn(models.Trip{ID: 2, ReturnTime: "11:30"}) {
		t.Fatalf("trip with return time should need a return")
	}
	if NeedsReturn(models.Trip{ID: 3, ReturnTime: "00:00"}) {
		t.Fatalf("00:00 return time means no return requested")
	}
	if NeedsReturn(models.Trip{ID: 4, Duration: 45, IsReturnTrip: true}) {
		t.Fatalf("return trips must never be re-expanded")
	}
}

func TestGenerateReturnTrip_SwapsAndShifts(t *testing.T) {
	o := newTestOptimizer()
	trip := models.Trip{
		ID:                  7,
		Patient:             "M. Blanc",
		Pickup:              "Hyères",
		Destination:         "Hôpital Sainte-Musse, Toulon",
		PickupCoordinates:   &models.Coordinates{Lat: 43.12, Lng: 6.12},
		AppointmentTime:     "09:00",
		Duration:            60,
		VehicleTypeRequired: models.VehicleVSL,
		Priority:            models.PriorityNormal,
	}

	ret, ok := o.GenerateReturnTrip(trip, 100)
	if !ok {
		t.Fatalf("expected return trip to be generated")
	}
	if ret.Pickup != trip.Destination || ret.Destination != trip.Pickup {
		t.Fatalf("pickup and destination not swapped: %+v", ret)
	}
	if ret.DestinationCoordinates == nil || ret.DestinationCoordinates.Lat != 43.12 {
		t.Fatalf("coordinates not swapped with addresses")
	}
	if ret.AppointmentTime != "10:15" {
		t.Fatalf("expected pickup at 10:15 (exit 10:00 plus buffer), got %s", ret.AppointmentTime)
	}
	if ret.EarliestPickupTime != "10:15" {
		t.Fatalf("expected earliest pickup 10:15, got %s", ret.EarliestPickupTime)
	}
	if !ret.IsReturnTrip || ret.OriginalTripID != 7 {
		t.Fatalf("return trip not linked to its source: %+v", ret)
	}
	if ret.MaxWaitMinutes != models.DefaultMaxWaitMinutes {
		t.Fatalf("expected default max wait, got %d", ret.MaxWaitMinutes)
	}
}

func TestGenerateReturnTrip_ExplicitExitTimeWins(t *testing.T) {
	o := newTestOptimizer()
	trip := models.Trip{ID: 1, Pickup: "Toulon", Destination: "Hyères", AppointmentTime: "09:00", Duration: 30, ReturnTime: "14:00"}
	ret, ok := o.GenerateReturnTrip(trip, 2)
	if !ok {
		t.Fatalf("expected return trip")
	}
	if ret.AppointmentTime != "14:15" {
		t.Fatalf("explicit exit time should drive the pickup, got %s", ret.AppointmentTime)
	}
}

func TestGenerateReturnTrip_NoUsableTime(t *testing.T) {
	o := newTestOptimizer()
	_, ok := o.GenerateReturnTrip(models.Trip{ID: 1, Duration: 60, AppointmentTime: "invalid"}, 2)
	if ok {
		t.Fatalf("expected generation to be skipped without a usable time")
	}
}

func TestGenerateReturnTrips_IDsAboveMax(t *testing.T) {
	o := newTestOptimizer()
	trips := []models.Trip{
		{ID: 3, Pickup: "Toulon", Destination: "Hyères", AppointmentTime: "09:00", Duration: 30},
		{ID: 17, Pickup: "La Garde", Destination: "Toulon", AppointmentTime: "10:00", Duration: 45},
	}
	returns := o.GenerateReturnTrips(trips)
	if len(returns) != 2 {
		t.Fatalf("expected 2 returns, got %d", len(returns))
	}
	if returns[0].ID != 18 || returns[1].ID != 19 {
		t.Fatalf("expected IDs 18 and 19, got %d and %d", returns[0].ID, returns[1].ID)
	}
}

func TestExpandWithReturns_Idempotent(t *testing.T) {
	o := newTestOptimizer()
	trips := []models.Trip{
		{ID: 1, Pickup: "Toulon", Destination: "Hyères", AppointmentTime: "09:00", Duration: 30},
	}
	once := o.ExpandWithReturns(trips)
	if len(once) != 2 {
		t.Fatalf("expected 2 trips after expansion, got %d", len(once))
	}
	twice := o.ExpandWithReturns(once)
	if len(twice) != 2 {
		t.Fatalf("expansion must be idempotent, got %d trips", len(twice))
	}
}

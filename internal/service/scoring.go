package service

import (
	"context"
	"fmt"
	"math"

	"github.com/ambuflow/backend/internal/geocode"
	"github.com/ambuflow/backend/internal/models"
	"github.com/ambuflow/backend/internal/utils"
)

// Composite score weights.
const (
	weightVehicleType = 0.30
	weightTimeSlot    = 0.25
	weightDistance    = 0.25
	weightPriority    = 0.20
)

// fuelCostPerKm is the flat operating-cost estimate used in summaries.
const fuelCostPerKm = 0.15

// GetVehicleTypeScore ranks how well a vehicle type can serve the
// required one. The matrix is asymmetric: an ambulance can cover a VSL
// trip almost perfectly, a taxi cannot cover an ambulance trip.
func GetVehicleTypeScore(requiredType, vehicleType string) int {
	if requiredType == vehicleType {
		return 100
	}
	switch requiredType {
	case models.VehicleVSL:
		switch vehicleType {
		case models.VehicleAmbulance:
			return 90
		case models.VehicleTaxi:
			return 70
		}
	case models.VehicleAmbulance:
		switch vehicleType {
		case models.VehicleVSL:
			return 60
		case models.VehicleTaxi:
			return 20
		}
	case models.VehicleTaxi:
		switch vehicleType {
		case models.VehicleVSL:
			return 85
		case models.VehicleAmbulance:
			return 75
		}
	}
	return 30
}

func GetPriorityScore(priority string) int {
	switch priority {
	case models.PriorityUrgent:
		return 100
	case models.PriorityHigh:
		return 85
	case models.PriorityNormal:
		return 60
	case models.PriorityLow:
		return 40
	default:
		return 60
	}
}

// CalculateDistanceScore is a monotonic step function that never
// reaches zero, so a far-away vehicle stays assignable.
func CalculateDistanceScore(km float64) int {
	switch {
	case km <= 10:
		return 100
	case km <= 20:
		return 80
	case km <= 40:
		return 60
	case km <= 60:
		return 40
	default:
		return 20
	}
}

// CalculateTimeSlotScore degrades with the number of existing trips
// scheduled near the candidate's time.
func CalculateTimeSlotScore(trip models.Trip, existing []models.Trip) int {
	near := len(DetectConflicts(trip, existing))
	switch near {
	case 0:
		return 100
	case 1:
		return 60
	case 2:
		return 30
	default:
		return 10
	}
}

// Travel-time profile: base speed picked from the leg length, scaled
// by a time-of-day multiplier.
const (
	speedUrbanKmh   = 25.0
	speedMixedKmh   = 40.0
	speedHighwayKmh = 80.0
)

func rushHourMultiplier(clock string) float64 {
	minutes := utils.ParseClock(clock)
	if minutes < 0 {
		return 1.0
	}
	h := minutes / 60
	switch {
	case h >= 7 && h < 9:
		return 1.4
	case h >= 17 && h < 19:
		return 1.4
	case h >= 11 && h < 13:
		return 1.2
	default:
		return 1.0
	}
}

// EstimateTravelMinutes converts a crow-flies distance into a driving
// time using the leg-length speed profile and the rush-hour table.
func EstimateTravelMinutes(km float64, clock string) int {
	speed := speedMixedKmh
	switch {
	case km < 10:
		speed = speedUrbanKmh
	case km > 50:
		speed = speedHighwayKmh
	}
	minutes := km / speed * 60 * rushHourMultiplier(clock)
	return int(math.Round(minutes))
}

// resolveCoordinates prefers coordinates already on the record, then
// the geocoder, then the static fallback table. A default location is
// a valid low-precision answer, never an error.
func (o *Optimizer) resolveCoordinates(ctx context.Context, address string, existing *models.Coordinates) models.Coordinates {
	if existing != nil && (existing.Lat != 0 || existing.Lng != 0) {
		return *existing
	}
	if o.Geo != nil {
		coords, err := o.Geo.Geocode(ctx, address)
		if err == nil {
			return coords
		}
		o.Logger.Debug().Err(err).Str("address", address).Msg("geocode failed, using fallback table")
	}
	return geocode.FallbackCoordinates(address)
}

// CalculateOptimizationScore scores one (trip, vehicle) pair against
// the vehicle's existing trips. Any internal error produces a
// zero-score result with the error recorded in the details, so the
// caller can always rank the full candidate list.
func (o *Optimizer) CalculateOptimizationScore(ctx context.Context, trip models.Trip, vehicle models.Vehicle, existing []models.Trip) models.OptimizationScore {
	if err := validateTrip(trip); err != nil {
		return errorScore(err)
	}

	pickup := o.resolveCoordinates(ctx, trip.Pickup, trip.PickupCoordinates)
	dest := o.resolveCoordinates(ctx, trip.Destination, trip.DestinationCoordinates)
	vehicleLoc := o.resolveCoordinates(ctx, vehicle.CurrentLocation, vehicle.Coordinates)

	distanceToPickup := utils.HaversineKm(vehicleLoc.Lat, vehicleLoc.Lng, pickup.Lat, pickup.Lng)
	tripDistance := utils.HaversineKm(pickup.Lat, pickup.Lng, dest.Lat, dest.Lng)
	totalDistance := distanceToPickup + tripDistance

	approachMinutes := EstimateTravelMinutes(distanceToPickup, trip.AppointmentTime)
	tripMinutes := EstimateTravelMinutes(tripDistance, trip.AppointmentTime)
	totalTime := approachMinutes + tripMinutes

	conflicts := DetectConflicts(trip, existing)

	typeScore := GetVehicleTypeScore(trip.VehicleTypeRequired, vehicle.Type)
	slotScore := CalculateTimeSlotScore(trip, existing)
	distScore := CalculateDistanceScore(totalDistance)
	prioScore := GetPriorityScore(trip.Priority)

	composite := float64(typeScore)*weightVehicleType +
		float64(slotScore)*weightTimeSlot +
		float64(distScore)*weightDistance +
		float64(prioScore)*weightPriority

	arrival := ""
	if appt := utils.ParseClock(trip.AppointmentTime); appt >= 0 {
		arrival = utils.FormatClock(appt + tripMinutes)
	}

	return models.OptimizationScore{
		Score: int(math.Round(composite)),
		Details: models.ScoreDetails{
			VehicleTypeScore: typeScore,
			TimeSlotScore:    slotScore,
			DistanceScore:    distScore,
			PriorityScore:    prioScore,
			DistanceToPickup: roundKm(distanceToPickup),
			TripDistance:     roundKm(tripDistance),
			TotalDistance:    roundKm(totalDistance),
			TotalTime:        totalTime,
			EstimatedArrival: arrival,
			FuelCost:         math.Round(totalDistance*fuelCostPerKm*100) / 100,
			Conflicts:        conflicts,
		},
	}
}

func validateTrip(trip models.Trip) error {
	if trip.Pickup == "" && trip.PickupCoordinates == nil {
		return fmt.Errorf("trip %d has no pickup location", trip.ID)
	}
	if trip.Destination == "" && trip.DestinationCoordinates == nil {
		return fmt.Errorf("trip %d has no destination", trip.ID)
	}
	if utils.ParseClock(trip.AppointmentTime) < 0 {
		return fmt.Errorf("trip %d has no usable time: %q", trip.ID, trip.AppointmentTime)
	}
	return nil
}

func errorScore(err error) models.OptimizationScore {
	return models.OptimizationScore{
		Score:   0,
		Details: models.ScoreDetails{Conflicts: []models.Conflict{}, Error: err.Error()},
	}
}

func roundKm(km float64) float64 {
	return math.Round(km*10) / 10
}

package service

import (
	"github.com/ambuflow/backend/internal/models"
	"github.com/ambuflow/backend/internal/utils"
)

// returnPickupBufferMinutes separates the appointment's end from the
// earliest return pickup, covering discharge paperwork.
const returnPickupBufferMinutes = 15

// NeedsReturn reports whether an appointment trip implies a ride back.
// Return trips themselves are never re-expanded.
func NeedsReturn(trip models.Trip) bool {
	if trip.IsReturnTrip {
		return false
	}
	if trip.Duration > 0 {
		return true
	}
	return trip.ReturnTime != "" && trip.ReturnTime != "00:00"
}

// GenerateReturnTrip derives the ride home from an appointment trip:
// pickup and destination swap, the pickup window opens once the
// appointment is over. The second return value is false when the trip
// lacks the time data to derive anything.
func (o *Optimizer) GenerateReturnTrip(trip models.Trip, newID int) (models.Trip, bool) {
	exitTime := trip.ReturnTime
	if exitTime == "" || exitTime == "00:00" {
		appt := utils.ParseClock(trip.AppointmentTime)
		if appt < 0 {
			o.Logger.Warn().Int("trip_id", trip.ID).Str("appointment_time", trip.AppointmentTime).
				Msg("skipping return generation, no usable appointment time")
			return models.Trip{}, false
		}
		exitTime = utils.FormatClock(appt + trip.Duration)
	}

	ret := models.Trip{
		ID:                     newID,
		Patient:                trip.Patient,
		Pickup:                 trip.Destination,
		Destination:            trip.Pickup,
		PickupCoordinates:      trip.DestinationCoordinates,
		DestinationCoordinates: trip.PickupCoordinates,
		AppointmentTime:        utils.AddMinutes(exitTime, returnPickupBufferMinutes),
		VehicleTypeRequired:    trip.VehicleTypeRequired,
		Priority:               trip.Priority,
		IsReturnTrip:           true,
		OriginalTripID:         trip.ID,
		EarliestPickupTime:     utils.AddMinutes(exitTime, returnPickupBufferMinutes),
		MaxWaitMinutes:         models.DefaultMaxWaitMinutes,
	}
	o.Logger.Debug().Int("trip_id", trip.ID).Int("return_id", newID).
		Str("earliest_pickup", ret.EarliestPickupTime).Msg("return trip generated")
	return ret, true
}

// GenerateReturnTrips derives a return for every qualifying trip. IDs
// are assigned sequentially above the current maximum so generated
// trips never collide with caller-assigned ones.
func (o *Optimizer) GenerateReturnTrips(trips []models.Trip) []models.Trip {
	nextID := 0
	for _, t := range trips {
		if t.ID > nextID {
			nextID = t.ID
		}
	}

	returns := make([]models.Trip, 0)
	for _, t := range trips {
		if !NeedsReturn(t) {
			continue
		}
		if alreadyExpanded(t, trips) {
			continue
		}
		nextID++
		ret, ok := o.GenerateReturnTrip(t, nextID)
		if !ok {
			nextID--
			continue
		}
		returns = append(returns, ret)
	}
	return returns
}

// ExpandWithReturns returns the original list concatenated with all
// generated return trips.
func (o *Optimizer) ExpandWithReturns(trips []models.Trip) []models.Trip {
	returns := o.GenerateReturnTrips(trips)
	out := make([]models.Trip, 0, len(trips)+len(returns))
	out = append(out, trips...)
	out = append(out, returns...)
	return out
}

// alreadyExpanded guards idempotence: running generation twice on an
// expanded list must not add a second return for the same source trip.
func alreadyExpanded(trip models.Trip, trips []models.Trip) bool {
	for _, t := range trips {
		if t.IsReturnTrip && t.OriginalTripID == trip.ID {
			return true
		}
	}
	return false
}

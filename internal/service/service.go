package service

import (
	"github.com/rs/zerolog"

	"github.com/ambuflow/backend/internal/geocode"
)

// Floors groups the acceptance thresholds of the assignment engine.
// The dispatch policy is deliberately permissive: an imperfect
// assignment beats an unassigned medical transport, so these floors
// sit very low and are tunable rather than hard-coded.
type Floors struct {
	Accept        float64
	Available     float64
	CrossType     float64
	Busy          float64
	VehicleChange float64
	Reschedule    float64
}

func DefaultFloors() Floors {
	return Floors{
		Accept:        5,
		Available:     15,
		CrossType:     20,
		Busy:          25,
		VehicleChange: 30,
		Reschedule:    60,
	}
}

// Optimizer is the assignment engine. The logger doubles as the
// diagnostics sink for significant decisions (assignment made,
// conflict detected, fallback applied).
type Optimizer struct {
	Geo    geocode.Geocoder
	Logger zerolog.Logger
	Floors Floors
}

func New(geo geocode.Geocoder, logger zerolog.Logger, floors Floors) *Optimizer {
	return &Optimizer{Geo: geo, Logger: logger, Floors: floors}
}

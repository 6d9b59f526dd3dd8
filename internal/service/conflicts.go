package service

import (
	"github.com/ambuflow/backend/internal/models"
	"github.com/ambuflow/backend/internal/utils"
)

// Two conflict models coexist on purpose. DetectConflicts is the quick
// point-proximity heuristic the scoring layer uses; CheckTimeConflicts
// is the interval-overlap gate the batch and fallback solvers use for
// authoritative accept/reject. They are intentionally not unified.

const (
	proximityWindowMinutes = 30
	highSeverityMinutes    = 15
)

// DetectConflicts flags every existing trip whose time-of-day is
// within 30 minutes of the candidate's.
func DetectConflicts(trip models.Trip, existing []models.Trip) []models.Conflict {
	candidate := utils.ParseClock(trip.AppointmentTime)
	if candidate < 0 {
		return nil
	}

	var out []models.Conflict
	for _, other := range existing {
		if other.ID == trip.ID {
			continue
		}
		otherTime := utils.ParseClock(other.AppointmentTime)
		if otherTime < 0 {
			continue
		}
		diff := utils.AbsInt(candidate - otherTime)
		if diff >= proximityWindowMinutes {
			continue
		}
		severity := models.SeverityMedium
		if diff < highSeverityMinutes {
			severity = models.SeverityHigh
		}
		out = append(out, models.Conflict{
			Type:                  models.ConflictTimeOverlap,
			ConflictingTrip:       other,
			TimeDifferenceMinutes: diff,
			Severity:              severity,
		})
	}
	return out
}

// defaultServiceMinutes is the occupancy window assumed for a trip
// when no better estimate exists.
const defaultServiceMinutes = 30

func occupancyWindow(trip models.Trip) (start, end int, ok bool) {
	start = utils.ParseClock(trip.AppointmentTime)
	if start < 0 {
		return 0, 0, false
	}
	return start, start + defaultServiceMinutes, true
}

// conflictBuffer is the required separation between two occupancy
// windows on the same vehicle, by trip-type pairing. Returns need more
// slack because exit times slip; mixed pairs need the least.
func conflictBuffer(a, b models.Trip) int {
	switch {
	case !a.IsReturnTrip && !b.IsReturnTrip:
		return 30
	case a.IsReturnTrip && b.IsReturnTrip:
		return 45
	default:
		return 20
	}
}

// CheckTimeConflicts reports every existing trip whose occupancy
// interval, padded with the type-specific buffer, overlaps the
// candidate's. The test is symmetric: A conflicting with B implies B
// conflicting with A.
func CheckTimeConflicts(trip models.Trip, existing []models.Trip) []models.Conflict {
	aStart, aEnd, ok := occupancyWindow(trip)
	if !ok {
		return nil
	}

	var out []models.Conflict
	for _, other := range existing {
		if other.ID == trip.ID {
			continue
		}
		bStart, bEnd, ok := occupancyWindow(other)
		if !ok {
			continue
		}
		buffer := conflictBuffer(trip, other)
		if aStart >= bEnd+buffer || bStart >= aEnd+buffer {
			continue
		}
		gap := utils.AbsInt(aStart - bStart)
		severity := models.SeverityMedium
		if gap < highSeverityMinutes {
			severity = models.SeverityHigh
		}
		out = append(out, models.Conflict{
			Type:                  models.ConflictTimeOverlap,
			ConflictingTrip:       other,
			TimeDifferenceMinutes: gap,
			Severity:              severity,
		})
	}
	return out
}

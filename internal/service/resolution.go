package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/ambuflow/backend/internal/geocode"
	"github.com/ambuflow/backend/internal/models"
	"github.com/ambuflow/backend/internal/utils"
)

// Time-shift probe grid, 07:00 through 18:30 on the half hour.
func timeShiftGrid() []string {
	var grid []string
	for m := 7 * 60; m <= 18*60+30; m += 30 {
		grid = append(grid, utils.FormatClock(m))
	}
	return grid
}

// rescheduleSlots are the nine fixed slots an existing trip may be
// moved into to free room for a new one.
var rescheduleSlots = []string{
	"08:00", "09:00", "10:00", "11:00", "13:00",
	"14:00", "15:00", "16:00", "17:00",
}

const (
	maxOptionsPerStrategy = 5
	combinationWindowMin  = 60
)

// ResolveConflicts builds ranked resolution strategies for one trip
// that could not be placed conflict-free. It inspects state but never
// mutates it; the batch optimizer applies whichever option it accepts.
func (o *Optimizer) ResolveConflicts(ctx context.Context, trip models.Trip, vehicles []models.Vehicle, allTrips []models.Trip) models.Resolution {
	resolution := models.Resolution{Trip: trip}

	if opts := o.timeAdjustmentOptions(ctx, trip, vehicles); len(opts) > 0 {
		resolution.ResolutionStrategies = append(resolution.ResolutionStrategies, models.ResolutionStrategy{
			Type:        models.StrategyTimeAdjustment,
			Description: fmt.Sprintf("shift trip %d to a nearby conflict-free time", trip.ID),
			Options:     opts,
		})
	}
	if opts := o.vehicleChangeOptions(ctx, trip, vehicles); len(opts) > 0 {
		resolution.ResolutionStrategies = append(resolution.ResolutionStrategies, models.ResolutionStrategy{
			Type:        models.StrategyVehicleChange,
			Description: fmt.Sprintf("move trip %d to a different vehicle", trip.ID),
			Options:     opts,
		})
	}
	if opts := o.rescheduleExistingOptions(ctx, trip, vehicles); len(opts) > 0 {
		resolution.ResolutionStrategies = append(resolution.ResolutionStrategies, models.ResolutionStrategy{
			Type:        models.StrategyRescheduleExisting,
			Description: fmt.Sprintf("reschedule an existing trip to free a slot for trip %d", trip.ID),
			Options:     opts,
		})
	}
	if opts := o.tripCombinationOptions(ctx, trip, vehicles, allTrips); len(opts) > 0 {
		resolution.ResolutionStrategies = append(resolution.ResolutionStrategies, models.ResolutionStrategy{
			Type:        models.StrategyTripOptimization,
			Description: fmt.Sprintf("combine or coordinate trip %d with nearby trips", trip.ID),
			Options:     opts,
		})
	}

	o.Logger.Debug().Int("trip_id", trip.ID).
		Int("strategies", len(resolution.ResolutionStrategies)).Msg("resolution strategies generated")
	return resolution
}

// timeAdjustmentOptions probes the half-hour grid for shifted times
// that score conflict-free on some vehicle. For return trips the grid
// is clipped to the patient's pickup window.
func (o *Optimizer) timeAdjustmentOptions(ctx context.Context, trip models.Trip, vehicles []models.Vehicle) []models.ResolutionOption {
	current := utils.ParseClock(trip.AppointmentTime)
	if current < 0 {
		return nil
	}

	earliest, latest := -1, -1
	if trip.IsReturnTrip {
		earliest = utils.ParseClock(trip.EarliestPickupTime)
		maxWait := trip.MaxWaitMinutes
		if maxWait <= 0 {
			maxWait = models.DefaultMaxWaitMinutes
		}
		if earliest >= 0 {
			latest = earliest + maxWait
		}
	}

	var options []models.ResolutionOption
	for _, slot := range timeShiftGrid() {
		slotMin := utils.ParseClock(slot)
		if slotMin == current {
			continue
		}
		if earliest >= 0 && (slotMin < earliest || slotMin > latest) {
			continue
		}

		shifted := trip
		shifted.AppointmentTime = slot

		for _, v := range vehicles {
			if v.Status == models.StatusMaintenance {
				continue
			}
			score := o.CalculateOptimizationScore(ctx, shifted, v, v.Trips)
			if score.Score == 0 || len(score.Details.Conflicts) > 0 {
				continue
			}
			if len(CheckTimeConflicts(shifted, v.Trips)) > 0 {
				continue
			}
			shift := utils.AbsInt(slotMin - current)
			options = append(options, models.ResolutionOption{
				VehicleID:    v.ID,
				VehicleName:  v.Name,
				NewTime:      slot,
				Score:        float64(score.Score),
				ShiftMinutes: shift,
				Impact:       shiftImpact(shift),
				Description:  fmt.Sprintf("move trip %d to %s on %s", trip.ID, slot, v.Name),
			})
			break
		}
	}

	sort.SliceStable(options, func(i, j int) bool {
		if options[i].Score != options[j].Score {
			return options[i].Score > options[j].Score
		}
		return options[i].ShiftMinutes < options[j].ShiftMinutes
	})
	return capOptions(options)
}

// vehicleChangeOptions probes every other vehicle with a lower
// acceptance bar than normal assignment, since this is already a
// salvage path.
func (o *Optimizer) vehicleChangeOptions(ctx context.Context, trip models.Trip, vehicles []models.Vehicle) []models.ResolutionOption {
	type ranked struct {
		opt       models.ResolutionOption
		conflicts int
	}
	var options []ranked
	for _, v := range vehicles {
		if v.Status == models.StatusMaintenance {
			continue
		}
		score := o.CalculateOptimizationScore(ctx, trip, v, v.Trips)
		if float64(score.Score) <= o.Floors.VehicleChange {
			continue
		}
		conflicts := len(CheckTimeConflicts(trip, v.Trips))
		options = append(options, ranked{
			opt: models.ResolutionOption{
				VehicleID:   v.ID,
				VehicleName: v.Name,
				Score:       float64(score.Score),
				Impact:      "low",
				Description: fmt.Sprintf("assign trip %d to %s instead", trip.ID, v.Name),
			},
			conflicts: conflicts,
		})
	}

	sort.SliceStable(options, func(i, j int) bool {
		if options[i].conflicts != options[j].conflicts {
			return options[i].conflicts < options[j].conflicts
		}
		return options[i].opt.Score > options[j].opt.Score
	})

	out := make([]models.ResolutionOption, 0, len(options))
	for _, r := range options {
		if r.conflicts > 0 {
			break
		}
		out = append(out, r.opt)
	}
	return capOptions(out)
}

// rescheduleExistingOptions tries moving a non-urgent existing trip to
// one of the fixed slots. Both the moved trip and the new trip must
// independently clear the reschedule floor with zero conflicts.
func (o *Optimizer) rescheduleExistingOptions(ctx context.Context, trip models.Trip, vehicles []models.Vehicle) []models.ResolutionOption {
	var options []models.ResolutionOption
	for _, v := range vehicles {
		if v.Status == models.StatusMaintenance {
			continue
		}
		for _, existing := range v.Trips {
			if existing.Priority == models.PriorityUrgent {
				continue
			}
			rest := withoutTrip(v.Trips, existing.ID)

			for _, slot := range rescheduleSlots {
				if slot == existing.AppointmentTime {
					continue
				}
				moved := existing
				moved.AppointmentTime = slot

				movedScore := o.CalculateOptimizationScore(ctx, moved, v, rest)
				if float64(movedScore.Score) <= o.Floors.Reschedule || len(movedScore.Details.Conflicts) > 0 {
					continue
				}

				afterMove := append(append([]models.Trip(nil), rest...), moved)
				tripScore := o.CalculateOptimizationScore(ctx, trip, v, afterMove)
				if float64(tripScore.Score) <= o.Floors.Reschedule || len(tripScore.Details.Conflicts) > 0 {
					continue
				}

				options = append(options, models.ResolutionOption{
					VehicleID:     v.ID,
					VehicleName:   v.Name,
					RescheduledID: existing.ID,
					NewTime:       slot,
					Score:         float64(tripScore.Score),
					Impact:        "medium",
					Description: fmt.Sprintf("move trip %d to %s, freeing %s for trip %d",
						existing.ID, slot, v.Name, trip.ID),
				})
				break
			}
		}
	}

	sort.SliceStable(options, func(i, j int) bool {
		return options[i].Score > options[j].Score
	})
	return capOptions(options)
}

// tripCombinationOptions looks for nearby same-type trips that could
// share a vehicle, or a two-vehicle relay for urgent trips. Proximity
// is approximated by the shared city token of the pickup address.
func (o *Optimizer) tripCombinationOptions(ctx context.Context, trip models.Trip, vehicles []models.Vehicle, allTrips []models.Trip) []models.ResolutionOption {
	urgent := trip.Priority == models.PriorityUrgent || trip.Priority == models.PriorityHigh
	if urgent {
		return o.relayOptions(ctx, trip, vehicles)
	}

	tripTime := utils.ParseClock(trip.AppointmentTime)
	if tripTime < 0 {
		return nil
	}
	city := geocode.CityOf(trip.Pickup)

	var options []models.ResolutionOption
	for _, other := range allTrips {
		if other.ID == trip.ID || other.Priority == models.PriorityUrgent {
			continue
		}
		if other.VehicleTypeRequired != trip.VehicleTypeRequired {
			continue
		}
		if geocode.CityOf(other.Pickup) != city {
			continue
		}
		otherTime := utils.ParseClock(other.AppointmentTime)
		if otherTime < 0 || utils.AbsInt(tripTime-otherTime) > combinationWindowMin {
			continue
		}

		for _, v := range vehicles {
			if v.Status == models.StatusMaintenance {
				continue
			}
			score := o.CalculateOptimizationScore(ctx, trip, v, v.Trips)
			if float64(score.Score) <= o.Floors.VehicleChange {
				continue
			}
			options = append(options, models.ResolutionOption{
				VehicleID:   v.ID,
				VehicleName: v.Name,
				CombinedID:  other.ID,
				Score:       float64(score.Score),
				Impact:      "high",
				Description: fmt.Sprintf("combine trip %d with trip %d (both near %s) on %s",
					trip.ID, other.ID, city, v.Name),
			})
			break
		}
	}

	sort.SliceStable(options, func(i, j int) bool {
		return options[i].Score > options[j].Score
	})
	return capOptions(options)
}

// relayOptions proposes a two-vehicle handover for urgent trips when
// at least two vehicles are free.
func (o *Optimizer) relayOptions(ctx context.Context, trip models.Trip, vehicles []models.Vehicle) []models.ResolutionOption {
	var available []models.Vehicle
	for _, v := range vehicles {
		if v.Status == models.StatusAvailable {
			available = append(available, v)
		}
	}
	if len(available) < 2 {
		return nil
	}

	type scored struct {
		vehicle models.Vehicle
		score   int
	}
	ranked := make([]scored, 0, len(available))
	for _, v := range available {
		s := o.CalculateOptimizationScore(ctx, trip, v, v.Trips)
		ranked = append(ranked, scored{vehicle: v, score: s.Score})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	first, second := ranked[0], ranked[1]
	return []models.ResolutionOption{{
		VehicleID:   first.vehicle.ID,
		VehicleName: first.vehicle.Name,
		Score:       float64(first.score),
		Impact:      "high",
		Description: fmt.Sprintf("relay trip %d: %s handles pickup, %s covers the handover",
			trip.ID, first.vehicle.Name, second.vehicle.Name),
	}}
}

func shiftImpact(shiftMinutes int) string {
	switch {
	case shiftMinutes <= 60:
		return "low"
	case shiftMinutes <= 120:
		return "medium"
	default:
		return "high"
	}
}

func withoutTrip(trips []models.Trip, id int) []models.Trip {
	out := make([]models.Trip, 0, len(trips))
	for _, t := range trips {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

func capOptions(options []models.ResolutionOption) []models.ResolutionOption {
	if len(options) > maxOptionsPerStrategy {
		return options[:maxOptionsPerStrategy]
	}
	return options
}

package service

import (
	"context"
	"math"
	"sort"

	"github.com/ambuflow/backend/internal/models"
	"github.com/ambuflow/backend/internal/utils"
)

func priorityRank(priority string) int {
	switch priority {
	case models.PriorityUrgent:
		return 0
	case models.PriorityHigh:
		return 1
	case models.PriorityNormal:
		return 2
	default:
		return 3
	}
}

// SortTripsForBatch orders trips by priority, then time of day. The
// two-pass algorithm is greedy, so this order is part of its contract.
func SortTripsForBatch(trips []models.Trip) []models.Trip {
	sorted := append([]models.Trip(nil), trips...)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := priorityRank(sorted[i].Priority), priorityRank(sorted[j].Priority)
		if ri != rj {
			return ri < rj
		}
		return utils.ParseClock(sorted[i].AppointmentTime) < utils.ParseClock(sorted[j].AppointmentTime)
	})
	return sorted
}

// annotateVehicles returns vehicle copies carrying the run's working
// trip lists. The originals are never mutated; each optimization run
// owns its own copies.
func annotateVehicles(vehicles []models.Vehicle, working map[int][]models.Trip) []models.Vehicle {
	out := make([]models.Vehicle, len(vehicles))
	for i, v := range vehicles {
		out[i] = v
		out[i].Trips = working[v.ID]
	}
	return out
}

// OptimizeMultipleTrips runs the two-pass batch assignment: a greedy
// pass accepting only conflict-free matches, then a resolution pass
// for everything deferred. Every input trip appears in the results
// exactly once.
func (o *Optimizer) OptimizeMultipleTrips(ctx context.Context, trips []models.Trip, vehicles []models.Vehicle) models.BatchResult {
	working := make(map[int][]models.Trip, len(vehicles))
	for _, v := range vehicles {
		working[v.ID] = append([]models.Trip(nil), v.Trips...)
	}

	sorted := SortTripsForBatch(trips)
	results := make([]models.TripResult, 0, len(sorted))
	var deferred []models.Trip

	for _, trip := range sorted {
		res := o.FindBestVehicleAssignment(ctx, trip, annotateVehicles(vehicles, working))
		if res.Success && res.Recommended != nil && len(res.Recommended.Score.Details.Conflicts) == 0 {
			vid := res.Recommended.Vehicle.ID
			working[vid] = append(working[vid], trip)
			score := res.Recommended.Score
			results = append(results, models.TripResult{
				Trip:        trip,
				Status:      models.TripAssigned,
				VehicleID:   vid,
				VehicleName: res.Recommended.Vehicle.Name,
				Score:       &score,
				Forced:      res.Forced,
			})
			continue
		}
		if !res.Success {
			// Whole fleet in maintenance; resolution cannot help either.
			results = append(results, models.TripResult{
				Trip:   trip,
				Status: models.TripUnassigned,
				Reason: res.Message,
			})
			continue
		}
		deferred = append(deferred, trip)
	}

	for _, trip := range deferred {
		resolution := o.ResolveConflicts(ctx, trip, annotateVehicles(vehicles, working), trips)

		applied := false
		var attempted []string
		for _, strategy := range resolution.ResolutionStrategies {
			attempted = append(attempted, strategy.Description)
			if applied || len(strategy.Options) == 0 {
				continue
			}
			if result, ok := o.applyResolution(ctx, trip, strategy, strategy.Options[0], working, vehicles); ok {
				results = append(results, result)
				applied = true
			}
		}

		if !applied {
			o.Logger.Warn().Int("trip_id", trip.ID).Strs("attempted", attempted).
				Msg("conflict resolution exhausted")
			results = append(results, models.TripResult{
				Trip:                trip,
				Status:              models.TripUnassigned,
				AttemptedStrategies: attempted,
				Reason:              "no viable resolution strategy",
			})
		}
	}

	return models.BatchResult{Results: results, Summary: buildSummary(results)}
}

// applyResolution mutates the working state according to the chosen
// option and records the outcome. The resolver itself never mutates;
// this is the single place state changes between passes.
func (o *Optimizer) applyResolution(ctx context.Context, trip models.Trip, strategy models.ResolutionStrategy, opt models.ResolutionOption, working map[int][]models.Trip, vehicles []models.Vehicle) (models.TripResult, bool) {
	vehicle, ok := vehicleByID(vehicles, opt.VehicleID)
	if !ok {
		return models.TripResult{}, false
	}

	switch strategy.Type {
	case models.StrategyTimeAdjustment:
		trip.AppointmentTime = opt.NewTime
	case models.StrategyRescheduleExisting:
		if !rescheduleInWorking(working, opt.VehicleID, opt.RescheduledID, opt.NewTime) {
			return models.TripResult{}, false
		}
	case models.StrategyVehicleChange, models.StrategyTripOptimization:
		// Placement only; nothing else to move.
	default:
		return models.TripResult{}, false
	}

	score := o.CalculateOptimizationScore(ctx, trip, vehicle, working[opt.VehicleID])
	working[opt.VehicleID] = append(working[opt.VehicleID], trip)

	o.Logger.Info().Int("trip_id", trip.ID).Int("vehicle_id", opt.VehicleID).
		Str("strategy", strategy.Type).Msg("conflict resolved")

	applied := opt
	return models.TripResult{
		Trip:               trip,
		Status:             models.TripAssigned,
		VehicleID:          opt.VehicleID,
		VehicleName:        vehicle.Name,
		Score:              &score,
		ResolutionApplied:  &applied,
		ResolutionStrategy: strategy.Type,
	}, true
}

func rescheduleInWorking(working map[int][]models.Trip, vehicleID, tripID int, newTime string) bool {
	list := working[vehicleID]
	for i := range list {
		if list[i].ID == tripID {
			list[i].AppointmentTime = newTime
			return true
		}
	}
	return false
}

func vehicleByID(vehicles []models.Vehicle, id int) (models.Vehicle, bool) {
	for _, v := range vehicles {
		if v.ID == id {
			return v, true
		}
	}
	return models.Vehicle{}, false
}

func buildSummary(results []models.TripResult) models.BatchSummary {
	summary := models.BatchSummary{TotalTrips: len(results)}
	scoreTotal := 0.0
	for _, r := range results {
		if r.Status != models.TripAssigned {
			summary.Unassigned++
			continue
		}
		summary.Assigned++
		if r.Score != nil {
			summary.TotalDistanceKm += r.Score.Details.TotalDistance
			summary.TotalTimeMinutes += r.Score.Details.TotalTime
			scoreTotal += float64(r.Score.Score)
		}
	}
	if summary.TotalTrips > 0 {
		summary.AssignmentRate = math.Round(float64(summary.Assigned)/float64(summary.TotalTrips)*1000) / 10
	}
	if summary.Assigned > 0 {
		summary.AverageScore = math.Round(scoreTotal/float64(summary.Assigned)*10) / 10
	}
	summary.TotalDistanceKm = math.Round(summary.TotalDistanceKm*10) / 10
	summary.EstimatedFuelCost = math.Round(summary.TotalDistanceKm*fuelCostPerKm*100) / 100
	return summary
}

// OptimizeBatch expands qualifying trips with their return legs before
// running the two-pass assignment.
func (o *Optimizer) OptimizeBatch(ctx context.Context, trips []models.Trip, vehicles []models.Vehicle) models.BatchResult {
	expanded := o.ExpandWithReturns(trips)
	if len(expanded) != len(trips) {
		o.Logger.Info().Int("trips", len(trips)).Int("returns", len(expanded)-len(trips)).
			Msg("expanded trips with return legs")
	}
	return o.OptimizeMultipleTrips(ctx, expanded, vehicles)
}

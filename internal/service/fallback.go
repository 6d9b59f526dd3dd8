package service

import (
	"context"
	"sort"

	"github.com/ambuflow/backend/internal/models"
	"github.com/ambuflow/backend/internal/utils"
)

// minTypeCompatibility gates greedy placement: below this the vehicle
// type cannot reasonably serve the trip at all.
const minTypeCompatibility = 50

// FallbackVRPSolve is the offline solver of last resort: greedy
// insertion in priority-then-time order, gated by the interval-overlap
// conflict check, followed by a 2-opt pass on each route's driving
// order. It needs no network and cannot fail.
func (o *Optimizer) FallbackVRPSolve(ctx context.Context, trips []models.Trip, vehicles []models.Vehicle) models.NormalizedResult {
	working := make(map[int][]models.Trip, len(vehicles))
	for _, v := range vehicles {
		working[v.ID] = append([]models.Trip(nil), v.Trips...)
	}

	sorted := SortTripsForBatch(trips)
	results := make([]models.TripResult, 0, len(sorted))
	var unassigned []int

	for _, trip := range sorted {
		best := -1
		bestScore := models.OptimizationScore{}
		for _, v := range vehicles {
			if v.Status == models.StatusMaintenance {
				continue
			}
			if GetVehicleTypeScore(trip.VehicleTypeRequired, v.Type) < minTypeCompatibility {
				continue
			}
			if len(CheckTimeConflicts(trip, working[v.ID])) > 0 {
				continue
			}
			score := o.CalculateOptimizationScore(ctx, trip, v, working[v.ID])
			if best < 0 || score.Score > bestScore.Score {
				best = v.ID
				bestScore = score
			}
		}

		if best < 0 {
			unassigned = append(unassigned, trip.ID)
			results = append(results, models.TripResult{
				Trip:   trip,
				Status: models.TripUnassigned,
				Reason: "no compatible conflict-free vehicle",
			})
			continue
		}

		working[best] = append(working[best], trip)
		vehicle, _ := vehicleByID(vehicles, best)
		score := bestScore
		results = append(results, models.TripResult{
			Trip:        trip,
			Status:      models.TripAssigned,
			VehicleID:   best,
			VehicleName: vehicle.Name,
			Score:       &score,
		})
	}

	routes := o.buildRoutes(ctx, vehicles, working)

	o.Logger.Info().Int("trips", len(trips)).Int("unassigned", len(unassigned)).
		Msg("local fallback solve complete")

	return models.NormalizedResult{
		Results:    results,
		Summary:    buildSummary(results),
		Algorithm:  "local_fallback",
		Fallback:   true,
		Routes:     routes,
		Unassigned: unassigned,
	}
}

// buildRoutes turns each vehicle's working list into an ordered route.
// Only trips added this run are routed; pre-existing trips already
// belong to earlier plans. Routes with more than two stops get a 2-opt
// pass on driving distance. Conflict feasibility is purely clock-based,
// so reordering the visit sequence cannot invalidate it.
func (o *Optimizer) buildRoutes(ctx context.Context, vehicles []models.Vehicle, working map[int][]models.Trip) []models.VehicleRoute {
	var routes []models.VehicleRoute
	for _, v := range vehicles {
		preexisting := len(v.Trips)
		assigned := working[v.ID]
		if len(assigned) <= preexisting {
			continue
		}
		route := append([]models.Trip(nil), assigned[preexisting:]...)

		sort.SliceStable(route, func(i, j int) bool {
			return utils.ParseClock(route[i].AppointmentTime) < utils.ParseClock(route[j].AppointmentTime)
		})
		if len(route) > 2 {
			route = o.improveOrder2Opt(ctx, v, route)
		}

		ids := make([]int, len(route))
		for i, t := range route {
			ids[i] = t.ID
		}
		km := o.routeDistanceKm(ctx, v, route)
		duration := 0
		for _, t := range route {
			duration += EstimateTravelMinutes(o.tripLegKm(ctx, t), t.AppointmentTime) + defaultServiceMinutes
		}
		routes = append(routes, models.VehicleRoute{
			VehicleID:   v.ID,
			VehicleName: v.Name,
			TripIDs:     ids,
			DistanceKm:  roundKm(km),
			DurationMin: duration,
		})
	}
	return routes
}

// improveOrder2Opt repeatedly reverses route segments while the total
// driving distance shrinks. Classic 2-opt, restarted after every
// improvement until a full pass finds none.
func (o *Optimizer) improveOrder2Opt(ctx context.Context, vehicle models.Vehicle, route []models.Trip) []models.Trip {
	best := append([]models.Trip(nil), route...)
	bestKm := o.routeDistanceKm(ctx, vehicle, best)

	improved := true
	for improved {
		improved = false
		for i := 1; i < len(best)-1; i++ {
			for j := i + 1; j < len(best); j++ {
				candidate := append([]models.Trip(nil), best...)
				for l, r := i, j; l < r; l, r = l+1, r-1 {
					candidate[l], candidate[r] = candidate[r], candidate[l]
				}
				if km := o.routeDistanceKm(ctx, vehicle, candidate); km < bestKm {
					best, bestKm = candidate, km
					improved = true
				}
			}
		}
	}
	return best
}

// routeDistanceKm chains vehicle location, then each trip's pickup and
// destination, in visit order.
func (o *Optimizer) routeDistanceKm(ctx context.Context, vehicle models.Vehicle, route []models.Trip) float64 {
	if len(route) == 0 {
		return 0
	}
	prev := o.resolveCoordinates(ctx, vehicle.CurrentLocation, vehicle.Coordinates)
	total := 0.0
	for _, t := range route {
		pickup := o.resolveCoordinates(ctx, t.Pickup, t.PickupCoordinates)
		dest := o.resolveCoordinates(ctx, t.Destination, t.DestinationCoordinates)
		total += utils.HaversineKm(prev.Lat, prev.Lng, pickup.Lat, pickup.Lng)
		total += utils.HaversineKm(pickup.Lat, pickup.Lng, dest.Lat, dest.Lng)
		prev = dest
	}
	return total
}

func (o *Optimizer) tripLegKm(ctx context.Context, trip models.Trip) float64 {
	pickup := o.resolveCoordinates(ctx, trip.Pickup, trip.PickupCoordinates)
	dest := o.resolveCoordinates(ctx, trip.Destination, trip.DestinationCoordinates)
	return utils.HaversineKm(pickup.Lat, pickup.Lng, dest.Lat, dest.Lng)
}

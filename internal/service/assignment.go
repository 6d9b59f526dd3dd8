package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/ambuflow/backend/internal/models"
)

// Cross-type multipliers applied when the vehicle cannot match the
// required type exactly. Directional: serving an ambulance trip with a
// taxi is penalized much harder than the reverse.
func crossTypeMultiplier(requiredType, vehicleType string) float64 {
	switch requiredType {
	case models.VehicleAmbulance:
		switch vehicleType {
		case models.VehicleVSL:
			return 0.8
		case models.VehicleTaxi:
			return 0.4
		}
	case models.VehicleVSL:
		switch vehicleType {
		case models.VehicleAmbulance:
			return 0.9
		case models.VehicleTaxi:
			return 0.7
		}
	case models.VehicleTaxi:
		switch vehicleType {
		case models.VehicleAmbulance:
			return 0.6
		case models.VehicleVSL:
			return 0.8
		}
	}
	return 0.5
}

// enhanceScore layers the dispatch-policy boosts and floors on top of
// the base optimization score.
func (o *Optimizer) enhanceScore(base float64, trip models.Trip, vehicle models.Vehicle) float64 {
	score := base

	if trip.VehicleTypeRequired == vehicle.Type {
		score += 10
	} else {
		score *= crossTypeMultiplier(trip.VehicleTypeRequired, vehicle.Type)
		if score < o.Floors.CrossType {
			score = o.Floors.CrossType
		}
	}

	switch trip.Priority {
	case models.PriorityUrgent:
		score += 15
	case models.PriorityHigh:
		score += 8
	}

	switch vehicle.Status {
	case models.StatusBusy:
		score *= 0.8
		if score < o.Floors.Busy {
			score = o.Floors.Busy
		}
	case models.StatusAvailable:
		if score < o.Floors.Available {
			score = o.Floors.Available
		}
	}

	return score
}

// FindBestVehicleAssignment evaluates every non-maintenance vehicle
// for one trip and picks the best candidate. Failure is only possible
// when the whole fleet is in maintenance; below the acceptance floor
// the best candidate is still force-assigned with a warning.
func (o *Optimizer) FindBestVehicleAssignment(ctx context.Context, trip models.Trip, vehicles []models.Vehicle) models.AssignmentResult {
	candidates := make([]models.Candidate, 0, len(vehicles))
	for _, v := range vehicles {
		if v.Status == models.StatusMaintenance {
			continue
		}
		score := o.CalculateOptimizationScore(ctx, trip, v, v.Trips)
		candidates = append(candidates, models.Candidate{
			Vehicle:       v,
			Score:         score,
			EnhancedScore: o.enhanceScore(float64(score.Score), trip, v),
		})
	}

	if len(candidates) == 0 {
		o.Logger.Warn().Int("trip_id", trip.ID).Msg("no vehicle available, fleet in maintenance")
		return models.AssignmentResult{
			Success: false,
			Trip:    trip,
			Message: "no vehicle available (all in maintenance)",
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		// Near-ties go to the available vehicle.
		if diff := a.EnhancedScore - b.EnhancedScore; diff > -5 && diff < 5 {
			aAvail := a.Vehicle.Status == models.StatusAvailable
			bAvail := b.Vehicle.Status == models.StatusAvailable
			if aAvail != bAvail {
				return aAvail
			}
		}
		return a.EnhancedScore > b.EnhancedScore
	})

	best := candidates[0]
	alternatives := candidates[1:]
	if len(alternatives) > 4 {
		alternatives = alternatives[:4]
	}

	result := models.AssignmentResult{
		Success:      true,
		Trip:         trip,
		Recommended:  &best,
		Alternatives: alternatives,
	}

	if best.EnhancedScore > o.Floors.Accept {
		result.Message = fmt.Sprintf("%s recommended for trip %d (score %.0f)", best.Vehicle.Name, trip.ID, best.EnhancedScore)
		o.Logger.Info().Int("trip_id", trip.ID).Int("vehicle_id", best.Vehicle.ID).
			Float64("score", best.EnhancedScore).Msg("assignment recommended")
	} else {
		result.Forced = true
		result.LowScore = true
		result.Warning = fmt.Sprintf("no candidate above floor %.0f, forcing %s", o.Floors.Accept, best.Vehicle.Name)
		result.Message = fmt.Sprintf("%s force-assigned to trip %d despite low score %.0f", best.Vehicle.Name, trip.ID, best.EnhancedScore)
		o.Logger.Warn().Int("trip_id", trip.ID).Int("vehicle_id", best.Vehicle.ID).
			Float64("score", best.EnhancedScore).Msg("forced low-score assignment")
	}

	return result
}

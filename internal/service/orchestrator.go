package service

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/ambuflow/backend/internal/models"
	"github.com/ambuflow/backend/internal/provider"
	"github.com/ambuflow/backend/internal/utils"
)

// Optimization modes. ModeAuto probes providers and takes the best
// available tier; the explicit modes pin one tier for testing or when
// an operator wants deterministic behavior.
const (
	ModeAuto   = "auto"
	ModeSolver = "vroom_solver"
	ModeRouter = "router_greedy"
	ModeLocal  = "local_fallback"
)

type SmartOptions struct {
	Mode string `json:"mode"`
}

// Router-greedy composite weights and acceptance threshold.
const (
	routerWeightDuration = 0.4
	routerWeightType     = 0.3
	routerWeightTimeSlot = 0.2
	routerWeightPriority = 0.1
	routerGreedyFloor    = 30.0
)

// Orchestrator layers the external providers over the local engine.
// Provider unavailability is an expected state handled by degrading a
// tier, never an error surfaced to the caller.
type Orchestrator struct {
	Opt          *Optimizer
	Router       *provider.Router
	Solver       *provider.Solver
	Logger       zerolog.Logger
	ProbeTimeout time.Duration
}

func NewOrchestrator(opt *Optimizer, router *provider.Router, solver *provider.Solver, logger zerolog.Logger, probeTimeout time.Duration) *Orchestrator {
	if probeTimeout <= 0 {
		probeTimeout = 3 * time.Second
	}
	return &Orchestrator{Opt: opt, Router: router, Solver: solver, Logger: logger, ProbeTimeout: probeTimeout}
}

func (c *Orchestrator) probe(ctx context.Context, check func(context.Context) bool) bool {
	probeCtx, cancel := context.WithTimeout(ctx, c.ProbeTimeout)
	defer cancel()
	return check(probeCtx)
}

// SmartOptimize runs the tiered optimization: the external VRP solver
// when reachable, the road-router greedy otherwise, the offline local
// solver as the floor. It always returns a result.
func (c *Orchestrator) SmartOptimize(ctx context.Context, trips []models.Trip, vehicles []models.Vehicle, opts SmartOptions) models.NormalizedResult {
	expanded := c.Opt.ExpandWithReturns(trips)

	mode := opts.Mode
	if mode == "" {
		mode = ModeAuto
	}

	if mode == ModeSolver || mode == ModeAuto {
		if c.Solver != nil && len(c.Solver.URLs) > 0 && c.probe(ctx, c.Solver.Available) {
			if res, ok := c.solveWithSolver(ctx, expanded, vehicles); ok {
				return res
			}
			c.Logger.Warn().Msg("solver tier failed, degrading")
		} else if mode == ModeSolver {
			c.Logger.Warn().Msg("solver pinned but unavailable, degrading")
		}
	}

	if mode == ModeRouter || mode == ModeAuto || mode == ModeSolver {
		if c.Router != nil && len(c.Router.URLs) > 0 && c.probe(ctx, c.Router.Available) {
			return c.solveWithRouter(ctx, expanded, vehicles)
		}
		if mode == ModeRouter {
			c.Logger.Warn().Msg("router pinned but unavailable, degrading")
		}
	}

	res := c.Opt.FallbackVRPSolve(ctx, expanded, vehicles)
	res.Fallback = mode != ModeLocal
	return res
}

// solveWithSolver builds a shipment problem (vehicle start, trip
// pickup, trip delivery), feeds it the router's travel matrix, and
// normalizes the solver's routes. A malformed or error response
// degrades to the next tier instead of failing.
func (c *Orchestrator) solveWithSolver(ctx context.Context, trips []models.Trip, vehicles []models.Vehicle) (models.NormalizedResult, bool) {
	active := make([]models.Vehicle, 0, len(vehicles))
	for _, v := range vehicles {
		if v.Status != models.StatusMaintenance {
			active = append(active, v)
		}
	}
	if len(active) == 0 || len(trips) == 0 {
		return models.NormalizedResult{}, false
	}

	// Coordinate layout: one start per vehicle, then pickup and
	// delivery per trip.
	coords := make([]models.Coordinates, 0, len(active)+2*len(trips))
	for _, v := range active {
		coords = append(coords, c.Opt.resolveCoordinates(ctx, v.CurrentLocation, v.Coordinates))
	}
	pickupIdx := make([]int, len(trips))
	deliveryIdx := make([]int, len(trips))
	for i, t := range trips {
		pickupIdx[i] = len(coords)
		coords = append(coords, c.Opt.resolveCoordinates(ctx, t.Pickup, t.PickupCoordinates))
		deliveryIdx[i] = len(coords)
		coords = append(coords, c.Opt.resolveCoordinates(ctx, t.Destination, t.DestinationCoordinates))
	}

	var matrix provider.MatrixResult
	if c.Router != nil && len(c.Router.URLs) > 0 {
		matrix = c.Router.MatrixOrEstimate(ctx, coords)
	} else {
		matrix = provider.EstimateMatrix(coords)
	}

	problem := provider.SolverRequest{
		Matrices: map[string]provider.SolverMatrix{
			"car": {Durations: matrix.Durations, Distances: matrix.Distances},
		},
	}
	for i, v := range active {
		problem.Vehicles = append(problem.Vehicles, provider.SolverVehicle{
			ID:    v.ID,
			Start: []float64{coords[i].Lng, coords[i].Lat},
		})
	}
	for i, t := range trips {
		shipment := provider.SolverShipment{
			Pickup:   provider.SolverStepSpec{ID: t.ID, LocationIndex: pickupIdx[i], Service: defaultServiceMinutes * 60},
			Delivery: provider.SolverStepSpec{ID: t.ID, LocationIndex: deliveryIdx[i]},
			Priority: solverPriority(t.Priority),
		}
		if appt := utils.ParseClock(t.AppointmentTime); appt >= 0 {
			// A half-hour window on either side of the appointment.
			shipment.Pickup.TimeWindows = [][]int{{(appt - 30) * 60, (appt + 30) * 60}}
		}
		problem.Shipments = append(problem.Shipments, shipment)
	}

	solution, err := c.Solver.Solve(ctx, problem)
	if err != nil {
		c.Logger.Warn().Err(err).Msg("solver request failed")
		return models.NormalizedResult{}, false
	}

	return c.normalizeSolverResult(ctx, solution, trips, active), true
}

func solverPriority(priority string) int {
	switch priority {
	case models.PriorityUrgent:
		return 100
	case models.PriorityHigh:
		return 50
	case models.PriorityNormal:
		return 10
	default:
		return 1
	}
}

func (c *Orchestrator) normalizeSolverResult(ctx context.Context, solution provider.SolverResponse, trips []models.Trip, vehicles []models.Vehicle) models.NormalizedResult {
	tripByID := make(map[int]models.Trip, len(trips))
	for _, t := range trips {
		tripByID[t.ID] = t
	}

	assignedTo := make(map[int]int)
	var routes []models.VehicleRoute
	for _, route := range solution.Routes {
		vehicle, ok := vehicleByID(vehicles, route.Vehicle)
		if !ok {
			continue
		}
		var ids []int
		for _, step := range route.Steps {
			if step.Type != "pickup" {
				continue
			}
			id := step.ID
			if id == 0 {
				id = step.Job
			}
			if _, known := tripByID[id]; !known {
				continue
			}
			ids = append(ids, id)
			assignedTo[id] = vehicle.ID
		}
		if len(ids) == 0 {
			continue
		}
		routes = append(routes, models.VehicleRoute{
			VehicleID:   vehicle.ID,
			VehicleName: vehicle.Name,
			TripIDs:     ids,
			DistanceKm:  math.Round(route.Distance/100) / 10,
			DurationMin: int(route.Duration / 60),
		})
	}

	unassignedSet := make(map[int]bool, len(solution.Unassigned))
	for _, u := range solution.Unassigned {
		unassignedSet[u.ID] = true
	}

	results := make([]models.TripResult, 0, len(trips))
	var unassigned []int
	working := make(map[int][]models.Trip)
	for _, t := range trips {
		vid, ok := assignedTo[t.ID]
		if !ok || unassignedSet[t.ID] {
			unassigned = append(unassigned, t.ID)
			results = append(results, models.TripResult{
				Trip:   t,
				Status: models.TripUnassigned,
				Reason: "rejected by solver",
			})
			continue
		}
		vehicle, _ := vehicleByID(vehicles, vid)
		score := c.Opt.CalculateOptimizationScore(ctx, t, vehicle, working[vid])
		working[vid] = append(working[vid], t)
		results = append(results, models.TripResult{
			Trip:        t,
			Status:      models.TripAssigned,
			VehicleID:   vid,
			VehicleName: vehicle.Name,
			Score:       &score,
		})
	}

	c.Logger.Info().Int("trips", len(trips)).Int("unassigned", len(unassigned)).
		Str("algorithm", ModeSolver).Msg("smart optimization complete")

	return models.NormalizedResult{
		Results:    results,
		Summary:    buildSummary(results),
		Algorithm:  ModeSolver,
		Routes:     routes,
		Unassigned: unassigned,
	}
}

// solveWithRouter is the middle tier: greedy assignment like the local
// fallback but scored with real road durations from the router. The
// duration weight dominates because road time is the reliable signal
// at this tier.
func (c *Orchestrator) solveWithRouter(ctx context.Context, trips []models.Trip, vehicles []models.Vehicle) models.NormalizedResult {
	working := make(map[int][]models.Trip, len(vehicles))
	for _, v := range vehicles {
		working[v.ID] = append([]models.Trip(nil), v.Trips...)
	}

	sorted := SortTripsForBatch(trips)
	results := make([]models.TripResult, 0, len(sorted))
	var unassigned []int

	for _, trip := range sorted {
		pickup := c.Opt.resolveCoordinates(ctx, trip.Pickup, trip.PickupCoordinates)
		dest := c.Opt.resolveCoordinates(ctx, trip.Destination, trip.DestinationCoordinates)

		bestID := -1
		bestComposite := 0.0
		var bestScore models.OptimizationScore
		for _, v := range vehicles {
			if v.Status == models.StatusMaintenance {
				continue
			}
			if len(CheckTimeConflicts(trip, working[v.ID])) > 0 {
				continue
			}
			vehicleLoc := c.Opt.resolveCoordinates(ctx, v.CurrentLocation, v.Coordinates)
			road := c.Router.RouteOrEstimate(ctx, []models.Coordinates{vehicleLoc, pickup, dest})

			composite := float64(CalculateDistanceScore(road.DistanceKm))*routerWeightDuration +
				float64(GetVehicleTypeScore(trip.VehicleTypeRequired, v.Type))*routerWeightType +
				float64(CalculateTimeSlotScore(trip, working[v.ID]))*routerWeightTimeSlot +
				float64(GetPriorityScore(trip.Priority))*routerWeightPriority
			if composite <= routerGreedyFloor || composite <= bestComposite {
				continue
			}

			score := c.Opt.CalculateOptimizationScore(ctx, trip, v, working[v.ID])
			score.Details.TotalDistance = roundKm(road.DistanceKm)
			score.Details.TotalTime = road.DurationMinutes
			score.Score = int(math.Round(composite))

			bestID = v.ID
			bestComposite = composite
			bestScore = score
		}

		if bestID < 0 {
			unassigned = append(unassigned, trip.ID)
			results = append(results, models.TripResult{
				Trip:   trip,
				Status: models.TripUnassigned,
				Reason: "no vehicle above router-greedy threshold",
			})
			continue
		}

		working[bestID] = append(working[bestID], trip)
		vehicle, _ := vehicleByID(vehicles, bestID)
		score := bestScore
		results = append(results, models.TripResult{
			Trip:        trip,
			Status:      models.TripAssigned,
			VehicleID:   bestID,
			VehicleName: vehicle.Name,
			Score:       &score,
		})
	}

	routes := c.Opt.buildRoutes(ctx, vehicles, working)

	c.Logger.Info().Int("trips", len(trips)).Int("unassigned", len(unassigned)).
		Str("algorithm", ModeRouter).Msg("smart optimization complete")

	return models.NormalizedResult{
		Results:    results,
		Summary:    buildSummary(results),
		Algorithm:  ModeRouter,
		Routes:     routes,
		Unassigned: unassigned,
	}
}

// ProviderStatus reports the reachability of each external provider.
type ProviderStatus struct {
	Router bool `json:"router"`
	Solver bool `json:"solver"`
}

func (c *Orchestrator) Status(ctx context.Context) ProviderStatus {
	status := ProviderStatus{}
	if c.Router != nil && len(c.Router.URLs) > 0 {
		status.Router = c.probe(ctx, c.Router.Available)
	}
	if c.Solver != nil && len(c.Solver.URLs) > 0 {
		status.Solver = c.probe(ctx, c.Solver.Available)
	}
	return status
}

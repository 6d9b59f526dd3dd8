package models

// Vehicle types. VSL is the French "véhicule sanitaire léger", a seated
// medical transport car.
const (
	VehicleAmbulance = "Ambulance"
	VehicleVSL       = "VSL"
	VehicleTaxi      = "Taxi"
)

const (
	PriorityUrgent = "urgent"
	PriorityHigh   = "high"
	PriorityNormal = "normal"
	PriorityLow    = "low"
)

const (
	StatusAvailable   = "available"
	StatusBusy        = "busy"
	StatusMaintenance = "maintenance"
)

// DefaultMaxWaitMinutes is how long a patient may wait for a generated
// return pickup when the trip does not say otherwise.
const DefaultMaxWaitMinutes = 240

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Trip is one patient transport request. Times are canonical "HH:MM"
// strings; coalescing of alternate time fields happens at the HTTP
// boundary, never inside the engine.
type Trip struct {
	ID                     int          `json:"id"`
	Patient                string       `json:"patient"`
	Pickup                 string       `json:"pickup"`
	Destination            string       `json:"destination"`
	PickupCoordinates      *Coordinates `json:"pickup_coordinates,omitempty"`
	DestinationCoordinates *Coordinates `json:"destination_coordinates,omitempty"`
	AppointmentTime        string       `json:"appointment_time"`
	ReturnTime             string       `json:"return_time,omitempty"`
	Duration               int          `json:"duration"`
	VehicleTypeRequired    string       `json:"vehicle_type_required"`
	Priority               string       `json:"priority"`
	IsReturnTrip           bool         `json:"is_return_trip"`
	OriginalTripID         int          `json:"original_trip_id,omitempty"`
	EarliestPickupTime     string       `json:"earliest_pickup_time,omitempty"`
	MaxWaitMinutes         int          `json:"max_wait_minutes,omitempty"`
}

type Vehicle struct {
	ID              int          `json:"id"`
	Name            string       `json:"name"`
	Type            string       `json:"type"`
	Status          string       `json:"status"`
	CurrentLocation string       `json:"current_location,omitempty"`
	Coordinates     *Coordinates `json:"coordinates,omitempty"`
	Trips           []Trip       `json:"trips,omitempty"`
}

const (
	ConflictTimeOverlap = "time_overlap"
	SeverityHigh        = "high"
	SeverityMedium      = "medium"
)

type Conflict struct {
	Type                  string `json:"type"`
	ConflictingTrip       Trip   `json:"conflicting_trip"`
	TimeDifferenceMinutes int    `json:"time_difference_minutes"`
	Severity              string `json:"severity"`
}

// ScoreDetails carries the sub-scores and derived estimates behind one
// composite optimization score.
type ScoreDetails struct {
	VehicleTypeScore int        `json:"vehicle_type_score"`
	TimeSlotScore    int        `json:"time_slot_score"`
	DistanceScore    int        `json:"distance_score"`
	PriorityScore    int        `json:"priority_score"`
	DistanceToPickup float64    `json:"distance_to_pickup_km"`
	TripDistance     float64    `json:"trip_distance_km"`
	TotalDistance    float64    `json:"total_distance_km"`
	TotalTime        int        `json:"total_time_minutes"`
	EstimatedArrival string     `json:"estimated_arrival,omitempty"`
	FuelCost         float64    `json:"fuel_cost_eur"`
	Conflicts        []Conflict `json:"conflicts"`
	Error            string     `json:"error,omitempty"`
}

type OptimizationScore struct {
	Score   int          `json:"score"`
	Details ScoreDetails `json:"details"`
}

// Candidate is one ranked (vehicle, score) pair from the resolver.
type Candidate struct {
	Vehicle       Vehicle           `json:"vehicle"`
	Score         OptimizationScore `json:"score"`
	EnhancedScore float64           `json:"enhanced_score"`
}

type AssignmentResult struct {
	Success      bool        `json:"success"`
	Trip         Trip        `json:"trip"`
	Recommended  *Candidate  `json:"recommended,omitempty"`
	Alternatives []Candidate `json:"alternatives,omitempty"`
	Forced       bool        `json:"forced,omitempty"`
	LowScore     bool        `json:"low_score,omitempty"`
	Warning      string      `json:"warning,omitempty"`
	Message      string      `json:"message"`
}

const (
	StrategyTimeAdjustment     = "time_adjustment"
	StrategyVehicleChange      = "vehicle_change"
	StrategyRescheduleExisting = "reschedule_existing"
	StrategyTripOptimization   = "trip_optimization"
)

// ResolutionOption is one concrete remedy inside a strategy, ranked
// best-first by its generator.
type ResolutionOption struct {
	VehicleID     int     `json:"vehicle_id,omitempty"`
	VehicleName   string  `json:"vehicle_name,omitempty"`
	NewTime       string  `json:"new_time,omitempty"`
	RescheduledID int     `json:"rescheduled_trip_id,omitempty"`
	CombinedID    int     `json:"combined_trip_id,omitempty"`
	Score         float64 `json:"score"`
	ShiftMinutes  int     `json:"shift_minutes,omitempty"`
	Impact        string  `json:"impact"`
	Description   string  `json:"description"`
}

type ResolutionStrategy struct {
	Type        string             `json:"type"`
	Description string             `json:"description"`
	Options     []ResolutionOption `json:"options"`
}

type Resolution struct {
	Trip                 Trip                 `json:"trip"`
	ResolutionStrategies []ResolutionStrategy `json:"resolution_strategies"`
}

const (
	TripAssigned   = "assigned"
	TripUnassigned = "unassigned"
)

// TripResult is the per-trip outcome of a batch run. Every input trip
// appears exactly once, assigned or not.
type TripResult struct {
	Trip                Trip               `json:"trip"`
	Status              string             `json:"status"`
	VehicleID           int                `json:"vehicle_id,omitempty"`
	VehicleName         string             `json:"vehicle_name,omitempty"`
	Score               *OptimizationScore `json:"score,omitempty"`
	Forced              bool               `json:"forced,omitempty"`
	ResolutionApplied   *ResolutionOption  `json:"resolution_applied,omitempty"`
	ResolutionStrategy  string             `json:"resolution_strategy,omitempty"`
	AttemptedStrategies []string           `json:"attempted_strategies,omitempty"`
	Reason              string             `json:"reason,omitempty"`
}

type BatchSummary struct {
	TotalTrips        int     `json:"total_trips"`
	Assigned          int     `json:"assigned"`
	Unassigned        int     `json:"unassigned"`
	AssignmentRate    float64 `json:"assignment_rate"`
	TotalDistanceKm   float64 `json:"total_distance_km"`
	TotalTimeMinutes  int     `json:"total_time_minutes"`
	AverageScore      float64 `json:"average_score"`
	EstimatedFuelCost float64 `json:"estimated_fuel_cost_eur"`
}

type BatchResult struct {
	Results []TripResult `json:"results"`
	Summary BatchSummary `json:"summary"`
}

// VehicleRoute is one vehicle's ordered trip sequence in a normalized
// smart-optimize result.
type VehicleRoute struct {
	VehicleID   int     `json:"vehicle_id"`
	VehicleName string  `json:"vehicle_name"`
	TripIDs     []int   `json:"trip_ids"`
	DistanceKm  float64 `json:"distance_km"`
	DurationMin int     `json:"duration_minutes"`
}

// NormalizedResult is the one shape every orchestration tier reduces
// to, whichever algorithm produced it.
type NormalizedResult struct {
	Results    []TripResult   `json:"results"`
	Summary    BatchSummary   `json:"summary"`
	Algorithm  string         `json:"algorithm"`
	Fallback   bool           `json:"fallback,omitempty"`
	Routes     []VehicleRoute `json:"routes,omitempty"`
	Unassigned []int          `json:"unassigned,omitempty"`
}

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Solver request/response wire types, VROOM-compatible.

type SolverVehicle struct {
	ID         int       `json:"id"`
	Start      []float64 `json:"start,omitempty"`
	End        []float64 `json:"end,omitempty"`
	Capacity   []int     `json:"capacity,omitempty"`
	Skills     []int     `json:"skills,omitempty"`
	TimeWindow []int     `json:"time_window,omitempty"`
}

type SolverStepSpec struct {
	ID            int     `json:"id"`
	LocationIndex int     `json:"location_index"`
	TimeWindows   [][]int `json:"time_windows,omitempty"`
	Service       int     `json:"service,omitempty"`
}

type SolverShipment struct {
	Pickup   SolverStepSpec `json:"pickup"`
	Delivery SolverStepSpec `json:"delivery"`
	Priority int            `json:"priority,omitempty"`
	Skills   []int          `json:"skills,omitempty"`
}

type SolverMatrix struct {
	Durations [][]float64 `json:"durations"`
	Distances [][]float64 `json:"distances,omitempty"`
}

type SolverRequest struct {
	Vehicles  []SolverVehicle         `json:"vehicles"`
	Shipments []SolverShipment        `json:"shipments,omitempty"`
	Matrices  map[string]SolverMatrix `json:"matrices,omitempty"`
}

type SolverStep struct {
	Type    string `json:"type"`
	ID      int    `json:"id,omitempty"`
	Job     int    `json:"job,omitempty"`
	Arrival int    `json:"arrival"`
	Service int    `json:"service,omitempty"`
}

type SolverRoute struct {
	Vehicle  int          `json:"vehicle"`
	Steps    []SolverStep `json:"steps"`
	Distance float64      `json:"distance"`
	Duration float64      `json:"duration"`
}

type SolverUnassigned struct {
	ID   int `json:"id"`
	Code int `json:"code,omitempty"`
}

type SolverSummary struct {
	Cost           float64        `json:"cost"`
	Unassigned     int            `json:"unassigned"`
	ComputingTimes map[string]int `json:"computing_times,omitempty"`
}

type SolverResponse struct {
	Code       int                `json:"code"`
	Routes     []SolverRoute      `json:"routes"`
	Unassigned []SolverUnassigned `json:"unassigned"`
	Summary    SolverSummary      `json:"summary"`
}

// Solver talks to VROOM-compatible VRP solver servers. Like the
// Router, URLs are tried in order and any single server's failure just
// advances to the next one.
type Solver struct {
	URLs    []string
	Timeout time.Duration
	Client  *http.Client
	Logger  zerolog.Logger
}

func (s *Solver) client() *http.Client {
	if s.Client == nil {
		timeout := s.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		s.Client = &http.Client{Timeout: timeout}
	}
	return s.Client
}

// Available probes each configured solver with a health request.
func (s *Solver) Available(ctx context.Context) bool {
	for _, base := range s.URLs {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(base, "/")+"/health", nil)
		if err != nil {
			continue
		}
		resp, err := s.client().Do(req)
		if err != nil {
			continue
		}
		resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return true
		}
	}
	return false
}

// Solve posts the problem to each configured server in order until one
// returns a well-formed solution.
func (s *Solver) Solve(ctx context.Context, problem SolverRequest) (SolverResponse, error) {
	body, err := json.Marshal(problem)
	if err != nil {
		return SolverResponse{}, err
	}

	var lastErr error
	for _, base := range s.URLs {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(base, "/"), bytes.NewReader(body))
		if err != nil {
			lastErr = err
			continue
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client().Do(req)
		if err != nil {
			s.Logger.Warn().Err(err).Str("url", base).Msg("solver request failed, trying next")
			lastErr = err
			continue
		}
		var decoded SolverResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&decoded)
		resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			lastErr = fmt.Errorf("solver http error: %s", resp.Status)
			continue
		}
		if decodeErr != nil {
			lastErr = decodeErr
			continue
		}
		if decoded.Code != 0 {
			lastErr = fmt.Errorf("solver error code %d", decoded.Code)
			continue
		}
		return decoded, nil
	}
	return SolverResponse{}, fmt.Errorf("all solver servers failed: %w", lastErr)
}

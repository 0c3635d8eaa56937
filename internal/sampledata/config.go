// Package sampledata generates synthetic stamping datasets and probes a
// running dashboard service with them.
package sampledata

import (
	"errors"
	"time"
)

// Sentinel errors.
var (
	ErrUnknownFormat = errors.New("unknown output format")
	ErrInvalidConfig = errors.New("invalid generator config")
	ErrProbeFailed   = errors.New("probe failed")
)

// Config holds configuration for dataset generation.
type Config struct {
	Machines         int           // Number of stamping machines
	Parts            int           // Number of distinct part numbers
	Tools            int           // Number of distinct tool numbers
	PointsPerMachine int           // Measurement timestamps per machine
	Interval         time.Duration // Spacing between measurement timestamps
	Start            time.Time     // First measurement timestamp
	Seed             uint64        // Random seed; equal seeds give equal data
}

// DefaultConfig returns a small, reproducible configuration.
func DefaultConfig() Config {
	return Config{
		Machines:         8,
		Parts:            5,
		Tools:            6,
		PointsPerMachine: 240,
		Interval:         time.Minute,
		Start:            time.Date(2024, 1, 15, 6, 0, 0, 0, time.UTC),
		Seed:             1,
	}
}

func (c Config) validate() error {
	if c.Machines <= 0 || c.Parts <= 0 || c.Tools <= 0 {
		return errors.Join(ErrInvalidConfig, errors.New("machines, parts and tools must be positive"))
	}
	if c.PointsPerMachine < 0 {
		return errors.Join(ErrInvalidConfig, errors.New("points per machine must not be negative"))
	}
	if c.Interval <= 0 {
		return errors.Join(ErrInvalidConfig, errors.New("interval must be positive"))
	}
	return nil
}

// ProbeConfig holds configuration for probing a running service.
type ProbeConfig struct {
	BaseURL string        // Base URL of the service
	Workers int           // Concurrent requests
	Timeout time.Duration // HTTP request timeout
	Verbose bool          // Log every request
}

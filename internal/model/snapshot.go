package model

import "time"

// CircuitSnapshot is a point-in-time view of one breaker, exposed through
// the admin API.
type CircuitSnapshot struct {
	Target          string     `json:"target"`
	State           string     `json:"state"`
	FailureCount    int        `json:"failure_count"`
	RequestVolume   int        `json:"request_volume"`
	ErrorRate       float64    `json:"error_rate"`
	LastFailureTime *time.Time `json:"last_failure_time,omitempty"`
	NextAttemptTime *time.Time `json:"next_attempt_time,omitempty"`
	ProbeInFlight   bool       `json:"probe_in_flight"`
}

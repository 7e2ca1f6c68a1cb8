package models

import "time"

// SystemMetricsSnapshot aggregates instrumentation counters for the ops
// endpoint, complementing the Prometheus scrape.
type SystemMetricsSnapshot struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	GridsGenerated           uint64    `json:"grids_generated"`
	TimetablesPublished      uint64    `json:"timetables_published"`
	ConflictsDetected        uint64    `json:"conflicts_detected"`
	SubstitutionQueries      uint64    `json:"substitution_queries"`
	LockContention           uint64    `json:"lock_contention"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

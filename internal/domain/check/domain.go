package check

import "time"

// Check is one immutable probe observation.
type Check struct {
	ID         int64     `json:"id"`
	EndpointID int64     `json:"endpoint_id"`
	CheckedAt  time.Time `json:"checked_at"`
	Up         bool      `json:"up"`
	LatencyMs  int64     `json:"latency_ms"`
	StatusCode int       `json:"status_code"` // 0 when no response was received
}

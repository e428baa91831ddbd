package incident

import (
	"slices"
	"time"
)

type Status string

const (
	StatusInvestigating Status = "investigating"
	StatusIdentified    Status = "identified"
	StatusMonitoring    Status = "monitoring"
	StatusResolved      Status = "resolved"
)

type Impact string

const (
	ImpactNone     Impact = "none"
	ImpactMinor    Impact = "minor"
	ImpactMajor    Impact = "major"
	ImpactCritical Impact = "critical"
)

type Update struct {
	At      time.Time `json:"at"`
	Status  Status    `json:"status"`
	Message string    `json:"message"`
}

type Incident struct {
	ID                 int64      `json:"id"`
	StatusPageID       int64      `json:"status_page_id"`
	Title              string     `json:"title"`
	Status             Status     `json:"status"`
	Impact             Impact     `json:"impact"`
	StartedAt          time.Time  `json:"started_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	ResolvedAt         *time.Time `json:"resolved_at,omitempty"`
	AffectedComponents []int64    `json:"affected_components"`
	Timeline           []Update   `json:"timeline,omitempty"`
}

func (i *Incident) Affects(endpointID int64) bool {
	return slices.Contains(i.AffectedComponents, endpointID)
}

func (i *Incident) Resolved() bool { return i.Status == StatusResolved }

// Resolve moves the incident to resolved. Already resolved incidents are left untouched.
func (i *Incident) Resolve(at time.Time, message string) bool {
	if i.Resolved() {
		return false
	}
	i.Status = StatusResolved
	i.UpdatedAt = at
	i.ResolvedAt = &at
	i.Timeline = append(i.Timeline, Update{At: at, Status: StatusResolved, Message: message})
	return true
}

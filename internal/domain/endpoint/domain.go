package endpoint

import "time"

type Status string

const (
	StatusUp   Status = "up"
	StatusDown Status = "down"
)

func StatusOf(up bool) Status {
	if up {
		return StatusUp
	}
	return StatusDown
}

type Endpoint struct {
	ID            int64         `json:"id"`
	UserID        int64         `json:"user_id"`
	Name          string        `json:"name"`
	URL           string        `json:"url"`
	Status        Status        `json:"status"`
	Uptime        float64       `json:"uptime"`
	LastCheck     *time.Time    `json:"last_check"`
	Interval      time.Duration `json:"interval"`
	Timeout       time.Duration `json:"timeout"`
	Active        bool          `json:"active"`
	StatusPageIDs []int64       `json:"status_page_ids"`
}

// Health is the derived cache written back after every recorded check.
type Health struct {
	Status    Status
	Uptime    float64
	LastCheck time.Time
}

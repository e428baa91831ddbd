package statuspage

type Status string

const (
	StatusOperational Status = "operational"
	StatusDegraded    Status = "degraded"
	StatusOutage      Status = "outage"
)

type StatusPage struct {
	ID          int64   `json:"id"`
	UserID      int64   `json:"user_id"`
	Slug        string  `json:"slug"`
	Name        string  `json:"name"`
	Status      Status  `json:"status"`
	EndpointIDs []int64 `json:"endpoint_ids"`
}

package event

import (
	"time"

	"github.com/NordCoder/Vigil/internal/domain/endpoint"
	"github.com/NordCoder/Vigil/internal/domain/statuspage"
)

type Type string

const (
	TypeEndpointUpdate Type = "endpoint_update"
	TypePageUpdate     Type = "page_update"
	TypeConnected      Type = "connected"
)

// Event is one push message. Exactly one payload field is set, matching Type.
type Event struct {
	Type     Type
	Endpoint *EndpointUpdate
	Page     *PageUpdate
}

type EndpointUpdate struct {
	EndpointID     int64           `json:"endpoint_id"`
	Name           string          `json:"name"`
	URL            string          `json:"url"`
	Status         endpoint.Status `json:"status"`
	PreviousStatus endpoint.Status `json:"previous_status"`
	Uptime         float64         `json:"uptime"`
	LatencyMs      int64           `json:"latency_ms"`
	CheckedAt      time.Time       `json:"checked_at"`
	StatusChanged  bool            `json:"status_changed"`
}

type PageUpdate struct {
	PageID     int64             `json:"page_id"`
	Slug       string            `json:"slug"`
	Status     statuspage.Status `json:"status"`
	EndpointID int64             `json:"endpoint_id"`
}

func NewEndpointUpdate(u EndpointUpdate) Event {
	return Event{Type: TypeEndpointUpdate, Endpoint: &u}
}

func NewPageUpdate(u PageUpdate) Event {
	return Event{Type: TypePageUpdate, Page: &u}
}

func Connected() Event { return Event{Type: TypeConnected} }

// Key groups events of one endpoint together. Zero for connected.
func (e Event) Key() int64 {
	switch {
	case e.Endpoint != nil:
		return e.Endpoint.EndpointID
	case e.Page != nil:
		return e.Page.EndpointID
	}
	return 0
}

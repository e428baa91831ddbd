package scheduler

import (
	"time"

	"github.com/NordCoder/Vigil/internal/domain/endpoint"
)

// IsDue reports whether ep should be probed at now: never checked, or its interval elapsed.
func IsDue(ep *endpoint.Endpoint, now time.Time) bool {
	if ep.LastCheck == nil {
		return true
	}
	return !now.Before(ep.LastCheck.Add(ep.Interval))
}

func selectDue(eps []*endpoint.Endpoint, now time.Time) []*endpoint.Endpoint {
	var out []*endpoint.Endpoint
	for _, ep := range eps {
		if IsDue(ep, now) {
			out = append(out, ep)
		}
	}
	return out
}

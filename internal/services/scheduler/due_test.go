package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/NordCoder/Vigil/internal/domain/endpoint"
)

func TestIsDue(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	at := func(ago time.Duration) *time.Time {
		ts := now.Add(-ago)
		return &ts
	}

	cases := []struct {
		name string
		last *time.Time
		want bool
	}{
		{"never checked", nil, true},
		{"250s ago", at(250 * time.Second), false},
		{"301s ago", at(301 * time.Second), true},
		{"exactly one interval", at(300 * time.Second), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ep := &endpoint.Endpoint{Interval: 300 * time.Second, LastCheck: tc.last}
			assert.Equal(t, tc.want, IsDue(ep, now))
		})
	}
}

func TestSelectDue(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-10 * time.Second)
	eps := []*endpoint.Endpoint{
		{ID: 1, Interval: time.Minute},
		{ID: 2, Interval: time.Minute, LastCheck: &recent},
		{ID: 3, Interval: 5 * time.Second, LastCheck: &recent},
	}

	due := selectDue(eps, now)
	ids := make([]int64, 0, len(due))
	for _, ep := range due {
		ids = append(ids, ep.ID)
	}
	assert.Equal(t, []int64{1, 3}, ids)
}

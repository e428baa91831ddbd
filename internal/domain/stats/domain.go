package stats

import "time"

type HourlyLatency struct {
	Hour  time.Time `json:"hour"`
	AvgMs float64   `json:"avg_ms"`
	P95Ms int64     `json:"p95_ms"`
	P99Ms int64     `json:"p99_ms"`
	Count int       `json:"count"`
}

type DailyUptime struct {
	Day    time.Time `json:"day"`
	Uptime float64   `json:"uptime"`
	Total  int       `json:"total"`
}

type StatusClass string

const (
	Class2xx StatusClass = "2xx"
	Class3xx StatusClass = "3xx"
	Class4xx StatusClass = "4xx"
	Class5xx StatusClass = "5xx"
)

var Classes = []StatusClass{Class2xx, Class3xx, Class4xx, Class5xx}

type StatusClassCount struct {
	Class StatusClass `json:"class"`
	Count int         `json:"count"`
}

type HourlyChecks struct {
	Hour    time.Time `json:"hour"`
	Success int       `json:"success"`
	Failure int       `json:"failure"`
}

type Band string

const (
	Band0to50    Band = "0-50"
	Band51to100  Band = "51-100"
	Band101to200 Band = "101-200"
	Band201to500 Band = "201-500"
	BandOver500  Band = "500+"
)

var Bands = []Band{Band0to50, Band51to100, Band101to200, Band201to500, BandOver500}

type ResponseBand struct {
	Band  Band `json:"band"`
	Count int  `json:"count"`
}

// Stats is the read-side view of one endpoint. Never persisted.
type Stats struct {
	EndpointID    int64              `json:"endpoint_id"`
	GeneratedAt   time.Time          `json:"generated_at"`
	HistoryDays   int                `json:"history_days"`
	HourlyLatency []HourlyLatency    `json:"hourly_latency"`
	DailyUptime   []DailyUptime      `json:"daily_uptime"`
	StatusClasses []StatusClassCount `json:"status_classes"`
	HourlyChecks  []HourlyChecks     `json:"hourly_checks"`
	ResponseTimes []ResponseBand     `json:"response_times"`
}

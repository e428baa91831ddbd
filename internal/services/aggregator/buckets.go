package aggregator

import (
	"math"
	"slices"
	"time"

	"github.com/NordCoder/Vigil/internal/domain/check"
	"github.com/NordCoder/Vigil/internal/domain/stats"
)

const (
	day              = 24 * time.Hour
	statusClassRange = 30 * day
)

// Uptime is 100*up/total rounded to two decimals; no data counts as fully up.
func Uptime(up, total int) float64 {
	if total <= 0 {
		return 100
	}
	return round2(100 * float64(up) / float64(total))
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

// percentile returns the element at floor(n*p) of an ascending slice, clamped to the last one.
func percentile(sorted []int64, p float64) int64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(math.Floor(float64(n) * p))
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}

func hourStart(t time.Time) time.Time { return t.UTC().Truncate(time.Hour) }

func dayStart(t time.Time) time.Time { return t.UTC().Truncate(day) }

// hourlyLatency covers the 24 hours ending with the current one, oldest first.
func hourlyLatency(checks []check.Check, now time.Time) []stats.HourlyLatency {
	cur := hourStart(now)
	first := cur.Add(-23 * time.Hour)
	lat := make([][]int64, 24)
	for _, c := range checks {
		at := c.CheckedAt.UTC()
		if at.Before(first) || !at.Before(cur.Add(time.Hour)) {
			continue
		}
		i := int(at.Sub(first) / time.Hour)
		lat[i] = append(lat[i], c.LatencyMs)
	}

	out := make([]stats.HourlyLatency, 24)
	for i := range out {
		out[i].Hour = first.Add(time.Duration(i) * time.Hour)
		vs := lat[i]
		if len(vs) == 0 {
			continue
		}
		slices.Sort(vs)
		var sum int64
		for _, v := range vs {
			sum += v
		}
		out[i].Count = len(vs)
		out[i].AvgMs = round2(float64(sum) / float64(len(vs)))
		out[i].P95Ms = percentile(vs, 0.95)
		out[i].P99Ms = percentile(vs, 0.99)
	}
	return out
}

// dailyUptime covers days calendar days ending today, oldest first.
func dailyUptime(checks []check.Check, now time.Time, days int) []stats.DailyUptime {
	today := dayStart(now)
	first := today.Add(-time.Duration(days-1) * day)
	up := make([]int, days)
	total := make([]int, days)
	for _, c := range checks {
		at := c.CheckedAt.UTC()
		if at.Before(first) || !at.Before(today.Add(day)) {
			continue
		}
		i := int(at.Sub(first) / day)
		total[i]++
		if c.Up {
			up[i]++
		}
	}

	out := make([]stats.DailyUptime, days)
	for i := range out {
		out[i] = stats.DailyUptime{
			Day:    first.Add(time.Duration(i) * day),
			Uptime: Uptime(up[i], total[i]),
			Total:  total[i],
		}
	}
	return out
}

// classOf uses the recorded status code, falling back to the up flag when no response arrived.
func classOf(c check.Check) stats.StatusClass {
	switch {
	case c.StatusCode >= 500:
		return stats.Class5xx
	case c.StatusCode >= 400:
		return stats.Class4xx
	case c.StatusCode >= 300:
		return stats.Class3xx
	case c.StatusCode >= 200:
		return stats.Class2xx
	case c.Up:
		return stats.Class2xx
	}
	return stats.Class5xx
}

func statusClasses(checks []check.Check, now time.Time) []stats.StatusClassCount {
	since := now.Add(-statusClassRange)
	counts := map[stats.StatusClass]int{}
	for _, c := range checks {
		if c.CheckedAt.Before(since) {
			continue
		}
		counts[classOf(c)]++
	}
	out := make([]stats.StatusClassCount, 0, len(stats.Classes))
	for _, cl := range stats.Classes {
		out = append(out, stats.StatusClassCount{Class: cl, Count: counts[cl]})
	}
	return out
}

// hourlyChecks covers today's hours 00..23.
func hourlyChecks(checks []check.Check, now time.Time) []stats.HourlyChecks {
	today := dayStart(now)
	out := make([]stats.HourlyChecks, 24)
	for i := range out {
		out[i].Hour = today.Add(time.Duration(i) * time.Hour)
	}
	for _, c := range checks {
		at := c.CheckedAt.UTC()
		if at.Before(today) || !at.Before(today.Add(day)) {
			continue
		}
		i := at.Hour()
		if c.Up {
			out[i].Success++
		} else {
			out[i].Failure++
		}
	}
	return out
}

func bandOf(latencyMs int64) stats.Band {
	switch {
	case latencyMs <= 50:
		return stats.Band0to50
	case latencyMs <= 100:
		return stats.Band51to100
	case latencyMs <= 200:
		return stats.Band101to200
	case latencyMs <= 500:
		return stats.Band201to500
	}
	return stats.BandOver500
}

func responseTimes(checks []check.Check, now time.Time) []stats.ResponseBand {
	since := now.Add(-day)
	counts := map[stats.Band]int{}
	for _, c := range checks {
		if c.CheckedAt.Before(since) {
			continue
		}
		counts[bandOf(c.LatencyMs)]++
	}
	out := make([]stats.ResponseBand, 0, len(stats.Bands))
	for _, b := range stats.Bands {
		out = append(out, stats.ResponseBand{Band: b, Count: counts[b]})
	}
	return out
}

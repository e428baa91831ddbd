package clock

import "time"

type Clock interface {
	Now() time.Time
}

// System reports wall-clock time in UTC.
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

type Func func() time.Time

func (f Func) Now() time.Time { return f() }

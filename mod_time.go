package gekko

import (
	"time"
)

// Time is updated at the start of every pass.
type Time struct {
	Startup time.Time
	Time    time.Time
	Dt      time.Duration
	Frame   uint64

	now func() time.Time
}

// Elapsed returns the time since the App started.
func (t *Time) Elapsed() time.Duration {
	return t.Time.Sub(t.Startup)
}

type TimePlugin struct {
}

func (mod TimePlugin) Build(b *AppBuilder) {
	now := time.Now()
	b.AddResource(&Time{
		Startup: now,
		Time:    now,
		Dt:      0,
		now:     time.Now,
	})
	b.UseSystem(
		System(timeSystem).
			InStage(First).
			Label("time"),
	)
}

func timeSystem(timeResource *Time) {
	now := time.Now()
	if timeResource.now != nil {
		now = timeResource.now()
	}

	timeResource.Dt = now.Sub(timeResource.Time)
	timeResource.Time = now
	timeResource.Frame++
}

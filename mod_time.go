package murmur

import (
	"time"
)

type Time struct {
	Time    time.Time
	Dt      time.Duration
	Elapsed time.Duration
}

// DtSeconds returns the frame delta as float32 seconds, capped so a stall
// (debugger, window drag) does not produce one giant integration step.
func (t *Time) DtSeconds() float32 {
	dt := float32(t.Dt.Seconds())
	if dt > 0.1 {
		dt = 0.1
	}
	return dt
}

func (t *Time) ElapsedSeconds() float32 {
	return float32(t.Elapsed.Seconds())
}

type TimeModule struct {
}

func (mod TimeModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&Time{
		Time: time.Now(),
		Dt:   0,
	})
	cmd.UseSystem(
		System(timeSystem).
			InStage(Prelude),
	)
}

func timeSystem(timeResource *Time) {
	now := time.Now()

	timeResource.Dt = now.Sub(timeResource.Time)
	timeResource.Elapsed += timeResource.Dt
	timeResource.Time = now
}

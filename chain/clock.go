package chain

import "time"

//Clock represents a time keeping device
type Clock interface {
	Now() (t time.Time)
}

//WallClock implements time keeping by looking at the local wallclock
type WallClock struct{}

//NewWallClock creates a clock
func NewWallClock() *WallClock {
	return &WallClock{}
}

//Now reads the local time
func (c *WallClock) Now() time.Time { return time.Now() }

//StepClock is a deterministic clock that moves forward by a fixed step every
//time it is read, it is mostly used for testing
type StepClock struct {
	t    time.Time
	step time.Duration
}

//NewStepClock creates a clock that starts at 'start'
func NewStepClock(start time.Time, step time.Duration) *StepClock {
	return &StepClock{t: start, step: step}
}

//Now returns the current time and then advances the clock
func (c *StepClock) Now() (t time.Time) {
	t = c.t
	c.t = c.t.Add(c.step)
	return
}

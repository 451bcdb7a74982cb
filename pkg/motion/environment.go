package motion

import "time"

// Environment is the match the robot is running in.  Control loops poll
// Active every tick and pace themselves with Sleep.
type Environment interface {
	// Active is false once the match (or run) has been stopped.
	Active() bool
	Sleep(d time.Duration)
	Now() time.Time
}

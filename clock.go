package pushz

import "github.com/zoobzio/clockz"

// Clock provides time operations. Operators that schedule work (Eventloop,
// Throttle) take one so tests can drive them with clockz.NewFakeClock.
type Clock = clockz.Clock

// Timer represents a single event timer.
type Timer = clockz.Timer

// RealClock is the default Clock using standard time.
var RealClock Clock = clockz.RealClock

package app

import (
	"time"

	"mini-rt/internal/config"
)

// spinWindow is how close to the deadline the limiter stops sleeping and
// busy-waits instead
const spinWindow = 200 * time.Microsecond

// FPSLimiter paces the render loop to a frame rate cap
type FPSLimiter struct {
	limit func() int
	next  time.Time
}

// NewFPSLimiter creates a limiter that follows config.GetFPSLimit
func NewFPSLimiter() *FPSLimiter {
	return &FPSLimiter{limit: config.GetFPSLimit}
}

// Wait blocks until the next frame is due. A cap of 0 disables limiting.
func (f *FPSLimiter) Wait() {
	fps := f.limit()
	if fps <= 0 {
		f.next = time.Time{}
		return
	}
	target := time.Second / time.Duration(fps)

	if f.next.IsZero() {
		f.next = time.Now().Add(target)
	} else {
		f.next = f.next.Add(target)
	}

	for remaining := time.Until(f.next); remaining > 0; remaining = time.Until(f.next) {
		if remaining > spinWindow {
			time.Sleep(remaining - spinWindow)
		}
	}

	// Resync after a hitch instead of rendering a burst to catch up
	if late := -time.Until(f.next); late > target {
		f.next = time.Now().Add(target)
	}
}

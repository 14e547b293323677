package viewer

import (
	"time"

	"defview/internal/config"
)

// idleFPS caps the frame rate while the window is minimized.
const idleFPS = 30

// FPSLimiter paces the main loop to the configured frame rate.
type FPSLimiter struct {
	next time.Time
}

func NewFPSLimiter() *FPSLimiter {
	return &FPSLimiter{}
}

// Wait blocks until the next frame is due. It sleeps for most of the
// interval and spins for the last 200µs.
func (f *FPSLimiter) Wait(idle bool) {
	effectiveLimit := config.GetFPSLimit()
	if idle && (effectiveLimit <= 0 || effectiveLimit > idleFPS) {
		effectiveLimit = idleFPS
	}

	if effectiveLimit <= 0 {
		f.next = time.Time{}
		return
	}

	target := time.Second / time.Duration(effectiveLimit)

	if f.next.IsZero() {
		f.next = time.Now().Add(target)
	} else {
		f.next = f.next.Add(target)
	}

	for {
		remaining := time.Until(f.next)
		if remaining <= 0 {
			break
		}
		if remaining > 200*time.Microsecond {
			time.Sleep(remaining - 200*time.Microsecond)
		}
		if time.Until(f.next) <= 0 {
			break
		}
	}

	// resync after a hitch instead of rendering a burst of late frames
	if late := -time.Until(f.next); late > target {
		f.next = time.Now().Add(target)
	}
}

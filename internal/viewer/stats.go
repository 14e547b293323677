package viewer

import (
	"fmt"
	"time"

	"defview/internal/profiling"
)

// titleStats counts frames and formats the window title once per second.
type titleStats struct {
	base   string
	frames int
	last   time.Time
}

func newTitleStats(base string) *titleStats {
	return &titleStats{base: base, last: time.Now()}
}

// frame records a finished frame. It returns the new title when one is
// due.
func (s *titleStats) frame(now time.Time) (string, bool) {
	s.frames++
	elapsed := now.Sub(s.last)
	if elapsed < time.Second {
		return "", false
	}
	fps := int(float64(s.frames)/elapsed.Seconds() + 0.5)
	s.frames = 0
	s.last = now
	return fmt.Sprintf("%s | FPS: %d | frame %.2fms | passes %.2fms",
		s.base, fps,
		ms(profiling.Average("renderer.Draw")),
		ms(profiling.SumWithPrefix("pass."))), true
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

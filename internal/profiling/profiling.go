package profiling

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Per-frame CPU timing buckets. Every render pass records into its own
// bucket; the viewer reports the slowest ones.

// historyLen is the number of finished frames kept for averages.
const historyLen = 60

var (
	mu          sync.Mutex
	frameTotals = make(map[string]time.Duration)
	history     [historyLen]map[string]time.Duration
	head        int
	frames      int
)

// Track returns a stop function that records the elapsed time under the given name.
// Usage: defer profiling.Track("pass.Geometry")()
func Track(name string) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)
		mu.Lock()
		frameTotals[name] += d
		mu.Unlock()
	}
}

// ResetFrame clears current per-frame totals without keeping them.
func ResetFrame() {
	mu.Lock()
	frameTotals = make(map[string]time.Duration)
	mu.Unlock()
}

// EndFrame moves the current totals into the history and starts a new
// frame.
func EndFrame() {
	mu.Lock()
	history[head] = frameTotals
	head = (head + 1) % historyLen
	if frames < historyLen {
		frames++
	}
	frameTotals = make(map[string]time.Duration)
	mu.Unlock()
}

// Snapshot returns a copy of current per-frame totals.
func Snapshot() map[string]time.Duration {
	mu.Lock()
	defer mu.Unlock()
	out := make(map[string]time.Duration, len(frameTotals))
	for k, v := range frameTotals {
		out[k] = v
	}
	return out
}

// SumWithPrefix adds up the current totals whose name starts with prefix.
func SumWithPrefix(prefix string) time.Duration {
	mu.Lock()
	defer mu.Unlock()
	var sum time.Duration
	for k, v := range frameTotals {
		if strings.HasPrefix(k, prefix) {
			sum += v
		}
	}
	return sum
}

// Average returns the mean time per frame recorded under name over the
// finished frames in the history.
func Average(name string) time.Duration {
	mu.Lock()
	defer mu.Unlock()
	if frames == 0 {
		return 0
	}
	var sum time.Duration
	for i := 0; i < frames; i++ {
		sum += history[i][name]
	}
	return sum / time.Duration(frames)
}

// TopN formats top N durations from the current frame totals.
// Example: "pass.DirLight:4.2ms, pass.Geometry:2.1ms"
func TopN(n int) string {
	ss := Snapshot()
	type pair struct {
		name string
		dur  time.Duration
	}
	list := make([]pair, 0, len(ss))
	for k, v := range ss {
		list = append(list, pair{name: k, dur: v})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].dur == list[j].dur {
			return list[i].name < list[j].name
		}
		return list[i].dur > list[j].dur
	})
	if n > len(list) {
		n = len(list)
	}
	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		parts = append(parts, list[i].name+":"+formatMs(list[i].dur))
	}
	return strings.Join(parts, ", ")
}

// formatMs keeps one decimal and drops it for whole milliseconds.
func formatMs(d time.Duration) string {
	tenths := d.Microseconds() / 100
	s := strconv.FormatInt(tenths/10, 10)
	if frac := tenths % 10; frac != 0 {
		s += "." + strconv.FormatInt(frac, 10)
	}
	return s + "ms"
}

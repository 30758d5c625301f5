package stats

import (
	"slices"
	"sync"
	"time"

	mstats "github.com/montanaflynn/stats"
)

type sample struct {
	at       time.Time
	duration time.Duration
	failed   bool
	warnings int
}

// Snapshot aggregates the builds still inside the window.
type Snapshot struct {
	Builds   int     `json:"builds"`
	Failed   int     `json:"failed"`
	Warnings int     `json:"warnings"`
	MinMs    int64   `json:"min_ms"`
	MaxMs    int64   `json:"max_ms"`
	AvgMs    float64 `json:"avg_ms"`
	P50Ms    float64 `json:"p50_ms"`
	P95Ms    float64 `json:"p95_ms"`
	P99Ms    float64 `json:"p99_ms"`
}

// Window keeps build timings for a rolling period, keyed by document type.
type Window struct {
	mu      sync.Mutex
	samples map[string][]sample
	maxAge  time.Duration
	now     func() time.Time
}

func NewWindow(maxAge time.Duration) *Window {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Window{
		samples: make(map[string][]sample),
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// Record adds one build of the given document type.
func (w *Window) Record(docType string, d time.Duration, failed bool, warnings int) {
	if d < 0 {
		d = 0
	}
	now := w.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked(now)
	w.samples[docType] = append(w.samples[docType], sample{
		at:       now,
		duration: d,
		failed:   failed,
		warnings: warnings,
	})
}

// Snapshot aggregates all document types.
func (w *Window) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked(w.now())
	var all []sample
	for _, s := range w.samples {
		all = append(all, s...)
	}
	return aggregate(all)
}

// ByType aggregates each document type separately.
func (w *Window) ByType() map[string]Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked(w.now())
	out := make(map[string]Snapshot, len(w.samples))
	for k, s := range w.samples {
		out[k] = aggregate(s)
	}
	return out
}

func aggregate(samples []sample) Snapshot {
	if len(samples) == 0 {
		return Snapshot{}
	}
	snap := Snapshot{Builds: len(samples)}
	values := make([]int64, 0, len(samples))
	data := make(mstats.Float64Data, 0, len(samples))
	for _, s := range samples {
		ms := s.duration.Milliseconds()
		values = append(values, ms)
		data = append(data, float64(ms))
		snap.Warnings += s.warnings
		if s.failed {
			snap.Failed++
		}
	}
	slices.Sort(values)

	// Errors only come back for empty input, which is ruled out above.
	lo, _ := data.Min()
	hi, _ := data.Max()
	snap.MinMs = int64(lo)
	snap.MaxMs = int64(hi)
	snap.AvgMs, _ = data.Mean()
	snap.P50Ms = percentile(values, 50)
	snap.P95Ms = percentile(values, 95)
	snap.P99Ms = percentile(values, 99)
	return snap
}

func (w *Window) pruneLocked(now time.Time) {
	cutoff := now.Add(-w.maxAge)
	for k, samples := range w.samples {
		kept := samples[:0]
		for _, s := range samples {
			if !s.at.Before(cutoff) {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			delete(w.samples, k)
			continue
		}
		w.samples[k] = kept
	}
}

// percentile interpolates linearly between the closest ranks.
func percentile(sorted []int64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sorted[0])
	}
	if pct >= 100 {
		return float64(sorted[len(sorted)-1])
	}

	index := (float64(len(sorted)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sorted) {
		return float64(sorted[lower])
	}
	weight := index - float64(lower)
	lo := float64(sorted[lower])
	hi := float64(sorted[upper])
	return lo + ((hi - lo) * weight)
}

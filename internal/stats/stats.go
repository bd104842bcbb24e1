package stats

import (
	"slices"
	"sync"
	"time"
)

type sample struct {
	at       time.Time
	duration time.Duration
	pages    int
	failed   bool
}

// Snapshot aggregates the generation runs inside the window.
type Snapshot struct {
	Runs     int     `json:"runs"`
	Failures int     `json:"failures"`
	Pages    int     `json:"pages"`
	MinMs    int64   `json:"min_ms"`
	MaxMs    int64   `json:"max_ms"`
	AvgMs    float64 `json:"avg_ms"`
	P50Ms    float64 `json:"p50_ms"`
	P95Ms    float64 `json:"p95_ms"`
}

// Generation tracks recent document generations within a rolling window.
type Generation struct {
	mu      sync.Mutex
	samples []sample
	window  time.Duration
}

func NewGeneration(window time.Duration) *Generation {
	if window <= 0 {
		window = time.Hour
	}
	return &Generation{
		samples: make([]sample, 0, 64),
		window:  window,
	}
}

// Record adds one run. Failed runs count toward latency but add no pages.
func (g *Generation) Record(d time.Duration, pages int, failed bool) {
	if d < 0 {
		d = 0
	}
	if failed {
		pages = 0
	}
	now := time.Now()

	g.mu.Lock()
	defer g.mu.Unlock()
	g.pruneLocked(now)
	g.samples = append(g.samples, sample{at: now, duration: d, pages: pages, failed: failed})
}

func (g *Generation) Snapshot() Snapshot {
	now := time.Now()

	g.mu.Lock()
	defer g.mu.Unlock()
	g.pruneLocked(now)
	if len(g.samples) == 0 {
		return Snapshot{}
	}

	var snap Snapshot
	ms := make([]int64, len(g.samples))
	var sum int64
	for i, sm := range g.samples {
		ms[i] = sm.duration.Milliseconds()
		sum += ms[i]
		snap.Pages += sm.pages
		if sm.failed {
			snap.Failures++
		}
	}
	slices.Sort(ms)

	snap.Runs = len(ms)
	snap.MinMs = ms[0]
	snap.MaxMs = ms[len(ms)-1]
	snap.AvgMs = float64(sum) / float64(len(ms))
	snap.P50Ms = percentile(ms, 50)
	snap.P95Ms = percentile(ms, 95)
	return snap
}

func (g *Generation) pruneLocked(now time.Time) {
	cutoff := now.Add(-g.window)
	kept := g.samples[:0]
	for _, sm := range g.samples {
		if !sm.at.Before(cutoff) {
			kept = append(kept, sm)
		}
	}
	g.samples = kept
}

// percentile interpolates linearly between the closest ranks of sorted.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}
	rank := float64(len(sorted)-1) * pct / 100
	lo := int(rank)
	if lo+1 >= len(sorted) {
		return float64(sorted[lo])
	}
	frac := rank - float64(lo)
	return float64(sorted[lo]) + frac*float64(sorted[lo+1]-sorted[lo])
}

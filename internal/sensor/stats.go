package sensor

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// statsWindow bounds the samples kept for mean and deviation.
const statsWindow = 4096

// Stats accumulates measurement processing times.
type Stats struct {
	mu      sync.Mutex
	ticks   int
	total   time.Duration
	samples []float64 // milliseconds, ring buffer
	next    int
}

// StatsSnapshot is a point-in-time copy of Stats. Mean and StdDev cover the
// most recent samples only.
type StatsSnapshot struct {
	Ticks    int
	Total    time.Duration
	MeanMS   float64
	StdDevMS float64
}

// Add records one processing duration.
func (s *Stats) Add(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ticks++
	s.total += d
	ms := float64(d) / float64(time.Millisecond)
	if len(s.samples) < statsWindow {
		s.samples = append(s.samples, ms)
		return
	}
	s.samples[s.next] = ms
	s.next = (s.next + 1) % statsWindow
}

// Snapshot returns the current totals.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := StatsSnapshot{Ticks: s.ticks, Total: s.total}
	switch len(s.samples) {
	case 0:
	case 1:
		snap.MeanMS = s.samples[0]
	default:
		snap.MeanMS, snap.StdDevMS = stat.MeanStdDev(s.samples, nil)
	}
	return snap
}

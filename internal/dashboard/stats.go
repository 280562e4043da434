package dashboard

import (
	"fmt"
	"math/rand/v2"
	"sync"
)

const (
	initialSatisfaction = 4.8
	minSatisfaction     = 4.0
	maxSatisfaction     = 5.0
	satisfactionJitter  = 0.05
)

// Snapshot is a point-in-time view of the stats with derived values.
type Snapshot struct {
	TotalInteractions int     `json:"totalInteractions"`
	AIResolved        int     `json:"aiResolved"`
	Escalated         int     `json:"escalated"`
	TotalTimeMs       float64 `json:"totalTimeMs"`
	SatisfactionScore float64 `json:"satisfactionScore"`
	ResolutionRate    float64 `json:"resolutionRate"`
	AvgTimeMs         float64 `json:"avgTimeMs"`
}

// Display is the formatted form shown on the dashboard.
type Display struct {
	Resolution   string `json:"resolution"`
	AvgTime      string `json:"avg_time"`
	Satisfaction string `json:"satisfaction"`
}

// Display formats the snapshot as "75%", "1.2s" and "4.8★".
func (s Snapshot) Display() Display {
	return Display{
		Resolution:   fmt.Sprintf("%d%%", int(s.ResolutionRate)),
		AvgTime:      fmt.Sprintf("%.1fs", s.AvgTimeMs/1000),
		Satisfaction: fmt.Sprintf("%.1f★", s.SatisfactionScore),
	}
}

// Stats aggregates chat outcomes for the lifetime of the process. It is safe
// for concurrent use; construct one in main and share it.
type Stats struct {
	mu           sync.Mutex
	interactions int
	resolved     int
	escalated    int
	totalTimeMs  float64
	satisfaction float64
	jitter       func() float64
}

// StatsOption configures Stats.
type StatsOption func(*Stats)

// WithJitter replaces the satisfaction perturbation source. fn must return a
// value in [-0.05, 0.05].
func WithJitter(fn func() float64) StatsOption {
	return func(s *Stats) {
		if fn != nil {
			s.jitter = fn
		}
	}
}

// NewStats creates an empty aggregator.
func NewStats(opts ...StatsOption) *Stats {
	s := &Stats{
		satisfaction: initialSatisfaction,
		jitter: func() float64 {
			return (rand.Float64()*2 - 1) * satisfactionJitter
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Update records one interaction. REFUND and APPROVED count as resolved,
// ESCALATE as escalated; any other kind only counts the interaction.
func (s *Stats) Update(elapsedMs float64, kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.interactions++
	s.totalTimeMs += elapsedMs

	switch kind {
	case "REFUND", "APPROVED":
		s.resolved++
	case "ESCALATE":
		s.escalated++
	}

	s.satisfaction = clamp(s.satisfaction+s.jitter(), minSatisfaction, maxSatisfaction)
}

// Snapshot derives the current rates. With no decisions yet the resolution
// rate is 100 if anything happened at all and 0 otherwise.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		TotalInteractions: s.interactions,
		AIResolved:        s.resolved,
		Escalated:         s.escalated,
		TotalTimeMs:       s.totalTimeMs,
		SatisfactionScore: s.satisfaction,
	}

	decisions := s.resolved + s.escalated
	switch {
	case decisions > 0:
		snap.ResolutionRate = float64(s.resolved) / float64(decisions) * 100
	case s.interactions > 0:
		snap.ResolutionRate = 100
	}

	if s.interactions > 0 {
		snap.AvgTimeMs = s.totalTimeMs / float64(s.interactions)
	}
	return snap
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

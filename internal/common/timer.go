// Package common provides timing and memory helpers shared by the analysis
// pipeline and the CLI.
package common

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Timer measures a single named span.
type Timer struct {
	start    time.Time
	name     string
	duration time.Duration
}

// NewNamedTimer starts a timer with the given name.
func NewNamedTimer(name string) *Timer {
	return &Timer{name: name, start: time.Now()}
}

// Stop records and returns the elapsed duration.
func (t *Timer) Stop() time.Duration {
	t.duration = time.Since(t.start)
	return t.duration
}

// Duration returns the recorded duration (only valid after Stop()).
func (t *Timer) Duration() time.Duration {
	return t.duration
}

// Name returns the timer name.
func (t *Timer) Name() string {
	return t.name
}

func (t *Timer) String() string {
	if t.name != "" {
		return fmt.Sprintf("%s: %v", t.name, t.duration)
	}
	return t.duration.String()
}

// Stages collects per-stage durations in first-seen order.
type Stages struct {
	mu    sync.Mutex
	order []string
	d     map[string]time.Duration
}

// NewStages creates an empty stage recorder.
func NewStages() *Stages {
	return &Stages{d: make(map[string]time.Duration)}
}

// Track starts timing name; the returned func stops it, records the span and
// returns it.
func (s *Stages) Track(name string) func() time.Duration {
	t := NewNamedTimer(name)
	return func() time.Duration {
		d := t.Stop()
		s.Add(name, d)
		return d
	}
}

// Add accumulates d under name.
func (s *Stages) Add(name string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.d[name]; !ok {
		s.order = append(s.order, name)
	}
	s.d[name] += d
}

// Each visits the stages in first-seen order.
func (s *Stages) Each(fn func(name string, d time.Duration)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.order {
		fn(n, s.d[n])
	}
}

// Total sums all stages.
func (s *Stages) Total() time.Duration {
	var total time.Duration
	s.Each(func(_ string, d time.Duration) { total += d })
	return total
}

// Millis returns every stage plus "total" in milliseconds, rounded to 0.01.
func (s *Stages) Millis() map[string]float64 {
	out := make(map[string]float64)
	var total time.Duration
	s.Each(func(n string, d time.Duration) {
		out[n] = ms(d)
		total += d
	})
	out["total"] = ms(total)
	return out
}

func ms(d time.Duration) float64 {
	return math.Round(float64(d)/float64(time.Millisecond)*100) / 100
}

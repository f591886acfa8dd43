package common

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimer(t *testing.T) {
	timer := NewNamedTimer("decode")
	time.Sleep(2 * time.Millisecond)
	d := timer.Stop()

	assert.GreaterOrEqual(t, d, 2*time.Millisecond)
	assert.Equal(t, d, timer.Duration())
	assert.Equal(t, "decode", timer.Name())
	assert.Contains(t, timer.String(), "decode: ")
}

func TestStages_OrderAndAccumulation(t *testing.T) {
	s := NewStages()
	s.Add("features", 2*time.Millisecond)
	s.Add("predict", 5*time.Millisecond)
	s.Add("features", time.Millisecond)

	var names []string
	s.Each(func(n string, _ time.Duration) { names = append(names, n) })
	assert.Equal(t, []string{"features", "predict"}, names)
	assert.Equal(t, 8*time.Millisecond, s.Total())

	m := s.Millis()
	assert.InDelta(t, 3.0, m["features"], 1e-9)
	assert.InDelta(t, 5.0, m["predict"], 1e-9)
	assert.InDelta(t, 8.0, m["total"], 1e-9)
}

func TestStages_Track(t *testing.T) {
	s := NewStages()
	stop := s.Track("preprocess")
	time.Sleep(time.Millisecond)
	d := stop()

	assert.Positive(t, d)
	assert.Equal(t, d, s.Total())
}

func TestStages_Concurrent(t *testing.T) {
	s := NewStages()
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Add("work", time.Millisecond)
		}()
	}
	wg.Wait()
	assert.Equal(t, 10*time.Millisecond, s.Total())
}

func TestGetMemoryStats(t *testing.T) {
	m := GetMemoryStats()
	assert.Positive(t, m.HeapAllocMB)
	assert.Positive(t, m.Goroutines)
}

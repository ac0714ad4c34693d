// Package progress provides a client-side build progress estimate. It has
// no knowledge of what the server is doing: it simply advances on a fixed
// cadence so that the bar would be full after the typical build latency.
package progress

import (
	"sync"
	"time"
)

// Defaults tuned to the build service's typical latency
const (
	DefaultInterval = time.Second
	DefaultExpected = 120 * time.Second
)

// Estimator is a percentage that grows by a constant step per tick while
// running. It may pass 100 or stall below it; Stop always resets it to 0.
type Estimator struct {
	mu       sync.Mutex
	interval time.Duration
	step     float64
	value    float64
	running  bool
}

// New creates an estimator that reaches 100 after expected, ticking every interval
func New(interval, expected time.Duration) *Estimator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if expected <= 0 {
		expected = DefaultExpected
	}
	return &Estimator{
		interval: interval,
		step:     100 * float64(interval) / float64(expected),
	}
}

// Start resets the value to 0 and begins accepting ticks
func (e *Estimator) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.value = 0
	e.running = true
}

// Tick advances the value by one step if running and returns the new value
func (e *Estimator) Tick() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		e.value += e.step
	}
	return e.value
}

// Stop halts the estimator and resets it to 0
func (e *Estimator) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.value = 0
	e.running = false
}

// Value returns the current percentage
func (e *Estimator) Value() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value
}

// Running reports whether the estimator is between Start and Stop
func (e *Estimator) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Interval returns the tick cadence
func (e *Estimator) Interval() time.Duration {
	return e.interval
}

// Step returns the per-tick increment
func (e *Estimator) Step() float64 {
	return e.step
}

// Run ticks the estimator from a goroutine until the returned stop function
// is called, invoking onTick (if non-nil) with each new value. stop is safe
// to call more than once and returns only after the goroutine has exited.
func (e *Estimator) Run(onTick func(float64)) (stop func()) {
	ticker := time.NewTicker(e.interval)
	done := make(chan struct{})
	exited := make(chan struct{})

	go func() {
		defer close(exited)
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				v := e.Tick()
				if onTick != nil {
					onTick(v)
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
			<-exited
		})
	}
}

package testutil

import (
	"sync"
	"time"
)

// ManualTicker is a service.Ticker driven by a virtual clock. Ticks fire
// synchronously inside Advance, so tests never sleep.
type ManualTicker struct {
	mu      sync.Mutex
	now     time.Duration
	next    time.Duration
	period  time.Duration
	tick    func()
	running bool
	starts  int
}

// NewManualTicker creates a stopped ticker at virtual time zero.
func NewManualTicker() *ManualTicker {
	return &ManualTicker{}
}

// Start schedules tick every period from the current virtual time.
func (m *ManualTicker) Start(period time.Duration, tick func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.period = period
	m.tick = tick
	m.next = m.now + period
	m.running = true
	m.starts++
}

// Stop cancels future ticks.
func (m *ManualTicker) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
}

// Advance moves the virtual clock forward by d and runs every tick that falls due,
// in order. It returns the number of ticks fired.
func (m *ManualTicker) Advance(d time.Duration) int {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	fired := 0
	for {
		m.mu.Lock()
		if !m.running || m.period <= 0 || m.next > target {
			m.now = target
			m.mu.Unlock()
			return fired
		}
		m.now = m.next
		m.next += m.period
		tick := m.tick
		m.mu.Unlock()

		tick()
		fired++
	}
}

// Running reports whether the ticker is started.
func (m *ManualTicker) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Starts returns how many times Start has been called.
func (m *ManualTicker) Starts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts
}

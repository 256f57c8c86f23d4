// Package sessionmon enforces the client inactivity window: a single pending
// timer, rescheduled on every qualifying interaction, that force-logs-out the
// session when it fires.
package sessionmon

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// CredentialClearer clears the persisted credential record on timeout.
type CredentialClearer interface {
	Clear()
}

// Monitor debounces user activity against a fixed inactivity window. At most
// one pending timer exists at any instant; Touch cancels and replaces it,
// never stacks.
type Monitor struct {
	window time.Duration
	creds  CredentialClearer
	log    *zap.Logger

	mu        sync.Mutex
	timer     *time.Timer
	onTimeout func()
	fired     bool
	running   bool
}

// New returns a monitor with the given inactivity window.
func New(window time.Duration, creds CredentialClearer, log *zap.Logger) *Monitor {
	return &Monitor{window: window, creds: creds, log: log}
}

// Start arms the timer and returns a cancel function. On firing, the monitor
// clears credentials and invokes onTimeout exactly once; a fired monitor
// stays idle until Start is called again. cancel must be called on teardown
// so no timer outlives its owner.
func (m *Monitor) Start(onTimeout func()) (cancel func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.onTimeout = onTimeout
	m.fired = false
	m.running = true
	m.rescheduleLocked()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.running = false
		m.onTimeout = nil
		if m.timer != nil {
			m.timer.Stop()
			m.timer = nil
		}
	}
}

// Touch records a qualifying interaction event, pushing the deadline out to
// a full window from now. A no-op when the monitor is not running or has
// already fired.
func (m *Monitor) Touch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running || m.fired {
		return
	}
	m.rescheduleLocked()
}

func (m *Monitor) rescheduleLocked() {
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.window, m.fire)
}

func (m *Monitor) fire() {
	m.mu.Lock()
	if !m.running || m.fired {
		m.mu.Unlock()
		return
	}
	m.fired = true
	m.timer = nil
	cb := m.onTimeout
	m.mu.Unlock()

	m.log.Warn("session timed out due to inactivity", zap.Duration("window", m.window))
	m.creds.Clear()
	if cb != nil {
		cb()
	}
}

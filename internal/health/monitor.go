package health

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Fallback status values reported by Monitor.Status.
const (
	StatusAvailable   = "available"
	StatusUnavailable = "unavailable"
	StatusDisabled    = "disabled"
)

// Pinger is anything whose reachability can be checked.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor caches whether the fallback is reachable. Reads never block;
// refreshes happen only through Check, Run or MarkUnavailable.
type Monitor struct {
	pinger  Pinger
	timeout time.Duration

	available atomic.Bool
	lastCheck atomic.Int64 // unix nanos
	group     singleflight.Group

	mu        sync.Mutex
	listeners []func(available bool)
}

// NewMonitor creates a monitor for p. A nil p yields a permanently disabled
// monitor. The flag starts false until the first Check.
func NewMonitor(p Pinger, timeout time.Duration) *Monitor {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Monitor{pinger: p, timeout: timeout}
}

// Enabled reports whether a fallback is configured at all.
func (m *Monitor) Enabled() bool { return m != nil && m.pinger != nil }

// Available returns the cached availability flag.
func (m *Monitor) Available() bool {
	return m.Enabled() && m.available.Load()
}

// Status returns "available", "unavailable" or "disabled".
func (m *Monitor) Status() string {
	switch {
	case !m.Enabled():
		return StatusDisabled
	case m.available.Load():
		return StatusAvailable
	default:
		return StatusUnavailable
	}
}

// LastCheck returns when the flag was last refreshed, or the zero time.
func (m *Monitor) LastCheck() time.Time {
	if !m.Enabled() {
		return time.Time{}
	}
	ns := m.lastCheck.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// OnChange registers fn to be called after every availability transition.
func (m *Monitor) OnChange(fn func(available bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Check pings the fallback with the monitor timeout and stores the result.
// Concurrent calls share one ping.
func (m *Monitor) Check(ctx context.Context) bool {
	if !m.Enabled() {
		return false
	}
	v, _, _ := m.group.Do("ping", func() (any, error) {
		pingCtx, cancel := context.WithTimeout(ctx, m.timeout)
		defer cancel()

		err := m.pinger.Ping(pingCtx)
		if err != nil {
			slog.Warn("fallback ping failed", "error", err)
		}
		m.set(err == nil)
		return err == nil, nil
	})
	return v.(bool)
}

// MarkUnavailable clears the flag after a failed fallback call.
func (m *Monitor) MarkUnavailable(err error) {
	if !m.Enabled() {
		return
	}
	if m.available.Load() {
		slog.Warn("fallback marked unavailable", "error", err)
	}
	m.set(false)
}

func (m *Monitor) set(ok bool) {
	m.lastCheck.Store(time.Now().UnixNano())
	if m.available.Swap(ok) == ok {
		return
	}

	slog.Info("fallback availability changed", "available", ok)
	m.mu.Lock()
	listeners := append([]func(bool){}, m.listeners...)
	m.mu.Unlock()
	for _, fn := range listeners {
		fn(ok)
	}
}

// Run checks once immediately and then every interval until ctx is done.
// A non-positive interval checks once and returns.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) error {
	if !m.Enabled() {
		return nil
	}
	m.Check(ctx)
	if interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Package network tracks whether the upstream API is reachable.
package network

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DialFunc opens a connection; net.Dialer.DialContext satisfies it.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Monitor keeps an online flag that is refreshed by Probe and notifies
// listeners on every transition.
type Monitor struct {
	addr      string
	timeout   time.Duration
	dial      DialFunc
	log       *logrus.Entry
	mu        sync.RWMutex
	online    bool
	listeners []func(online bool)
}

// NewMonitor assumes the device is online until a probe says otherwise.
func NewMonitor(addr string, timeout time.Duration, log *logrus.Entry) *Monitor {
	d := &net.Dialer{}
	return &Monitor{
		addr:    addr,
		timeout: timeout,
		dial:    d.DialContext,
		log:     log,
		online:  true,
	}
}

// WithDialer replaces the dial function; tests use it to simulate outages.
func (m *Monitor) WithDialer(dial DialFunc) *Monitor {
	m.dial = dial
	return m
}

// Online reports the last known state.
func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// OnChange registers fn to run after every online/offline transition.
func (m *Monitor) OnChange(fn func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Probe dials the upstream host once and records the result.
func (m *Monitor) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	conn, err := m.dial(ctx, "tcp", m.addr)
	if err != nil {
		m.log.WithError(err).WithField("addr", m.addr).Debug("Connectivity probe failed")
		m.Set(false)
		return false
	}
	_ = conn.Close()
	m.Set(true)
	return true
}

// Set records a state reported by some other source and fires listeners if
// it changed.
func (m *Monitor) Set(online bool) {
	m.mu.Lock()
	changed := m.online != online
	m.online = online
	listeners := append([]func(bool){}, m.listeners...)
	m.mu.Unlock()

	if !changed {
		return
	}
	m.log.WithField("online", online).Info("Connectivity changed")
	for _, fn := range listeners {
		fn(online)
	}
}

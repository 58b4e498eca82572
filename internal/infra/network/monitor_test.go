package network

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"mawakit/internal/infra/logger"
)

func TestProbeTransitions(t *testing.T) {
	t.Parallel()

	up := true
	dial := func(context.Context, string, string) (net.Conn, error) {
		if !up {
			return nil, errors.New("network unreachable")
		}
		client, server := net.Pipe()
		_ = server.Close()
		return client, nil
	}
	m := NewMonitor("api.example:443", time.Second, logger.Discard()).WithDialer(dial)

	var transitions []bool
	m.OnChange(func(online bool) { transitions = append(transitions, online) })

	assert.True(t, m.Online())
	assert.True(t, m.Probe(context.Background()))
	assert.Empty(t, transitions, "no transition when already online")

	up = false
	assert.False(t, m.Probe(context.Background()))
	assert.False(t, m.Online())

	up = true
	assert.True(t, m.Probe(context.Background()))
	assert.Equal(t, []bool{false, true}, transitions)
}

func TestSetIgnoresRepeats(t *testing.T) {
	t.Parallel()

	m := NewMonitor("x:1", time.Second, logger.Discard())
	calls := 0
	m.OnChange(func(bool) { calls++ })
	m.Set(true)
	m.Set(false)
	m.Set(false)
	assert.Equal(t, 1, calls)
}

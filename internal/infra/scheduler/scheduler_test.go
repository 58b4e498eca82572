package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"mawakit/internal/app"
	"mawakit/internal/infra/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type counter struct{ n atomic.Int32 }

func (c *counter) CheckTime(context.Context) { c.n.Add(1) }

func (c *counter) Tick(context.Context) { c.n.Add(1) }

func (c *counter) Refetch(context.Context) app.Snapshot {
	c.n.Add(1)
	return app.Snapshot{}
}

func (c *counter) Probe(context.Context) bool {
	c.n.Add(1)
	return true
}

func TestSchedulerRunsJobs(t *testing.T) {
	checks, ticks, probes := &counter{}, &counter{}, &counter{}
	s := NewPrayerScheduler(checks, ticks, &counter{}, probes, logger.Discard(), Specs{
		NotificationCheck: "@every 1s",
		Countdown:         "@every 1s",
		Connectivity:      "@every 1s",
	})
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return checks.n.Load() > 0 && ticks.n.Load() > 0 && probes.n.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	s := NewPrayerScheduler(&counter{}, nil, nil, nil, logger.Discard(), Specs{NotificationCheck: "every so often"})
	err := s.Start()
	assert.ErrorContains(t, err, "notification check")
	s.Stop()
}

func TestSchedulerSkipsEmptySpecs(t *testing.T) {
	s := NewPrayerScheduler(nil, nil, nil, nil, logger.Discard(), Specs{MidnightRefresh: "0 0 * * *"})
	require.NoError(t, s.Start())
	assert.Len(t, s.cronEngine.Entries(), 1)
	s.Stop()
}

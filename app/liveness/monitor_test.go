package liveness

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"camrelay/app/alarm"
	"camrelay/app/mailbox"
	"camrelay/app/slot"
	"camrelay/logger"
	"camrelay/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

var opts = Options{
	Interval:         time.Minute,
	AutoClearTimeout: time.Minute,
	OnlineThreshold:  30 * time.Second,
}

type fixture struct {
	table   *slot.Table
	box     *mailbox.Mailbox
	machine *alarm.Machine
	monitor *Monitor
	metrics *metrics.Metrics
	clock   *fakeClock
}

func newFixture(cameras int) *fixture {
	f := &fixture{
		table:   slot.NewTable(cameras, 1024),
		box:     mailbox.New(),
		metrics: metrics.New(),
		clock:   &fakeClock{t: time.Unix(50_000, 0)},
	}
	log := logger.New(io.Discard)
	f.machine = alarm.NewMachine(f.table, f.box, f.metrics, log).WithClock(f.clock.Now)
	f.monitor = NewMonitor(f.table, f.machine, opts, f.metrics, log)
	return f
}

func TestScanAutoClearsSilentCamera(t *testing.T) {
	f := newFixture(3)

	_, err := f.machine.Trigger(1)
	require.NoError(t, err)
	_, err = f.machine.Trigger(2)
	require.NoError(t, err)
	f.box.TakeLatest()

	f.clock.Advance(45 * time.Second)
	require.NoError(t, f.machine.Heartbeat(2))

	assert.Empty(t, f.monitor.Scan())

	f.clock.Advance(30 * time.Second)
	assert.Equal(t, []int{1}, f.monitor.Scan())

	s1, _ := f.table.Get(1)
	s2, _ := f.table.Get(2)
	assert.False(t, s1.AlarmActive)
	assert.True(t, s2.AlarmActive, "camera 2 heartbeat keeps its alarm")

	_, ok := f.box.TakeLatest()
	assert.False(t, ok, "auto-clear publishes nothing")
}

func TestFramePushKeepsAlarmAlive(t *testing.T) {
	f := newFixture(1)

	_, err := f.machine.Trigger(1)
	require.NoError(t, err)

	f.clock.Advance(50 * time.Second)
	require.NoError(t, f.table.UpdateFrame(1, []byte("jpeg"), f.clock.Now()))

	f.clock.Advance(50 * time.Second)
	assert.Empty(t, f.monitor.Scan())
}

type flakyClearer struct {
	calls []int
}

func (c *flakyClearer) AutoClear(id int, _ time.Duration) (bool, error) {
	c.calls = append(c.calls, id)
	switch id {
	case 1:
		panic("corrupt slot")
	case 2:
		return false, errors.New("read failed")
	}
	return true, nil
}

func TestScanSurvivesFaults(t *testing.T) {
	f := newFixture(3)
	clearer := &flakyClearer{}
	monitor := NewMonitor(f.table, clearer, opts, f.metrics, logger.New(io.Discard))

	assert.Equal(t, []int{3}, monitor.Scan())
	assert.Equal(t, []int{1, 2, 3}, clearer.calls)
	assert.Equal(t, uint64(2), f.metrics.LivenessFaults.Load())
}

func TestViewOnline(t *testing.T) {
	f := newFixture(3)

	for _, v := range f.monitor.View(f.clock.Now()) {
		assert.False(t, v.Online, "camera %d never seen", v.ID)
		assert.False(t, v.HasFrame)
	}

	require.NoError(t, f.machine.Heartbeat(1))
	require.NoError(t, f.table.UpdateFrame(2, []byte("jpeg"), f.clock.Now()))
	_, err := f.machine.Trigger(3)
	require.NoError(t, err)

	views := f.monitor.View(f.clock.Now())
	require.Len(t, views, 3)
	for _, v := range views {
		assert.True(t, v.Online, "camera %d", v.ID)
		assert.Zero(t, v.LastSeenAgo)
	}
	assert.True(t, views[1].HasFrame)
	assert.True(t, views[2].AlarmActive)

	f.clock.Advance(31 * time.Second)
	for _, v := range f.monitor.View(f.clock.Now()) {
		assert.False(t, v.Online, "camera %d should have gone stale", v.ID)
	}
}

func TestRunIsSingleInstance(t *testing.T) {
	f := newFixture(1)
	monitor := NewMonitor(f.table, f.machine, Options{Interval: 5 * time.Millisecond, AutoClearTimeout: time.Minute, OnlineThreshold: time.Second}, f.metrics, logger.New(io.Discard))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- monitor.Run(ctx) }()

	assert.Eventually(t, func() bool { return f.metrics.LivenessScans.Load() > 0 }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, monitor.Run(ctx), ErrAlreadyRunning)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}

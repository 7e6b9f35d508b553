package alarm

import (
	"io"
	"testing"
	"time"

	"camrelay/app/mailbox"
	"camrelay/app/slot"
	"camrelay/apperror"
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

func newMachine(cameras int) (*Machine, *slot.Table, *mailbox.Mailbox, *fakeClock) {
	table := slot.NewTable(cameras, 1024)
	box := mailbox.New()
	clock := &fakeClock{t: time.Unix(10_000, 0)}
	m := NewMachine(table, box, metrics.New(), logger.New(io.Discard)).WithClock(clock.Now)
	return m, table, box, clock
}

func TestTriggerPublishesOnce(t *testing.T) {
	m, table, box, clock := newMachine(4)

	cmd, err := m.Trigger(2)
	require.NoError(t, err)
	assert.Equal(t, "trigger_alarm_2", cmd)

	s, _ := table.Get(2)
	assert.True(t, s.AlarmActive)
	assert.True(t, s.AlarmLastUpdate.Equal(clock.Now()))

	got, ok := box.TakeLatest()
	assert.True(t, ok)
	assert.Equal(t, "trigger_alarm_2", got)

	_, ok = box.TakeLatest()
	assert.False(t, ok)
}

func TestTriggerThenClearLatestWins(t *testing.T) {
	m, _, box, _ := newMachine(4)

	_, err := m.Trigger(3)
	require.NoError(t, err)
	_, err = m.Clear(3)
	require.NoError(t, err)

	got, ok := box.TakeLatest()
	assert.True(t, ok)
	assert.Equal(t, "clear_alarm_3", got)
}

func TestInvalidCameraTouchesNothing(t *testing.T) {
	m, _, box, _ := newMachine(4)

	_, err := m.Trigger(5)
	assert.ErrorIs(t, err, apperror.InvalidCamera)
	_, err = m.Clear(0)
	assert.ErrorIs(t, err, apperror.InvalidCamera)
	assert.ErrorIs(t, m.Heartbeat(9), apperror.InvalidCamera)

	_, ok := box.TakeLatest()
	assert.False(t, ok)
}

func TestClearAllScenario(t *testing.T) {
	m, table, box, _ := newMachine(4)

	_, err := m.Trigger(2)
	require.NoError(t, err)

	for _, e := range table.List() {
		assert.Equal(t, e.ID == 2, e.Slot.AlarmActive, "camera %d", e.ID)
	}

	assert.Equal(t, ClearAllCommand, m.ClearAll())

	for _, e := range table.List() {
		assert.False(t, e.Slot.AlarmActive, "camera %d", e.ID)
	}

	got, ok := box.TakeLatest()
	assert.True(t, ok)
	assert.Equal(t, "clear_all_alarms", got)
	_, ok = box.TakeLatest()
	assert.False(t, ok)
}

func TestHeartbeatKeepsState(t *testing.T) {
	m, table, box, clock := newMachine(2)

	_, err := m.Trigger(1)
	require.NoError(t, err)
	box.TakeLatest()

	clock.Advance(5 * time.Second)
	require.NoError(t, m.Heartbeat(1))

	s, _ := table.Get(1)
	assert.True(t, s.AlarmActive)
	assert.True(t, s.AlarmLastUpdate.Equal(clock.Now()))

	_, ok := box.TakeLatest()
	assert.False(t, ok, "heartbeat must not publish")
}

func TestAutoClearIsSilent(t *testing.T) {
	m, table, box, clock := newMachine(2)

	_, err := m.Trigger(1)
	require.NoError(t, err)
	box.TakeLatest()
	triggeredAt := clock.Now()

	clock.Advance(30 * time.Second)
	cleared, err := m.AutoClear(1, time.Minute)
	require.NoError(t, err)
	assert.False(t, cleared)

	clock.Advance(31 * time.Second)
	cleared, err = m.AutoClear(1, time.Minute)
	require.NoError(t, err)
	assert.True(t, cleared)

	s, _ := table.Get(1)
	assert.False(t, s.AlarmActive)
	assert.True(t, s.AlarmLastUpdate.Equal(triggeredAt))

	_, ok := box.TakeLatest()
	assert.False(t, ok, "auto-clear must not publish")
}

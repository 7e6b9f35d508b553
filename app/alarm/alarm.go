// Package alarm drives the Clear/Active transitions of every camera and
// publishes the matching dashboard command.
package alarm

import (
	"fmt"
	"time"

	"camrelay/app/mailbox"
	"camrelay/app/slot"
	"camrelay/logger"
	"camrelay/metrics"
)

const ClearAllCommand = "clear_all_alarms"

func TriggerCommand(id int) string {
	return fmt.Sprintf("trigger_alarm_%d", id)
}

func ClearCommand(id int) string {
	return fmt.Sprintf("clear_alarm_%d", id)
}

type Machine struct {
	table   *slot.Table
	mailbox *mailbox.Mailbox
	metrics *metrics.Metrics
	logger  *logger.Logger
	now     func() time.Time
}

func NewMachine(table *slot.Table, box *mailbox.Mailbox, m *metrics.Metrics, logger *logger.Logger) *Machine {
	return &Machine{
		table:   table,
		mailbox: box,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock replaces the time source, mostly for tests.
func (m *Machine) WithClock(now func() time.Time) *Machine {
	m.now = now
	return m
}

func (m *Machine) publish(command string) {
	m.mailbox.Publish(command)
	m.metrics.CommandsPublished.Add(1)
}

func (m *Machine) Trigger(id int) (string, error) {
	if err := m.table.UpdateAlarm(id, true, m.now()); err != nil {
		return "", err
	}

	command := TriggerCommand(id)
	m.publish(command)
	m.metrics.AlarmsTriggered.Add(1)
	m.logger.LogInfo("Alarm triggered", "camera", id, "command", command)
	return command, nil
}

func (m *Machine) Clear(id int) (string, error) {
	if err := m.table.UpdateAlarm(id, false, m.now()); err != nil {
		return "", err
	}

	command := ClearCommand(id)
	m.publish(command)
	m.metrics.AlarmsCleared.Add(1)
	m.logger.LogInfo("Alarm cleared", "camera", id, "command", command)
	return command, nil
}

// ClearAll clears every camera and publishes a single command.
func (m *Machine) ClearAll() string {
	now := m.now()
	for id := 1; id <= m.table.Len(); id++ {
		if err := m.table.UpdateAlarm(id, false, now); err != nil {
			m.logger.LogError(err, "Error clearing alarm", "camera", id)
		}
	}

	m.publish(ClearAllCommand)
	m.logger.LogInfo("All alarms cleared", "cameras", m.table.Len())
	return ClearAllCommand
}

func (m *Machine) Heartbeat(id int) error {
	if err := m.table.Touch(id, m.now()); err != nil {
		return err
	}
	m.metrics.Heartbeats.Add(1)
	return nil
}

// AutoClear clears an active alarm whose camera has been silent longer than
// timeout. Local housekeeping only: the timestamp is kept and no command is
// published.
func (m *Machine) AutoClear(id int, timeout time.Duration) (bool, error) {
	now := m.now()
	cleared, err := m.table.ClearIfStale(id, now, timeout)
	if err != nil || !cleared {
		return false, err
	}

	m.metrics.AlarmsAutoClear.Add(1)
	if s, err := m.table.Get(id); err == nil {
		m.logger.LogInfo("Auto-clearing alarm", "camera", id, "silent_seconds", int(now.Sub(s.LastSeen()).Seconds()))
	}
	return true, nil
}

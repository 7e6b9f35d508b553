// Package liveness runs the background scan that expires alarms of silent
// cameras and derives the online/offline view on demand.
package liveness

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"camrelay/app/alarm"
	"camrelay/app/slot"
	"camrelay/logger"
	"camrelay/metrics"
)

var ErrAlreadyRunning = errors.New("liveness monitor already running")

// Clearer is the part of the alarm machine the monitor drives.
type Clearer interface {
	AutoClear(id int, timeout time.Duration) (bool, error)
}

var _ Clearer = (*alarm.Machine)(nil)

type Monitor struct {
	table            *slot.Table
	alarms           Clearer
	interval         time.Duration
	autoClearTimeout time.Duration
	onlineThreshold  time.Duration
	metrics          *metrics.Metrics
	logger           *logger.Logger
	running          atomic.Bool
}

type Options struct {
	Interval         time.Duration
	AutoClearTimeout time.Duration
	OnlineThreshold  time.Duration
}

func NewMonitor(table *slot.Table, alarms Clearer, opts Options, m *metrics.Metrics, logger *logger.Logger) *Monitor {
	return &Monitor{
		table:            table,
		alarms:           alarms,
		interval:         opts.Interval,
		autoClearTimeout: opts.AutoClearTimeout,
		onlineThreshold:  opts.OnlineThreshold,
		metrics:          m,
		logger:           logger,
	}
}

// Run scans every interval until ctx is done. Only one Run may be active.
func (m *Monitor) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer m.running.Store(false)

	m.logger.LogInfo("Starting liveness monitor", "interval", m.interval, "auto_clear_timeout", m.autoClearTimeout)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.LogInfo("Stopping liveness monitor")
			return nil
		case <-ticker.C:
			m.Scan()
		}
	}
}

// Scan visits every camera once and returns the ids it auto-cleared. A fault
// on one camera is logged and the scan moves on.
func (m *Monitor) Scan() []int {
	var cleared []int
	for id := 1; id <= m.table.Len(); id++ {
		ok, err := m.scanOne(id)
		if err != nil {
			m.metrics.LivenessFaults.Add(1)
			m.logger.LogError(err, "Error scanning camera", "camera", id)
			continue
		}
		if ok {
			cleared = append(cleared, id)
		}
	}
	m.metrics.LivenessScans.Add(1)
	return cleared
}

func (m *Monitor) scanOne(id int) (cleared bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while scanning camera %d: %v", id, r)
		}
	}()
	return m.alarms.AutoClear(id, m.autoClearTimeout)
}

type CameraView struct {
	ID          int
	Online      bool
	AlarmActive bool
	LastSeenAgo time.Duration
	HasFrame    bool
	StreamURL   string
}

// View derives liveness for every camera at now. Nothing is stored.
func (m *Monitor) View(now time.Time) []CameraView {
	entries := m.table.List()
	out := make([]CameraView, 0, len(entries))
	for _, e := range entries {
		ago := now.Sub(e.Slot.LastSeen())
		out = append(out, CameraView{
			ID:          e.ID,
			Online:      ago < m.onlineThreshold,
			AlarmActive: e.Slot.AlarmActive,
			LastSeenAgo: ago,
			HasFrame:    e.Slot.HasFrame(),
			StreamURL:   e.Slot.StreamURL,
		})
	}
	return out
}

// Package slot holds the per-camera state of the relay: alarm flag, the
// latest pushed frame and the timestamps used for liveness.
//
// Every camera owns its own lock, so work on one camera never waits on
// another. Stored frames are treated as immutable; an update swaps the
// slice, which lets readers keep a snapshot without copying.
package slot

import (
	"fmt"
	"sync"
	"time"

	"camrelay/apperror"
)

// Epoch is the initial timestamp of every slot, so an unheard-from camera
// reads as maximally stale.
var Epoch = time.Unix(0, 0)

type Slot struct {
	AlarmActive     bool
	AlarmLastUpdate time.Time
	Frame           []byte
	FrameLastUpdate time.Time
	StreamURL       string
	// Pulled is set when Frame came from the registered StreamURL rather
	// than from a camera push.
	Pulled bool
}

func (s Slot) HasFrame() bool {
	return len(s.Frame) > 0
}

// LastSeen is the more recent of the alarm and frame timestamps.
func (s Slot) LastSeen() time.Time {
	if s.FrameLastUpdate.After(s.AlarmLastUpdate) {
		return s.FrameLastUpdate
	}
	return s.AlarmLastUpdate
}

type Entry struct {
	ID   int
	Slot Slot
}

type entry struct {
	mu   sync.RWMutex
	slot Slot
}

type Table struct {
	maxFrameSize int
	entries      []*entry
}

func NewTable(cameras int, maxFrameSize int) *Table {
	entries := make([]*entry, cameras)
	for i := range entries {
		entries[i] = &entry{slot: Slot{AlarmLastUpdate: Epoch, FrameLastUpdate: Epoch}}
	}

	return &Table{
		maxFrameSize: maxFrameSize,
		entries:      entries,
	}
}

func (t *Table) Len() int {
	return len(t.entries)
}

func (t *Table) MaxFrameSize() int {
	return t.maxFrameSize
}

func (t *Table) Validate(id int) error {
	if id < 1 || id > len(t.entries) {
		return apperror.InvalidCamera.SetMessage(fmt.Sprintf("Invalid camera number %d, expected 1-%d", id, len(t.entries)))
	}
	return nil
}

func (t *Table) lookup(id int) (*entry, error) {
	if err := t.Validate(id); err != nil {
		return nil, err
	}
	return t.entries[id-1], nil
}

func (t *Table) Get(id int) (Slot, error) {
	e, err := t.lookup(id)
	if err != nil {
		return Slot{}, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.slot, nil
}

func (t *Table) UpdateAlarm(id int, active bool, now time.Time) error {
	e, err := t.lookup(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.slot.AlarmActive = active
	e.slot.AlarmLastUpdate = now
	e.mu.Unlock()
	return nil
}

// Touch refreshes the alarm timestamp without changing the alarm state.
func (t *Table) Touch(id int, now time.Time) error {
	e, err := t.lookup(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.slot.AlarmLastUpdate = now
	e.mu.Unlock()
	return nil
}

// ClearIfStale clears an active alarm whose camera has been silent for longer
// than timeout. The timestamp is left alone. It reports whether it cleared.
func (t *Table) ClearIfStale(id int, now time.Time, timeout time.Duration) (bool, error) {
	e, err := t.lookup(id)
	if err != nil {
		return false, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.slot.AlarmActive || now.Sub(e.slot.LastSeen()) <= timeout {
		return false, nil
	}
	e.slot.AlarmActive = false
	return true, nil
}

// UpdateFrame replaces the stored frame with one the camera pushed. The
// caller must not modify data afterwards.
func (t *Table) UpdateFrame(id int, data []byte, now time.Time) error {
	return t.updateFrame(id, data, now, false)
}

// UpdatePulledFrame stores a frame read from the camera's registered stream.
func (t *Table) UpdatePulledFrame(id int, data []byte, now time.Time) error {
	return t.updateFrame(id, data, now, true)
}

func (t *Table) updateFrame(id int, data []byte, now time.Time, pulled bool) error {
	e, err := t.lookup(id)
	if err != nil {
		return err
	}

	if len(data) == 0 {
		return apperror.EmptyFrame
	}
	if len(data) > t.maxFrameSize {
		return apperror.FrameTooLarge.SetMessage(fmt.Sprintf("Frame of %d bytes exceeds the %d byte limit", len(data), t.maxFrameSize))
	}

	e.mu.Lock()
	e.slot.Frame = data
	e.slot.FrameLastUpdate = now
	e.slot.Pulled = pulled
	e.mu.Unlock()
	return nil
}

func (t *Table) SetStreamURL(id int, url string) error {
	e, err := t.lookup(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.slot.StreamURL = url
	e.mu.Unlock()
	return nil
}

// List returns a snapshot of every slot ordered by camera id. Each slot is
// read under its own lock; the result is not a consistent cut across cameras.
func (t *Table) List() []Entry {
	out := make([]Entry, 0, len(t.entries))
	for i, e := range t.entries {
		e.mu.RLock()
		out = append(out, Entry{ID: i + 1, Slot: e.slot})
		e.mu.RUnlock()
	}
	return out
}

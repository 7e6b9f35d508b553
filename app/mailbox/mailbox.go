// Package mailbox is a single-slot command cell between alarm events and a
// polling dashboard. Writes overwrite, reads consume; only the latest
// command survives until it is taken.
package mailbox

import "sync"

type Mailbox struct {
	mu      sync.Mutex
	pending *string
}

func New() *Mailbox {
	return &Mailbox{}
}

func (m *Mailbox) Publish(command string) {
	m.mu.Lock()
	m.pending = &command
	m.mu.Unlock()
}

// TakeLatest returns the pending command and clears it in one step. It
// reports false when nothing is pending.
func (m *Mailbox) TakeLatest() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pending == nil {
		return "", false
	}
	command := *m.pending
	m.pending = nil
	return command, true
}

// Peek returns the pending command without consuming it.
func (m *Mailbox) Peek() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pending == nil {
		return "", false
	}
	return *m.pending, true
}

package mailbox

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTakeLatestConsumes(t *testing.T) {
	m := New()

	_, ok := m.TakeLatest()
	assert.False(t, ok)

	m.Publish("trigger_alarm_1")

	cmd, ok := m.TakeLatest()
	assert.True(t, ok)
	assert.Equal(t, "trigger_alarm_1", cmd)

	_, ok = m.TakeLatest()
	assert.False(t, ok)
}

func TestLatestWins(t *testing.T) {
	m := New()
	m.Publish("trigger_alarm_3")
	m.Publish("clear_alarm_3")

	peeked, _ := m.Peek()
	assert.Equal(t, "clear_alarm_3", peeked)

	cmd, ok := m.TakeLatest()
	assert.True(t, ok)
	assert.Equal(t, "clear_alarm_3", cmd)

	_, ok = m.TakeLatest()
	assert.False(t, ok)
}

func TestConcurrentTakeDeliversOnce(t *testing.T) {
	for round := 0; round < 100; round++ {
		m := New()
		m.Publish(fmt.Sprintf("trigger_alarm_%d", round))

		var got atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, ok := m.TakeLatest(); ok {
					got.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), got.Load())
	}
}

package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var epoch = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

func TestManual_FiresInDueOrder(t *testing.T) {
	m := NewManual(epoch)
	var order []string

	m.ScheduleOnce(3*time.Second, func() { order = append(order, "c") })
	m.ScheduleOnce(time.Second, func() { order = append(order, "a") })
	m.ScheduleOnce(time.Second, func() { order = append(order, "b") })

	assert.Equal(t, 0, m.Advance(500*time.Millisecond))
	assert.Equal(t, 2, m.Advance(time.Second))
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, epoch.Add(1500*time.Millisecond), m.Now())

	assert.Equal(t, 1, m.Advance(time.Hour))
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Zero(t, m.Pending())
}

func TestManual_Cancel(t *testing.T) {
	m := NewManual(epoch)
	fired := false
	cancel := m.ScheduleOnce(time.Second, func() { fired = true })

	cancel()
	cancel()
	m.Advance(time.Minute)
	assert.False(t, fired)
}

func TestManual_CallbackSchedulesWithinWindow(t *testing.T) {
	m := NewManual(epoch)
	var at []time.Time

	m.ScheduleOnce(time.Second, func() {
		at = append(at, m.Now())
		m.ScheduleOnce(time.Second, func() { at = append(at, m.Now()) })
		m.ScheduleOnce(time.Hour, func() { at = append(at, m.Now()) })
	})

	assert.Equal(t, 2, m.Advance(5*time.Second))
	assert.Equal(t, []time.Time{epoch.Add(time.Second), epoch.Add(2 * time.Second)}, at)
	assert.Equal(t, []time.Time{epoch.Add(time.Second + time.Hour)}, m.Deadlines())
}

func TestReal_FiresOnce(t *testing.T) {
	var calls atomic.Int32
	done := make(chan struct{})

	Real{}.ScheduleOnce(5*time.Millisecond, func() {
		calls.Add(1)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("callback did not fire")
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestReal_CancelStopsTimer(t *testing.T) {
	var calls atomic.Int32
	cancel := Real{}.ScheduleOnce(50*time.Millisecond, func() { calls.Add(1) })
	cancel()

	time.Sleep(100 * time.Millisecond)
	require.Zero(t, calls.Load())
}

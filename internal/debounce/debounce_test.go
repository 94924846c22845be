package debounce

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncer_BurstYieldsOneCall(t *testing.T) {
	var calls int32
	d := New(30*time.Millisecond, func() { atomic.AddInt32(&calls, 1) })

	for i := 0; i < 10; i++ {
		d.Trigger()
		time.Sleep(2 * time.Millisecond)
	}
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, 5*time.Millisecond)

	time.Sleep(60 * time.Millisecond)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestDebouncer_FlushAndStop(t *testing.T) {
	var calls int32
	d := New(time.Hour, func() { atomic.AddInt32(&calls, 1) })

	d.Flush()
	assert.EqualValues(t, 0, atomic.LoadInt32(&calls), "nothing pending")

	d.Trigger()
	d.Flush()
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	d.Trigger()
	d.Stop()
	d.Trigger()
	d.Flush()
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

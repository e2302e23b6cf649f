package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArmFiresAfterDuration(t *testing.T) {
	var h Handle
	fired := make(chan struct{}, 1)

	h.Arm(5*time.Millisecond, func() { fired <- struct{}{} })
	assert.True(t, h.Active())

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestStopPreventsCallback(t *testing.T) {
	var h Handle
	fired := make(chan struct{}, 1)

	h.Arm(50*time.Millisecond, func() { fired <- struct{}{} })
	h.Stop()
	assert.False(t, h.Active())

	select {
	case <-fired:
		t.Fatal("callback fired after Stop")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRearmCancelsPreviousCallback(t *testing.T) {
	var h Handle
	calls := make(chan int, 2)

	h.Arm(10*time.Millisecond, func() { calls <- 1 })
	h.Arm(30*time.Millisecond, func() { calls <- 2 })

	select {
	case n := <-calls:
		require.Equal(t, 2, n, "re-arming must cancel the previous timer, not let both fire")
	case <-time.After(time.Second):
		t.Fatal("rearmed timer did not fire")
	}

	select {
	case <-calls:
		t.Fatal("the superseded timer must not have fired too")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStopOnInactiveHandleIsSafe(t *testing.T) {
	var h Handle
	assert.NotPanics(t, func() { h.Stop() })
	assert.False(t, h.Active())
}

package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAlarmFires(t *testing.T) {
	fired := make(chan time.Duration, 1)
	alarm := NewAlarm(func(elapsed time.Duration) { fired <- elapsed })
	alarm.Start(5 * time.Millisecond)
	require.True(t, alarm.IsRunning())

	select {
	case elapsed := <-fired:
		require.GreaterOrEqual(t, elapsed, 5*time.Millisecond)
	case <-time.After(time.Second):
		t.Fatal("alarm didn't fire")
	}
	require.False(t, alarm.IsRunning())
}

func TestAlarmReset(t *testing.T) {
	fired := make(chan time.Duration, 1)
	alarm := NewAlarm(func(elapsed time.Duration) { fired <- elapsed })
	alarm.Start(10 * time.Millisecond)
	alarm.Reset()
	require.False(t, alarm.IsRunning())

	select {
	case <-fired:
		t.Fatal("alarm fired after reset")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAlarmRestartReplaces(t *testing.T) {
	fired := make(chan time.Duration, 2)
	alarm := NewAlarm(func(elapsed time.Duration) { fired <- elapsed })
	alarm.Start(time.Hour)
	alarm.Start(5 * time.Millisecond)

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("alarm didn't fire")
	}
	// the first timeout was replaced, not stacked
	select {
	case <-fired:
		t.Fatal("alarm fired twice")
	case <-time.After(50 * time.Millisecond):
	}
}

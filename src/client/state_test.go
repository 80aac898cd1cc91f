package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionHappyPath(t *testing.T) {
	t.Parallel()

	m := NewMachine(0)
	require.Equal(t, DefaultMaxAttempts, m.MaxAttempts)

	m, action := Transition(m, EventDial)
	assert.Equal(t, StateConnecting, m.State)
	assert.Equal(t, ActionDial, action)

	m, action = Transition(m, EventOpen)
	assert.Equal(t, StateConnected, m.State)
	assert.Equal(t, ActionReplay, action)

	m, action = Transition(m, EventClose)
	assert.Equal(t, StateDisconnected, m.State)
	assert.Equal(t, ActionStop, action)
}

func TestTransitionCapExceeded(t *testing.T) {
	t.Parallel()

	m, _ := Transition(NewMachine(3), EventDial)
	for i := 1; i <= 3; i++ {
		var action Action
		m, action = Transition(m, EventDialFailed)
		require.Equal(t, ActionScheduleRetry, action)
		require.Equal(t, StateReconnecting, m.State)
		require.Equal(t, i, m.Attempts)

		m, action = Transition(m, EventRetryDue)
		require.Equal(t, ActionDial, action)
	}

	m, action := Transition(m, EventDialFailed)
	assert.Equal(t, StateFailed, m.State)
	assert.Equal(t, ActionReportLost, action)

	// Failed is terminal.
	for _, ev := range []Event{EventDial, EventOpen, EventRetryDue, EventClose} {
		next, action := Transition(m, ev)
		assert.Equal(t, m, next)
		assert.Equal(t, ActionNone, action)
	}
}

func TestTransitionSuccessResetsAttempts(t *testing.T) {
	t.Parallel()

	m, _ := Transition(NewMachine(5), EventDial)
	m, _ = Transition(m, EventDialFailed)
	m, _ = Transition(m, EventRetryDue)
	m, _ = Transition(m, EventDialFailed)
	require.Equal(t, 2, m.Attempts)
	m, _ = Transition(m, EventRetryDue)

	m, _ = Transition(m, EventOpen)
	assert.Zero(t, m.Attempts)

	m, action := Transition(m, EventLost)
	assert.Equal(t, StateReconnecting, m.State)
	assert.Equal(t, ActionScheduleRetry, action)
	assert.Equal(t, 1, m.Attempts)
}

func TestTransitionIgnoresOutOfOrderEvents(t *testing.T) {
	t.Parallel()

	m := NewMachine(5)
	next, action := Transition(m, EventOpen)
	assert.Equal(t, m, next)
	assert.Equal(t, ActionNone, action)

	m, _ = Transition(m, EventDial)
	next, action = Transition(m, EventRetryDue)
	assert.Equal(t, m, next)
	assert.Equal(t, ActionNone, action)
}

func TestStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "reconnecting", StateReconnecting.String())
	assert.Equal(t, "state(42)", State(42).String())
}

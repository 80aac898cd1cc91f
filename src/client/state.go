package client

import "fmt"

const (
	DefaultMaxAttempts = 5
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed // terminal, "connection lost"
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type Event int

const (
	EventDial       Event = iota // application asks to connect
	EventOpen                    // socket established
	EventDialFailed              // dial attempt failed
	EventLost                    // established socket closed unexpectedly
	EventRetryDue                // reconnect delay elapsed
	EventClose                   // application asks to disconnect
)

// Action is the side effect the driver performs after a transition.
type Action int

const (
	ActionNone Action = iota
	ActionDial
	ActionReplay
	ActionScheduleRetry
	ActionReportLost
	ActionStop
)

// Machine is the reconnect state. Attempts counts consecutive failed
// connections since the last successful open.
type Machine struct {
	State       State
	Attempts    int
	MaxAttempts int
}

func NewMachine(maxAttempts int) Machine {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return Machine{State: StateDisconnected, MaxAttempts: maxAttempts}
}

// -----------------------------------------------------------------------------

// Transition is pure: it returns the next machine and the action to run.
// Failed absorbs every event.
func Transition(m Machine, ev Event) (Machine, Action) {
	if m.State == StateFailed {
		return m, ActionNone
	}
	if ev == EventClose {
		m.State = StateDisconnected
		m.Attempts = 0
		return m, ActionStop
	}

	switch m.State {
	case StateDisconnected:
		if ev == EventDial {
			m.State = StateConnecting
			return m, ActionDial
		}

	case StateConnecting:
		switch ev {
		case EventOpen:
			m.State = StateConnected
			m.Attempts = 0
			return m, ActionReplay
		case EventDialFailed:
			return retryOrFail(m)
		}

	case StateConnected:
		if ev == EventLost {
			return retryOrFail(m)
		}

	case StateReconnecting:
		if ev == EventRetryDue {
			m.State = StateConnecting
			return m, ActionDial
		}
	}
	return m, ActionNone
}

func retryOrFail(m Machine) (Machine, Action) {
	if m.Attempts < m.MaxAttempts {
		m.State = StateReconnecting
		m.Attempts++
		return m, ActionScheduleRetry
	}
	m.State = StateFailed
	return m, ActionReportLost
}

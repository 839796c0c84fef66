// Package session implements the per-connection protocol lifecycle.
package session

// State is the lifecycle state of a session.
// Transitions only move forward:
// Uninitialized -> Initialized -> ShuttingDown -> Terminated,
// and exit may jump to Terminated from any state.
type State int

const (
	// Uninitialized is the state before a successful initialize.
	Uninitialized State = iota

	// Initialized accepts completion requests.
	Initialized

	// ShuttingDown rejects everything except exit.
	ShuttingDown

	// Terminated is final; the connection is closed.
	Terminated
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case ShuttingDown:
		return "shutting-down"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// ExitStatus tells how a session ended.
type ExitStatus int

const (
	// ExitNone means the session has not received exit.
	ExitNone ExitStatus = iota

	// ExitGraceful means exit followed a shutdown request.
	ExitGraceful

	// ExitForced means exit arrived without a prior shutdown.
	ExitForced
)

func (e ExitStatus) String() string {
	switch e {
	case ExitGraceful:
		return "graceful"
	case ExitForced:
		return "forced"
	default:
		return "none"
	}
}

// Code returns the process exit code for the status, following LSP:
// 0 after shutdown, 1 otherwise.
func (e ExitStatus) Code() int {
	if e == ExitGraceful {
		return 0
	}

	return 1
}

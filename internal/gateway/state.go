package gateway

import "github.com/deixis/execgate/internal/runner"

// State is a step of the per-request lifecycle:
//
//	Received -> (Queued) -> Spawning -> Running -> Completed | SpawnFailed | TimedOut | Canceled
//	Received -> Rejected
type State string

const (
	StateReceived    State = "received"
	StateQueued      State = "queued"
	StateSpawning    State = "spawning"
	StateRunning     State = "running"
	StateCompleted   State = "completed"
	StateSpawnFailed State = "spawn_failed"
	StateTimedOut    State = "timed_out"
	StateCanceled    State = "canceled"
	StateRejected    State = "rejected"
)

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateSpawnFailed, StateTimedOut, StateCanceled, StateRejected:
		return true
	}
	return false
}

func terminalState(o runner.Outcome) State {
	switch o {
	case runner.Completed:
		return StateCompleted
	case runner.SpawnFailed:
		return StateSpawnFailed
	case runner.TimedOut:
		return StateTimedOut
	default:
		return StateCanceled
	}
}

package runner

import "time"

// Outcome classifies how an execution ended.
type Outcome string

const (
	// Completed means the process ran and exited on its own, whatever its
	// exit code. A non-zero exit is not a failure at this level.
	Completed Outcome = "completed"
	// SpawnFailed means the shell could not be started, or the shell could
	// not find or execute the requested program (exit 127/126, no stdout).
	SpawnFailed Outcome = "spawn_failed"
	// TimedOut means the deadline expired and the process group was killed.
	TimedOut Outcome = "timed_out"
	// Canceled means the caller gave up and the process group was killed.
	Canceled Outcome = "canceled"
)

// Result holds the output of a command execution.
type Result struct {
	RunID      string    `json:"run_id"`
	Command    string    `json:"command"`
	Outcome    Outcome   `json:"outcome"`
	Failed     bool      `json:"failed"`
	ExitCode   *int      `json:"exit_code"` // nil when the process never exited on its own
	PID        int       `json:"pid,omitempty"`
	Stdout     string    `json:"stdout"`
	Stderr     string    `json:"stderr"`
	Err        string    `json:"error,omitempty"` // spawn, timeout or cancel description
	Truncated  bool      `json:"truncated,omitempty"`
	Started    time.Time `json:"started"`
	Finished   time.Time `json:"finished"`
	DurationMS int64     `json:"duration_ms"`
}

func (r *Result) finish() {
	r.Finished = time.Now().UTC()
	r.DurationMS = r.Duration().Milliseconds()
}

// Duration returns the wall time between spawn and termination.
func (r *Result) Duration() time.Duration {
	if r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// Code returns the exit code and whether the process exited on its own.
func (r *Result) Code() (int, bool) {
	if r.ExitCode == nil {
		return 0, false
	}
	return *r.ExitCode, true
}

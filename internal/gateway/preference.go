package gateway

import (
	"fmt"

	"github.com/deixis/execgate/internal/runner"
)

// OutputPreference selects the response body of a completed execution.
// Exit codes never influence the choice; a non-zero exit with output is a
// successful response. Callers that care read the exit code separately.
type OutputPreference string

const (
	// StdoutThenStderr returns stdout, or stderr when stdout is empty.
	StdoutThenStderr OutputPreference = "stdout_then_stderr"
	// StdoutOnly returns stdout even when it is empty.
	StdoutOnly OutputPreference = "stdout"
	// Combined returns stdout followed by stderr.
	Combined OutputPreference = "combined"
)

// ParsePreference validates a preference name. Empty selects StdoutThenStderr.
func ParsePreference(name string) (OutputPreference, error) {
	switch p := OutputPreference(name); p {
	case "":
		return StdoutThenStderr, nil
	case StdoutThenStderr, StdoutOnly, Combined:
		return p, nil
	default:
		return "", fmt.Errorf("unknown output preference %q", name)
	}
}

// Select returns the body for res under p.
func (p OutputPreference) Select(res *runner.Result) string {
	switch p {
	case StdoutOnly:
		return res.Stdout
	case Combined:
		return res.Stdout + res.Stderr
	default:
		if res.Stdout != "" {
			return res.Stdout
		}
		return res.Stderr
	}
}

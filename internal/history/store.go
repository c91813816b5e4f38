// Package history keeps execution results so they can be looked up by run
// ID after the response that carried them has been sent.
package history

import (
	"errors"
	"regexp"

	"github.com/deixis/execgate/internal/runner"
)

// ErrNotFound is returned by Load when no record exists for a run ID.
var ErrNotFound = errors.New("execution not found")

// Store persists and retrieves execution results.
type Store interface {
	Save(result *runner.Result) error
	Load(runID string) (*runner.Result, error)
}

// validID guards disk paths; run IDs are UUIDs.
var validID = regexp.MustCompile(`^[0-9a-fA-F-]{1,64}$`)

// Package gateway turns execution requests into shell processes. It admits
// requests into a bounded pool of slots, runs each through an injected
// Executor, picks the response body and records the result.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/deixis/execgate/internal/history"
	"github.com/deixis/execgate/internal/observability"
	"github.com/deixis/execgate/internal/runner"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// StatusClientClosedRequest is reported when the caller went away before
// its command finished. Nobody reads it, but it is logged and counted.
const StatusClientClosedRequest = 499

// ErrBusy is returned when every slot is taken and the wait queue is full.
var ErrBusy = errors.New("too many pending executions")

// Executor runs one command line and reports how it ended.
// Implemented by runner.Runner.
type Executor interface {
	Run(ctx context.Context, command string) (*runner.Result, error)
}

// Options configures a Gateway.
type Options struct {
	MaxConcurrent int // processes running at once; < 1 means 1
	MaxQueue      int // requests waiting for a slot; < 0 means 0
	Preference    OutputPreference
	Store         history.Store // nil disables recording
	Logger        zerolog.Logger
}

// Gateway is safe for concurrent use. Executions share nothing but the
// admission counters and the history store.
type Gateway struct {
	exec     Executor
	slots    *semaphore.Weighted
	capacity int64
	admitted atomic.Int64
	running  atomic.Int64
	pref     OutputPreference
	store    history.Store
	log      zerolog.Logger
}

// New creates a Gateway around exec.
func New(exec Executor, opts Options) *Gateway {
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	if opts.MaxQueue < 0 {
		opts.MaxQueue = 0
	}
	if opts.Preference == "" {
		opts.Preference = StdoutThenStderr
	}
	return &Gateway{
		exec:     exec,
		slots:    semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		capacity: int64(opts.MaxConcurrent + opts.MaxQueue),
		pref:     opts.Preference,
		store:    opts.Store,
		log:      opts.Logger,
	}
}

// Response is the protocol-level answer to one execution request.
type Response struct {
	Status int
	Body   string
	Result *runner.Result
}

// Execute runs command and waits for its process to terminate.
//
// Requests refused before spawning return an error (see ErrorStatus).
// Every spawned process yields a Response, failed or not.
func (g *Gateway) Execute(ctx context.Context, command string) (*Response, error) {
	g.log.Debug().Str("state", string(StateReceived)).Str("command", command).Msg("execution")

	if command == "" {
		return nil, g.reject(runner.ErrEmptyCommand, "empty")
	}

	release, err := g.admit(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	g.log.Debug().Str("state", string(StateSpawning)).Str("command", command).Msg("execution")
	g.running.Add(1)
	observability.ExecutionStarted()
	res, err := g.exec.Run(ctx, command)
	observability.ExecutionStopped()
	g.running.Add(-1)
	if err != nil {
		reason := "error"
		if errors.Is(err, runner.ErrDenied) {
			reason = "denied"
		}
		return nil, g.reject(err, reason)
	}

	observability.RecordExecution(string(res.Outcome), res.Duration())
	g.record(res)

	resp := &Response{Result: res}
	switch res.Outcome {
	case runner.Completed:
		resp.Status = http.StatusOK
		resp.Body = g.pref.Select(res)
	case runner.SpawnFailed:
		resp.Status = http.StatusInternalServerError
		resp.Body = failureBody(res)
	case runner.TimedOut:
		resp.Status = http.StatusGatewayTimeout
		resp.Body = failureBody(res)
	default:
		resp.Status = StatusClientClosedRequest
		resp.Body = failureBody(res)
	}

	event := g.log.Info()
	if res.Failed {
		event = g.log.Warn()
	}
	if code, ok := res.Code(); ok {
		event = event.Int("exit_code", code)
	}
	event.
		Str("run_id", res.RunID).
		Str("state", string(terminalState(res.Outcome))).
		Int("status", resp.Status).
		Dur("duration", res.Duration()).
		Bool("truncated", res.Truncated).
		Msg("execution finished")

	return resp, nil
}

// OnStart marks the Running transition. Wire it to runner.Runner.OnStart.
func (g *Gateway) OnStart(runID string, pid int) {
	g.log.Debug().Str("state", string(StateRunning)).Str("run_id", runID).Int("pid", pid).Msg("execution")
}

// Lookup returns the recorded result for runID.
func (g *Gateway) Lookup(runID string) (*runner.Result, error) {
	if g.store == nil {
		return nil, history.ErrNotFound
	}
	return g.store.Load(runID)
}

// InFlight returns the number of admitted requests, running or queued.
func (g *Gateway) InFlight() int64 { return g.admitted.Load() }

// Running returns the number of requests currently inside the Executor.
func (g *Gateway) Running() int64 { return g.running.Load() }

// admit reserves a slot, waiting in the queue if needed.
func (g *Gateway) admit(ctx context.Context) (func(), error) {
	if n := g.admitted.Add(1); n > g.capacity {
		g.admitted.Add(-1)
		return nil, g.reject(ErrBusy, "busy")
	}

	if !g.slots.TryAcquire(1) {
		g.log.Debug().Str("state", string(StateQueued)).Msg("execution")
		observability.QueueEntered()
		err := g.slots.Acquire(ctx, 1)
		observability.QueueLeft()
		if err != nil {
			g.admitted.Add(-1)
			return nil, g.reject(fmt.Errorf("waiting for a slot: %w", err), "abandoned")
		}
	}

	return func() {
		g.slots.Release(1)
		g.admitted.Add(-1)
	}, nil
}

func (g *Gateway) reject(err error, reason string) error {
	observability.RecordRejection(reason)
	g.log.Warn().Err(err).Str("state", string(StateRejected)).Str("reason", reason).Msg("execution")
	return err
}

func (g *Gateway) record(res *runner.Result) {
	if g.store == nil {
		return
	}
	if err := g.store.Save(res); err != nil {
		g.log.Warn().Err(err).Str("run_id", res.RunID).Msg("recording execution")
	}
}

// failureBody prefers what the shell said, then our own description.
func failureBody(res *runner.Result) string {
	if res.Stderr != "" {
		return res.Stderr
	}
	return res.Err
}

// ErrorStatus maps an error returned by Execute to an HTTP status.
func ErrorStatus(err error) int {
	switch {
	case errors.Is(err, runner.ErrEmptyCommand):
		return http.StatusBadRequest
	case errors.Is(err, runner.ErrDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrBusy):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

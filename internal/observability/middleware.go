package observability

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Context keys a handler sets so the request log line can name the
// execution it served.
const (
	KeyRunID    = "execgate.run_id"
	KeyExitCode = "execgate.exit_code"
)

// unmatchedPath labels requests no route matched, keeping metric
// cardinality bounded.
const unmatchedPath = "unmatched"

// Instrument logs and counts every request. Requests to quietPaths
// (probes, scrapes) are logged at debug level unless they fail.
func Instrument(logger zerolog.Logger, quietPaths ...string) gin.HandlerFunc {
	quiet := make(map[string]struct{}, len(quietPaths))
	for _, p := range quietPaths {
		quiet[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = unmatchedPath
		}
		RecordHTTPRequest(c.Request.Method, route, status, elapsed)

		var event *zerolog.Event
		_, isQuiet := quiet[route]
		switch {
		case status >= 500:
			event = logger.Error()
		case status >= 400:
			// includes 499: the client left before its command finished
			event = logger.Warn()
		case isQuiet:
			event = logger.Debug()
		default:
			event = logger.Info()
		}

		if id := c.GetString(KeyRunID); id != "" {
			event = event.Str("run_id", id)
		}
		if code, ok := c.Get(KeyExitCode); ok {
			event = event.Interface("exit_code", code)
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("route", route).
			Int("status", status).
			Dur("duration", elapsed).
			Str("client_ip", c.ClientIP()).
			Int("bytes", c.Writer.Size()).
			Msg("http request")
	}
}

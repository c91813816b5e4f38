package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/deixis/execgate"
	"github.com/deixis/execgate/internal/gateway"
	"github.com/deixis/execgate/internal/history"
	"github.com/deixis/execgate/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const textPlain = "text/plain; charset=utf-8"

// executeRequest is the body of POST /execute-command.
type executeRequest struct {
	Command string `json:"command"`
}

func (s *Server) registerRoutes(mcpHandler http.Handler) {
	s.router.POST("/execute-command", s.handleExecute)
	s.router.GET("/executions/:id", s.handleExecution)

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"uptime":    time.Since(s.started).String(),
			"version":   execgate.Version,
			"running":   s.gw.Running(),
			"in_flight": s.gw.InFlight(),
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if mcpHandler != nil {
		s.router.Any("/mcp", gin.WrapH(mcpHandler))
	}
}

// handleExecute answers with the raw output text. Status 200 covers every
// process that ran, whatever its exit code; X-Exit-Code carries the code.
func (s *Server) handleExecute(c *gin.Context) {
	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Data(http.StatusBadRequest, textPlain, []byte("invalid request body: "+err.Error()))
		return
	}

	resp, err := s.gw.Execute(c.Request.Context(), req.Command)
	if err != nil {
		c.Data(gateway.ErrorStatus(err), textPlain, []byte(err.Error()))
		return
	}

	c.Header(HeaderRunID, resp.Result.RunID)
	c.Set(observability.KeyRunID, resp.Result.RunID)
	if code, ok := resp.Result.Code(); ok {
		c.Header(HeaderExitCode, strconv.Itoa(code))
		c.Set(observability.KeyExitCode, code)
	}
	c.Data(resp.Status, textPlain, []byte(resp.Body))
}

func (s *Server) handleExecution(c *gin.Context) {
	res, err := s.gw.Lookup(c.Param("id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, history.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

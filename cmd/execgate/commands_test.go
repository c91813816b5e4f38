package main

import (
	"context"
	"net/http"
	"os"
	"testing"

	"github.com/deixis/execgate/internal/config"
	"github.com/deixis/execgate/internal/gateway"
	"github.com/deixis/execgate/internal/runner"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestExitCode(t *testing.T) {
	three := 3
	zero := 0
	tests := []struct {
		name string
		resp *gateway.Response
		want int
	}{
		{"success", &gateway.Response{Status: http.StatusOK, Result: &runner.Result{ExitCode: &zero}}, 0},
		{"non-zero exit", &gateway.Response{Status: http.StatusOK, Result: &runner.Result{ExitCode: &three}}, 3},
		{"spawn failure", &gateway.Response{Status: http.StatusInternalServerError, Result: &runner.Result{ExitCode: &three}}, 1},
		{"timeout", &gateway.Response{Status: http.StatusGatewayTimeout, Result: &runner.Result{}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, exitCode(tt.resp))
		})
	}
}

func TestNewGateway_AllowList(t *testing.T) {
	cfg := &config.Config{
		Dir:     t.TempDir(),
		Allow:   []string{"echo"},
		History: config.HistoryConfig{Dir: t.TempDir()},
	}
	gw, err := newGateway(cfg, zerolog.Nop())
	require.NoError(t, err)

	resp, err := gw.Execute(context.Background(), "echo hi")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status)
	require.Equal(t, "hi\n", resp.Body)

	stored, err := gw.Lookup(resp.Result.RunID)
	require.NoError(t, err)
	require.Equal(t, "echo hi", stored.Command)

	_, err = gw.Execute(context.Background(), "id")
	require.ErrorIs(t, err, runner.ErrDenied)
}

func TestNewGateway_MemoryOnlyHistory(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	gw, err := newGateway(&config.Config{Dir: t.TempDir()}, zerolog.Nop())
	require.NoError(t, err)

	resp, err := gw.Execute(context.Background(), "echo hi")
	require.NoError(t, err)

	stored, err := gw.Lookup(resp.Result.RunID)
	require.NoError(t, err)
	require.Equal(t, "hi\n", stored.Stdout)

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	require.Empty(t, entries, "no history written to disk without history.dir")
}

func TestNewGateway_BadPreference(t *testing.T) {
	cfg := &config.Config{OutputPreference: "stderr_only"}
	_, err := newGateway(cfg, zerolog.Nop())
	require.Error(t, err)
}

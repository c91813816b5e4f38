package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/deixis/execgate/internal/config"
	"github.com/deixis/execgate/internal/gateway"
	"github.com/deixis/execgate/internal/history"
	egmcp "github.com/deixis/execgate/internal/mcp"
	"github.com/deixis/execgate/internal/runner"
	"github.com/deixis/execgate/internal/server"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var flagServeMCP bool // value of serve --mcp flag

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP gateway",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		gw, err := newGateway(cfg, logger)
		if err != nil {
			return err
		}

		opts := server.Options{
			CorsOrigins: cfg.CorsOrigins,
			Logger:      logger,
		}
		if flagServeMCP {
			mcpServer := egmcp.NewServer(gw)
			opts.MCPHandler = mcpsdk.NewStreamableHTTPHandler(
				func(_ *http.Request) *mcpsdk.Server { return mcpServer },
				nil,
			)
		}

		return server.New(gw, opts).ListenAndServe(ctx, cfg.Addr())
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server on stdio",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		gw, err := newGateway(cfg, logger)
		if err != nil {
			return err
		}
		return egmcp.NewServer(gw).Run(ctx, &mcpsdk.StdioTransport{})
	},
}

var execCmd = &cobra.Command{
	Use:   "exec -- <command>",
	Short: "Run one command through the gateway and print the response body",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		gw, err := newGateway(cfg, logger)
		if err != nil {
			return err
		}

		resp, err := gw.Execute(ctx, strings.Join(args, " "))
		if err != nil {
			return fmt.Errorf("status %d: %w", gateway.ErrorStatus(err), err)
		}

		fmt.Fprint(cmd.OutOrStdout(), resp.Body)
		if code := exitCode(resp); code != 0 {
			os.Exit(code)
		}
		return nil
	},
}

// exitCode maps a gateway response to a process exit status: the command's
// own code when it ran, 1 otherwise.
func exitCode(resp *gateway.Response) int {
	if resp.Status != http.StatusOK {
		return 1
	}
	code, _ := resp.Result.Code()
	return code
}

// newGateway wires runner, history and gateway from the loaded config.
func newGateway(cfg *config.Config, log zerolog.Logger) (*gateway.Gateway, error) {
	pref, err := gateway.ParsePreference(cfg.Preference())
	if err != nil {
		return nil, err
	}

	r := &runner.Runner{
		Shell:     cfg.Shell(),
		Dir:       cfg.Dir,
		Timeout:   cfg.Timeout(),
		MaxOutput: cfg.MaxOutputBytes(),
	}
	if len(cfg.Allow) > 0 {
		r.Policy = runner.NewAllowList(cfg.Allow...)
	}

	var back history.Store
	if cfg.History.Dir != "" {
		back = history.NewDiskStore(cfg.History.Dir, cfg.HistoryKeep())
	}
	store := history.NewLRUStore(cfg.HistoryCapacity(), back)

	gw := gateway.New(r, gateway.Options{
		MaxConcurrent: cfg.MaxConcurrent(),
		MaxQueue:      cfg.MaxQueue(),
		Preference:    pref,
		Store:         store,
		Logger:        log,
	})
	r.OnStart = gw.OnStart

	log.Info().
		Str("shell", r.Shell).
		Dur("timeout", r.Timeout).
		Int("max_concurrent", cfg.MaxConcurrent()).
		Int("max_queue", cfg.MaxQueue()).
		Bool("allow_list", len(cfg.Allow) > 0).
		Msg("gateway ready")
	return gw, nil
}

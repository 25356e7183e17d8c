package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/dotstim/internal/server"
)

// serveFlags holds the flags of the serve command.
type serveFlags struct {
	addr      string
	redisURL  string
	noCache   bool
	maxDots   int
	maxCanvas int
	timeout   time.Duration
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	flags := serveFlags{
		addr:      ":8080",
		maxDots:   server.DefaultMaxDots,
		maxCanvas: server.DefaultMaxCanvas,
		timeout:   server.DefaultTimeout,
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stimuli over HTTP",
		Long: `Serve stimuli over HTTP.

  GET /stimulus.png?number_of_dots=20&desired_hull_area=90000&seed=7
  GET /stimulus.json?number_of_dots=20&seed=7
  GET /healthz

Query parameters use the job file names. Without a seed a random one is
chosen and returned in the X-Dotstim-Seed header. Results are cached in the
local cache, or in Redis with --redis.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVar(&flags.addr, "addr", flags.addr, "listen address")
	cmd.Flags().StringVar(&flags.redisURL, "redis", "", "cache in Redis at this URL (e.g. redis://localhost:6379/0)")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "disable caching")
	cmd.Flags().IntVar(&flags.maxDots, "max-dots", flags.maxDots, "largest number_of_dots accepted")
	cmd.Flags().IntVar(&flags.maxCanvas, "max-canvas", flags.maxCanvas, "largest width or height accepted")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", flags.timeout, "per-request time limit")

	return cmd
}

// runServe serves until ctx is cancelled, then shuts down gracefully.
func (c *CLI) runServe(ctx context.Context, flags serveFlags) error {
	runner, err := c.newRunner(ctx, flags.noCache, flags.redisURL)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	srv := server.New(runner, c.Logger,
		server.WithMaxDots(flags.maxDots),
		server.WithMaxCanvas(flags.maxCanvas),
		server.WithTimeout(flags.timeout),
	)
	httpServer := &http.Server{
		Addr:              flags.addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- httpServer.ListenAndServe() }()
	printInfo("Listening on %s", flags.addr)

	select {
	case err := <-errc:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	c.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/subcommands"
	"github.com/rs/zerolog/log"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/hubclient"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/model"
)

type watchCmd struct {
	out        io.Writer
	maxRetries int
	backoff    string
}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "prints live valuation updates for the token's owner" }
func (*watchCmd) Usage() string {
	return `valuectl watch [-max-retries n] [-backoff 0s,2s,10s,30s]

Subscribes to the server's broadcast channel and prints every valuation
update as one JSON line. Reconnects on connection loss and exits once the
retry budget is spent.
`
}

func (c *watchCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.maxRetries, "max-retries", 5, "Consecutive failed reconnects before giving up")
	f.StringVar(&c.backoff, "backoff", "0s,2s,10s,30s", "Comma-separated reconnect delays; the last repeats")
}

func (c *watchCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if *token == "" {
		fmt.Fprintln(os.Stderr, "Error: -token or $VALUECTL_TOKEN is required")
		return subcommands.ExitUsageError
	}
	backoff, err := parseBackoff(c.backoff)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gaveUp := make(chan error, 1)
	client := hubclient.New(
		hubclient.NewWebsocketDialer(hubURL(*serverURL), hubclient.StaticToken(*token)),
		hubclient.Options{
			MaxRetries: c.maxRetries,
			Backoff:    backoff,
			OnGiveUp: func(err error) {
				select {
				case gaveUp <- err:
				default:
				}
			},
		},
	)
	client.OnUpdate("stdout", c.print)
	defer client.Stop(context.Background(), hubclient.HardStop)

	if err := client.Start(ctx); err != nil {
		log.Warn().Err(err).Msg("initial connection failed, retrying")
	}

	select {
	case <-ctx.Done():
		return subcommands.ExitSuccess
	case err := <-gaveUp:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
}

func (c *watchCmd) print(update model.ValuationUpdate) {
	line, err := json.Marshal(update)
	if err != nil {
		log.Warn().Err(err).Msg("failed to encode update")
		return
	}
	fmt.Fprintln(c.out, string(line))
}

// hubURL maps the server's HTTP base URL to its websocket endpoint.
func hubURL(server string) string {
	server = strings.TrimRight(server, "/")
	switch {
	case strings.HasPrefix(server, "https://"):
		server = "wss://" + strings.TrimPrefix(server, "https://")
	case strings.HasPrefix(server, "http://"):
		server = "ws://" + strings.TrimPrefix(server, "http://")
	}
	return server + "/hub"
}

func parseBackoff(s string) ([]time.Duration, error) {
	parts := strings.Split(s, ",")
	out := make([]time.Duration, 0, len(parts))
	for _, p := range parts {
		d, err := time.ParseDuration(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid backoff %q: %w", p, err)
		}
		if len(out) > 0 && d < out[len(out)-1] {
			return nil, fmt.Errorf("backoff must be non-decreasing, got %s after %s", d, out[len(out)-1])
		}
		out = append(out, d)
	}
	return out, nil
}

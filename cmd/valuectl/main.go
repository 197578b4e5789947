// Command valuectl is an operator CLI for the valuation service: it issues
// development tokens, looks up prices and watches an owner's live updates.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/config"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/logging"
)

var (
	serverURL = flag.String("server", "http://localhost:5001", "Base URL of the valuation server")
	token     = flag.String("token", os.Getenv("VALUECTL_TOKEN"), "Access token (defaults to $VALUECTL_TOKEN)")
	logLevel  = flag.String("log-level", "warn", "Log level for diagnostics on stderr")
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&tokenCmd{out: os.Stdout}, "auth")
	commander.Register(&priceCmd{out: os.Stdout}, "market")
	commander.Register(&watchCmd{out: os.Stdout}, "market")

	flag.Parse()
	logging.Setup(config.LogConfig{Level: *logLevel, Format: "console"})
	os.Exit(int(commander.Execute(context.Background())))
}

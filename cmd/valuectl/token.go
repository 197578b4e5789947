package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/subcommands"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/auth"
)

type tokenCmd struct {
	out    io.Writer
	owner  string
	key    string
	ttl    time.Duration
	genKey bool
}

func (*tokenCmd) Name() string     { return "token" }
func (*tokenCmd) Synopsis() string { return "issues an access token for an owner" }
func (*tokenCmd) Usage() string {
	return `valuectl token -owner <id> [-key <fernet key>]

Issues an access token for the given owner, signed with the server's key
(AUTH_FERNET_KEY unless -key is given). With -genkey, prints a fresh key
suitable for AUTH_FERNET_KEY instead.
`
}

func (c *tokenCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.owner, "owner", "", "Owner ID to embed in the token")
	f.StringVar(&c.key, "key", os.Getenv("AUTH_FERNET_KEY"), "Base64 Fernet key")
	f.DurationVar(&c.ttl, "ttl", time.Hour, "Token lifetime the server will accept")
	f.BoolVar(&c.genKey, "genkey", false, "Print a new random key and exit")
}

func (c *tokenCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.genKey {
		key, err := auth.GenerateKey()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		fmt.Fprintln(c.out, key)
		return subcommands.ExitSuccess
	}

	if c.owner == "" || c.key == "" {
		fmt.Fprintln(os.Stderr, "Error: -owner and a key (-key or AUTH_FERNET_KEY) are required")
		return subcommands.ExitUsageError
	}

	authn, err := auth.New(c.key, c.ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	tok, err := authn.Issue(c.owner)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Fprintln(c.out, tok)
	return subcommands.ExitSuccess
}

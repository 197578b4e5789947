package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/model"
)

type priceCmd struct {
	out    io.Writer
	client *http.Client
}

func (*priceCmd) Name() string     { return "price" }
func (*priceCmd) Synopsis() string { return "prints the current local-currency price of a symbol" }
func (*priceCmd) Usage() string {
	return `valuectl price <symbol> <stock|crypto>

Asks the server for the current price of symbol, converted to the local
currency, and prints it as a decimal.
`
}

func (*priceCmd) SetFlags(*flag.FlagSet) {}

func (c *priceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 2 {
		fmt.Fprint(os.Stderr, c.Usage())
		return subcommands.ExitUsageError
	}

	value, err := c.fetch(ctx, *serverURL, *token, f.Arg(0), f.Arg(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Fprintln(c.out, value)
	return subcommands.ExitSuccess
}

func (c *priceCmd) fetch(ctx context.Context, server, tok, symbol, class string) (string, error) {
	endpoint := strings.TrimRight(server, "/") + "/api/price/" + url.PathEscape(symbol) + "/" + url.PathEscape(class)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	client := c.client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("server returned %s", resp.Status)
	}

	var body model.Envelope[string]
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if !body.Success || body.Data == nil {
		return "", fmt.Errorf("%s", body.Message)
	}
	return *body.Data, nil
}

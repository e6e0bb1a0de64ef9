// Command papertradectl is a command line client for the paper trading server.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	grpcadapter "github.com/simaogato/papertrade-backend/internal/adapter/grpc"
)

var (
	host       string
	token      string
	accountID  string
	timeout    time.Duration
	jsonOutput bool
)

const defaultTimeout = 10 * time.Second

func main() {
	app := cli.NewApp()
	app.Name = "papertradectl"
	app.Usage = "command line interface for the paper trading server"
	app.EnableBashCompletion = true
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:        "host",
			Value:       "localhost:8080",
			Usage:       "the gRPC host to connect to",
			EnvVars:     []string{"PAPERTRADE_HOST"},
			Destination: &host,
		},
		&cli.StringFlag{
			Name:        "token",
			Value:       "dev-token",
			Usage:       "the API token",
			EnvVars:     []string{"PAPERTRADE_GRPC_API_TOKEN"},
			Destination: &token,
		},
		&cli.StringFlag{
			Name:        "account",
			Usage:       "account ID to act on; the server default when empty",
			EnvVars:     []string{"PAPERTRADE_ACCOUNT"},
			Destination: &accountID,
		},
		&cli.DurationFlag{
			Name:        "timeout",
			Value:       defaultTimeout,
			Usage:       "the context timeout for requests",
			Destination: &timeout,
		},
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "print raw JSON responses",
			Destination: &jsonOutput,
		},
	}
	app.Commands = []*cli.Command{
		quoteCommand,
		searchCommand,
		barsCommand,
		buyCommand,
		sellCommand,
		tradesCommand,
		portfolioCommand,
		performanceCommand,
		historyCommand,
		snapshotCommand,
		watchlistCommand,
		accountCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withClient dials the server and hands a request context and client to fn
func withClient(fn func(ctx context.Context, c *cli.Context, client *grpcadapter.Client) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		client, conn, err := grpcadapter.Dial(host, token)
		if err != nil {
			return err
		}
		defer conn.Close()
		client.AccountID = accountID

		ctx, cancel := context.WithTimeout(c.Context, timeout)
		defer cancel()
		return fn(ctx, c, client)
	}
}

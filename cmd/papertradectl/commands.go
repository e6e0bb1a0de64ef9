package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	grpcadapter "github.com/simaogato/papertrade-backend/internal/adapter/grpc"
)

var assetClassFlag = &cli.StringFlag{
	Name:    "asset-class",
	Aliases: []string{"a"},
	Usage:   "stock, etf or crypto",
	Value:   "stock",
}

var periodFlag = &cli.StringFlag{
	Name:    "period",
	Aliases: []string{"p"},
	Usage:   "daily, weekly, monthly, quarterly, yearly, ytd or all_time",
}

var quoteCommand = &cli.Command{
	Name:      "quote",
	Usage:     "gets the current quote for a symbol",
	ArgsUsage: "<symbol>",
	Flags:     []cli.Flag{assetClassFlag},
	Action: withClient(func(ctx context.Context, c *cli.Context, client *grpcadapter.Client) error {
		symbol, err := arg(c, 0, "symbol")
		if err != nil {
			return err
		}
		resp, err := client.GetQuote(ctx, symbol, c.String("asset-class"))
		if err != nil {
			return err
		}
		return render(os.Stdout, resp, renderQuote)
	}),
}

var searchCommand = &cli.Command{
	Name:      "search",
	Usage:     "finds tradable symbols by ticker or name",
	ArgsUsage: "<query>",
	Action: withClient(func(ctx context.Context, c *cli.Context, client *grpcadapter.Client) error {
		query, err := arg(c, 0, "query")
		if err != nil {
			return err
		}
		resp, err := client.SearchSymbols(ctx, query)
		if err != nil {
			return err
		}
		return render(os.Stdout, resp, renderSearch)
	}),
}

var barsCommand = &cli.Command{
	Name:      "bars",
	Usage:     "shows daily OHLC bars for a symbol",
	ArgsUsage: "<symbol>",
	Flags:     []cli.Flag{assetClassFlag, periodFlag},
	Action: withClient(func(ctx context.Context, c *cli.Context, client *grpcadapter.Client) error {
		symbol, err := arg(c, 0, "symbol")
		if err != nil {
			return err
		}
		resp, err := client.GetPriceHistory(ctx, symbol, c.String("asset-class"), c.String("period"))
		if err != nil {
			return err
		}
		return render(os.Stdout, resp, renderBars)
	}),
}

var buyCommand = tradeCommand("buy")

var sellCommand = tradeCommand("sell")

func tradeCommand(action string) *cli.Command {
	return &cli.Command{
		Name:      action,
		Usage:     action + "s a quantity of a symbol at the current market price",
		ArgsUsage: "<symbol> <quantity>",
		Flags:     []cli.Flag{assetClassFlag},
		Action: withClient(func(ctx context.Context, c *cli.Context, client *grpcadapter.Client) error {
			symbol, err := arg(c, 0, "symbol")
			if err != nil {
				return err
			}
			qty, err := arg(c, 1, "quantity")
			if err != nil {
				return err
			}
			resp, err := client.ExecuteTrade(ctx, action, symbol, c.String("asset-class"), qty)
			if err != nil {
				return err
			}
			return render(os.Stdout, resp, renderTrade)
		}),
	}
}

var tradesCommand = &cli.Command{
	Name:  "trades",
	Usage: "lists executed trades, newest first",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "limit", Value: 50, Usage: "maximum trades to list"},
		&cli.IntFlag{Name: "offset", Usage: "trades to skip"},
	},
	Action: withClient(func(ctx context.Context, c *cli.Context, client *grpcadapter.Client) error {
		resp, err := client.ListTrades(ctx, c.Int("limit"), c.Int("offset"))
		if err != nil {
			return err
		}
		return render(os.Stdout, resp, renderTrades)
	}),
}

var portfolioCommand = &cli.Command{
	Name:  "portfolio",
	Usage: "shows holdings marked to market",
	Action: withClient(func(ctx context.Context, c *cli.Context, client *grpcadapter.Client) error {
		resp, err := client.GetPortfolio(ctx)
		if err != nil {
			return err
		}
		return render(os.Stdout, resp, renderPortfolio)
	}),
}

var performanceCommand = &cli.Command{
	Name:  "performance",
	Usage: "shows gains over one period, or every period when none is given",
	Flags: []cli.Flag{periodFlag},
	Action: withClient(func(ctx context.Context, c *cli.Context, client *grpcadapter.Client) error {
		resp, err := client.GetPerformance(ctx, c.String("period"))
		if err != nil {
			return err
		}
		return render(os.Stdout, resp, renderPerformance)
	}),
}

var historyCommand = &cli.Command{
	Name:  "history",
	Usage: "shows the portfolio value series for a period",
	Flags: []cli.Flag{periodFlag},
	Action: withClient(func(ctx context.Context, c *cli.Context, client *grpcadapter.Client) error {
		resp, err := client.GetValueHistory(ctx, c.String("period"))
		if err != nil {
			return err
		}
		return render(os.Stdout, resp, renderHistory)
	}),
}

var snapshotCommand = &cli.Command{
	Name:  "snapshot",
	Usage: "records today's portfolio value now",
	Action: withClient(func(ctx context.Context, c *cli.Context, client *grpcadapter.Client) error {
		resp, err := client.TakeSnapshot(ctx)
		if err != nil {
			return err
		}
		return render(os.Stdout, resp, func(w io.Writer, m map[string]any) error {
			s, _ := m["snapshot"].(map[string]any)
			_, err := fmt.Fprintf(w, "snapshot %s: total %s (cash %s, holdings %s)\n",
				str(s, "date"), formatMoney(s["total_value"]), formatMoney(s["cash_balance"]), formatMoney(s["holdings_value"]))
			return err
		})
	}),
}

var watchlistCommand = &cli.Command{
	Name:  "watchlist",
	Usage: "manages the watchlist",
	Subcommands: []*cli.Command{
		{
			Name:  "ls",
			Usage: "lists watched symbols with their quotes",
			Action: withClient(func(ctx context.Context, c *cli.Context, client *grpcadapter.Client) error {
				resp, err := client.ListWatchlist(ctx)
				if err != nil {
					return err
				}
				return render(os.Stdout, resp, renderWatchlist)
			}),
		},
		{
			Name:      "add",
			Usage:     "watches a symbol",
			ArgsUsage: "<symbol>",
			Flags:     []cli.Flag{assetClassFlag},
			Action: withClient(func(ctx context.Context, c *cli.Context, client *grpcadapter.Client) error {
				symbol, err := arg(c, 0, "symbol")
				if err != nil {
					return err
				}
				resp, err := client.AddWatchlist(ctx, symbol, c.String("asset-class"))
				if err != nil {
					return err
				}
				return render(os.Stdout, resp, func(w io.Writer, m map[string]any) error {
					e, _ := m["entry"].(map[string]any)
					_, err := fmt.Fprintf(w, "watching %s (%s) as %s\n", str(e, "symbol"), str(e, "asset_class"), str(e, "id"))
					return err
				})
			}),
		},
		{
			Name:      "rm",
			Usage:     "removes a watchlist entry",
			ArgsUsage: "<id>",
			Action: withClient(func(ctx context.Context, c *cli.Context, client *grpcadapter.Client) error {
				id, err := arg(c, 0, "id")
				if err != nil {
					return err
				}
				if _, err := client.RemoveWatchlist(ctx, id); err != nil {
					return err
				}
				fmt.Println("removed", id)
				return nil
			}),
		},
	},
}

var accountCommand = &cli.Command{
	Name:  "account",
	Usage: "shows or opens accounts",
	Subcommands: []*cli.Command{
		{
			Name:  "show",
			Usage: "shows the current account",
			Action: withClient(func(ctx context.Context, c *cli.Context, client *grpcadapter.Client) error {
				resp, err := client.GetAccount(ctx)
				if err != nil {
					return err
				}
				return render(os.Stdout, resp, renderAccount)
			}),
		},
		{
			Name:      "open",
			Usage:     "opens a new account",
			ArgsUsage: "<name>",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "balance", Usage: "initial cash; the server default when empty"},
			},
			Action: withClient(func(ctx context.Context, c *cli.Context, client *grpcadapter.Client) error {
				name, err := arg(c, 0, "name")
				if err != nil {
					return err
				}
				resp, err := client.OpenAccount(ctx, name, c.String("balance"))
				if err != nil {
					return err
				}
				return render(os.Stdout, resp, renderAccount)
			}),
		},
	},
}

func arg(c *cli.Context, i int, name string) (string, error) {
	v := c.Args().Get(i)
	if v == "" {
		return "", errors.New(name + " is required")
	}
	return v, nil
}

// render prints resp as JSON with --json, otherwise through fn
func render(w io.Writer, resp map[string]any, fn func(io.Writer, map[string]any) error) error {
	if jsonOutput {
		return printJSON(w, resp)
	}
	return fn(w, resp)
}

func renderQuote(w io.Writer, m map[string]any) error {
	q, _ := m["quote"].(map[string]any)
	_, err := fmt.Fprintf(w, "%s  %s  %s (%s)  via %s at %s\n",
		str(q, "symbol"), formatMoney(q["current_price"]),
		formatSignedMoney(q["change"]), formatPercent(q["change_percent"]),
		str(q, "source"), str(q, "as_of"))
	if err == nil && q["high"] != nil && q["low"] != nil {
		_, err = fmt.Fprintf(w, "  day range %s to %s, open %s, volume %s\n",
			formatMoney(q["low"]), formatMoney(q["high"]), formatMoney(q["open"]), formatQuantity(q["volume"]))
	}
	return err
}

func renderSearch(w io.Writer, m map[string]any) error {
	var rows [][]string
	for _, r := range objects(m, "results") {
		rows = append(rows, []string{str(r, "symbol"), str(r, "asset_class"), str(r, "name"), str(r, "exchange")})
	}
	return table(w, []string{"SYMBOL", "CLASS", "NAME", "EXCHANGE"}, rows)
}

func renderBars(w io.Writer, m map[string]any) error {
	var rows [][]string
	for _, b := range objects(m, "candles") {
		rows = append(rows, []string{
			str(b, "date"), formatMoney(b["open"]), formatMoney(b["high"]), formatMoney(b["low"]),
			formatMoney(b["close"]), formatQuantity(b["volume"]),
		})
	}
	if err := table(w, []string{"DATE", "OPEN", "HIGH", "LOW", "CLOSE", "VOLUME"}, rows); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s %s, %d bars\n", str(m, "symbol"), str(m, "period"), len(rows))
	return err
}

func renderTrade(w io.Writer, m map[string]any) error {
	t, _ := m["trade"].(map[string]any)
	_, err := fmt.Fprintf(w, "%s %s %s @ %s, fee %s, total %s\n",
		str(t, "action"), formatQuantity(t["quantity"]), str(t, "symbol"),
		formatMoney(t["price"]), formatMoney(t["fee"]), formatMoney(t["total_value"]))
	return err
}

func renderTrades(w io.Writer, m map[string]any) error {
	var rows [][]string
	for _, t := range objects(m, "trades") {
		rows = append(rows, []string{
			str(t, "executed_at"), str(t, "action"), str(t, "symbol"),
			formatQuantity(t["quantity"]), formatMoney(t["price"]), formatMoney(t["fee"]), formatMoney(t["total_value"]),
		})
	}
	if err := table(w, []string{"EXECUTED", "ACTION", "SYMBOL", "QTY", "PRICE", "FEE", "TOTAL"}, rows); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d of %s trades\n", len(rows), str(m, "total"))
	return err
}

func renderPortfolio(w io.Writer, m map[string]any) error {
	p, _ := m["portfolio"].(map[string]any)
	var rows [][]string
	for _, h := range objects(p, "holdings") {
		rows = append(rows, []string{
			str(h, "symbol"), str(h, "asset_class"), formatQuantity(h["quantity"]),
			formatMoney(h["average_cost"]), formatMoney(h["current_price"]), formatMoney(h["current_value"]),
			formatSignedMoney(h["unrealized_pnl"]), formatPercent(h["unrealized_pnl_percent"]),
		})
	}
	if err := table(w, []string{"SYMBOL", "CLASS", "QTY", "AVG COST", "PRICE", "VALUE", "P&L", "P&L %"}, rows); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\ncash %s  holdings %s  total %s\n",
		formatMoney(p["cash_balance"]), formatMoney(p["holdings_value"]), formatMoney(p["total_value"]))
	if err == nil && p["complete"] == false {
		_, err = fmt.Fprintln(w, "some quotes were unavailable; totals exclude those holdings")
	}
	return err
}

func renderPerformance(w io.Writer, m map[string]any) error {
	var rows [][]string
	for _, p := range objects(m, "performance") {
		rows = append(rows, []string{
			str(p, "period"), str(p, "start_date"), formatMoney(p["start_value"]), formatMoney(p["end_value"]),
			formatSignedMoney(p["absolute_change"]), formatPercent(p["percent_change"]),
		})
	}
	return table(w, []string{"PERIOD", "SINCE", "START", "END", "CHANGE", "CHANGE %"}, rows)
}

func renderHistory(w io.Writer, m map[string]any) error {
	var rows [][]string
	for _, p := range objects(m, "points") {
		date := str(p, "date")
		if p["live"] == true {
			date += " (live)"
		}
		rows = append(rows, []string{date, formatMoney(p["total_value"]), formatMoney(p["cash_balance"]), formatMoney(p["holdings_value"])})
	}
	return table(w, []string{"DATE", "TOTAL", "CASH", "HOLDINGS"}, rows)
}

func renderWatchlist(w io.Writer, m map[string]any) error {
	var rows [][]string
	for _, it := range objects(m, "items") {
		price, change := na, na
		if q, ok := it["quote"].(map[string]any); ok {
			price, change = formatMoney(q["current_price"]), formatPercent(q["change_percent"])
		}
		rows = append(rows, []string{str(it, "id"), str(it, "symbol"), str(it, "asset_class"), price, change})
	}
	return table(w, []string{"ID", "SYMBOL", "CLASS", "PRICE", "CHANGE %"}, rows)
}

func renderAccount(w io.Writer, m map[string]any) error {
	a, _ := m["account"].(map[string]any)
	_, err := fmt.Fprintf(w, "%s (%s)\ncash %s of initial %s\n",
		str(a, "name"), str(a, "id"), formatMoney(a["cash_balance"]), formatMoney(a["initial_balance"]))
	return err
}

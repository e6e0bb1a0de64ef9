package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// currencyCode is the account currency; balances are always USD
const currencyCode = "USD"

const na = "n/a"

// formatMoney renders a decimal string from a response as e.g. "$1,234.50".
// Missing values render as n/a.
func formatMoney(v any) string {
	d, ok := toDecimal(v)
	if !ok {
		return na
	}
	cur := money.GetCurrency(currencyCode)
	fraction := int32(cur.Fraction)
	minor := d.Round(fraction).Shift(fraction).IntPart()
	return money.New(minor, currencyCode).Display()
}

// formatSignedMoney is formatMoney with an explicit plus sign for gains
func formatSignedMoney(v any) string {
	s := formatMoney(v)
	if d, ok := toDecimal(v); ok && d.IsPositive() {
		return "+" + s
	}
	return s
}

func formatPercent(v any) string {
	d, ok := toDecimal(v)
	if !ok {
		return na
	}
	return d.StringFixed(2) + "%"
}

// formatQuantity trims trailing zeros from a quantity
func formatQuantity(v any) string {
	d, ok := toDecimal(v)
	if !ok {
		return na
	}
	return d.String()
}

func toDecimal(v any) (decimal.Decimal, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func str(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func objects(m map[string]any, key string) []map[string]any {
	raw, _ := m[key].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, it := range raw {
		if o, ok := it.(map[string]any); ok {
			out = append(out, o)
		}
	}
	return out
}

// table writes tab separated rows aligned into columns
func table(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

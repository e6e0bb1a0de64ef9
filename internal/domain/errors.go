package domain

import (
	"context"
	"errors"
)

// Kind classifies a failure so transports can map it without string matching
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidQuantity
	KindInvalidArgument
	KindInsufficientFunds
	KindInsufficientHoldings
	KindInsufficientHistory
	KindQuoteUnavailable
	KindSymbolNotFound
	KindNotFound
	KindAlreadyExists
	KindAccountBusy
	KindCanceled
)

var kindNames = map[Kind]string{
	KindInternal:             "internal",
	KindInvalidQuantity:      "invalid_quantity",
	KindInvalidArgument:      "invalid_argument",
	KindInsufficientFunds:    "insufficient_funds",
	KindInsufficientHoldings: "insufficient_holdings",
	KindInsufficientHistory:  "insufficient_history",
	KindQuoteUnavailable:     "quote_unavailable",
	KindSymbolNotFound:       "symbol_not_found",
	KindNotFound:             "not_found",
	KindAlreadyExists:        "already_exists",
	KindAccountBusy:          "account_busy",
	KindCanceled:             "canceled",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "internal"
}

// Retryable reports whether a caller may retry the same request later
func (k Kind) Retryable() bool {
	return k == KindQuoteUnavailable || k == KindAccountBusy
}

// Sentinel errors. Call sites wrap them with %w and context.
var (
	ErrInvalidQuantity      = errors.New("quantity must be positive")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientHoldings = errors.New("insufficient holdings")
	ErrInsufficientHistory  = errors.New("insufficient history")
	ErrQuoteUnavailable     = errors.New("quote unavailable")
	ErrSymbolNotFound       = errors.New("symbol not found")
	ErrNotFound             = errors.New("not found")
	ErrAlreadyExists        = errors.New("already exists")
	ErrAccountBusy          = errors.New("account busy")
	// ErrConcurrentModification is returned by storage when the account version
	// moved underneath a mutation. The ledger lock makes this unreachable in a
	// single process; it surfaces as AccountBusy.
	ErrConcurrentModification = errors.New("concurrent modification")
)

var sentinelKinds = []struct {
	err  error
	kind Kind
}{
	{ErrInvalidQuantity, KindInvalidQuantity},
	{ErrInvalidArgument, KindInvalidArgument},
	{ErrInsufficientFunds, KindInsufficientFunds},
	{ErrInsufficientHoldings, KindInsufficientHoldings},
	{ErrInsufficientHistory, KindInsufficientHistory},
	{ErrQuoteUnavailable, KindQuoteUnavailable},
	{ErrSymbolNotFound, KindSymbolNotFound},
	{ErrNotFound, KindNotFound},
	{ErrAlreadyExists, KindAlreadyExists},
	{ErrAccountBusy, KindAccountBusy},
	{ErrConcurrentModification, KindAccountBusy},
	{context.Canceled, KindCanceled},
	{context.DeadlineExceeded, KindCanceled},
}

// KindOf returns the Kind of the first sentinel found in err's chain
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	for _, s := range sentinelKinds {
		if errors.Is(err, s.err) {
			return s.kind
		}
	}
	return KindInternal
}

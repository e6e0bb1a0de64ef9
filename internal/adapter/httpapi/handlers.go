package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/simaogato/papertrade-backend/internal/adapter/present"
	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/simaogato/papertrade-backend/internal/usecase/account"
	"github.com/simaogato/papertrade-backend/internal/usecase/trading"
)

const defaultHistoryLimit = 50

var kindStatus = map[domain.Kind]int{
	domain.KindInvalidQuantity:      http.StatusBadRequest,
	domain.KindInvalidArgument:      http.StatusBadRequest,
	domain.KindInsufficientFunds:    http.StatusConflict,
	domain.KindInsufficientHoldings: http.StatusConflict,
	domain.KindInsufficientHistory:  http.StatusConflict,
	domain.KindAlreadyExists:        http.StatusConflict,
	domain.KindSymbolNotFound:       http.StatusNotFound,
	domain.KindNotFound:             http.StatusNotFound,
	domain.KindQuoteUnavailable:     http.StatusServiceUnavailable,
	domain.KindAccountBusy:          http.StatusServiceUnavailable,
	domain.KindCanceled:             http.StatusServiceUnavailable,
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError renders err as {"error", "kind"} with a status chosen by kind
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
		h.Logger.Error("request failed", "uri", r.RequestURI, "error", err)
	}
	writeJSON(w, status, map[string]any{"error": err.Error(), "kind": kind.String()})
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, domain.ErrInvalidArgument)...)
}

// accountID reads X-Account-ID, falling back to the default account
func (h *Handler) accountID(r *http.Request) (uuid.UUID, error) {
	raw := r.Header.Get(AccountHeader)
	if raw == "" {
		if h.DefaultAccountID == uuid.Nil {
			return uuid.Nil, badRequest("%s header is required", AccountHeader)
		}
		return h.DefaultAccountID, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, badRequest("invalid %s %q", AccountHeader, raw)
	}
	return id, nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest("invalid %s %q", key, raw)
	}
	return n, nil
}

func assetClass(raw string) (domain.AssetClass, error) {
	if raw == "" {
		return domain.AssetClassStock, nil
	}
	return domain.ParseAssetClass(raw)
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return badRequest("invalid request body: %v", err)
	}
	return nil
}

// withAccount resolves the account and hands it to fn, rendering any error
func (h *Handler) withAccount(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id uuid.UUID) (any, error)) {
	id, err := h.accountID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	body, err := fn(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	h.withAccount(w, r, func(ctx context.Context, id uuid.UUID) (any, error) {
		acc, err := h.AccountService.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return present.Account(acc), nil
	})
}

type openAccountRequest struct {
	Name           string `json:"name"`
	InitialBalance string `json:"initial_balance"`
}

func (h *Handler) openAccount(w http.ResponseWriter, r *http.Request) {
	var req openAccountRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	input := account.OpenInput{Name: req.Name}
	if req.InitialBalance != "" {
		bal, err := decimal.NewFromString(req.InitialBalance)
		if err != nil {
			h.writeError(w, r, badRequest("invalid initial_balance %q", req.InitialBalance))
			return
		}
		input.InitialBalance = bal
	}

	acc, err := h.AccountService.Open(r.Context(), input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, present.Account(acc))
}

func (h *Handler) getQuote(w http.ResponseWriter, r *http.Request) {
	class, err := assetClass(r.URL.Query().Get("asset_class"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q, err := h.Quotes.Quote(r.Context(), mux.Vars(r)["symbol"], class)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, present.Quote(q))
}

func (h *Handler) searchSymbols(w http.ResponseWriter, r *http.Request) {
	matches, err := h.Catalog.Search(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": present.List(matches, present.SymbolMatch)})
}

func (h *Handler) getPriceHistory(w http.ResponseWriter, r *http.Request) {
	class, err := assetClass(r.URL.Query().Get("asset_class"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	period := domain.PeriodMonthly
	if raw := r.URL.Query().Get("period"); raw != "" {
		if period, err = domain.ParsePeriod(raw); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	symbol := domain.NormalizeSymbol(mux.Vars(r)["symbol"])
	candles, err := h.Catalog.History(r.Context(), symbol, class, period)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":      symbol,
		"asset_class": string(class),
		"period":      period.String(),
		"data":        present.List(candles, present.Candle),
	})
}

type tradeRequest struct {
	Symbol     string `json:"symbol"`
	AssetClass string `json:"asset_class"`
	Action     string `json:"action"`
	Quantity   string `json:"quantity"`
}

func (h *Handler) executeTrade(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.withAccount(w, r, func(ctx context.Context, id uuid.UUID) (any, error) {
		qty, err := decimal.NewFromString(req.Quantity)
		if err != nil {
			return nil, badRequest("invalid quantity %q", req.Quantity)
		}
		action, err := domain.ParseTradeAction(req.Action)
		if err != nil {
			return nil, err
		}
		class, err := assetClass(req.AssetClass)
		if err != nil {
			return nil, err
		}

		trade, err := h.TradingService.Execute(ctx, trading.ExecuteInput{
			AccountID:  id,
			Symbol:     req.Symbol,
			AssetClass: class,
			Action:     action,
			Quantity:   qty,
		})
		if err != nil {
			return nil, err
		}
		return present.Trade(trade), nil
	})
}

func (h *Handler) listTrades(w http.ResponseWriter, r *http.Request) {
	h.withAccount(w, r, func(ctx context.Context, id uuid.UUID) (any, error) {
		limit, err := queryInt(r, "limit", defaultHistoryLimit)
		if err != nil {
			return nil, err
		}
		offset, err := queryInt(r, "offset", 0)
		if err != nil {
			return nil, err
		}
		trades, total, err := h.TradingService.History(ctx, id, limit, offset)
		if err != nil {
			return nil, err
		}
		return map[string]any{"trades": present.List(trades, present.Trade), "total": total}, nil
	})
}

func (h *Handler) getPortfolio(w http.ResponseWriter, r *http.Request) {
	h.withAccount(w, r, func(ctx context.Context, id uuid.UUID) (any, error) {
		v, err := h.ValuationService.Valuate(ctx, id)
		if err != nil {
			return nil, err
		}
		return present.Valuation(v), nil
	})
}

func (h *Handler) getPerformance(w http.ResponseWriter, r *http.Request) {
	h.withAccount(w, r, func(ctx context.Context, id uuid.UUID) (any, error) {
		raw := r.URL.Query().Get("period")
		if raw == "" {
			perfs, err := h.ValuationService.PerformanceSummary(ctx, id)
			if err != nil {
				return nil, err
			}
			return map[string]any{"performance": present.List(perfs, present.Performance)}, nil
		}

		period, err := domain.ParsePeriod(raw)
		if err != nil {
			return nil, err
		}
		perf, err := h.ValuationService.Performance(ctx, id, period)
		if err != nil {
			return nil, err
		}
		return present.Performance(perf), nil
	})
}

func (h *Handler) getValueHistory(w http.ResponseWriter, r *http.Request) {
	h.withAccount(w, r, func(ctx context.Context, id uuid.UUID) (any, error) {
		period := domain.PeriodMonthly
		if raw := r.URL.Query().Get("period"); raw != "" {
			p, err := domain.ParsePeriod(raw)
			if err != nil {
				return nil, err
			}
			period = p
		}
		points, err := h.ValuationService.ValueHistory(ctx, id, period)
		if err != nil {
			return nil, err
		}
		return map[string]any{"period": period.String(), "points": present.List(points, present.ValuePoint)}, nil
	})
}

func (h *Handler) takeSnapshot(w http.ResponseWriter, r *http.Request) {
	h.withAccount(w, r, func(ctx context.Context, id uuid.UUID) (any, error) {
		snap, err := h.ValuationService.TakeSnapshot(ctx, id)
		if err != nil {
			return nil, err
		}
		return present.Snapshot(snap), nil
	})
}

func (h *Handler) listWatchlist(w http.ResponseWriter, r *http.Request) {
	h.withAccount(w, r, func(ctx context.Context, id uuid.UUID) (any, error) {
		items, err := h.WatchlistService.List(ctx, id)
		if err != nil {
			return nil, err
		}
		return map[string]any{"items": present.List(items, present.WatchItem)}, nil
	})
}

type watchlistRequest struct {
	Symbol     string `json:"symbol"`
	AssetClass string `json:"asset_class"`
}

func (h *Handler) addWatchlist(w http.ResponseWriter, r *http.Request) {
	var req watchlistRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := h.accountID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	class, err := assetClass(req.AssetClass)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	entry, err := h.WatchlistService.Add(r.Context(), id, req.Symbol, class)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, present.WatchEntry(entry))
}

func (h *Handler) removeWatchlist(w http.ResponseWriter, r *http.Request) {
	id, err := h.accountID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	entryID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, badRequest("invalid watchlist id %q", mux.Vars(r)["id"]))
		return
	}
	if err := h.WatchlistService.Remove(r.Context(), id, entryID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

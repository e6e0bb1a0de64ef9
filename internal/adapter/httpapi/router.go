// Package httpapi is the JSON-over-HTTP gateway. It exposes the same use cases
// as the gRPC service plus a websocket price stream.
package httpapi

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/simaogato/papertrade-backend/internal/usecase/account"
	"github.com/simaogato/papertrade-backend/internal/usecase/marketdata"
	"github.com/simaogato/papertrade-backend/internal/usecase/pricefeed"
	"github.com/simaogato/papertrade-backend/internal/usecase/trading"
	"github.com/simaogato/papertrade-backend/internal/usecase/valuation"
	"github.com/simaogato/papertrade-backend/internal/usecase/watchlist"
)

// AccountHeader selects the account a request acts on
const AccountHeader = "X-Account-ID"

// Handler serves the HTTP API
type Handler struct {
	Quotes           *marketdata.Aggregator
	Catalog          *marketdata.Catalog
	TradingService   *trading.TradingService
	ValuationService *valuation.ValuationService
	WatchlistService *watchlist.WatchlistService
	AccountService   *account.AccountService
	PriceFeed        *pricefeed.Hub

	APIToken         string
	DefaultAccountID uuid.UUID
	Logger           *slog.Logger
}

// Route is one endpoint of the API
type Route struct {
	Name        string
	Method      string
	Pattern     string
	HandlerFunc http.HandlerFunc
}

func (h *Handler) routes() []Route {
	return []Route{
		{"Health", http.MethodGet, "/health", h.health},
		{"GetAccount", http.MethodGet, "/api/account", h.getAccount},
		{"OpenAccount", http.MethodPost, "/api/accounts", h.openAccount},
		{"GetQuote", http.MethodGet, "/api/market/quote/{symbol}", h.getQuote},
		{"SearchSymbols", http.MethodGet, "/api/market/search", h.searchSymbols},
		{"GetPriceHistory", http.MethodGet, "/api/market/history/{symbol}", h.getPriceHistory},
		{"ExecuteTrade", http.MethodPost, "/api/trades", h.executeTrade},
		{"ListTrades", http.MethodGet, "/api/trades", h.listTrades},
		{"GetPortfolio", http.MethodGet, "/api/portfolio", h.getPortfolio},
		{"GetValueHistory", http.MethodGet, "/api/portfolio/value-history", h.getValueHistory},
		{"TakeSnapshot", http.MethodPost, "/api/portfolio/snapshot", h.takeSnapshot},
		{"GetPerformance", http.MethodGet, "/api/performance", h.getPerformance},
		{"ListWatchlist", http.MethodGet, "/api/watchlist", h.listWatchlist},
		{"AddWatchlist", http.MethodPost, "/api/watchlist", h.addWatchlist},
		{"RemoveWatchlist", http.MethodDelete, "/api/watchlist/{id}", h.removeWatchlist},
		{"PriceStream", http.MethodGet, "/ws/prices", h.priceStream},
	}
}

// NewRouter returns the multiplexer with logging and authentication applied
func (h *Handler) NewRouter() *mux.Router {
	if h.Logger == nil {
		h.Logger = slog.Default()
	}

	router := mux.NewRouter().StrictSlash(true)
	for _, route := range h.routes() {
		var handler http.Handler = route.HandlerFunc
		if route.Name != "Health" {
			handler = h.authenticate(handler)
		}
		handler = h.logRequest(handler, route.Name)

		router.
			Methods(route.Method).
			Path(route.Pattern).
			Name(route.Name).
			Handler(handler)
	}
	return router
}

// statusRecorder captures the response code for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack hands the connection to the websocket upgrader
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (h *Handler) logRequest(inner http.Handler, name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		inner.ServeHTTP(rec, r)

		h.Logger.Debug("http request",
			"method", r.Method,
			"uri", r.RequestURI,
			"route", name,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// authenticate accepts "Authorization: Bearer <token>", or a token query
// parameter since browsers cannot set headers on websocket upgrades
func (h *Handler) authenticate(inner http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.APIToken == "" {
			inner.ServeHTTP(w, r)
			return
		}
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if token != h.APIToken {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid or missing token", "kind": "unauthenticated"})
			return
		}
		inner.ServeHTTP(w, r)
	})
}

package grpc

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/papertrade-backend/internal/adapter/present"
	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/simaogato/papertrade-backend/internal/usecase/account"
	"github.com/simaogato/papertrade-backend/internal/usecase/marketdata"
	"github.com/simaogato/papertrade-backend/internal/usecase/trading"
	"github.com/simaogato/papertrade-backend/internal/usecase/valuation"
	"github.com/simaogato/papertrade-backend/internal/usecase/watchlist"
)

const defaultHistoryLimit = 50

// Server implements the PaperTradeService gRPC server
type Server struct {
	Quotes           *marketdata.Aggregator
	Catalog          *marketdata.Catalog
	TradingService   *trading.TradingService
	ValuationService *valuation.ValuationService
	WatchlistService *watchlist.WatchlistService
	AccountService   *account.AccountService

	// DefaultAccountID is used when a request names no account
	DefaultAccountID uuid.UUID
}

var _ PaperTradeServiceServer = (*Server)(nil)

// NewServer creates a new gRPC server instance
func NewServer(
	quotes *marketdata.Aggregator,
	catalog *marketdata.Catalog,
	tradingService *trading.TradingService,
	valuationService *valuation.ValuationService,
	watchlistService *watchlist.WatchlistService,
	accountService *account.AccountService,
	defaultAccountID uuid.UUID,
) *Server {
	return &Server{
		Quotes:           quotes,
		Catalog:          catalog,
		TradingService:   tradingService,
		ValuationService: valuationService,
		WatchlistService: watchlistService,
		AccountService:   accountService,
		DefaultAccountID: defaultAccountID,
	}
}

// GetQuote handles the GetQuote RPC
func (s *Server) GetQuote(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	a := args(req)
	class, err := a.assetClass()
	if err != nil {
		return nil, mapError(ctx, err)
	}

	q, err := s.Quotes.Quote(ctx, a.str("symbol"), class)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	return reply(present.Object{"quote": present.Quote(q)})
}

// SearchSymbols handles the SearchSymbols RPC
func (s *Server) SearchSymbols(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	matches, err := s.Catalog.Search(ctx, args(req).str("query"))
	if err != nil {
		return nil, mapError(ctx, err)
	}
	return reply(present.Object{"results": present.List(matches, present.SymbolMatch)})
}

// GetPriceHistory handles the GetPriceHistory RPC. The period defaults to monthly.
func (s *Server) GetPriceHistory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	a := args(req)
	class, err := a.assetClass()
	if err != nil {
		return nil, mapError(ctx, err)
	}
	period := domain.PeriodMonthly
	if raw := a.str("period"); raw != "" {
		if period, err = domain.ParsePeriod(raw); err != nil {
			return nil, mapError(ctx, err)
		}
	}

	symbol := domain.NormalizeSymbol(a.str("symbol"))
	candles, err := s.Catalog.History(ctx, symbol, class, period)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	return reply(present.Object{
		"symbol":      symbol,
		"asset_class": string(class),
		"period":      period.String(),
		"candles":     present.List(candles, present.Candle),
	})
}

// ExecuteTrade handles the ExecuteTrade RPC
func (s *Server) ExecuteTrade(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	a := args(req)
	accountID, err := s.accountID(a)
	if err != nil {
		return nil, err
	}

	// Parse quantity from string to decimal
	quantity, err := decimal.NewFromString(a.str("quantity"))
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid quantity format: %v", err)
	}
	action, err := domain.ParseTradeAction(a.str("action"))
	if err != nil {
		return nil, mapError(ctx, err)
	}
	class, err := a.assetClass()
	if err != nil {
		return nil, mapError(ctx, err)
	}

	trade, err := s.TradingService.Execute(ctx, trading.ExecuteInput{
		AccountID:  accountID,
		Symbol:     a.str("symbol"),
		AssetClass: class,
		Action:     action,
		Quantity:   quantity,
	})
	if err != nil {
		return nil, mapError(ctx, err)
	}
	return reply(present.Object{"trade": present.Trade(trade)})
}

// ListTrades handles the ListTrades RPC
func (s *Server) ListTrades(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	a := args(req)
	accountID, err := s.accountID(a)
	if err != nil {
		return nil, err
	}

	trades, total, err := s.TradingService.History(ctx, accountID, a.int("limit", defaultHistoryLimit), a.int("offset", 0))
	if err != nil {
		return nil, mapError(ctx, err)
	}
	return reply(present.Object{
		"trades": present.List(trades, present.Trade),
		"total":  total,
	})
}

// GetPortfolio handles the GetPortfolio RPC
func (s *Server) GetPortfolio(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	accountID, err := s.accountID(args(req))
	if err != nil {
		return nil, err
	}

	v, err := s.ValuationService.Valuate(ctx, accountID)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	return reply(present.Object{"portfolio": present.Valuation(v)})
}

// GetPerformance handles the GetPerformance RPC. Without a period it returns
// every period that has enough history.
func (s *Server) GetPerformance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	a := args(req)
	accountID, err := s.accountID(a)
	if err != nil {
		return nil, err
	}

	if raw := a.str("period"); raw != "" {
		period, err := domain.ParsePeriod(raw)
		if err != nil {
			return nil, mapError(ctx, err)
		}
		perf, err := s.ValuationService.Performance(ctx, accountID, period)
		if err != nil {
			return nil, mapError(ctx, err)
		}
		return reply(present.Object{"performance": []any{present.Performance(perf)}})
	}

	perfs, err := s.ValuationService.PerformanceSummary(ctx, accountID)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	return reply(present.Object{"performance": present.List(perfs, present.Performance)})
}

// GetValueHistory handles the GetValueHistory RPC
func (s *Server) GetValueHistory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	a := args(req)
	accountID, err := s.accountID(a)
	if err != nil {
		return nil, err
	}

	period := domain.PeriodMonthly
	if raw := a.str("period"); raw != "" {
		if period, err = domain.ParsePeriod(raw); err != nil {
			return nil, mapError(ctx, err)
		}
	}

	points, err := s.ValuationService.ValueHistory(ctx, accountID, period)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	return reply(present.Object{
		"period": period.String(),
		"points": present.List(points, present.ValuePoint),
	})
}

// TakeSnapshot handles the TakeSnapshot RPC
func (s *Server) TakeSnapshot(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	accountID, err := s.accountID(args(req))
	if err != nil {
		return nil, err
	}

	snap, err := s.ValuationService.TakeSnapshot(ctx, accountID)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	return reply(present.Object{"snapshot": present.Snapshot(snap)})
}

// ListWatchlist handles the ListWatchlist RPC
func (s *Server) ListWatchlist(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	accountID, err := s.accountID(args(req))
	if err != nil {
		return nil, err
	}

	items, err := s.WatchlistService.List(ctx, accountID)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	return reply(present.Object{"items": present.List(items, present.WatchItem)})
}

// AddWatchlist handles the AddWatchlist RPC
func (s *Server) AddWatchlist(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	a := args(req)
	accountID, err := s.accountID(a)
	if err != nil {
		return nil, err
	}
	class, err := a.assetClass()
	if err != nil {
		return nil, mapError(ctx, err)
	}

	entry, err := s.WatchlistService.Add(ctx, accountID, a.str("symbol"), class)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	return reply(present.Object{"entry": present.WatchEntry(entry)})
}

// RemoveWatchlist handles the RemoveWatchlist RPC
func (s *Server) RemoveWatchlist(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	a := args(req)
	accountID, err := s.accountID(a)
	if err != nil {
		return nil, err
	}
	entryID, err := uuid.Parse(a.str("id"))
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid id format: %v", err)
	}

	if err := s.WatchlistService.Remove(ctx, accountID, entryID); err != nil {
		return nil, mapError(ctx, err)
	}
	return reply(present.Object{"removed": true})
}

// GetAccount handles the GetAccount RPC
func (s *Server) GetAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	accountID, err := s.accountID(args(req))
	if err != nil {
		return nil, err
	}

	acc, err := s.AccountService.Get(ctx, accountID)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	return reply(present.Object{"account": present.Account(acc)})
}

// OpenAccount handles the OpenAccount RPC
func (s *Server) OpenAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	a := args(req)
	input := account.OpenInput{Name: a.str("name")}
	if raw := a.str("initial_balance"); raw != "" {
		bal, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid initial_balance format: %v", err)
		}
		input.InitialBalance = bal
	}

	acc, err := s.AccountService.Open(ctx, input)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	return reply(present.Object{"account": present.Account(acc)})
}

// accountID reads account_id, falling back to the default account
func (s *Server) accountID(a fields) (uuid.UUID, error) {
	raw := a.str("account_id")
	if raw == "" {
		if s.DefaultAccountID == uuid.Nil {
			return uuid.Nil, status.Error(codes.InvalidArgument, "account_id is required")
		}
		return s.DefaultAccountID, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "invalid account_id format: %v", err)
	}
	return id, nil
}

// fields gives typed access to a request Struct
type fields map[string]*structpb.Value

func args(req *structpb.Struct) fields {
	return fields(req.GetFields())
}

func (f fields) str(key string) string {
	return f[key].GetStringValue()
}

func (f fields) int(key string, def int) int {
	v, ok := f[key]
	if !ok {
		return def
	}
	if _, isNum := v.GetKind().(*structpb.Value_NumberValue); !isNum {
		return def
	}
	return int(v.GetNumberValue())
}

// assetClass reads asset_class, defaulting to stock
func (f fields) assetClass() (domain.AssetClass, error) {
	raw := f.str("asset_class")
	if raw == "" {
		return domain.AssetClassStock, nil
	}
	return domain.ParseAssetClass(raw)
}

func reply(o present.Object) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(o)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("failed to encode response: %v", err))
	}
	return out, nil
}

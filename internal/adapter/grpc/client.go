package grpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// RemoteError is a failed call with the server's domain error kind
type RemoteError struct {
	Code    codes.Code
	Kind    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s (%s): %s", e.Code, e.Kind, e.Message)
}

// GRPCStatus lets status.FromError see through RemoteError
func (e *RemoteError) GRPCStatus() *status.Status {
	return status.New(e.Code, e.Message)
}

// Client calls PaperTradeService over a client connection
type Client struct {
	conn  grpc.ClientConnInterface
	token string

	// AccountID is sent with every call that does not name an account
	AccountID string
}

// NewClient wraps an existing connection
func NewClient(conn grpc.ClientConnInterface, token string) *Client {
	return &Client{conn: conn, token: token}
}

// Dial opens a plaintext connection to target
func Dial(target, token string) (*Client, *grpc.ClientConn, error) {
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to %s: %w", target, err)
	}
	return NewClient(conn, token), conn, nil
}

// Call invokes method with a request object and returns the response object
func (c *Client) Call(ctx context.Context, method string, req map[string]any) (map[string]any, error) {
	if req == nil {
		req = map[string]any{}
	}
	if _, ok := req["account_id"]; !ok && c.AccountID != "" {
		req["account_id"] = c.AccountID
	}
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	if c.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", c.token)
	}

	out := new(structpb.Struct)
	var trailer metadata.MD
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, grpc.Trailer(&trailer)); err != nil {
		st := status.Convert(err)
		re := &RemoteError{Code: st.Code(), Message: st.Message()}
		if kinds := trailer.Get(ErrorKindTrailer); len(kinds) > 0 {
			re.Kind = kinds[0]
		}
		return nil, re
	}
	return out.AsMap(), nil
}

func (c *Client) GetQuote(ctx context.Context, symbol, assetClass string) (map[string]any, error) {
	return c.Call(ctx, MethodGetQuote, map[string]any{"symbol": symbol, "asset_class": assetClass})
}

func (c *Client) SearchSymbols(ctx context.Context, query string) (map[string]any, error) {
	return c.Call(ctx, MethodSearchSymbols, map[string]any{"query": query})
}

// GetPriceHistory returns daily bars; an empty period means monthly
func (c *Client) GetPriceHistory(ctx context.Context, symbol, assetClass, period string) (map[string]any, error) {
	return c.Call(ctx, MethodGetPriceHistory, map[string]any{"symbol": symbol, "asset_class": assetClass, "period": period})
}

func (c *Client) ExecuteTrade(ctx context.Context, action, symbol, assetClass, quantity string) (map[string]any, error) {
	return c.Call(ctx, MethodExecuteTrade, map[string]any{
		"action":      action,
		"symbol":      symbol,
		"asset_class": assetClass,
		"quantity":    quantity,
	})
}

func (c *Client) ListTrades(ctx context.Context, limit, offset int) (map[string]any, error) {
	return c.Call(ctx, MethodListTrades, map[string]any{"limit": limit, "offset": offset})
}

func (c *Client) GetPortfolio(ctx context.Context) (map[string]any, error) {
	return c.Call(ctx, MethodGetPortfolio, nil)
}

// GetPerformance reports one period, or every available period when period is empty
func (c *Client) GetPerformance(ctx context.Context, period string) (map[string]any, error) {
	return c.Call(ctx, MethodGetPerformance, map[string]any{"period": period})
}

func (c *Client) GetValueHistory(ctx context.Context, period string) (map[string]any, error) {
	return c.Call(ctx, MethodGetValueHistory, map[string]any{"period": period})
}

func (c *Client) TakeSnapshot(ctx context.Context) (map[string]any, error) {
	return c.Call(ctx, MethodTakeSnapshot, nil)
}

func (c *Client) ListWatchlist(ctx context.Context) (map[string]any, error) {
	return c.Call(ctx, MethodListWatchlist, nil)
}

func (c *Client) AddWatchlist(ctx context.Context, symbol, assetClass string) (map[string]any, error) {
	return c.Call(ctx, MethodAddWatchlist, map[string]any{"symbol": symbol, "asset_class": assetClass})
}

func (c *Client) RemoveWatchlist(ctx context.Context, id string) (map[string]any, error) {
	return c.Call(ctx, MethodRemoveWatchlist, map[string]any{"id": id})
}

func (c *Client) GetAccount(ctx context.Context) (map[string]any, error) {
	return c.Call(ctx, MethodGetAccount, nil)
}

func (c *Client) OpenAccount(ctx context.Context, name, initialBalance string) (map[string]any, error) {
	return c.Call(ctx, MethodOpenAccount, map[string]any{"name": name, "initial_balance": initialBalance})
}

package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "papertrade.v1.PaperTradeService"

// Method names of PaperTradeService
const (
	MethodGetQuote        = "GetQuote"
	MethodSearchSymbols   = "SearchSymbols"
	MethodGetPriceHistory = "GetPriceHistory"
	MethodExecuteTrade    = "ExecuteTrade"
	MethodListTrades      = "ListTrades"
	MethodGetPortfolio    = "GetPortfolio"
	MethodGetPerformance  = "GetPerformance"
	MethodGetValueHistory = "GetValueHistory"
	MethodTakeSnapshot    = "TakeSnapshot"
	MethodListWatchlist   = "ListWatchlist"
	MethodAddWatchlist    = "AddWatchlist"
	MethodRemoveWatchlist = "RemoveWatchlist"
	MethodGetAccount      = "GetAccount"
	MethodOpenAccount     = "OpenAccount"
)

// PaperTradeServiceServer is the server API for PaperTradeService.
// Requests and responses are google.protobuf.Struct messages.
type PaperTradeServiceServer interface {
	GetQuote(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SearchSymbols(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPriceHistory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExecuteTrade(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTrades(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPortfolio(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPerformance(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetValueHistory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	TakeSnapshot(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListWatchlist(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddWatchlist(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RemoveWatchlist(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	OpenAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(PaperTradeServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func methodDesc(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(PaperTradeServiceServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes PaperTradeService for grpc.Server.RegisterService
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PaperTradeServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		methodDesc(MethodGetQuote, PaperTradeServiceServer.GetQuote),
		methodDesc(MethodSearchSymbols, PaperTradeServiceServer.SearchSymbols),
		methodDesc(MethodGetPriceHistory, PaperTradeServiceServer.GetPriceHistory),
		methodDesc(MethodExecuteTrade, PaperTradeServiceServer.ExecuteTrade),
		methodDesc(MethodListTrades, PaperTradeServiceServer.ListTrades),
		methodDesc(MethodGetPortfolio, PaperTradeServiceServer.GetPortfolio),
		methodDesc(MethodGetPerformance, PaperTradeServiceServer.GetPerformance),
		methodDesc(MethodGetValueHistory, PaperTradeServiceServer.GetValueHistory),
		methodDesc(MethodTakeSnapshot, PaperTradeServiceServer.TakeSnapshot),
		methodDesc(MethodListWatchlist, PaperTradeServiceServer.ListWatchlist),
		methodDesc(MethodAddWatchlist, PaperTradeServiceServer.AddWatchlist),
		methodDesc(MethodRemoveWatchlist, PaperTradeServiceServer.RemoveWatchlist),
		methodDesc(MethodGetAccount, PaperTradeServiceServer.GetAccount),
		methodDesc(MethodOpenAccount, PaperTradeServiceServer.OpenAccount),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "papertrade/v1/papertrade.proto",
}

// RegisterPaperTradeServiceServer registers srv on s
func RegisterPaperTradeServiceServer(s grpc.ServiceRegistrar, srv PaperTradeServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

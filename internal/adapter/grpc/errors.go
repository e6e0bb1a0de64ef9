package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/simaogato/papertrade-backend/internal/domain"
)

// ErrorKindTrailer carries domain.Kind.String() on failed calls
const ErrorKindTrailer = "error-kind"

var kindCodes = map[domain.Kind]codes.Code{
	domain.KindInvalidQuantity:      codes.InvalidArgument,
	domain.KindInvalidArgument:      codes.InvalidArgument,
	domain.KindInsufficientFunds:    codes.FailedPrecondition,
	domain.KindInsufficientHoldings: codes.FailedPrecondition,
	domain.KindInsufficientHistory:  codes.FailedPrecondition,
	domain.KindSymbolNotFound:       codes.NotFound,
	domain.KindNotFound:             codes.NotFound,
	domain.KindAlreadyExists:        codes.AlreadyExists,
	domain.KindQuoteUnavailable:     codes.Unavailable,
	domain.KindAccountBusy:          codes.Unavailable,
	domain.KindCanceled:             codes.Canceled,
}

// codeOf maps an error to a gRPC code by its domain kind
func codeOf(err error) (codes.Code, domain.Kind) {
	kind := domain.KindOf(err)
	if kind == domain.KindCanceled && errors.Is(err, context.DeadlineExceeded) {
		return codes.DeadlineExceeded, kind
	}
	if code, ok := kindCodes[kind]; ok {
		return code, kind
	}
	return codes.Internal, domain.KindInternal
}

// mapError converts domain errors to gRPC status errors and attaches the
// domain kind as trailer metadata
func mapError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	code, kind := codeOf(err)
	// fails only outside a server handler, e.g. in unit tests
	_ = grpc.SetTrailer(ctx, metadata.Pairs(ErrorKindTrailer, kind.String()))
	return status.Error(code, err.Error())
}

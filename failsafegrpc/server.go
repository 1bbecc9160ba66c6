package failsafegrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/tap"

	"github.com/bertbaron/failsafe-go"
)

// UnaryServerResponse carries the context, request, and response of a unary gRPC call.
type UnaryServerResponse struct {
	Ctx  context.Context
	Info *grpc.UnaryServerInfo
	Req  any
	Resp any
}

// UnaryServerInterceptor returns a gRPC unary server interceptor that wraps the handler with a failsafe executor.
func UnaryServerInterceptor(executor failsafe.Executor[*UnaryServerResponse]) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		operation := func(_ *failsafe.Execution[*UnaryServerResponse]) (*UnaryServerResponse, error) {
			reply, err := handler(ctx, req)
			resp := &UnaryServerResponse{Ctx: ctx, Info: info, Req: req, Resp: reply}
			if err != nil {
				return resp, err
			}
			return resp, nil
		}

		result, err := executor.WithContext(ctx).GetWithExecution(operation)
		if err != nil {
			return nil, err
		}
		return result.Resp, nil
	}
}

// InHandleResult carries the context and info of a tap event.
type InHandleResult struct {
	Ctx  context.Context
	Info *tap.Info
}

// InHandleAfterHook wraps a tap.ServerInHandle with a failsafe executor, so connection admission can be retried,
// rate limited, or bulkheaded before a unary or stream handler ever runs.
func InHandleAfterHook(executor failsafe.Executor[*InHandleResult], serverInHandle tap.ServerInHandle) tap.ServerInHandle {
	return func(originCtx context.Context, info *tap.Info) (context.Context, error) {
		operation := func(_ *failsafe.Execution[*InHandleResult]) (*InHandleResult, error) {
			ctx, err := serverInHandle(originCtx, info)
			res := &InHandleResult{Ctx: ctx, Info: info}
			if err != nil {
				return res, err
			}
			return res, nil
		}

		result, err := executor.WithContext(originCtx).GetWithExecution(operation)
		if err != nil {
			return nil, err
		}
		return result.Ctx, nil
	}
}

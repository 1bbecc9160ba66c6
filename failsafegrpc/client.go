package failsafegrpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/bertbaron/failsafe-go"
)

// UnaryClientInterceptor returns a gRPC unary client interceptor that wraps the invoker with a failsafe executor.
// The `any` in failsafe.Executor[any] is the response of the gRPC call.
func UnaryClientInterceptor(executor failsafe.Executor[any]) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		operation := func(_ *failsafe.Execution[any]) (any, error) {
			if err := invoker(ctx, method, req, reply, cc, opts...); err != nil {
				return reply, err
			}
			return reply, nil
		}

		_, err := executor.WithContext(ctx).GetWithExecution(operation)
		return err
	}
}

// StreamClientInterceptor returns a gRPC stream client interceptor that wraps the streamer with a failsafe
// executor. To use the response of the gRPC call in policies, wrap RecvMsg/SendMsg on the returned ClientStream.
func StreamClientInterceptor(executor failsafe.Executor[grpc.ClientStream]) grpc.StreamClientInterceptor {
	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		operation := func(_ *failsafe.Execution[grpc.ClientStream]) (grpc.ClientStream, error) {
			return streamer(ctx, desc, cc, method, opts...)
		}

		return executor.WithContext(ctx).GetWithExecution(operation)
	}
}

package failsafegrpc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bertbaron/failsafe-go"
	"github.com/bertbaron/failsafe-go/retrypolicy"
)

func TestUnaryClientInterceptorRetriesOnRetryableStatus(t *testing.T) {
	rp := UnaryCallRetryPolicyBuilder().WithMaxRetries(2).Build()
	executor := failsafe.With[any](rp)
	interceptor := UnaryClientInterceptor(executor)

	attempts := 0
	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		attempts++
		if attempts < 2 {
			return status.Error(codes.Unavailable, "down")
		}
		return nil
	}

	err := interceptor(context.Background(), "/svc/Method", nil, nil, nil, invoker)
	assert.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestUnaryClientInterceptorDoesNotRetryNonRetryableStatus(t *testing.T) {
	rp := UnaryCallRetryPolicyBuilder().WithMaxRetries(2).Build()
	executor := failsafe.With[any](rp)
	interceptor := UnaryClientInterceptor(executor)

	attempts := 0
	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		attempts++
		return status.Error(codes.InvalidArgument, "bad request")
	}

	err := interceptor(context.Background(), "/svc/Method", nil, nil, nil, invoker)
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

var _ retrypolicy.RetryPolicyBuilder[any] = UnaryCallRetryPolicyBuilder()

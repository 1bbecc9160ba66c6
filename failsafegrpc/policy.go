// Package failsafegrpc adapts failsafe executors to gRPC client and server interceptors.
package failsafegrpc

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bertbaron/failsafe-go/retrypolicy"
)

var retryableStatusCodes = map[codes.Code]struct{}{
	codes.Unavailable:       {},
	codes.DeadlineExceeded:  {},
	codes.ResourceExhausted: {},
}

// UnaryCallRetryPolicyBuilder returns a retrypolicy.RetryPolicyBuilder that retries on gRPC status codes that are
// considered retryable (Unavailable, DeadlineExceeded, ResourceExhausted). Additional handling can be added by
// chaining the builder with more conditions.
func UnaryCallRetryPolicyBuilder() retrypolicy.RetryPolicyBuilder[any] {
	return retrypolicy.BuilderForResult[any]().
		HandleAllIf(func(_ any, err error) bool {
			return isRetryable(err)
		})
}

// StreamCallRetryPolicyBuilder returns a retrypolicy.RetryPolicyBuilder that retries on gRPC status codes that are
// considered retryable (Unavailable, DeadlineExceeded, ResourceExhausted).
func StreamCallRetryPolicyBuilder() retrypolicy.RetryPolicyBuilder[grpc.ClientStream] {
	return retrypolicy.BuilderForResult[grpc.ClientStream]().
		HandleAllIf(func(_ grpc.ClientStream, err error) bool {
			return isRetryable(err)
		})
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	s, ok := status.FromError(err)
	if !ok {
		return false
	}
	_, retryable := retryableStatusCodes[s.Code()]
	return retryable
}

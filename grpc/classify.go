// Package grpc guards unary gRPC clients with circuit breakers: a client
// interceptor routes every call through a per-service breaker record and
// a classifier maps status codes onto breaker outcome classes.
package grpc

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vibeworks/go-resilience/breaker"
)

// ClassifyRPC maps gRPC outcomes onto breaker classes, for
// breaker.WithClassifier. Server-side and transport trouble counts;
// caller mistakes (InvalidArgument, NotFound, PermissionDenied and kin)
// never do, mirroring the HTTP 4xx rule. Cancellation stays neutral: the
// caller gave up, the backend proved nothing.
func ClassifyRPC(err error) breaker.Classification {
	if err == nil {
		return breaker.ClassSuccess
	}

	st, ok := status.FromError(err)
	if !ok {
		return breaker.ClassifyError(err)
	}

	switch st.Code() {
	case codes.OK:
		return breaker.ClassSuccess
	case codes.Canceled:
		return breaker.ClassCancelled
	case codes.Unavailable, codes.DeadlineExceeded:
		return breaker.ClassNetworkError
	case codes.Internal, codes.Unknown, codes.Aborted, codes.ResourceExhausted, codes.DataLoss:
		return breaker.ClassServerError
	default:
		return breaker.ClassClientError
	}
}

package grpc

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vibeworks/go-resilience/breaker"
)

// ResourceNamer derives the breaker record key for a call. The default
// keys by service so every method of one upstream shares a record.
type ResourceNamer func(method string, cc *grpc.ClientConn) string

// ServiceResource keys by the service part of the full method name,
// "/pkg.Service/Method" yielding "grpc:pkg.Service".
func ServiceResource(method string, _ *grpc.ClientConn) string {
	trimmed := strings.TrimPrefix(method, "/")
	if idx := strings.Index(trimmed, "/"); idx > 0 {
		trimmed = trimmed[:idx]
	}
	return "grpc:" + trimmed
}

// MethodResource keys by the full method, one record per RPC.
func MethodResource(method string, _ *grpc.ClientConn) string {
	return "grpc:" + strings.TrimPrefix(method, "/")
}

// circuitOpenError presents a breaker fast-fail as codes.Unavailable so
// generated clients and grpc middleware treat it like any other outage,
// while errors.Is/As still reach the underlying CircuitOpenError.
type circuitOpenError struct {
	inner error
}

func (e *circuitOpenError) Error() string { return e.inner.Error() }

func (e *circuitOpenError) Unwrap() error { return e.inner }

// GRPCStatus lets status.FromError see codes.Unavailable.
func (e *circuitOpenError) GRPCStatus() *status.Status {
	return status.New(codes.Unavailable, e.inner.Error())
}

// UnaryClientBreakerInterceptor routes unary calls through the manager.
// Construct the manager with breaker.WithClassifier(ClassifyRPC) so
// status codes classify correctly.
func UnaryClientBreakerInterceptor(manager *breaker.Manager, namer ResourceNamer) grpc.UnaryClientInterceptor {
	if namer == nil {
		namer = ServiceResource
	}

	return func(ctx context.Context, method string, req, reply any,
		cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {

		if manager == nil {
			return invoker(ctx, method, req, reply, cc, opts...)
		}

		resource := namer(method, cc)
		_, err := manager.Execute(ctx, resource, func(execCtx context.Context) (any, error) {
			return reply, invoker(execCtx, method, req, reply, cc, opts...)
		})
		if breaker.IsCircuitOpen(err) {
			return &circuitOpenError{inner: err}
		}
		return err
	}
}

package grpc

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/vibeworks/go-resilience/breaker"
)

// DialConfig shapes a guarded client connection.
type DialConfig struct {
	// Manager guards calls; nil dials unguarded.
	Manager *breaker.Manager

	// Namer keys breaker records, ServiceResource when nil.
	Namer ResourceNamer

	// EnableOTel attaches the otelgrpc stats handler.
	EnableOTel bool

	// Insecure uses plaintext transport credentials.
	Insecure bool

	// Extra appends caller dial options after the guarded ones.
	Extra []grpc.DialOption
}

// Dial opens a client connection with the breaker interceptor and OTel
// instrumentation wired in.
func Dial(target string, cfg DialConfig) (*grpc.ClientConn, error) {
	var opts []grpc.DialOption

	if cfg.Insecure {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	if cfg.EnableOTel {
		opts = append(opts, grpc.WithStatsHandler(otelgrpc.NewClientHandler()))
	}
	if cfg.Manager != nil {
		opts = append(opts, grpc.WithChainUnaryInterceptor(
			UnaryClientBreakerInterceptor(cfg.Manager, cfg.Namer),
		))
	}
	opts = append(opts, cfg.Extra...)

	return grpc.NewClient(target, opts...)
}

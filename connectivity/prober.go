package connectivity

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Prober answers one reachability question: can the environment reach
// the target right now. A nil error means online.
type Prober interface {
	Probe(ctx context.Context) error
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context) error

// Probe implements Prober.
func (f ProberFunc) Probe(ctx context.Context) error { return f(ctx) }

// TCPProber dials addr ("host:port") and hangs up. The default prober:
// cheap, no HTTP semantics, answers only "is the network there".
func TCPProber(addr string) Prober {
	return ProberFunc(func(ctx context.Context) error {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return err
		}
		return conn.Close()
	})
}

// HTTPProber sends a HEAD request to url. Any response, error status
// included, proves reachability; only transport failures count as
// offline.
func HTTPProber(url string, client *http.Client) Prober {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return ProberFunc(func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			return fmt.Errorf("build probe request: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		return resp.Body.Close()
	})
}

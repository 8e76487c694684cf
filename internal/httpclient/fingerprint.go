package httpclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

// fingerprintTransport dials TLS with a browser ClientHello. The first connection to
// a host decides, through ALPN, whether that host is served by an HTTP/2 or an
// HTTP/1.1 transport; later connections reuse the same choice.
type fingerprintTransport struct {
	hello  utls.ClientHelloID
	roots  *x509.CertPool
	dialer *net.Dialer
	plain  *http.Transport

	mu     sync.Mutex
	byHost map[string]http.RoundTripper
}

func newFingerprintTransport(hello utls.ClientHelloID, roots *x509.CertPool, timeout time.Duration) *fingerprintTransport {
	return &fingerprintTransport{
		hello: hello,
		roots: roots,
		dialer: &net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		},
		plain: &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			IdleConnTimeout: 90 * time.Second,
		},
		byHost: map[string]http.RoundTripper{},
	}
}

func (t *fingerprintTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return t.plain.RoundTrip(req)
	}
	rt, err := t.transportFor(req.Context(), hostPort(req.URL))
	if err != nil {
		return nil, err
	}
	return rt.RoundTrip(req)
}

func (t *fingerprintTransport) transportFor(ctx context.Context, addr string) (http.RoundTripper, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rt, ok := t.byHost[addr]; ok {
		return rt, nil
	}

	conn, err := t.dialTLS(ctx, addr)
	if err != nil {
		return nil, err
	}
	first := &handoff{conn: conn}
	dial := func(ctx context.Context, _, addr string) (net.Conn, error) {
		if c := first.take(); c != nil {
			return c, nil
		}
		return t.dialTLS(ctx, addr)
	}

	var rt http.RoundTripper
	if conn.ConnectionState().NegotiatedProtocol == http2.NextProtoTLS {
		rt = &http2.Transport{
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				return dial(ctx, network, addr)
			},
		}
	} else {
		rt = &http.Transport{
			DialTLSContext:  dial,
			IdleConnTimeout: 90 * time.Second,
		}
	}
	t.byHost[addr] = rt
	return rt, nil
}

func (t *fingerprintTransport) dialTLS(ctx context.Context, addr string) (*utls.UConn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	raw, err := t.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	conn := utls.UClient(raw, &utls.Config{ServerName: host, RootCAs: t.roots}, t.hello)
	if err := conn.HandshakeContext(ctx); err != nil {
		raw.Close()
		return nil, err
	}
	return conn, nil
}

// handoff passes the connection used to learn the protocol to the first dial.
type handoff struct {
	mu   sync.Mutex
	conn net.Conn
}

func (h *handoff) take() net.Conn {
	h.mu.Lock()
	defer h.mu.Unlock()
	c := h.conn
	h.conn = nil
	return c
}

func hostPort(u *url.URL) string {
	if u.Port() != "" {
		return u.Host
	}
	return net.JoinHostPort(u.Hostname(), "443")
}

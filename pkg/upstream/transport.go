package upstream

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/proxy"

	"redveil/pkg/config"
)

// NewClient builds the shared outbound HTTP client: pooled connections,
// HTTP/2, an optional SOCKS5 or HTTP CONNECT proxy, and redirects
// disabled so the dispatcher can rewrite Location targets itself.
func NewClient(cfg config.UpstreamConfig) (*http.Client, error) {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
		// The builder sets Accept-Encoding explicitly per method, so
		// automatic gzip negotiation must stay out of the way.
		DisableCompression: true,
	}

	switch {
	case cfg.SOCKSProxy != "":
		dialer, err := socksDialer(cfg.SOCKSProxy)
		if err != nil {
			return nil, err
		}
		transport.DialContext = dialer
	case cfg.HTTPProxy != "":
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			return nil, fmt.Errorf("invalid http proxy %q: %w", cfg.HTTPProxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	default:
		transport.Proxy = http.ProxyFromEnvironment
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}, nil
}

// NewMediaClient derives a client for long-lived media streams from the
// API client: same transport, same proxy path, same redirect policy, but
// no overall timeout. A video segment can legitimately outlive the API
// deadline, so stream lifetime is bounded by the request context alone.
func NewMediaClient(api *http.Client) *http.Client {
	return &http.Client{
		Transport:     api.Transport,
		CheckRedirect: api.CheckRedirect,
	}
}

// socksDialer builds a DialContext routing through a SOCKS5 proxy.
func socksDialer(raw string) (func(ctx context.Context, network, addr string) (net.Conn, error), error) {
	proxyURL, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid socks proxy %q: %w", raw, err)
	}

	dialer, err := proxy.FromURL(proxyURL, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("building socks dialer for %q: %w", raw, err)
	}

	if cd, ok := dialer.(proxy.ContextDialer); ok {
		return cd.DialContext, nil
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return dialer.Dial(network, addr)
	}, nil
}

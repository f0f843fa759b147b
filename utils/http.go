package utils

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/proxy"
)

// defaultUserAgent is sent with every request; the remote service rejects
// requests without a browser-looking agent.
const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// HTTPClientConfig contains configuration for the HTTP client
type HTTPClientConfig struct {
	// Timeout bounds the whole request. Zero means no overall deadline,
	// which is what download streams need; API calls set it explicitly.
	Timeout  time.Duration
	ProxyURL string
}

// HTTPClient wraps http.Client with form-POST helpers and proxy support.
// Remote API failures are never retried here: callers receive them
// immediately as typed errors.
type HTTPClient struct {
	client    *http.Client
	userAgent string
	mutex     sync.RWMutex
}

// NewHTTPClient creates a new HTTP client with default configuration
func NewHTTPClient() *HTTPClient {
	return NewHTTPClientWithConfig(&HTTPClientConfig{
		Timeout: 30 * time.Second,
	})
}

// NewHTTPClientWithConfig creates a new HTTP client with custom configuration
func NewHTTPClientWithConfig(config *HTTPClientConfig) *HTTPClient {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: false,
		},
	}

	// Configure proxy if provided
	if config.ProxyURL != "" {
		if err := configureProxy(transport, config.ProxyURL); err != nil {
			// Log error but continue without proxy
			fmt.Printf("Warning: Failed to configure proxy %s: %v\n", config.ProxyURL, err)
		}
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   config.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}

	return &HTTPClient{
		client:    client,
		userAgent: defaultUserAgent,
	}
}

// configureProxy sets up proxy configuration for the transport
func configureProxy(transport *http.Transport, proxyURL string) error {
	parsedURL, err := url.Parse(proxyURL)
	if err != nil {
		return fmt.Errorf("invalid proxy URL: %w", err)
	}

	switch parsedURL.Scheme {
	case "http", "https":
		transport.Proxy = http.ProxyURL(parsedURL)
	case "socks5":
		dialer, err := proxy.SOCKS5("tcp", parsedURL.Host, nil, proxy.Direct)
		if err != nil {
			return fmt.Errorf("failed to create SOCKS5 proxy: %w", err)
		}
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	default:
		return fmt.Errorf("unsupported proxy scheme: %s", parsedURL.Scheme)
	}

	return nil
}

// PostForm performs a form-encoded POST request, the only verb the remote
// API accepts.
func (c *HTTPClient) PostForm(requestURL string, data url.Values) (*http.Response, error) {
	req, err := http.NewRequest("POST", requestURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.mutex.RLock()
	req.Header.Set("User-Agent", c.userAgent)
	c.mutex.RUnlock()

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("Accept", "text/xml, application/xml, */*")

	return c.client.Do(req)
}

// Get performs a GET request.
func (c *HTTPClient) Get(requestURL string) (*http.Response, error) {
	return c.GetWithContext(context.Background(), requestURL)
}

// GetWithContext performs a GET request bound to ctx.
func (c *HTTPClient) GetWithContext(ctx context.Context, requestURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.mutex.RLock()
	req.Header.Set("User-Agent", c.userAgent)
	c.mutex.RUnlock()

	return c.client.Do(req)
}

// SetUserAgent sets a custom user agent string
func (c *HTTPClient) SetUserAgent(userAgent string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.userAgent = userAgent
}

// UserAgent returns the current user agent string
func (c *HTTPClient) UserAgent() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.userAgent
}

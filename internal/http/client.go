package http

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptrace"
	"time"
)

// Client is a connection-pooling HTTP client that records per-request timing
type Client struct {
	httpClient *http.Client
	transport  *http.Transport
	baseURL    string
	headers    map[string]string
}

// ClientOption is a function that configures a Client
type ClientOption func(*Client)

// NewClient creates a new HTTP client with the given options
func NewClient(options ...ClientOption) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 2000
	transport.MaxIdleConnsPerHost = 2000

	client := &Client{
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		transport: transport,
		headers:   make(map[string]string),
	}

	for _, option := range options {
		option(client)
	}

	return client
}

// WithBaseURL sets the base URL for the client
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithTimeout sets the per-request timeout for the client
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHeader adds a header sent with every request
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithInsecureSkipVerify disables TLS certificate verification. Local test servers
// usually run with self-signed certificates.
func WithInsecureSkipVerify(skip bool) ClientOption {
	return func(c *Client) {
		if !skip {
			return
		}
		if c.transport.TLSClientConfig == nil {
			c.transport.TLSClientConfig = &tls.Config{}
		}
		c.transport.TLSClientConfig.InsecureSkipVerify = true
	}
}

// WithMaxConnsPerHost caps the number of connections to the server. Zero means no limit.
func WithMaxConnsPerHost(n int) ClientOption {
	return func(c *Client) {
		c.transport.MaxConnsPerHost = n
	}
}

// BaseURL returns the configured base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// TLSConfig returns the TLS configuration used by the transport, or nil.
func (c *Client) TLSConfig() *tls.Config {
	return c.transport.TLSClientConfig
}

// Do executes a request and returns the fully read response with timing information
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	timing := TimingInfo{StartTime: time.Now()}

	var connectStart, tlsStart time.Time
	trace := &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			timing.ConnectionReused = info.Reused
		},
		ConnectStart: func(network, addr string) {
			connectStart = time.Now()
		},
		ConnectDone: func(network, addr string, err error) {
			if err == nil && !connectStart.IsZero() {
				timing.ConnectTime = time.Since(connectStart)
			}
		},
		TLSHandshakeStart: func() {
			tlsStart = time.Now()
		},
		TLSHandshakeDone: func(state tls.ConnectionState, err error) {
			if err == nil && !tlsStart.IsZero() {
				timing.TLSHandshakeTime = time.Since(tlsStart)
			}
		},
		GotFirstResponseByte: func() {
			timing.TimeToFirstByte = time.Since(timing.StartTime)
		},
	}

	httpReq, err := req.Build(httptrace.WithClientTrace(ctx, trace), c.baseURL)
	if err != nil {
		return nil, err
	}

	for key, value := range c.headers {
		if httpReq.Header.Get(key) == "" {
			httpReq.Header.Set(key, value)
		}
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	timing.TotalTime = time.Since(timing.StartTime)

	return &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Headers:    httpResp.Header,
		Timing:     timing,
		body:       body,
	}, nil
}

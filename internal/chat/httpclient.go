package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	lhttp "github.com/wesleyorama2/chatload/internal/http"
	"github.com/wesleyorama2/chatload/pkg/jsonpath"
)

// HTTPOptions configures an HTTPClient.
type HTTPOptions struct {
	// Timeout bounds a single call (default 30s).
	Timeout time.Duration

	// InsecureSkipVerify skips TLS verification for both calls and event sockets.
	InsecureSkipVerify bool

	// MaxConnsPerHost caps pooled connections to the server (0 = unlimited).
	MaxConnsPerHost int

	// UserAgent is sent with every request.
	UserAgent string

	Logger *zap.Logger
}

// HTTPClient implements Client with JSON requests under {server}/api, media
// transfers at {server}/api/media and a WebSocket event stream at
// {server}/api/events.
type HTTPClient struct {
	http   *lhttp.Client
	dialer *websocket.Dialer
	logger *zap.Logger
}

// NewHTTPClient creates a client for the server at the given base URL, e.g. https://localhost:2289.
func NewHTTPClient(server string, opts HTTPOptions) *HTTPClient {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "chatload"
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	server = strings.TrimRight(server, "/")
	httpClient := lhttp.NewClient(
		lhttp.WithBaseURL(server+"/api"),
		lhttp.WithTimeout(opts.Timeout),
		lhttp.WithHeader("User-Agent", opts.UserAgent),
		lhttp.WithInsecureSkipVerify(opts.InsecureSkipVerify),
		lhttp.WithMaxConnsPerHost(opts.MaxConnsPerHost),
	)

	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: opts.Timeout,
		TLSClientConfig:  httpClient.TLSConfig(),
	}

	return &HTTPClient{
		http:   httpClient,
		dialer: dialer,
		logger: logger,
	}
}

// Authenticate logs in with identity/secret.
func (c *HTTPClient) Authenticate(ctx context.Context, identity, secret string) (*Session, error) {
	req := lhttp.NewRequest(http.MethodPost, "/auth/login").WithBody(map[string]string{
		"email":    identity,
		"password": secret,
	})
	return c.authenticate(ctx, identity, req)
}

// Register creates an account for identity and returns its session.
func (c *HTTPClient) Register(ctx context.Context, identity, displayName, secret string) (*Session, error) {
	req := lhttp.NewRequest(http.MethodPost, "/auth/register").WithBody(map[string]string{
		"email":    identity,
		"username": displayName,
		"password": secret,
	})
	return c.authenticate(ctx, identity, req)
}

type sessionBody struct {
	SessionToken string          `json:"session_token"`
	UserID       json.RawMessage `json:"user_id"`
}

func (c *HTTPClient) authenticate(ctx context.Context, identity string, req *lhttp.Request) (*Session, error) {
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}

	switch {
	case resp.IsSuccess():
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusNotFound:
		return nil, &AuthError{Identity: identity, Status: resp.StatusCode, Message: errorMessage(resp)}
	default:
		return nil, fmt.Errorf("%s %s: status %d: %s", req.Method, req.Path, resp.StatusCode, errorMessage(resp))
	}

	var body sessionBody
	if err := resp.DecodeJSON(&body); err != nil {
		return nil, fmt.Errorf("%s: malformed session: %w", req.Path, err)
	}
	if body.SessionToken == "" {
		return nil, fmt.Errorf("%s: malformed session: no session_token", req.Path)
	}
	// user_id is a 64-bit ID and may arrive quoted.
	userID, err := strconv.ParseUint(strings.Trim(string(body.UserID), `"`), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: malformed session: user_id %s", req.Path, body.UserID)
	}

	c.logger.Debug("authenticated",
		zap.String("identity", identity),
		zap.Uint64("user_id", userID),
		zap.Duration("took", resp.Timing.TotalTime))

	return &Session{Identity: identity, UserID: userID, Token: body.SessionToken}, nil
}

// Call performs one operation as POST /api/{op}.
func (c *HTTPClient) Call(ctx context.Context, s *Session, r Request) (*Response, error) {
	req := lhttp.NewRequest(http.MethodPost, "/"+string(r.Op)).WithBearerToken(s.Token)
	if r.Params != nil {
		req.WithBody(r.Params)
	} else {
		req.WithBody(map[string]interface{}{})
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, &ServiceError{Op: r.Op, Err: err}
	}
	if !resp.IsSuccess() {
		return nil, c.failure(r.Op, resp)
	}

	return &Response{Op: r.Op, Body: resp.Body()}, nil
}

// UploadMedia sends m as POST /api/media?filename=... with the raw bytes as
// body. The server answers {"id": "..."}.
func (c *HTTPClient) UploadMedia(ctx context.Context, s *Session, m Media) (string, error) {
	req := lhttp.NewRequest(http.MethodPost, "/media").
		WithBearerToken(s.Token).
		WithQueryParam("filename", m.Filename).
		WithHeader("Content-Type", m.ContentType).
		WithBody(m.Data)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return "", &ServiceError{Op: OpUploadMedia, Err: err}
	}
	if !resp.IsSuccess() {
		return "", c.failure(OpUploadMedia, resp)
	}

	id, err := resp.Extract("$.id")
	if err != nil || id == "" {
		return "", &ServiceError{Op: OpUploadMedia, Err: fmt.Errorf("malformed upload response: %s", resp.BodyString())}
	}
	return id, nil
}

// DownloadMedia fetches GET /api/media/{id}. The file name comes from
// Content-Disposition when the server sends one.
func (c *HTTPClient) DownloadMedia(ctx context.Context, s *Session, id string) (*Media, error) {
	req := lhttp.NewRequest(http.MethodGet, "/media/"+id).WithBearerToken(s.Token)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, &ServiceError{Op: OpDownloadMedia, Err: err}
	}
	if !resp.IsSuccess() {
		return nil, c.failure(OpDownloadMedia, resp)
	}

	m := &Media{ContentType: resp.GetHeader("Content-Type"), Data: resp.Body()}
	if _, params, err := mime.ParseMediaType(resp.GetHeader("Content-Disposition")); err == nil {
		m.Filename = params["filename"]
	}
	return m, nil
}

// failure turns a non-2xx response into a *ServiceError. 5xx responses are
// logged at warn level.
func (c *HTTPClient) failure(op Operation, resp *lhttp.Response) error {
	msg := errorMessage(resp)
	switch {
	case resp.IsServerError():
		c.logger.Warn("server error",
			zap.String("op", string(op)),
			zap.Int("status", resp.StatusCode),
			zap.String("error", msg))
	case resp.IsClientError():
		c.logger.Debug("request rejected",
			zap.String("op", string(op)),
			zap.Int("status", resp.StatusCode),
			zap.String("error", msg))
	}
	return &ServiceError{Op: op, Status: resp.StatusCode, Message: msg}
}

// Subscribe dials the event socket and subscribes to guilds.
func (c *HTTPClient) Subscribe(ctx context.Context, s *Session, guilds []uint64) (EventStream, error) {
	u, err := lhttp.NewRequest(http.MethodGet, "/events").URL(c.http.BaseURL())
	if err != nil {
		return nil, &StreamError{Err: err}
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.Token)

	conn, resp, err := c.dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, &AuthError{Identity: s.Identity, Status: resp.StatusCode}
		}
		return nil, &StreamError{Err: fmt.Errorf("dial %s: %w", u.Redacted(), err)}
	}

	if err := conn.WriteJSON(subscribeFrame{Type: "subscribe", Guilds: guilds}); err != nil {
		conn.Close()
		return nil, &StreamError{Err: fmt.Errorf("subscribe: %w", err)}
	}

	c.logger.Debug("subscribed to events",
		zap.String("identity", s.Identity),
		zap.Int("guilds", len(guilds)))

	return newSocketStream(conn), nil
}

func errorMessage(resp *lhttp.Response) string {
	if jsonpath.Exists(resp.BodyString(), "$.error") {
		if msg, err := resp.Extract("$.error"); err == nil {
			return msg
		}
	}
	return strings.TrimSpace(resp.BodyString())
}

// Ensure HTTPClient implements Client
var _ Client = (*HTTPClient)(nil)

package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/Aman-CERP/nearmatch/internal/errors"
)

// Client talks to a running daemon.
type Client struct {
	socketPath string
	timeout    time.Duration
	requestID  atomic.Uint64
}

// NewClient creates a new daemon client.
func NewClient(cfg Config) *Client {
	return &Client{
		socketPath: cfg.SocketPath,
		timeout:    cfg.Timeout,
	}
}

// Connect dials the daemon socket. Failure is ERR_301_DAEMON_UNAVAILABLE.
func (c *Client) Connect() (net.Conn, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, errors.New(errors.ErrCodeDaemonUnavailable, "daemon is not running", err).
			WithDetail("socket", c.socketPath).
			WithSuggestion("Start it with 'nearmatch daemon start'")
	}
	return conn, nil
}

// IsRunning checks if the daemon is accepting connections.
func (c *Client) IsRunning() bool {
	conn, err := c.Connect()
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Ping checks if the daemon is responsive.
func (c *Client) Ping(ctx context.Context) error {
	var out PingResult
	if err := c.call(ctx, MethodPing, nil, &out); err != nil {
		return err
	}
	if !out.Pong {
		return fmt.Errorf("ping failed: unexpected response")
	}
	return nil
}

// Analyze asks the daemon for the nearest matches of text. Errors the
// daemon reports with an application code come back as *errors.AppError.
func (c *Client) Analyze(ctx context.Context, text string) (*AnalyzeResult, error) {
	var out AnalyzeResult
	if err := c.call(ctx, MethodAnalyze, AnalyzeParams{Text: text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status retrieves daemon status.
func (c *Client) Status(ctx context.Context) (*StatusResult, error) {
	var out StatusResult
	if err := c.call(ctx, MethodStatus, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// call performs one request/response exchange on a fresh connection.
func (c *Client) call(ctx context.Context, method string, params, out any) error {
	conn, err := c.Connect()
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set deadline: %w", err)
	}

	req := Request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID(),
	}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}

	var resp struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int       `json:"code"`
			Message string    `json:"message"`
			Data    ErrorData `json:"data"`
		} `json:"error"`
		ID string `json:"id"`
	}
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return fmt.Errorf("failed to receive response: %w", err)
	}

	if resp.Error != nil {
		if resp.Error.Data.AppCode != "" {
			ae := errors.New(resp.Error.Data.AppCode, resp.Error.Message, nil)
			if resp.Error.Data.Suggestion != "" {
				ae = ae.WithSuggestion(resp.Error.Data.Suggestion)
			}
			return ae
		}
		return fmt.Errorf("%s failed: %s (code: %d)", method, resp.Error.Message, resp.Error.Code)
	}

	if out == nil || len(resp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}

// nextID generates a unique request ID.
func (c *Client) nextID() string {
	return fmt.Sprintf("req-%d", c.requestID.Add(1))
}

package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/authclient/middleware"
	"go.uber.org/zap"
)

// reply is a fully read identity service response.
type reply struct {
	status int
	body   []byte
}

func (r reply) ok() bool {
	return r.status >= 200 && r.status < 300
}

// send performs one identity service call. Authenticated calls go through the session
// decorator; the rest carry only the default headers. The body is read in full, up to
// Config.HTTP.MaxBodyBytes, before returning.
func (c *Client) send(ctx context.Context, method, path string, payload any, authenticated bool) (reply, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return reply{}, fmt.Errorf("encode %s request: %w", path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return reply{}, fmt.Errorf("%w: build %s request: %w", ErrTransport, path, err)
	}

	dec := c.plain
	if authenticated {
		dec = c.decorator
	}
	req.Header = dec.Decorate(ctx, middleware.Options{Method: method}).Header

	start := time.Now()
	resp, err := c.http.Do(req)
	c.metrics.Observe(MetricRemoteLatency, time.Since(start))
	if err != nil {
		return reply{}, fmt.Errorf("%w: %s %s: %w", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.HTTP.MaxBodyBytes))
	if err != nil {
		return reply{status: resp.StatusCode}, fmt.Errorf("%w: read %s response: %w", ErrTransport, path, err)
	}

	c.logger.Debug("identity service call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)
	return reply{status: resp.StatusCode, body: data}, nil
}

// decodeReply unmarshals r into out. An empty or non-JSON body is ErrMalformedResponse.
func decodeReply(r reply, out any) error {
	if len(bytes.TrimSpace(r.body)) == 0 {
		return fmt.Errorf("%w: empty body (status %d)", ErrMalformedResponse, r.status)
	}
	if err := json.Unmarshal(r.body, out); err != nil {
		return fmt.Errorf("%w: status %d: %w", ErrMalformedResponse, r.status, err)
	}
	return nil
}

// serverMessage extracts a top-level "message" from body, if there is one.
func serverMessage(body []byte) string {
	var m messageResponse
	if err := json.Unmarshal(body, &m); err != nil {
		return ""
	}
	return strings.TrimSpace(m.Message)
}

func rejected(path string, status int) error {
	return fmt.Errorf("%w: %s returned status %d", ErrRejected, path, status)
}

func orDefault(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}

package authclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/authclient/middleware"
	"github.com/MrEthical07/authclient/permission"
	"github.com/MrEthical07/authclient/session"
	"go.uber.org/zap"
)

// Client is the authentication client. It is built once with [Builder] and shared by
// everything that needs to log in, check roles or make authenticated calls. Methods are
// safe for concurrent use; see the package doc for the ordering guarantees on the
// session slot.
type Client struct {
	cfg     Config
	baseURL string

	store     *session.Store
	decorator *middleware.Decorator
	plain     *middleware.Decorator

	http   *http.Client
	authed *http.Client

	logger  *zap.Logger
	metrics *Metrics
	audit   *auditDispatcher
	now     func() time.Time

	closers []func() error
}

// Close stops the audit dispatcher, draining queued events, and releases backends the
// Builder opened.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	if c.audit != nil {
		c.audit.Close()
	}
	var errs []error
	for _, fn := range c.closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// Config returns a copy of the configuration the client was built with.
func (c *Client) Config() Config {
	return c.cfg
}

// AuditDropped returns how many audit events were dropped under backpressure.
func (c *Client) AuditDropped() uint64 {
	if c == nil || c.audit == nil {
		return 0
	}
	return c.audit.Dropped()
}

// MetricsSnapshot returns a copy of the client counters.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return c.metrics.Snapshot()
}

/*
====================================
LOCAL QUERIES
====================================
*/

// IsAuthenticated reports whether a session is cached locally. It never touches the
// network; use CheckAuthStatus for the server's view.
func (c *Client) IsAuthenticated(ctx context.Context) bool {
	return c.store.Load(ctx) != nil
}

// CurrentUser returns the cached username.
func (c *Client) CurrentUser(ctx context.Context) (string, bool) {
	sess := c.store.Load(ctx)
	if sess == nil {
		return "", false
	}
	return sess.Username, true
}

// Session returns a copy of the cached session, or nil.
func (c *Client) Session(ctx context.Context) *session.Session {
	return c.store.Load(ctx)
}

// HasRole reports whether the cached session holds role, written either bare ("ADMIN")
// or prefixed ("ROLE_ADMIN"). No session means false.
func (c *Client) HasRole(ctx context.Context, role string) bool {
	sess := c.store.Load(ctx)
	if sess == nil {
		return false
	}
	return permission.HasRole(sess.Authorities, role)
}

// HasAnyRole reports whether the cached session holds at least one of roles.
func (c *Client) HasAnyRole(ctx context.Context, roles ...string) bool {
	sess := c.store.Load(ctx)
	if sess == nil {
		return false
	}
	return permission.HasAnyRole(sess.Authorities, roles...)
}

// ClearSession drops the cached session without contacting the server.
func (c *Client) ClearSession(ctx context.Context) bool {
	return c.store.Clear(ctx)
}

/*
====================================
AUTHENTICATED REQUESTS
====================================
*/

// Decorate returns base with the default headers and the credential for the cached
// session added. Keys present in base win.
func (c *Client) Decorate(ctx context.Context, base middleware.Options) middleware.Options {
	return c.decorator.Decorate(ctx, base)
}

// HTTPClient returns an *http.Client whose transport decorates every request. Use it
// for application API calls against the identity service's origin.
func (c *Client) HTTPClient() *http.Client {
	return c.authed
}

// NewRequest builds a request for path, resolved against BaseURL unless it is already
// absolute. Headers are added when the request is sent through HTTPClient or Do.
func (c *Client) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	target := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		target = c.baseURL + path
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, path, err)
	}
	return req, nil
}

// Do sends an authenticated request and returns the raw response. The caller closes
// the body.
func (c *Client) Do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := c.NewRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	resp, err := c.authed.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, method, path, err)
	}
	return resp, nil
}

func (c *Client) onStorageFault(string, error) {
	c.metrics.Inc(MetricStorageFault)
}

func (c *Client) onDecorate(mode middleware.Mode) {
	switch mode {
	case middleware.ModeBearer:
		c.metrics.Inc(MetricDecorateBearer)
	case middleware.ModeSession:
		c.metrics.Inc(MetricDecorateSession)
	default:
		c.metrics.Inc(MetricDecorateAnonymous)
	}
}

// noSession is the source for calls that must not carry a credential, such as login.
type noSession struct{}

func (noSession) Load(context.Context) *session.Session { return nil }

package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/MrEthical07/authclient/jwt"
	"github.com/MrEthical07/authclient/session"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// HeaderRequestID carries the per-request correlation id.
const HeaderRequestID = "X-Request-ID"

// Mode is the credential form chosen for a request.
type Mode uint8

const (
	// ModeAnonymous means no session was cached.
	ModeAnonymous Mode = iota
	// ModeBearer means a bearer token was attached.
	ModeBearer
	// ModeSession means a session exists without a token; no credential was attached.
	ModeSession
)

func (m Mode) String() string {
	switch m {
	case ModeBearer:
		return "bearer"
	case ModeSession:
		return "session"
	default:
		return "anonymous"
	}
}

// SessionSource is the read side of the session store.
type SessionSource interface {
	Load(ctx context.Context) *session.Session
}

// Options is the request metadata a Decorator works on.
type Options struct {
	Method string
	Header http.Header
}

// Decorator attaches credentials from the cached session to outgoing request metadata.
type Decorator struct {
	source     SessionSource
	logger     *zap.Logger
	now        func() time.Time
	onDecorate func(Mode)
}

// DecoratorOption configures a Decorator.
type DecoratorOption func(*Decorator)

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.Logger) DecoratorOption {
	return func(d *Decorator) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithClock overrides time.Now, used for token expiry hints.
func WithClock(now func() time.Time) DecoratorOption {
	return func(d *Decorator) {
		if now != nil {
			d.now = now
		}
	}
}

// WithModeHook registers fn to observe the mode chosen for every decorated request.
func WithModeHook(fn func(Mode)) DecoratorOption {
	return func(d *Decorator) {
		d.onDecorate = fn
	}
}

// NewDecorator returns a Decorator reading sessions from source.
func NewDecorator(source SessionSource, opts ...DecoratorOption) *Decorator {
	d := &Decorator{
		source: source,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decorate returns a copy of base with default, correlation and credential headers added.
// Headers already present in base take precedence over everything the decorator adds.
func (d *Decorator) Decorate(ctx context.Context, base Options) Options {
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	h.Set(HeaderRequestID, requestID(ctx))

	mode := d.attachCredentials(ctx, h)
	if d.onDecorate != nil {
		d.onDecorate(mode)
	}

	for k, vs := range base.Header {
		h.Del(k)
		for _, v := range vs {
			h.Add(k, v)
		}
	}

	return Options{Method: base.Method, Header: h}
}

func (d *Decorator) attachCredentials(ctx context.Context, h http.Header) Mode {
	sess := d.source.Load(ctx)
	if sess == nil {
		d.logger.Debug("no cached session; request sent unauthenticated")
		return ModeAnonymous
	}

	if !sess.HasToken() {
		d.logger.Warn("session has no bearer token; using session-based mode without credentials",
			zap.String("username", sess.Username),
		)
		return ModeSession
	}

	tok := &oauth2.Token{AccessToken: sess.Token, TokenType: "Bearer"}
	tok.SetAuthHeader(&http.Request{Header: h})

	if d.tokenExpired(sess) {
		d.logger.Warn("cached bearer token appears expired; server will decide",
			zap.String("username", sess.Username),
		)
	}
	return ModeBearer
}

func (d *Decorator) tokenExpired(sess *session.Session) bool {
	now := d.now()
	if !sess.TokenExpiresAt.IsZero() {
		return sess.TokenExpired(now)
	}
	claims, err := jwt.Inspect(sess.Token)
	if err != nil {
		return false
	}
	return claims.Expired(now)
}

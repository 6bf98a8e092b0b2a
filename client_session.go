package authclient

import (
	"context"
	"net/http"
	"time"

	"github.com/MrEthical07/authclient/jwt"
	"github.com/MrEthical07/authclient/session"
	"go.uber.org/zap"
)

// Login posts the credentials and, when the service answers 2xx with success:true,
// replaces the cached session. On any failure the cache is left as it was. The password
// is never logged, cached or audited.
func (c *Client) Login(ctx context.Context, identifier, password string) LoginResult {
	ctx = ensureRequestID(ctx)

	r, err := c.send(ctx, http.MethodPost, PathLogin, LoginRequest{Identifier: identifier, Password: password}, false)
	if err != nil {
		c.logger.Debug("login request failed", zap.Error(err))
		c.loginFailed(ctx, identifier, err)
		return LoginResult{Result: Result{Message: msgUnreachable, Err: err}}
	}

	var resp LoginResponse
	if err := decodeReply(r, &resp); err != nil {
		c.logger.Debug("login response unreadable", zap.Int("status", r.status), zap.Error(err))
		c.loginFailed(ctx, identifier, err)
		return LoginResult{Result: Result{Message: msgLoginFailed, Err: err}}
	}

	if !r.ok() || !resp.Success {
		err := rejected(PathLogin, r.status)
		c.logger.Debug("login rejected", zap.Int("status", r.status), zap.String("message", resp.Message))
		c.loginFailed(ctx, identifier, err)
		return LoginResult{Result: Result{Message: orDefault(resp.Message, msgLoginFailed), Err: err}}
	}

	sess := c.newSession(identifier, &resp)
	c.store.Save(context.WithoutCancel(ctx), sess)

	c.metrics.Inc(MetricLoginSuccess)
	c.emitAudit(ctx, auditEventLoginSuccess, true, sess.Username, nil, func() map[string]string {
		return map[string]string{"credential": credentialForm(sess)}
	})

	return LoginResult{
		Result: Result{Success: true, Message: msgLoggedIn},
		User:   &resp,
	}
}

func (c *Client) loginFailed(ctx context.Context, identifier string, err error) {
	c.metrics.Inc(MetricLoginFailure)
	c.emitAudit(ctx, auditEventLoginFailure, false, identifier, err, nil)
}

// newSession builds the cached record for a successful login. The server's username is
// preferred; some deployments omit it and the identifier is used instead.
func (c *Client) newSession(identifier string, resp *LoginResponse) *session.Session {
	username := resp.Username
	if username == "" {
		username = identifier
	}

	now := c.now().UTC()
	token := resp.BearerToken()
	return &session.Session{
		Username:       username,
		Authorities:    resp.Authorities,
		LoginTime:      now,
		Token:          token,
		RefreshToken:   resp.RefreshToken,
		TokenExpiresAt: tokenExpiry(token, resp.ExpiresIn, now),
	}
}

// tokenExpiry prefers the server's expiresIn and falls back to the token's own exp claim.
func tokenExpiry(token string, expiresIn int64, now time.Time) time.Time {
	if token == "" {
		return time.Time{}
	}
	if expiresIn > 0 {
		return now.Add(time.Duration(expiresIn) * time.Second)
	}
	claims, err := jwt.Inspect(token)
	if err != nil {
		return time.Time{}
	}
	return claims.ExpiresAt
}

func credentialForm(sess *session.Session) string {
	if sess.HasToken() {
		return "bearer"
	}
	return "session"
}

// Logout tells the service to end the session and then clears the cache whatever the
// outcome. The request carries the cached credential. Only a failure to reach the
// service makes the result unsuccessful; any answer from the server means it has seen
// the logout. Logging out with nothing cached still calls the service and succeeds.
func (c *Client) Logout(ctx context.Context) LogoutResult {
	ctx = ensureRequestID(ctx)

	var username string
	if sess := c.store.Load(ctx); sess != nil {
		username = sess.Username
	}

	r, err := c.send(ctx, http.MethodPost, PathLogout, nil, true)
	c.store.Clear(context.WithoutCancel(ctx))

	if err != nil {
		c.logger.Debug("logout request failed; local session cleared", zap.Error(err))
		c.metrics.Inc(MetricLogoutFailure)
		c.emitAudit(ctx, auditEventLogout, false, username, err, nil)
		return LogoutResult{Result: Result{Message: msgLogoutFailed, Err: err}}
	}

	c.metrics.Inc(MetricLogoutSuccess)
	c.emitAudit(ctx, auditEventLogout, true, username, nil, func() map[string]string {
		return map[string]string{"status": http.StatusText(r.status)}
	})
	return LogoutResult{Result: Result{Success: true, Message: msgLoggedOut}}
}

// RefreshToken exchanges the cached refresh token for a new access token. On success the
// token fields of the cached session are replaced; username, authorities and login time
// are kept. On failure the cache is untouched.
func (c *Client) RefreshToken(ctx context.Context) RefreshResult {
	ctx = ensureRequestID(ctx)

	sess := c.store.Load(ctx)
	if sess == nil {
		return c.refreshFailed(ctx, "", msgNoSession, ErrNoSession)
	}
	if sess.RefreshToken == "" {
		return c.refreshFailed(ctx, sess.Username, msgNoRefreshToken, ErrNoRefreshToken)
	}

	r, err := c.send(ctx, http.MethodPost, PathRefresh, refreshRequest{RefreshToken: sess.RefreshToken}, false)
	if err != nil {
		return c.refreshFailed(ctx, sess.Username, msgUnreachable, err)
	}

	var resp LoginResponse
	if err := decodeReply(r, &resp); err != nil {
		return c.refreshFailed(ctx, sess.Username, msgRefreshFailed, err)
	}

	token := resp.BearerToken()
	if !r.ok() || !resp.Success || token == "" {
		return c.refreshFailed(ctx, sess.Username, orDefault(resp.Message, msgRefreshFailed), rejected(PathRefresh, r.status))
	}

	next := sess.Clone()
	next.Token = token
	if resp.RefreshToken != "" {
		next.RefreshToken = resp.RefreshToken
	}
	next.TokenExpiresAt = tokenExpiry(token, resp.ExpiresIn, c.now().UTC())
	c.store.Save(context.WithoutCancel(ctx), next)

	c.metrics.Inc(MetricRefreshSuccess)
	c.emitAudit(ctx, auditEventTokenRefresh, true, sess.Username, nil, nil)
	return RefreshResult{Result: Result{Success: true, Message: orDefault(resp.Message, msgRefreshed)}}
}

func (c *Client) refreshFailed(ctx context.Context, username, msg string, err error) RefreshResult {
	c.logger.Debug("token refresh failed", zap.Error(err))
	c.metrics.Inc(MetricRefreshFailure)
	c.emitAudit(ctx, auditEventTokenRefresh, false, username, err, nil)
	return RefreshResult{Result: Result{Message: msg, Err: err}}
}

package authclient

import (
	"context"
	"net/http"
	"time"

	"github.com/MrEthical07/authclient/session"
	"go.uber.org/zap"
)

// CheckAuthStatus asks the service whether the current credential is still accepted. It
// never modifies the cached session; callers wanting the cache to follow the server use
// Reconcile. A 401 or 403 is the server's verdict that the client is unauthenticated and
// counts as a successful check.
func (c *Client) CheckAuthStatus(ctx context.Context) StatusResult {
	ctx = ensureRequestID(ctx)

	res := c.checkStatus(ctx)
	if res.Success {
		c.metrics.Inc(MetricStatusCheck)
	} else {
		c.metrics.Inc(MetricStatusFailure)
	}

	var username string
	if res.User != nil {
		username = res.User.Username
	}
	c.emitAudit(ctx, auditEventStatusCheck, res.Success, username, res.Err, func() map[string]string {
		if !res.Success {
			return nil
		}
		if res.Authenticated {
			return map[string]string{"authenticated": "true"}
		}
		return map[string]string{"authenticated": "false"}
	})
	return res
}

func (c *Client) checkStatus(ctx context.Context) StatusResult {
	r, err := c.send(ctx, http.MethodGet, PathStatus, nil, true)
	if err != nil {
		c.logger.Debug("status request failed", zap.Error(err))
		return StatusResult{Result: Result{Message: msgStatusFailed, Err: err}}
	}

	if r.status == http.StatusUnauthorized || r.status == http.StatusForbidden {
		return StatusResult{Result: Result{Success: true}}
	}
	if !r.ok() {
		err := rejected(PathStatus, r.status)
		c.logger.Debug("status request rejected", zap.Error(err))
		return StatusResult{Result: Result{Message: orDefault(serverMessage(r.body), msgStatusFailed), Err: err}}
	}

	var resp statusResponse
	if err := decodeReply(r, &resp); err != nil {
		c.logger.Debug("status response unreadable", zap.Error(err))
		return StatusResult{Result: Result{Message: msgStatusFailed, Err: err}}
	}

	res := StatusResult{Result: Result{Success: true}, Authenticated: resp.Authenticated}
	if resp.Authenticated {
		res.User = &UserInfo{Username: resp.Username, Authorities: resp.Authorities}
	}
	return res
}

// Reconcile checks status and clears the cached session when the server answers that
// the client is not authenticated. A failed check leaves the cache alone, and so does a
// login that replaced the session while the check was in flight.
func (c *Client) Reconcile(ctx context.Context) ReconcileResult {
	ctx = ensureRequestID(ctx)

	sess := c.store.Load(ctx)

	res := ReconcileResult{StatusResult: c.CheckAuthStatus(ctx)}
	if !res.Success || res.Authenticated || sess == nil {
		return res
	}

	if cur := c.store.Load(ctx); !sameLogin(sess, cur) {
		c.logger.Debug("session replaced during status check; keeping it",
			zap.String("username", sess.Username),
		)
		return res
	}

	c.store.Clear(context.WithoutCancel(ctx))
	res.Cleared = true
	res.Message = msgReconcileCleared

	c.logger.Info("server no longer recognises session; cleared local cache",
		zap.String("username", sess.Username),
	)
	c.metrics.Inc(MetricReconcileCleared)
	c.emitAudit(ctx, auditEventSessionReconciled, true, sess.Username, nil, nil)
	return res
}

func sameLogin(a, b *session.Session) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Username == b.Username && a.LoginTime.Equal(b.LoginTime)
}

// DemoUsers fetches the demo account listing.
func (c *Client) DemoUsers(ctx context.Context) DemoUsersResult {
	ctx = ensureRequestID(ctx)

	r, err := c.send(ctx, http.MethodGet, PathDemoUsers, nil, false)
	if err != nil {
		c.logger.Debug("demo-users request failed", zap.Error(err))
		return DemoUsersResult{Result: Result{Message: msgDemoUsersFailed, Err: err}}
	}
	if !r.ok() {
		return DemoUsersResult{Result: Result{
			Message: orDefault(serverMessage(r.body), msgDemoUsersFailed),
			Err:     rejected(PathDemoUsers, r.status),
		}}
	}

	var resp demoUsersResponse
	if err := decodeReply(r, &resp); err != nil {
		return DemoUsersResult{Result: Result{Message: msgDemoUsersFailed, Err: err}}
	}

	c.metrics.Inc(MetricDemoUsersFetch)
	users := resp.DemoUsers
	if users == nil {
		users = map[string]string{}
	}
	return DemoUsersResult{
		Result:      Result{Success: true},
		Users:       users,
		Instruction: resp.Instruction,
	}
}

// ValidateToken asks the service to validate the cached bearer token. A well-formed
// answer is a successful call whether or not the token is valid.
func (c *Client) ValidateToken(ctx context.Context) ValidateResult {
	ctx = ensureRequestID(ctx)

	sess := c.store.Load(ctx)
	if sess == nil {
		return c.validateFailed(ctx, "", msgNoSession, ErrNoSession)
	}
	if !sess.HasToken() {
		return c.validateFailed(ctx, sess.Username, msgNoToken, ErrNoToken)
	}

	r, err := c.send(ctx, http.MethodPost, PathValidate, validateRequest{Token: sess.Token}, false)
	if err != nil {
		return c.validateFailed(ctx, sess.Username, msgUnreachable, err)
	}

	var resp validateResponse
	if err := decodeReply(r, &resp); err != nil {
		return c.validateFailed(ctx, sess.Username, msgValidateFailed, err)
	}
	if !r.ok() && r.status != http.StatusUnauthorized {
		return c.validateFailed(ctx, sess.Username, orDefault(resp.Message, msgValidateFailed), rejected(PathValidate, r.status))
	}

	res := ValidateResult{
		Result:        Result{Success: true},
		Valid:         resp.Valid,
		Username:      resp.Username,
		Authorities:   resp.Authorities,
		RemainingTime: time.Duration(resp.RemainingTime) * time.Millisecond,
		ExpiringSoon:  resp.ExpiringSoon,
	}
	if resp.Valid {
		res.Message = orDefault(resp.Message, msgTokenValid)
	} else {
		res.Message = orDefault(resp.Message, msgTokenInvalid)
	}

	c.metrics.Inc(MetricValidateSuccess)
	c.emitAudit(ctx, auditEventTokenValidate, true, sess.Username, nil, func() map[string]string {
		if resp.Valid {
			return map[string]string{"valid": "true"}
		}
		return map[string]string{"valid": "false"}
	})
	return res
}

func (c *Client) validateFailed(ctx context.Context, username, msg string, err error) ValidateResult {
	c.logger.Debug("token validation failed", zap.Error(err))
	c.metrics.Inc(MetricValidateFailure)
	c.emitAudit(ctx, auditEventTokenValidate, false, username, err, nil)
	return ValidateResult{Result: Result{Message: msg, Err: err}}
}

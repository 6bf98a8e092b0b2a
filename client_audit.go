package authclient

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

const (
	auditEventLoginSuccess      = "login_success"
	auditEventLoginFailure      = "login_failure"
	auditEventLogout            = "logout"
	auditEventStatusCheck       = "status_check"
	auditEventTokenRefresh      = "token_refresh"
	auditEventTokenValidate     = "token_validate"
	auditEventSessionReconciled = "session_reconciled"
)

// AuditErrorCode classifies the failure recorded in AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrTransport      AuditErrorCode = "transport"
	auditErrMalformed      AuditErrorCode = "malformed_response"
	auditErrRejected       AuditErrorCode = "rejected"
	auditErrNoSession      AuditErrorCode = "no_session"
	auditErrNoRefreshToken AuditErrorCode = "no_refresh_token"
	auditErrNoToken        AuditErrorCode = "no_token"
	auditErrInternal       AuditErrorCode = "internal_error"
)

func (c *Client) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	username string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if c == nil || c.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	rid, _ := requestIDFromContext(ctx)
	event := AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: c.now().UTC(),
		EventType: eventType,
		Username:  username,
		RequestID: rid,
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	c.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrTransport):
		return auditErrTransport
	case errors.Is(err, ErrMalformedResponse):
		return auditErrMalformed
	case errors.Is(err, ErrRejected):
		return auditErrRejected
	case errors.Is(err, ErrNoSession):
		return auditErrNoSession
	case errors.Is(err, ErrNoRefreshToken):
		return auditErrNoRefreshToken
	case errors.Is(err, ErrNoToken):
		return auditErrNoToken
	default:
		return auditErrInternal
	}
}

package goSession

import (
	"context"
	"errors"

	"github.com/MrEthical07/goSession/transport"
)

const (
	auditEventOTPSent         = "otp_sent"
	auditEventOTPSendFailure  = "otp_send_failure"
	auditEventLoginSuccess    = "login_success"
	auditEventLoginFailure    = "login_failure"
	auditEventSessionRestored = "session_restored"
	auditEventRestoreMiss     = "session_restore_miss"
	auditEventRefreshSuccess  = "refresh_success"
	auditEventRefreshFailure  = "refresh_failure"
	auditEventAuthExpired     = "auth_expired"
	auditEventLogout          = "logout"
	auditEventRevokeFailure   = "revoke_failure"

	// auditEventOverflow is synthesized by the dispatcher itself when events
	// were shed under backpressure, so the trail records its own gaps.
	auditEventOverflow = "audit_overflow"
)

// AuditErrorCode defines a public type used by goSession APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrValidation   AuditErrorCode = "validation"
	auditErrNetwork      AuditErrorCode = "network"
	auditErrAuthExpired  AuditErrorCode = "auth_expired"
	auditErrServer       AuditErrorCode = "server_error"
	auditErrPersist      AuditErrorCode = "persist_failed"
	auditErrInvalidToken AuditErrorCode = "invalid_token"
	auditErrIncomplete   AuditErrorCode = "session_incomplete"
	auditErrContext      AuditErrorCode = "canceled"
	auditErrInternal     AuditErrorCode = "internal_error"
)

func (m *Manager) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	identity string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if m == nil || m.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	// Timestamp is stamped by the dispatcher on its way into the queue.
	event := AuditEvent{
		EventType: eventType,
		UserID:    userID,
		Identity:  identity,
		DeviceID:  m.deviceID,
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	m.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrIdentityRequired),
		errors.Is(err, ErrCodeRequired),
		errors.Is(err, ErrProviderTokenRequired),
		errors.Is(err, ErrOTPNotPending),
		errors.Is(err, ErrNotAuthenticated):
		return auditErrValidation
	case errors.Is(err, transport.ErrAuthExpired):
		return auditErrAuthExpired
	case errors.Is(err, transport.ErrNetwork):
		return auditErrNetwork
	case errors.Is(err, ErrPersistFailed):
		return auditErrPersist
	case errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrSessionIncomplete):
		return auditErrIncomplete
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return auditErrContext
	}

	var apiErr *transport.APIError
	if errors.As(err, &apiErr) {
		return auditErrServer
	}
	return auditErrInternal
}

package chainAuth

import (
	"context"
	"errors"
)

const (
	auditEventRegisterBasicInfo      = "register_basic_info"
	auditEventRegisterDuplicate      = "register_duplicate"
	auditEventRegisterRateLimited    = "register_rate_limited"
	auditEventOTPIssued              = "otp_issued"
	auditEventOTPDeliveryFailed      = "otp_delivery_failed"
	auditEventOTPResend              = "otp_resend"
	auditEventEmailVerified          = "email_verified"
	auditEventEmailVerifyFailure     = "email_verify_failure"
	auditEventWalletBound            = "wallet_bound"
	auditEventWalletBindFailure      = "wallet_bind_failure"
	auditEventLoginSuccess           = "login_password_verified"
	auditEventLoginFailure           = "login_failure"
	auditEventLoginIncomplete        = "login_registration_incomplete"
	auditEventWalletLoginSuccess     = "login_wallet_verified"
	auditEventWalletLoginFailure     = "login_wallet_failure"
	auditEventWalletLoginReplay      = "login_temp_token_replay"
	auditEventSessionRejected        = "session_rejected"
	auditEventRegistrationsCleanedUp = "registrations_cleaned_up"
	auditEventRateLimitTriggered     = "rate_limit_triggered"
)

// AuditErrorCode defines a public type used by chainAuth APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrInvalidInput           AuditErrorCode = "invalid_input"
	auditErrInvalidCredentials     AuditErrorCode = "invalid_credentials"
	auditErrRateLimited            AuditErrorCode = "rate_limited"
	auditErrAttemptsExceeded       AuditErrorCode = "attempts_exceeded"
	auditErrInvalidToken           AuditErrorCode = "invalid_token"
	auditErrTokenExpired           AuditErrorCode = "token_expired"
	auditErrUserNotFound           AuditErrorCode = "user_not_found"
	auditErrInvalidStep            AuditErrorCode = "invalid_step"
	auditErrRegistrationIncomplete AuditErrorCode = "registration_incomplete"
	auditErrInvalidOTP             AuditErrorCode = "otp_invalid"
	auditErrOTPNotFound            AuditErrorCode = "otp_not_found"
	auditErrInvalidSignature       AuditErrorCode = "signature_invalid"
	auditErrWalletMismatch         AuditErrorCode = "wallet_mismatch"
	auditErrDuplicate              AuditErrorCode = "duplicate"
	auditErrDeliveryFailed         AuditErrorCode = "delivery_failed"
	auditErrUnavailable            AuditErrorCode = "backend_unavailable"
	auditErrInternal               AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(
	ctx context.Context,
	scope string,
	metadataBuilder func() map[string]string,
) {
	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, "", "", nil, func() map[string]string {
		base := map[string]string{
			"scope": scope,
		}
		if metadataBuilder == nil {
			return base
		}
		for k, v := range metadataBuilder() {
			base[k] = v
		}
		return base
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrOTPExhausted),
		errors.Is(err, ErrLoginAttemptsExceeded):
		return auditErrAttemptsExceeded
	case errors.Is(err, ErrOTPRateLimited),
		errors.Is(err, ErrLoginRateLimited),
		errors.Is(err, ErrRegistrationLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrTokenType),
		errors.Is(err, ErrTempTokenRejected),
		errors.Is(err, ErrMissingSessionToken):
		return auditErrInvalidToken
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrInvalidStep),
		errors.Is(err, ErrEmailNotVerified):
		return auditErrInvalidStep
	case errors.Is(err, ErrRegistrationIncomplete):
		return auditErrRegistrationIncomplete
	case errors.Is(err, ErrInvalidOTP):
		return auditErrInvalidOTP
	case errors.Is(err, ErrOTPNotFound):
		return auditErrOTPNotFound
	case errors.Is(err, ErrInvalidSignature):
		return auditErrInvalidSignature
	case errors.Is(err, ErrWalletMismatch):
		return auditErrWalletMismatch
	case errors.Is(err, ErrUsernameTaken),
		errors.Is(err, ErrEmailTaken),
		errors.Is(err, ErrWalletTaken):
		return auditErrDuplicate
	case errors.Is(err, ErrOTPDelivery):
		return auditErrDeliveryFailed
	case errors.Is(err, ErrUnavailable):
		return auditErrUnavailable
	case KindOf(err) == KindValidation:
		return auditErrInvalidInput
	default:
		return auditErrInternal
	}
}

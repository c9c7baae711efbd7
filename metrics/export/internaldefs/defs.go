package internaldefs

import (
	"context"

	chainAuth "github.com/MrEthical07/chainAuth"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   chainAuth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   chainAuth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: chainAuth.MetricRegistrationStarted, Name: "chainauth_registration_started_total", Help: "Users created by registration step one."},
	{ID: chainAuth.MetricRegistrationDuplicate, Name: "chainauth_registration_duplicate_total", Help: "Registrations rejected for a taken username or email."},
	{ID: chainAuth.MetricRegistrationRateLimited, Name: "chainauth_registration_rate_limited_total", Help: "Registrations rejected by the per-IP limiter."},
	{ID: chainAuth.MetricRegistrationRejected, Name: "chainauth_registration_rejected_total", Help: "Registrations rejected by input validation."},
	{ID: chainAuth.MetricOTPIssued, Name: "chainauth_otp_issued_total", Help: "Email passcodes issued."},
	{ID: chainAuth.MetricOTPDeliveryFailure, Name: "chainauth_otp_delivery_failure_total", Help: "Passcode emails that failed to send."},
	{ID: chainAuth.MetricOTPIssueRateLimited, Name: "chainauth_otp_issue_rate_limited_total", Help: "Passcode issues rejected by the per-email window."},
	{ID: chainAuth.MetricOTPVerifySuccess, Name: "chainauth_otp_verify_success_total", Help: "Successful email verifications."},
	{ID: chainAuth.MetricOTPVerifyFailure, Name: "chainauth_otp_verify_failure_total", Help: "Failed email verifications."},
	{ID: chainAuth.MetricOTPExhausted, Name: "chainauth_otp_exhausted_total", Help: "Passcodes invalidated by the attempt cap."},
	{ID: chainAuth.MetricWalletBound, Name: "chainauth_wallet_bound_total", Help: "Wallets bound during registration."},
	{ID: chainAuth.MetricWalletConflict, Name: "chainauth_wallet_conflict_total", Help: "Wallet bindings rejected because the wallet belongs to another user."},
	{ID: chainAuth.MetricWalletSignatureInvalid, Name: "chainauth_wallet_signature_invalid_total", Help: "Wallet bindings rejected for an invalid signature."},
	{ID: chainAuth.MetricRegistrationCompleted, Name: "chainauth_registration_completed_total", Help: "Registrations that reached the complete step."},
	{ID: chainAuth.MetricLoginSuccess, Name: "chainauth_login_success_total", Help: "Password logins that issued a temporary token."},
	{ID: chainAuth.MetricLoginFailure, Name: "chainauth_login_failure_total", Help: "Password logins rejected for invalid credentials."},
	{ID: chainAuth.MetricLoginRateLimited, Name: "chainauth_login_rate_limited_total", Help: "Rate-limited password logins."},
	{ID: chainAuth.MetricLoginIncomplete, Name: "chainauth_login_incomplete_total", Help: "Password logins by users with incomplete registration."},
	{ID: chainAuth.MetricWalletLoginSuccess, Name: "chainauth_wallet_login_success_total", Help: "Wallet verifications that issued a session."},
	{ID: chainAuth.MetricWalletLoginFailure, Name: "chainauth_wallet_login_failure_total", Help: "Failed wallet verifications."},
	{ID: chainAuth.MetricWalletLoginMismatch, Name: "chainauth_wallet_login_mismatch_total", Help: "Wallet verifications from a wallet other than the bound one."},
	{ID: chainAuth.MetricWalletLoginAttemptsExceeded, Name: "chainauth_wallet_login_attempts_exceeded_total", Help: "Pending logins dropped after too many bad signatures."},
	{ID: chainAuth.MetricTempTokenReplay, Name: "chainauth_temp_token_replay_total", Help: "Temporary tokens presented after they were consumed."},
	{ID: chainAuth.MetricSessionValidated, Name: "chainauth_session_validated_total", Help: "Accepted session tokens."},
	{ID: chainAuth.MetricSessionRejected, Name: "chainauth_session_rejected_total", Help: "Rejected session tokens."},
	{ID: chainAuth.MetricRateLimitHit, Name: "chainauth_rate_limit_hit_total", Help: "Rate-limit checks that denied requests."},
	{ID: chainAuth.MetricCleanupRemoved, Name: "chainauth_cleanup_removed_total", Help: "Incomplete registrations removed by cleanup."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: chainAuth.MetricSignatureVerifyLatency, Name: "chainauth_signature_verify_latency_seconds", Help: "Wallet signature verification latency."},
}

// Names of the series that do not come from the counter snapshot.
const (
	AuditDroppedName = "chainauth_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

	IncompleteRegistrationsName = "chainauth_incomplete_registrations"
	IncompleteRegistrationsHelp = "Users that started registration but have not bound a wallet."
)

// IncompleteCounter is implemented by sources that can report pending
// registrations, such as *chainAuth.Engine.
type IncompleteCounter interface {
	IncompleteRegistrationCount(ctx context.Context) (int64, error)
}

// HistogramBounds are the upper bounds of the eight latency buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the cumulative form
// exposition formats expect.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}

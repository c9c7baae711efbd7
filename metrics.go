package chainAuth

import internalmetrics "github.com/MrEthical07/chainAuth/internal/metrics"

// MetricID identifies an engine counter or histogram.
type MetricID = internalmetrics.MetricID

const (
	// MetricRegistrationStarted counts users created by step one.
	MetricRegistrationStarted = internalmetrics.MetricRegistrationStarted
	// MetricRegistrationDuplicate counts step-one username or email conflicts.
	MetricRegistrationDuplicate   = internalmetrics.MetricRegistrationDuplicate
	MetricRegistrationRateLimited = internalmetrics.MetricRegistrationRateLimited
	// MetricRegistrationRejected counts step-one validation failures.
	MetricRegistrationRejected = internalmetrics.MetricRegistrationRejected
	MetricOTPIssued            = internalmetrics.MetricOTPIssued
	MetricOTPDeliveryFailure   = internalmetrics.MetricOTPDeliveryFailure
	MetricOTPIssueRateLimited  = internalmetrics.MetricOTPIssueRateLimited
	MetricOTPVerifySuccess     = internalmetrics.MetricOTPVerifySuccess
	MetricOTPVerifyFailure     = internalmetrics.MetricOTPVerifyFailure
	MetricOTPExhausted         = internalmetrics.MetricOTPExhausted
	MetricWalletBound          = internalmetrics.MetricWalletBound
	// MetricWalletConflict counts step-three attempts on a wallet owned by another user.
	MetricWalletConflict              = internalmetrics.MetricWalletConflict
	MetricWalletSignatureInvalid      = internalmetrics.MetricWalletSignatureInvalid
	MetricRegistrationCompleted       = internalmetrics.MetricRegistrationCompleted
	MetricLoginSuccess                = internalmetrics.MetricLoginSuccess
	MetricLoginFailure                = internalmetrics.MetricLoginFailure
	MetricLoginRateLimited            = internalmetrics.MetricLoginRateLimited
	MetricLoginIncomplete             = internalmetrics.MetricLoginIncomplete
	MetricWalletLoginSuccess          = internalmetrics.MetricWalletLoginSuccess
	MetricWalletLoginFailure          = internalmetrics.MetricWalletLoginFailure
	MetricWalletLoginMismatch         = internalmetrics.MetricWalletLoginMismatch
	MetricWalletLoginAttemptsExceeded = internalmetrics.MetricWalletLoginAttemptsExceeded
	// MetricTempTokenReplay counts temp tokens presented after their pending
	// login was consumed.
	MetricTempTokenReplay  = internalmetrics.MetricTempTokenReplay
	MetricSessionValidated = internalmetrics.MetricSessionValidated
	MetricSessionRejected  = internalmetrics.MetricSessionRejected
	MetricRateLimitHit     = internalmetrics.MetricRateLimitHit
	// MetricCleanupRemoved counts incomplete registrations removed by cleanup.
	MetricCleanupRemoved = internalmetrics.MetricCleanupRemoved
	// MetricSignatureVerifyLatency is a histogram of wallet signature checks.
	MetricSignatureVerifyLatency = internalmetrics.MetricSignatureVerifyLatency
)

// Metrics defines a public type used by chainAuth APIs.
//
// Metrics instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of engine metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics returns a Metrics configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:                 cfg.Enabled,
		EnableLatencyHistograms: cfg.EnableLatencyHistograms,
	})
}

package chainAuth

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/chainAuth/internal/rate"
	"github.com/MrEthical07/chainAuth/internal/stores"
	"github.com/MrEthical07/chainAuth/jwt"
	"github.com/MrEthical07/chainAuth/store"
	"github.com/MrEthical07/chainAuth/wallet"
	"github.com/sirupsen/logrus"
)

// Login runs the password phase. identifier is matched against the exact
// username or the lowercased email. On success it returns a temporary token
// that [Engine.VerifyWallet] accepts once.
//
// Unknown users and wrong passwords both yield ErrInvalidCredentials. Users
// who have not finished registration get ErrRegistrationIncomplete carrying
// their current step, but only after the password matched.
func (e *Engine) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if identifier == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	ip := clientIPFromContext(ctx)
	if err := e.rateLimiter.CheckLogin(ctx, identifier, ip); err != nil {
		err = mapLimiterError(err, ErrLoginRateLimited)
		if errors.Is(err, ErrLoginRateLimited) {
			e.metricInc(MetricLoginRateLimited)
			e.emitRateLimit(ctx, "login", func() map[string]string {
				return map[string]string{"identifier": identifier}
			})
		}
		return nil, err
	}

	user, err := e.store.FindUserByUsernameOrEmail(ctx, identifier, strings.ToLower(identifier))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, mapStoreError(err)
		}
		_, _ = e.passwordHash.Verify(password, e.dummyHash)
		return nil, e.loginFailed(ctx, identifier, ip, "")
	}

	ok, err := e.passwordHash.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, ErrInternal.withCause(err)
	}
	if !ok {
		return nil, e.loginFailed(ctx, identifier, ip, user.ID)
	}

	if !user.RegistrationComplete {
		e.metricInc(MetricLoginIncomplete)
		err := ErrRegistrationIncomplete.withStep(user.RegistrationStep).withUser(user.ID)
		e.emitAudit(ctx, auditEventLoginIncomplete, false, user.ID, "", err, nil)
		return nil, err
	}

	if e.config.Password.UpgradeOnLogin {
		e.upgradePasswordHash(ctx, user, password)
	}

	token, err := e.jwtManager.IssueTemp(user.ID)
	if err != nil {
		return nil, ErrInternal.withCause(err)
	}
	pending := &stores.PendingLogin{
		UserID:    user.ID,
		ExpiresAt: token.ExpiresAt.Unix(),
	}
	if err := e.pendingLogins.Save(ctx, token.ID, pending, e.jwtManager.TempTTL()); err != nil {
		return nil, ErrUnavailable.withCause(err)
	}

	if err := e.rateLimiter.ResetLogin(ctx, identifier, ip); err != nil {
		e.logger.WithError(err).Warn("login limiter reset failed")
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.ID, token.ID, nil, nil)
	e.logger.WithField("user_id", user.ID).Info("login initiated, awaiting wallet signature")

	return &LoginResult{
		TempToken:     token.Value,
		ExpiresAt:     token.ExpiresAt,
		UserID:        user.ID,
		WalletAddress: user.WalletAddress,
		WalletType:    user.WalletType,
	}, nil
}

// VerifyWallet runs the wallet phase of login. Only temporary tokens issued
// by [Engine.Login] are accepted, each at most once. A session token is
// returned when the signature was produced by the wallet bound at
// registration.
func (e *Engine) VerifyWallet(ctx context.Context, req VerifyWalletRequest) (*SessionResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if req.TempToken == "" || req.WalletAddress == "" || req.SignedMessage == "" || req.Signature == "" {
		return nil, ErrMissingFields
	}

	claims, err := e.jwtManager.Parse(req.TempToken)
	if err != nil {
		e.metricInc(MetricWalletLoginFailure)
		if errors.Is(err, jwt.ErrExpired) {
			return nil, ErrTokenExpired.withCause(err)
		}
		return nil, ErrTokenInvalid.withCause(err)
	}
	if !claims.Temp {
		e.metricInc(MetricWalletLoginFailure)
		e.emitAudit(ctx, auditEventWalletLoginFailure, false, claims.UserID, claims.ID, ErrTokenType, nil)
		return nil, ErrTokenType
	}

	pending, err := e.pendingLogins.Get(ctx, claims.ID)
	if err != nil {
		err = mapPendingLoginError(err)
		if errors.Is(err, ErrTokenExpired) {
			e.metricInc(MetricTempTokenReplay)
			e.emitAudit(ctx, auditEventWalletLoginReplay, false, claims.UserID, claims.ID, err, nil)
		}
		return nil, err
	}
	if pending.UserID != claims.UserID {
		return nil, ErrTokenInvalid
	}

	user, err := e.loadUser(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if !user.RegistrationComplete {
		return nil, ErrRegistrationIncomplete.withStep(user.RegistrationStep).withUser(user.ID)
	}

	family, err := wallet.Lookup(wallet.Type(user.WalletType))
	if err != nil {
		return nil, ErrInternal.withCause(err)
	}
	if !family.SameAddress(user.WalletAddress, req.WalletAddress) {
		e.metricInc(MetricWalletLoginMismatch)
		e.emitAudit(ctx, auditEventWalletLoginFailure, false, user.ID, claims.ID, ErrWalletMismatch, nil)
		return nil, ErrWalletMismatch
	}

	if !e.verifySignature(family, req.SignedMessage, req.Signature, user.WalletAddress) {
		e.metricInc(MetricWalletLoginFailure)
		exceeded, ferr := e.pendingLogins.RecordFailure(ctx, claims.ID, e.config.Login.MaxSignatureAttempts)
		if ferr != nil {
			return nil, mapPendingLoginError(ferr)
		}
		if exceeded {
			e.metricInc(MetricWalletLoginAttemptsExceeded)
			e.emitAudit(ctx, auditEventWalletLoginFailure, false, user.ID, claims.ID, ErrLoginAttemptsExceeded, nil)
			return nil, ErrLoginAttemptsExceeded
		}
		e.emitAudit(ctx, auditEventWalletLoginFailure, false, user.ID, claims.ID, ErrInvalidSignature, nil)
		return nil, ErrInvalidSignature
	}

	// Consume the pending login; losing this race means the token was used
	// concurrently.
	deleted, err := e.pendingLogins.Delete(ctx, claims.ID)
	if err != nil {
		return nil, mapPendingLoginError(err)
	}
	if !deleted {
		e.metricInc(MetricTempTokenReplay)
		e.emitAudit(ctx, auditEventWalletLoginReplay, false, user.ID, claims.ID, ErrTokenExpired, nil)
		return nil, ErrTokenExpired
	}

	now := e.now().UTC()
	if err := e.store.RecordLogin(ctx, user.ID, now); err != nil {
		return nil, mapStoreError(err)
	}
	user.LastLogin = now

	session, err := e.jwtManager.IssueSession(user.ID)
	if err != nil {
		return nil, ErrInternal.withCause(err)
	}

	e.metricInc(MetricWalletLoginSuccess)
	e.emitAudit(ctx, auditEventWalletLoginSuccess, true, user.ID, session.ID, nil, func() map[string]string {
		return map[string]string{"wallet_type": user.WalletType}
	})
	e.logger.WithFields(logrus.Fields{
		"user_id":     user.ID,
		"wallet_type": user.WalletType,
	}).Info("login successful")

	return &SessionResult{
		Token:     session.Value,
		ExpiresAt: session.ExpiresAt,
		User:      publicUser(user),
	}, nil
}

func (e *Engine) loginFailed(ctx context.Context, identifier, ip, userID string) error {
	if err := e.rateLimiter.IncrementLogin(ctx, identifier, ip); err != nil && !errors.Is(err, rate.ErrRateLimited) {
		e.logger.WithError(err).Warn("login limiter increment failed")
	}
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, userID, "", ErrInvalidCredentials, func() map[string]string {
		return map[string]string{"identifier": identifier}
	})
	return ErrInvalidCredentials
}

// upgradePasswordHash rehashes with the configured cost. Failures are logged
// and do not affect the login.
func (e *Engine) upgradePasswordHash(ctx context.Context, user *store.User, password string) {
	needs, err := e.passwordHash.NeedsUpgrade(user.PasswordHash)
	if err != nil || !needs {
		return
	}
	hash, err := e.passwordHash.Hash(password)
	if err != nil {
		return
	}
	user.PasswordHash = hash
	if err := e.store.SaveUser(ctx, user); err != nil {
		e.logger.WithError(err).WithField("user_id", user.ID).Warn("password hash upgrade failed")
	}
}

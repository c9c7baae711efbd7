package chainAuth

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/chainAuth/store"
	"github.com/MrEthical07/chainAuth/wallet"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RegisterBasicInfo runs registration step one: it validates the request,
// creates the user at step 1 and emails a passcode.
//
// When the user was created but the email could not be sent, the result is
// returned together with an error matching ErrOTPDelivery. The user and code
// stay persisted so the caller can offer [Engine.ResendOTP].
func (e *Engine) RegisterBasicInfo(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	req = normalizeRegistration(req)
	if err := validateRegistration(req); err != nil {
		e.metricInc(MetricRegistrationRejected)
		return nil, err
	}

	if err := e.ensureAvailable(ctx, req.Username, req.Email); err != nil {
		if errors.Is(err, ErrUsernameTaken) || errors.Is(err, ErrEmailTaken) {
			e.metricInc(MetricRegistrationDuplicate)
			e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", "", err, func() map[string]string {
				return map[string]string{"username": req.Username}
			})
		}
		return nil, err
	}

	if err := e.registrationLimiter.Enforce(ctx, clientIPFromContext(ctx)); err != nil {
		err = mapLimiterError(err, ErrRegistrationLimited)
		if errors.Is(err, ErrRegistrationLimited) {
			e.metricInc(MetricRegistrationRateLimited)
			e.emitRateLimit(ctx, "registration", nil)
		}
		return nil, err
	}

	// No user is created when the email already spent its issue window.
	if err := e.otp.CheckIssue(ctx, req.Email); err != nil {
		err = mapOTPError(err, outcomeNone)
		if errors.Is(err, ErrOTPRateLimited) {
			e.metricInc(MetricOTPIssueRateLimited)
		}
		return nil, err
	}

	hash, err := e.passwordHash.Hash(req.Password)
	if err != nil {
		return nil, ErrInternal.withCause(err)
	}

	user := &store.User{
		ID:               uuid.NewString(),
		Username:         req.Username,
		Email:            req.Email,
		PasswordHash:     hash,
		RegistrationStep: store.StepBasicInfo,
		CreatedAt:        e.now().UTC(),
	}
	if err := e.store.CreateUser(ctx, user); err != nil {
		err = mapStoreError(err)
		if errors.Is(err, ErrUsernameTaken) || errors.Is(err, ErrEmailTaken) {
			e.metricInc(MetricRegistrationDuplicate)
		}
		return nil, err
	}
	e.metricInc(MetricRegistrationStarted)
	e.emitAudit(ctx, auditEventRegisterBasicInfo, true, user.ID, "", nil, nil)

	result := &RegisterResult{UserID: user.ID, Email: user.Email}
	if err := e.issueAndSend(ctx, user); err != nil {
		return result, err
	}
	result.EmailDelivered = true

	e.logger.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("user created (step 1)")

	return result, nil
}

// ConfirmEmail runs registration step two: it checks code against the latest
// passcode issued to the user's email and advances the user to step 2.
func (e *Engine) ConfirmEmail(ctx context.Context, userID, code string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if userID == "" || code == "" {
		return ErrMissingOTPFields
	}

	user, err := e.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.RegistrationStep != store.StepBasicInfo {
		return ErrInvalidStep.withStep(user.RegistrationStep)
	}

	outcome, err := e.otp.Verify(ctx, user.Email, code)
	if err != nil {
		err = mapOTPError(err, outcome)
		if errors.Is(err, ErrOTPExhausted) {
			e.metricInc(MetricOTPExhausted)
		} else {
			e.metricInc(MetricOTPVerifyFailure)
		}
		e.emitAudit(ctx, auditEventEmailVerifyFailure, false, user.ID, "", err, nil)
		return err
	}

	if err := e.store.MarkEmailVerified(ctx, user.ID); err != nil {
		if errors.Is(err, store.ErrStaleTransition) {
			return ErrInvalidStep.withCause(err)
		}
		return mapStoreError(err)
	}

	e.metricInc(MetricOTPVerifySuccess)
	e.emitAudit(ctx, auditEventEmailVerified, true, user.ID, "", nil, nil)
	e.logger.WithField("user_id", user.ID).Info("email verified (step 2)")

	return nil
}

// ResendOTP issues a fresh passcode for the user. Only the issue window is
// enforced; the registration step is not read or changed and earlier codes
// are superseded.
func (e *Engine) ResendOTP(ctx context.Context, userID string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if userID == "" {
		return ErrMissingUserID
	}

	user, err := e.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	e.emitAudit(ctx, auditEventOTPResend, true, user.ID, "", nil, nil)
	return e.issueAndSend(ctx, user)
}

// BindWallet runs registration step three: it verifies that the caller
// controls the wallet and completes registration.
func (e *Engine) BindWallet(ctx context.Context, req BindWalletRequest) (*PublicUser, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if req.UserID == "" || req.WalletAddress == "" || req.SignedMessage == "" || req.Signature == "" {
		return nil, ErrMissingFields
	}

	walletType := wallet.ParseType(req.WalletType)
	family, err := wallet.Lookup(walletType)
	if err != nil || !e.config.walletAllowed(walletType) {
		return nil, ErrUnsupportedWallet
	}

	user, err := e.loadUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	switch user.RegistrationStep {
	case store.StepEmailVerified:
	case store.StepBasicInfo:
		return nil, ErrEmailNotVerified.withStep(user.RegistrationStep)
	default:
		return nil, ErrInvalidStep.withStep(user.RegistrationStep)
	}

	if !family.ValidateAddress(req.WalletAddress) {
		return nil, ErrInvalidWalletAddr.withMessage(fmt.Sprintf("Invalid %s address", wallet.DisplayName(walletType)))
	}
	address := family.NormalizeAddress(req.WalletAddress)

	if _, err := e.store.FindUserByWallet(ctx, address, user.ID); err == nil {
		e.metricInc(MetricWalletConflict)
		e.emitAudit(ctx, auditEventWalletBindFailure, false, user.ID, "", ErrWalletTaken, nil)
		return nil, ErrWalletTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, mapStoreError(err)
	}

	if !e.verifySignature(family, req.SignedMessage, req.Signature, address) {
		e.metricInc(MetricWalletSignatureInvalid)
		e.emitAudit(ctx, auditEventWalletBindFailure, false, user.ID, "", ErrInvalidSignature, func() map[string]string {
			return map[string]string{"wallet_type": string(walletType)}
		})
		return nil, ErrInvalidSignature
	}

	binding := store.WalletBinding{
		Address:   address,
		Type:      string(walletType),
		Signature: req.Signature,
	}
	if err := e.store.BindWallet(ctx, user.ID, binding); err != nil {
		if errors.Is(err, store.ErrStaleTransition) {
			return nil, ErrInvalidStep.withCause(err)
		}
		err = mapStoreError(err)
		if errors.Is(err, ErrWalletTaken) {
			e.metricInc(MetricWalletConflict)
			e.emitAudit(ctx, auditEventWalletBindFailure, false, user.ID, "", err, nil)
		}
		return nil, err
	}

	user.WalletAddress = address
	user.WalletType = string(walletType)
	user.RegistrationStep = store.StepComplete
	user.RegistrationComplete = true
	user.IsWalletVerified = true

	e.metricInc(MetricWalletBound)
	e.metricInc(MetricRegistrationCompleted)
	e.emitAudit(ctx, auditEventWalletBound, true, user.ID, "", nil, func() map[string]string {
		return map[string]string{"wallet_type": string(walletType)}
	})
	e.logger.WithFields(logrus.Fields{
		"user_id":     user.ID,
		"wallet_type": walletType,
	}).Info("wallet bound, registration complete")

	out := publicUser(user)
	return &out, nil
}

func (e *Engine) ensureAvailable(ctx context.Context, username, email string) error {
	if _, err := e.store.FindUserByUsername(ctx, username); err == nil {
		return ErrUsernameTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return mapStoreError(err)
	}

	if _, err := e.store.FindUserByEmail(ctx, email); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return mapStoreError(err)
	}
	return nil
}

// issueAndSend creates a new passcode for user and emails it.
func (e *Engine) issueAndSend(ctx context.Context, user *store.User) error {
	code, err := e.otp.Issue(ctx, user.Email)
	if err != nil {
		err = mapOTPError(err, outcomeNone)
		if errors.Is(err, ErrOTPRateLimited) {
			e.metricInc(MetricOTPIssueRateLimited)
			e.emitRateLimit(ctx, "otp_issue", func() map[string]string {
				return map[string]string{"user_id": user.ID}
			})
		}
		return err
	}
	e.metricInc(MetricOTPIssued)
	e.emitAudit(ctx, auditEventOTPIssued, true, user.ID, "", nil, nil)

	if err := e.mailer.SendOTP(ctx, user.Email, code); err != nil {
		e.metricInc(MetricOTPDeliveryFailure)
		e.emitAudit(ctx, auditEventOTPDeliveryFailed, false, user.ID, "", ErrOTPDelivery, nil)
		e.logger.WithError(err).WithField("user_id", user.ID).Warn("otp email delivery failed")
		return ErrOTPDelivery.withCause(err)
	}
	return nil
}

func invalidOTPError(remaining int) *Error {
	out := ErrInvalidOTP.withMessage(fmt.Sprintf("Invalid OTP. %d attempts remaining.", remaining))
	out.Remaining = remaining
	return out
}

package chainAuth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/chainAuth/store"
	"github.com/MrEthical07/chainAuth/wallet"
)

func TestRegisterBasicInfoCreatesStepOneUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.engine.RegisterBasicInfo(ctx, registerRequest("alice", " Alice@Example.COM "))
	if err != nil {
		t.Fatalf("RegisterBasicInfo failed: %v", err)
	}
	if !res.EmailDelivered || res.Email != "alice@example.com" || res.UserID == "" {
		t.Fatalf("unexpected result: %+v", res)
	}

	u, err := env.store.FindUserByID(ctx, res.UserID)
	if err != nil {
		t.Fatalf("FindUserByID failed: %v", err)
	}
	if u.Username != "alice" || u.RegistrationStep != store.StepBasicInfo || u.RegistrationComplete {
		t.Fatalf("unexpected user: %+v", u)
	}
	if u.PasswordHash == testPassword || !strings.HasPrefix(u.PasswordHash, "$2") {
		t.Fatalf("password not hashed: %q", u.PasswordHash)
	}
	if code := env.mailer.code("alice@example.com"); len(code) != 6 {
		t.Fatalf("expected 6 digit code, got %q", code)
	}
	if env.counter(MetricRegistrationStarted) != 1 || env.counter(MetricOTPIssued) != 1 {
		t.Fatalf("unexpected metrics: %+v", env.engine.MetricsSnapshot().Counters)
	}
}

func TestRegisterBasicInfoDuplicates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.engine.RegisterBasicInfo(ctx, registerRequest("alice", "alice@example.com")); err != nil {
		t.Fatalf("RegisterBasicInfo failed: %v", err)
	}

	_, err := env.engine.RegisterBasicInfo(ctx, registerRequest("alice", "other@example.com"))
	expectErr(t, err, ErrUsernameTaken)
	if KindOf(err) != KindConflict {
		t.Fatalf("expected conflict kind, got %v", KindOf(err))
	}

	_, err = env.engine.RegisterBasicInfo(ctx, registerRequest("bob", "ALICE@example.com"))
	expectErr(t, err, ErrEmailTaken)
}

func TestRegisterBasicInfoDeliveryFailureKeepsUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mailer.setFail(true)

	res, err := env.engine.RegisterBasicInfo(ctx, registerRequest("alice", "alice@example.com"))
	expectErr(t, err, ErrOTPDelivery)
	if res == nil || res.EmailDelivered {
		t.Fatalf("expected result with EmailDelivered=false, got %+v", res)
	}
	if _, err := env.store.FindUserByID(ctx, res.UserID); err != nil {
		t.Fatalf("user should persist: %v", err)
	}

	env.mailer.setFail(false)
	if err := env.engine.ResendOTP(ctx, res.UserID); err != nil {
		t.Fatalf("ResendOTP failed: %v", err)
	}
	if err := env.engine.ConfirmEmail(ctx, res.UserID, env.mailer.code("alice@example.com")); err != nil {
		t.Fatalf("ConfirmEmail failed: %v", err)
	}
}

func TestRegisterBasicInfoValidationRunsBeforeStore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req := registerRequest("al", "alice@example.com")
	_, err := env.engine.RegisterBasicInfo(ctx, req)
	expectErr(t, err, ErrUsernameLength)

	if n, _ := env.store.CountIncomplete(ctx); n != 0 {
		t.Fatalf("expected no users, got %d", n)
	}
	if env.counter(MetricRegistrationRejected) != 1 {
		t.Fatalf("expected rejected metric")
	}
}

func TestRegisterBasicInfoRejectsPaddedUsername(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.engine.RegisterBasicInfo(ctx, registerRequest(" alice ", "alice@example.com"))
	expectErr(t, err, ErrUsernameCharacters)

	if n, _ := env.store.CountIncomplete(ctx); n != 0 {
		t.Fatalf("expected no users, got %d", n)
	}
}

func TestRegisterBasicInfoIPThrottle(t *testing.T) {
	env := newTestEnv(t, func(c *Config) {
		c.Registration.MaxPerIP = 2
	})
	ctx := WithClientIP(context.Background(), "198.51.100.7")

	for i, name := range []string{"alice", "bob"} {
		if _, err := env.engine.RegisterBasicInfo(ctx, registerRequest(name, name+"@example.com")); err != nil {
			t.Fatalf("registration %d failed: %v", i, err)
		}
	}
	_, err := env.engine.RegisterBasicInfo(ctx, registerRequest("carol", "carol@example.com"))
	expectErr(t, err, ErrRegistrationLimited)

	other := WithClientIP(context.Background(), "198.51.100.8")
	if _, err := env.engine.RegisterBasicInfo(other, registerRequest("carol", "carol@example.com")); err != nil {
		t.Fatalf("other ip should pass: %v", err)
	}
}

func TestConfirmEmailWrongCodeCountsDown(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.engine.RegisterBasicInfo(ctx, registerRequest("alice", "alice@example.com"))
	if err != nil {
		t.Fatalf("RegisterBasicInfo failed: %v", err)
	}
	wrong := "000000"
	if env.mailer.code("alice@example.com") == wrong {
		wrong = "111111"
	}

	err = env.engine.ConfirmEmail(ctx, res.UserID, wrong)
	expectErr(t, err, ErrInvalidOTP)
	if MessageOf(err) != "Invalid OTP. 2 attempts remaining." {
		t.Fatalf("unexpected message %q", MessageOf(err))
	}

	err = env.engine.ConfirmEmail(ctx, res.UserID, wrong)
	expectErr(t, err, ErrInvalidOTP)
	var e *Error
	if !errors.As(err, &e) || e.Remaining != 1 {
		t.Fatalf("expected 1 remaining, got %+v", err)
	}

	err = env.engine.ConfirmEmail(ctx, res.UserID, wrong)
	expectErr(t, err, ErrOTPExhausted)

	// The correct code no longer helps once the record is exhausted.
	err = env.engine.ConfirmEmail(ctx, res.UserID, env.mailer.code("alice@example.com"))
	if err == nil {
		t.Fatalf("expected exhausted record to be rejected")
	}

	if err := env.engine.ResendOTP(ctx, res.UserID); err != nil {
		t.Fatalf("ResendOTP failed: %v", err)
	}
	if err := env.engine.ConfirmEmail(ctx, res.UserID, env.mailer.code("alice@example.com")); err != nil {
		t.Fatalf("ConfirmEmail after resend failed: %v", err)
	}
}

func TestConfirmEmailStepGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	err := env.engine.ConfirmEmail(ctx, "", "123456")
	expectErr(t, err, ErrMissingOTPFields)

	err = env.engine.ConfirmEmail(ctx, "missing-user", "123456")
	expectErr(t, err, ErrUserNotFound)

	userID := env.registerVerified(t, "alice", "alice@example.com")
	err = env.engine.ConfirmEmail(ctx, userID, env.mailer.code("alice@example.com"))
	expectErr(t, err, ErrInvalidStep)
	if step, ok := StepOf(err); !ok || step != store.StepEmailVerified {
		t.Fatalf("expected step 2, got %d %v", step, ok)
	}
}

func TestResendOTPSupersedesPreviousCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.engine.RegisterBasicInfo(ctx, registerRequest("alice", "alice@example.com"))
	if err != nil {
		t.Fatalf("RegisterBasicInfo failed: %v", err)
	}
	first := env.mailer.code("alice@example.com")

	if err := env.engine.ResendOTP(ctx, res.UserID); err != nil {
		t.Fatalf("ResendOTP failed: %v", err)
	}
	second := env.mailer.code("alice@example.com")

	u, _ := env.store.FindUserByID(ctx, res.UserID)
	if u.RegistrationStep != store.StepBasicInfo {
		t.Fatalf("resend must not change step, got %d", u.RegistrationStep)
	}

	if first != second {
		err = env.engine.ConfirmEmail(ctx, res.UserID, first)
		expectErr(t, err, ErrInvalidOTP)
	}
	if err := env.engine.ConfirmEmail(ctx, res.UserID, second); err != nil {
		t.Fatalf("latest code must verify: %v", err)
	}
}

func TestResendOTPAfterEmailVerifiedKeepsStep(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	userID := env.registerVerified(t, "alice", "alice@example.com")
	issued := env.counter(MetricOTPIssued)

	if err := env.engine.ResendOTP(ctx, userID); err != nil {
		t.Fatalf("ResendOTP at step 2 failed: %v", err)
	}
	if got := env.counter(MetricOTPIssued); got != issued+1 {
		t.Fatalf("expected one more issued passcode, got %d after %d", got, issued)
	}

	u, err := env.store.FindUserByID(ctx, userID)
	if err != nil {
		t.Fatalf("FindUserByID failed: %v", err)
	}
	if u.RegistrationStep != store.StepEmailVerified || !u.IsEmailVerified {
		t.Fatalf("resend must leave the user untouched, got step=%d verified=%v", u.RegistrationStep, u.IsEmailVerified)
	}
}

func TestConfirmEmailCodeExpiresOnEngineClock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.engine.RegisterBasicInfo(ctx, registerRequest("alice", "alice@example.com"))
	if err != nil {
		t.Fatalf("RegisterBasicInfo failed: %v", err)
	}
	env.clock.Advance(11 * time.Minute)

	err = env.engine.ConfirmEmail(ctx, res.UserID, env.mailer.code("alice@example.com"))
	expectErr(t, err, ErrOTPNotFound)

	// The issue window follows the same clock, so a fresh code can be sent.
	if err := env.engine.ResendOTP(ctx, res.UserID); err != nil {
		t.Fatalf("ResendOTP failed: %v", err)
	}
	if err := env.engine.ConfirmEmail(ctx, res.UserID, env.mailer.code("alice@example.com")); err != nil {
		t.Fatalf("ConfirmEmail with fresh code failed: %v", err)
	}
}

func TestResendOTPIssueWindow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.engine.RegisterBasicInfo(ctx, registerRequest("alice", "alice@example.com"))
	if err != nil {
		t.Fatalf("RegisterBasicInfo failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := env.engine.ResendOTP(ctx, res.UserID); err != nil {
			t.Fatalf("resend %d failed: %v", i, err)
		}
	}
	err = env.engine.ResendOTP(ctx, res.UserID)
	expectErr(t, err, ErrOTPRateLimited)
	if KindOf(err) != KindRateLimit {
		t.Fatalf("expected rate limit kind")
	}

	err = env.engine.ResendOTP(ctx, "")
	expectErr(t, err, ErrMissingUserID)
}

func TestBindWalletRequiresVerifiedEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.engine.RegisterBasicInfo(ctx, registerRequest("alice", "alice@example.com"))
	if err != nil {
		t.Fatalf("RegisterBasicInfo failed: %v", err)
	}
	signer := newEthSigner(t)
	_, err = env.engine.BindWallet(ctx, BindWalletRequest{
		UserID:        res.UserID,
		WalletAddress: signer.address,
		SignedMessage: "hello",
		Signature:     signer.sign(t, "hello"),
	})
	expectErr(t, err, ErrEmailNotVerified)
	if step, _ := StepOf(err); step != store.StepBasicInfo {
		t.Fatalf("expected step 1, got %d", step)
	}
}

func TestBindWalletCompletesRegistration(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	userID := env.registerVerified(t, "alice", "alice@example.com")
	signer := newEthSigner(t)

	user, err := env.engine.BindWallet(ctx, BindWalletRequest{
		UserID:        userID,
		WalletAddress: signer.address,
		SignedMessage: "hello",
		Signature:     signer.sign(t, "hello"),
	})
	if err != nil {
		t.Fatalf("BindWallet failed: %v", err)
	}
	if user.WalletAddress != strings.ToLower(signer.address) {
		t.Fatalf("expected normalized address, got %q", user.WalletAddress)
	}

	stored, _ := env.store.FindUserByID(ctx, userID)
	if !stored.RegistrationComplete || stored.RegistrationStep != store.StepComplete || !stored.IsWalletVerified {
		t.Fatalf("unexpected stored user: %+v", stored)
	}
	if stored.WalletType != "ethereum" || stored.RegistrationSignature == "" {
		t.Fatalf("wallet binding not persisted: %+v", stored)
	}

	_, err = env.engine.BindWallet(ctx, BindWalletRequest{
		UserID:        userID,
		WalletAddress: signer.address,
		SignedMessage: "hello",
		Signature:     signer.sign(t, "hello"),
	})
	expectErr(t, err, ErrInvalidStep)
}

func TestBindWalletRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	userID := env.registerVerified(t, "alice", "alice@example.com")
	signer := newEthSigner(t)
	other := newEthSigner(t)

	_, err := env.engine.BindWallet(ctx, BindWalletRequest{UserID: userID})
	expectErr(t, err, ErrMissingFields)

	_, err = env.engine.BindWallet(ctx, BindWalletRequest{
		UserID:        userID,
		WalletAddress: signer.address,
		SignedMessage: "hello",
		Signature:     signer.sign(t, "hello"),
		WalletType:    "bitcoin",
	})
	expectErr(t, err, ErrUnsupportedWallet)

	_, err = env.engine.BindWallet(ctx, BindWalletRequest{
		UserID:        userID,
		WalletAddress: "0x1234",
		SignedMessage: "hello",
		Signature:     signer.sign(t, "hello"),
	})
	expectErr(t, err, ErrInvalidWalletAddr)
	if MessageOf(err) != "Invalid Ethereum address" {
		t.Fatalf("unexpected message %q", MessageOf(err))
	}

	_, err = env.engine.BindWallet(ctx, BindWalletRequest{
		UserID:        userID,
		WalletAddress: signer.address,
		SignedMessage: "hello",
		Signature:     other.sign(t, "hello"),
	})
	expectErr(t, err, ErrInvalidSignature)

	u, _ := env.store.FindUserByID(ctx, userID)
	if u.RegistrationStep != store.StepEmailVerified || u.WalletAddress != "" {
		t.Fatalf("failed binding must not change the user: %+v", u)
	}
}

func TestBindWalletSolana(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	userID := env.registerVerified(t, "alice", "alice@example.com")
	signer := newSolSigner(t)

	user, err := env.engine.BindWallet(ctx, BindWalletRequest{
		UserID:        userID,
		WalletAddress: signer.address,
		SignedMessage: "hello",
		Signature:     signer.sign("hello"),
		WalletType:    "solana",
	})
	if err != nil {
		t.Fatalf("BindWallet failed: %v", err)
	}
	if user.WalletAddress != signer.address {
		t.Fatalf("solana address must be kept verbatim, got %q", user.WalletAddress)
	}
}

func TestBindWalletDisallowedType(t *testing.T) {
	env := newTestEnv(t, func(c *Config) {
		c.Wallet.AllowedTypes = []wallet.Type{wallet.TypeEthereum}
	})
	ctx := context.Background()

	userID := env.registerVerified(t, "alice", "alice@example.com")
	signer := newSolSigner(t)
	_, err := env.engine.BindWallet(ctx, BindWalletRequest{
		UserID:        userID,
		WalletAddress: signer.address,
		SignedMessage: "hello",
		Signature:     signer.sign("hello"),
		WalletType:    "solana",
	})
	expectErr(t, err, ErrUnsupportedWallet)
}

func TestBindWalletUniqueAcrossUsers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.registerVerified(t, "alice", "alice@example.com")
	second := env.registerVerified(t, "bob", "bob@example.com")
	signer := newEthSigner(t)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		taken   int
	)
	for _, id := range []string{first, second} {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			_, err := env.engine.BindWallet(ctx, BindWalletRequest{
				UserID:        userID,
				WalletAddress: signer.address,
				SignedMessage: "bind " + userID,
				Signature:     signer.sign(t, "bind "+userID),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, ErrWalletTaken):
				taken++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(id)
	}
	wg.Wait()

	if success != 1 || taken != 1 {
		t.Fatalf("expected one winner, got success=%d taken=%d", success, taken)
	}
}

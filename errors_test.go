package chainAuth

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorDerivationKeepsSentinel(t *testing.T) {
	cause := errors.New("redis: connection refused")
	err := ErrRegistrationIncomplete.withStep(2).withUser("u1").withCause(cause)

	if !errors.Is(err, ErrRegistrationIncomplete) {
		t.Fatalf("derived error must match its sentinel")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("derived error must expose its cause")
	}
	if errors.Is(err, ErrInvalidStep) {
		t.Fatalf("derived error must not match other sentinels")
	}
	if step, ok := StepOf(err); !ok || step != 2 {
		t.Fatalf("expected step 2, got %d %v", step, ok)
	}
	if ErrRegistrationIncomplete.Step != 0 || ErrRegistrationIncomplete.UserID != "" {
		t.Fatalf("sentinel was mutated")
	}
}

func TestErrorHelpersOnForeignErrors(t *testing.T) {
	foreign := fmt.Errorf("wrapped: %w", errors.New("boom"))
	if KindOf(foreign) != KindTransient {
		t.Fatalf("foreign errors are transient")
	}
	if MessageOf(foreign) != ErrInternal.Message {
		t.Fatalf("foreign errors get the generic message")
	}
	if _, ok := StepOf(foreign); ok {
		t.Fatalf("foreign errors carry no step")
	}

	wrapped := fmt.Errorf("flow: %w", ErrWalletTaken)
	if KindOf(wrapped) != KindConflict || MessageOf(wrapped) != ErrWalletTaken.Message {
		t.Fatalf("wrapped engine errors keep their taxonomy")
	}
}

func TestInvalidOTPMessage(t *testing.T) {
	err := invalidOTPError(1)
	if err.Error() != "Invalid OTP. 1 attempts remaining." || err.Remaining != 1 {
		t.Fatalf("unexpected error %q", err.Error())
	}
	if !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("must match ErrInvalidOTP")
	}
}

func TestAuditErrorCode(t *testing.T) {
	cases := map[error]AuditErrorCode{
		nil:                       "",
		ErrInvalidCredentials:     auditErrInvalidCredentials,
		ErrLoginAttemptsExceeded:  auditErrAttemptsExceeded,
		ErrTempTokenRejected:      auditErrInvalidToken,
		ErrWalletTaken:            auditErrDuplicate,
		ErrPasswordMismatch:       auditErrInvalidInput,
		ErrRegistrationIncomplete: auditErrRegistrationIncomplete,
		errors.New("x"):           auditErrInternal,
	}
	for err, want := range cases {
		if got := auditErrorCode(err); got != want {
			t.Fatalf("auditErrorCode(%v) = %q, want %q", err, got, want)
		}
	}
}

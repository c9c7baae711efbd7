package chainAuth

import (
	"time"

	"github.com/MrEthical07/chainAuth/store"
)

// RegisterRequest carries registration step one input.
type RegisterRequest struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// RegisterResult is returned by [Engine.RegisterBasicInfo].
type RegisterResult struct {
	UserID string
	Email  string
	// EmailDelivered is false when the user was created but the passcode
	// email failed; the caller may offer a resend.
	EmailDelivered bool
}

// BindWalletRequest carries registration step three input.
type BindWalletRequest struct {
	UserID        string
	WalletAddress string
	SignedMessage string
	Signature     string
	// WalletType is "ethereum" or "solana". Empty means ethereum.
	WalletType string
}

// LoginResult is returned by [Engine.Login] after the password check.
type LoginResult struct {
	TempToken     string
	ExpiresAt     time.Time
	UserID        string
	WalletAddress string
	WalletType    string
}

// VerifyWalletRequest carries the second login phase input.
type VerifyWalletRequest struct {
	TempToken     string
	WalletAddress string
	SignedMessage string
	Signature     string
}

// SessionResult is returned by [Engine.VerifyWallet].
type SessionResult struct {
	Token     string
	ExpiresAt time.Time
	User      PublicUser
}

// PublicUser is the user projection safe to return to clients.
type PublicUser struct {
	ID                   string    `json:"id"`
	Username             string    `json:"username"`
	Email                string    `json:"email"`
	WalletAddress        string    `json:"walletAddress"`
	WalletType           string    `json:"walletType,omitempty"`
	RegistrationComplete bool      `json:"registrationComplete,omitempty"`
	LastLogin            *time.Time `json:"lastLogin,omitempty"`
}

// SessionInfo is returned by [Engine.ValidateSession].
type SessionInfo struct {
	TokenID   string
	ExpiresAt time.Time
	User      PublicUser
}

// CleanupResult reports what an incomplete-registration sweep removed.
type CleanupResult struct {
	DeletedUsers int
	Emails       []string
}

func publicUser(u *store.User) PublicUser {
	return PublicUser{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		WalletAddress: u.WalletAddress,
	}
}

func sessionUser(u *store.User) PublicUser {
	p := publicUser(u)
	p.WalletType = u.WalletType
	p.RegistrationComplete = u.RegistrationComplete
	if !u.LastLogin.IsZero() {
		lastLogin := u.LastLogin
		p.LastLogin = &lastLogin
	}
	return p
}

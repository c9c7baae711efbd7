package chainAuth

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/chainAuth/internal"
	"github.com/MrEthical07/chainAuth/wallet"
)

// ChallengePurpose selects the wording of a signature challenge.
type ChallengePurpose string

const (
	PurposeRegistration ChallengePurpose = "registration"
	PurposeLogin        ChallengePurpose = "login"
)

// ChallengeRequest describes the message a wallet should sign.
type ChallengeRequest struct {
	Purpose       ChallengePurpose
	UserID        string
	WalletType    string
	WalletAddress string
}

// Challenge is a message for the client to sign.
type Challenge struct {
	Message    string    `json:"message"`
	WalletType string    `json:"walletType"`
	Network    string    `json:"network"`
	Provider   string    `json:"provider"`
	IssuedAt   time.Time `json:"issuedAt"`
}

const nonceAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// SignatureChallenge builds the message clients present to the wallet during
// registration step three and login. The server does not require the signed
// message to match a previously issued challenge; it only checks the
// signature over whatever message the client submits.
func (e *Engine) SignatureChallenge(req ChallengeRequest) (Challenge, error) {
	if req.UserID == "" {
		return Challenge{}, ErrMissingUserID
	}
	purpose := ChallengePurpose(strings.ToLower(strings.TrimSpace(string(req.Purpose))))
	if purpose != PurposeRegistration && purpose != PurposeLogin {
		return Challenge{}, ErrUnsupportedPurpose
	}
	walletType := wallet.ParseType(req.WalletType)
	if _, err := wallet.Lookup(walletType); err != nil || !e.config.walletAllowed(walletType) {
		return Challenge{}, ErrUnsupportedWallet
	}

	app := e.config.Wallet.AppName
	if app == "" {
		app = "BlockQuest"
	}
	now := e.now()
	timestamp := strconv.FormatInt(now.UnixMilli(), 10)

	var msg string
	switch {
	case walletType == wallet.TypeSolana && purpose == PurposeRegistration:
		msg = fmt.Sprintf("%s Registration\n\nWallet: %s\nUser ID: %s\nTimestamp: %s\n\nThis signature proves you own this Solana wallet.",
			app, req.WalletAddress, req.UserID, timestamp)
	case walletType == wallet.TypeSolana:
		nonce, err := challengeNonce(6)
		if err != nil {
			return Challenge{}, ErrInternal.withCause(err)
		}
		msg = fmt.Sprintf("%s Login\n\nWallet: %s\nUser ID: %s\nNonce: %s\nTimestamp: %s\n\nSign this message to authenticate with your Solana wallet.",
			app, req.WalletAddress, req.UserID, nonce, timestamp)
	default:
		msg = fmt.Sprintf("%s - %s\n\nUser ID: %s\nTimestamp: %s\n\nThis signature proves ownership of your wallet.",
			app, purpose, req.UserID, timestamp)
	}

	return Challenge{
		Message:    msg,
		WalletType: string(walletType),
		Network:    wallet.DisplayName(walletType),
		Provider:   wallet.ProviderName(walletType),
		IssuedAt:   now.UTC(),
	}, nil
}

func challengeNonce(n int) (string, error) {
	return internal.RandomString(nonceAlphabet, n)
}

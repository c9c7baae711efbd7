package chainAuth

import (
	"regexp"
	"strings"
	"testing"
)

func TestSignatureChallengeEthereum(t *testing.T) {
	env := newTestEnv(t)

	ch, err := env.engine.SignatureChallenge(ChallengeRequest{
		Purpose: PurposeRegistration,
		UserID:  "u1",
	})
	if err != nil {
		t.Fatalf("SignatureChallenge failed: %v", err)
	}
	want := regexp.MustCompile(`^BlockQuest - registration\n\nUser ID: u1\nTimestamp: \d{13}\n\nThis signature proves ownership of your wallet\.$`)
	if !want.MatchString(ch.Message) {
		t.Fatalf("unexpected message %q", ch.Message)
	}
	if ch.WalletType != "ethereum" || ch.Network != "Ethereum" || ch.Provider != "MetaMask" {
		t.Fatalf("unexpected challenge metadata: %+v", ch)
	}
}

func TestSignatureChallengeSolana(t *testing.T) {
	env := newTestEnv(t)

	reg, err := env.engine.SignatureChallenge(ChallengeRequest{
		Purpose:       PurposeRegistration,
		UserID:        "u1",
		WalletType:    "solana",
		WalletAddress: "Wa11et",
	})
	if err != nil {
		t.Fatalf("SignatureChallenge failed: %v", err)
	}
	if !strings.HasPrefix(reg.Message, "BlockQuest Registration\n\nWallet: Wa11et\nUser ID: u1\n") {
		t.Fatalf("unexpected registration message %q", reg.Message)
	}

	login, err := env.engine.SignatureChallenge(ChallengeRequest{
		Purpose:       PurposeLogin,
		UserID:        "u1",
		WalletType:    "solana",
		WalletAddress: "Wa11et",
	})
	if err != nil {
		t.Fatalf("SignatureChallenge failed: %v", err)
	}
	nonce := regexp.MustCompile(`\nNonce: [0-9a-z]{6}\n`)
	if !nonce.MatchString(login.Message) || !strings.HasSuffix(login.Message, "Sign this message to authenticate with your Solana wallet.") {
		t.Fatalf("unexpected login message %q", login.Message)
	}
	if login.Provider != "Phantom" {
		t.Fatalf("unexpected provider %q", login.Provider)
	}
}

func TestSignatureChallengeRejections(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.SignatureChallenge(ChallengeRequest{Purpose: PurposeLogin})
	expectErr(t, err, ErrMissingUserID)

	_, err = env.engine.SignatureChallenge(ChallengeRequest{Purpose: "transfer", UserID: "u1"})
	expectErr(t, err, ErrUnsupportedPurpose)

	_, err = env.engine.SignatureChallenge(ChallengeRequest{Purpose: PurposeLogin, UserID: "u1", WalletType: "bitcoin"})
	expectErr(t, err, ErrUnsupportedWallet)
}

func TestChallengeNonce(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		n, err := challengeNonce(6)
		if err != nil {
			t.Fatalf("challengeNonce failed: %v", err)
		}
		if len(n) != 6 || strings.Trim(n, nonceAlphabet) != "" {
			t.Fatalf("unexpected nonce %q", n)
		}
		seen[n] = true
	}
	if len(seen) < 2 {
		t.Fatalf("nonces are not random")
	}
}

package chainAuth

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/chainAuth/store/gormstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/redis/go-redis/v9"
)

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	testPassword = "Str0ng!Pass"
)

// captureMailer records the last code sent to each address.
type captureMailer struct {
	mu    sync.Mutex
	codes map[string]string
	sent  int
	fail  bool
}

func newCaptureMailer() *captureMailer {
	return &captureMailer{codes: map[string]string{}}
}

func (m *captureMailer) SendOTP(_ context.Context, to, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp: connection refused")
	}
	m.codes[to] = code
	m.sent++
	return nil
}

func (m *captureMailer) code(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[email]
}

func (m *captureMailer) setFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

type testEnv struct {
	engine *Engine
	mailer *captureMailer
	store  *gormstore.Store
	redis  *miniredis.Miniredis
	audit  *ChannelSink
	clock  *testClock
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = []byte(testSecret)
	cfg.Metrics.Enabled = true
	cfg.Audit.Enabled = true
	return cfg
}

func newTestEnv(t *testing.T, mutate ...func(*Config)) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	st, err := gormstore.Open(context.Background(), gormstore.Config{
		Driver: gormstore.DriverSQLite,
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	cfg := testConfig()
	for _, fn := range mutate {
		fn(&cfg)
	}

	env := &testEnv{
		mailer: newCaptureMailer(),
		store:  st,
		redis:  mr,
		audit:  NewChannelSink(256),
		clock:  &testClock{now: time.Now()},
	}
	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithStore(st).
		WithMailer(env.mailer).
		WithAuditSink(env.audit).
		WithClock(env.clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	env.engine = engine
	return env
}

func registerRequest(username, email string) RegisterRequest {
	return RegisterRequest{
		Username:        username,
		Email:           email,
		Password:        testPassword,
		ConfirmPassword: testPassword,
	}
}

type ethSigner struct {
	key     *ecdsa.PrivateKey
	address string
}

func newEthSigner(t *testing.T) *ethSigner {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	return &ethSigner{key: key, address: crypto.PubkeyToAddress(key.PublicKey).Hex()}
}

func (s *ethSigner) sign(t *testing.T, message string) string {
	t.Helper()
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), s.key)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return "0x" + hex.EncodeToString(sig)
}

type solSigner struct {
	priv    ed25519.PrivateKey
	address string
}

func newSolSigner(t *testing.T) *solSigner {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	return &solSigner{priv: priv, address: base58.Encode(pub)}
}

func (s *solSigner) sign(message string) string {
	return base58.Encode(ed25519.Sign(s.priv, []byte(message)))
}

// registerVerified runs steps one and two and returns the user id.
func (env *testEnv) registerVerified(t *testing.T, username, email string) string {
	t.Helper()
	ctx := context.Background()

	res, err := env.engine.RegisterBasicInfo(ctx, registerRequest(username, email))
	if err != nil {
		t.Fatalf("RegisterBasicInfo failed: %v", err)
	}
	if err := env.engine.ConfirmEmail(ctx, res.UserID, env.mailer.code(email)); err != nil {
		t.Fatalf("ConfirmEmail failed: %v", err)
	}
	return res.UserID
}

// registerComplete runs all three steps with an ethereum wallet.
func (env *testEnv) registerComplete(t *testing.T, username, email string) (string, *ethSigner) {
	t.Helper()

	userID := env.registerVerified(t, username, email)
	signer := newEthSigner(t)
	_, err := env.engine.BindWallet(context.Background(), BindWalletRequest{
		UserID:        userID,
		WalletAddress: signer.address,
		SignedMessage: "register " + userID,
		Signature:     signer.sign(t, "register "+userID),
	})
	if err != nil {
		t.Fatalf("BindWallet failed: %v", err)
	}
	return userID, signer
}

func expectErr(t *testing.T, err, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func (env *testEnv) counter(id MetricID) uint64 {
	return env.engine.MetricsSnapshot().Counters[id]
}

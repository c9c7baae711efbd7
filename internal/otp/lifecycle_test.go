package otp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/chainAuth/store/gormstore"
	"github.com/google/uuid"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestLifecycle(t *testing.T, codes ...string) (*Lifecycle, *gormstore.Store, *clock) {
	t.Helper()

	s, err := gormstore.Open(context.Background(), gormstore.Config{
		Driver: gormstore.DriverSQLite,
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	c := &clock{t: time.Now().UTC()}
	l := New(s, Config{Digits: 6, TTL: 10 * time.Minute, MaxAttempts: 3, IssueWindow: 15 * time.Minute, IssueLimit: 3, Now: c.Now})

	var mu sync.Mutex
	l.generate = func(int) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(codes) == 0 {
			return "", errors.New("no codes left")
		}
		code := codes[0]
		codes = codes[1:]
		c.Advance(time.Millisecond)
		return code, nil
	}
	return l, s, c
}

func TestVerifySuccessIsSingleUse(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLifecycle(t, "123456")

	code, err := l.Issue(ctx, "alice@x.com")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if code != "123456" {
		t.Fatalf("unexpected code %q", code)
	}
	if _, err := l.Verify(ctx, "alice@x.com", "123456"); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if _, err := l.Verify(ctx, "alice@x.com", "123456"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after success, got %v", err)
	}
}

func TestWrongCodesExhaustAfterThree(t *testing.T) {
	ctx := context.Background()
	l, s, _ := newTestLifecycle(t, "123456")

	if _, err := l.Issue(ctx, "alice@x.com"); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	out, err := l.Verify(ctx, "alice@x.com", "000000")
	if !errors.Is(err, ErrInvalidCode) || out.Remaining != 2 {
		t.Fatalf("attempt 1: expected invalid with 2 remaining, got %v %+v", err, out)
	}
	out, err = l.Verify(ctx, "alice@x.com", "000000")
	if !errors.Is(err, ErrInvalidCode) || out.Remaining != 1 {
		t.Fatalf("attempt 2: expected invalid with 1 remaining, got %v %+v", err, out)
	}
	if _, err := l.Verify(ctx, "alice@x.com", "000000"); !errors.Is(err, ErrExhausted) {
		t.Fatalf("attempt 3: expected exhausted, got %v", err)
	}
	if _, err := l.Verify(ctx, "alice@x.com", "123456"); !errors.Is(err, ErrExhausted) {
		t.Fatalf("attempt 4: expected exhausted even with right code, got %v", err)
	}

	record, err := s.FindLatestUnverifiedOTP(ctx, "alice@x.com")
	if err != nil {
		t.Fatalf("FindLatestUnverifiedOTP failed: %v", err)
	}
	if record.Attempts != 3 {
		t.Fatalf("expected attempts to stay at 3, got %d", record.Attempts)
	}
}

func TestConcurrentWrongCodesNeverPassCap(t *testing.T) {
	ctx := context.Background()
	l, s, _ := newTestLifecycle(t, "123456")

	if _, err := l.Issue(ctx, "alice@x.com"); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = l.Verify(ctx, "alice@x.com", "999999")
		}()
	}
	wg.Wait()

	record, err := s.FindLatestUnverifiedOTP(ctx, "alice@x.com")
	if err != nil {
		t.Fatalf("FindLatestUnverifiedOTP failed: %v", err)
	}
	if record.Attempts != 3 {
		t.Fatalf("expected attempts capped at 3, got %d", record.Attempts)
	}
}

func TestReissueSupersedesOlderCode(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLifecycle(t, "111111", "222222")

	if _, err := l.Issue(ctx, "alice@x.com"); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := l.Issue(ctx, "alice@x.com"); err != nil {
		t.Fatalf("second Issue failed: %v", err)
	}

	if _, err := l.Verify(ctx, "alice@x.com", "111111"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected superseded code to be invalid, got %v", err)
	}
	if _, err := l.Verify(ctx, "alice@x.com", "222222"); err != nil {
		t.Fatalf("expected latest code to verify, got %v", err)
	}
}

func TestIssueRateLimitWindow(t *testing.T) {
	ctx := context.Background()
	l, _, c := newTestLifecycle(t, "100000", "200000", "300000", "400000")

	for i := 0; i < 3; i++ {
		if _, err := l.Issue(ctx, "alice@x.com"); err != nil {
			t.Fatalf("Issue %d failed: %v", i+1, err)
		}
	}
	if _, err := l.Issue(ctx, "alice@x.com"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if _, err := l.Issue(ctx, "bob@x.com"); err != nil {
		t.Fatalf("expected other email to be unaffected, got %v", err)
	}

	c.Advance(16 * time.Minute)
	if err := l.CheckIssue(ctx, "alice@x.com"); err != nil {
		t.Fatalf("expected window to reopen, got %v", err)
	}
}

func TestExpiredAndExactMatch(t *testing.T) {
	ctx := context.Background()
	l, _, c := newTestLifecycle(t, "012345", "654321")

	if _, err := l.Issue(ctx, "alice@x.com"); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := l.Verify(ctx, "alice@x.com", "12345"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected unpadded code to be invalid, got %v", err)
	}
	if _, err := l.Verify(ctx, "alice@x.com", " 012345"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected whitespace to be invalid, got %v", err)
	}

	c.Advance(11 * time.Minute)
	if _, err := l.Verify(ctx, "alice@x.com", "012345"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired record to be not found, got %v", err)
	}
	if _, err := l.Verify(ctx, "nobody@x.com", "012345"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown email, got %v", err)
	}
}

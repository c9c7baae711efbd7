package stores

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestPendingLoginStore(t *testing.T) (*PendingLoginStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewPendingLoginStore(client, ""), mr
}

func TestPendingLoginSaveGetDelete(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestPendingLoginStore(t)

	record := &PendingLogin{UserID: "u1", ExpiresAt: time.Now().Add(time.Minute).Unix()}
	if err := s.Save(ctx, "jti-1", record, time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !mr.Exists("cpl:jti-1") {
		t.Fatal("expected key to exist")
	}

	got, err := s.Get(ctx, "jti-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.UserID != "u1" || got.Attempts != 0 {
		t.Fatalf("unexpected record %+v", got)
	}

	deleted, err := s.Delete(ctx, "jti-1")
	if err != nil || !deleted {
		t.Fatalf("expected first delete to win, deleted=%v err=%v", deleted, err)
	}
	deleted, err = s.Delete(ctx, "jti-1")
	if err != nil || deleted {
		t.Fatalf("expected replayed delete to report false, deleted=%v err=%v", deleted, err)
	}
	if _, err := s.Get(ctx, "jti-1"); !errors.Is(err, ErrPendingLoginNotFound) {
		t.Fatalf("expected ErrPendingLoginNotFound, got %v", err)
	}
}

func TestPendingLoginRecordFailureExceeds(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestPendingLoginStore(t)

	record := &PendingLogin{UserID: "u1", ExpiresAt: time.Now().Add(time.Minute).Unix()}
	if err := s.Save(ctx, "jti-2", record, time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	for i := 1; i <= 2; i++ {
		exceeded, err := s.RecordFailure(ctx, "jti-2", 3)
		if err != nil || exceeded {
			t.Fatalf("failure %d: expected not exceeded, got exceeded=%v err=%v", i, exceeded, err)
		}
	}
	got, err := s.Get(ctx, "jti-2")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", got.Attempts)
	}

	exceeded, err := s.RecordFailure(ctx, "jti-2", 3)
	if err != nil || !exceeded {
		t.Fatalf("expected third failure to exceed, exceeded=%v err=%v", exceeded, err)
	}
	if mr.Exists("cpl:jti-2") {
		t.Fatal("expected record to be removed once exceeded")
	}
	if _, err := s.RecordFailure(ctx, "jti-2", 3); !errors.Is(err, ErrPendingLoginNotFound) {
		t.Fatalf("expected ErrPendingLoginNotFound, got %v", err)
	}
}

func TestPendingLoginExpired(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestPendingLoginStore(t)

	record := &PendingLogin{UserID: "u1", ExpiresAt: time.Now().Add(time.Minute).Unix()}
	if err := s.Save(ctx, "jti-3", record, time.Hour); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	s.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	if _, err := s.Get(ctx, "jti-3"); !errors.Is(err, ErrPendingLoginExpired) {
		t.Fatalf("expected ErrPendingLoginExpired, got %v", err)
	}
}
